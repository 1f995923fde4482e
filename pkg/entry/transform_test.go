package entry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/entry"
	"github.com/dmitrymomot/pushkit/pkg/schema"
)

func testRegistry() *schema.MemoryRegistry {
	reg := schema.NewMemoryRegistry()

	reg.RegisterContentType(&schema.Schema{
		UID:          "api::article.article",
		SingularName: "article",
		Attributes: map[string]schema.Attribute{
			"title":  {Type: schema.TypeScalar},
			"author": {Type: schema.TypeRelation, Target: "api::author.author"},
			"seo":    {Type: schema.TypeComponent, Component: "shared.seo"},
			"blocks": {Type: schema.TypeDynamicZone},
			"cover":  {Type: schema.TypeMedia},
		},
	})
	reg.RegisterContentType(&schema.Schema{
		UID:          "api::author.author",
		SingularName: "author",
		Attributes: map[string]schema.Attribute{
			"name": {Type: schema.TypeScalar},
		},
	})
	reg.RegisterContentType(&schema.Schema{
		UID:          schema.FileUID,
		SingularName: "file",
		Attributes: map[string]schema.Attribute{
			"url": {Type: schema.TypeScalar},
		},
	})
	reg.RegisterComponent(&schema.Schema{
		UID: "shared.seo",
		Attributes: map[string]schema.Attribute{
			"metaTitle": {Type: schema.TypeScalar},
		},
	})
	reg.RegisterComponent(&schema.Schema{
		UID: "shared.quote",
		Attributes: map[string]schema.Attribute{
			"text": {Type: schema.TypeScalar},
		},
	})

	return reg
}

func articleSchema(t *testing.T, reg schema.Registry) *schema.Schema {
	t.Helper()
	s, err := reg.ContentType("api::article.article")
	require.NoError(t, err)
	return s
}

func TestTransformer_Scalars(t *testing.T) {
	t.Parallel()

	reg := testRegistry()
	tr := entry.NewTransformer(reg)

	out, err := tr.Transform(map[string]any{
		"id":    5,
		"title": "hello",
		"views": 10,
	}, articleSchema(t, reg))
	require.NoError(t, err)

	e, ok := out.(*entry.Entry)
	require.True(t, ok)
	assert.Equal(t, 5, e.ID)
	assert.Equal(t, "hello", e.Attributes["title"])
	assert.Equal(t, 10, e.Attributes["views"], "undeclared properties pass through")
	assert.NotContains(t, e.Attributes, "id")
}

func TestTransformer_NestedShapes(t *testing.T) {
	t.Parallel()

	reg := testRegistry()
	tr := entry.NewTransformer(reg)

	record := map[string]any{
		"id":    5,
		"title": "hello",
		"author": map[string]any{
			"id":   7,
			"name": "Ada",
		},
		"seo": map[string]any{
			"id":        1,
			"metaTitle": "Hello",
		},
		"blocks": []any{
			map[string]any{
				schema.ComponentKey: "shared.quote",
				"id":                3,
				"text":              "quoted",
			},
		},
		"cover": map[string]any{
			"id":  9,
			"url": "/uploads/cover.png",
		},
	}

	out, err := tr.Transform(record, articleSchema(t, reg))
	require.NoError(t, err)
	e := out.(*entry.Entry)

	// Relation is wrapped as {data: {id, attributes}}.
	author, ok := e.Attributes["author"].(map[string]any)
	require.True(t, ok)
	authorEntry, ok := author["data"].(*entry.Entry)
	require.True(t, ok)
	assert.Equal(t, 7, authorEntry.ID)
	assert.Equal(t, "Ada", authorEntry.Attributes["name"])

	// Component is flattened to {id, ...fields}.
	seo, ok := e.Attributes["seo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, seo["id"])
	assert.Equal(t, "Hello", seo["metaTitle"])
	assert.NotContains(t, seo, "attributes")

	// Dynamic zone items are flattened through their own component tag.
	blocks, ok := e.Attributes["blocks"].([]any)
	require.True(t, ok)
	require.Len(t, blocks, 1)
	quote := blocks[0].(map[string]any)
	assert.Equal(t, 3, quote["id"])
	assert.Equal(t, "quoted", quote["text"])
	assert.Equal(t, "shared.quote", quote[schema.ComponentKey])

	// Media is wrapped like a relation, against the file type.
	cover, ok := e.Attributes["cover"].(map[string]any)
	require.True(t, ok)
	file := cover["data"].(*entry.Entry)
	assert.Equal(t, 9, file.ID)
	assert.Equal(t, "/uploads/cover.png", file.Attributes["url"])
}

func TestTransformer_NilAndArrays(t *testing.T) {
	t.Parallel()

	reg := testRegistry()
	tr := entry.NewTransformer(reg)
	s := articleSchema(t, reg)

	out, err := tr.Transform(nil, s)
	require.NoError(t, err)
	assert.Nil(t, out)

	// Nil relation stays nil.
	out, err = tr.Transform(map[string]any{"id": 1, "author": nil}, s)
	require.NoError(t, err)
	e := out.(*entry.Entry)
	rel := e.Attributes["author"].(map[string]any)
	assert.Nil(t, rel["data"])

	// Lists transform element-wise.
	out, err = tr.Transform([]any{
		map[string]any{"id": 1, "title": "a"},
		map[string]any{"id": 2, "title": "b"},
	}, s)
	require.NoError(t, err)
	items := out.([]any)
	require.Len(t, items, 2)
	assert.Equal(t, 2, items[1].(*entry.Entry).ID)
}

func TestTransformer_InvalidEntry(t *testing.T) {
	t.Parallel()

	reg := testRegistry()
	tr := entry.NewTransformer(reg)

	_, err := tr.Transform("not an object", articleSchema(t, reg))
	assert.ErrorIs(t, err, entry.ErrInvalidEntry)
}

func TestTransformer_Deterministic(t *testing.T) {
	t.Parallel()

	reg := testRegistry()
	tr := entry.NewTransformer(reg)
	s := articleSchema(t, reg)

	record := map[string]any{
		"id":     5,
		"title":  "hello",
		"author": map[string]any{"id": 7, "name": "Ada"},
	}

	first, err := tr.Transform(record, s)
	require.NoError(t, err)
	second, err := tr.Transform(record, s)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestTransformer_Response(t *testing.T) {
	t.Parallel()

	reg := testRegistry()
	tr := entry.NewTransformer(reg)

	resp, err := tr.Response(map[string]any{"id": 5, "title": "hello"}, articleSchema(t, reg))
	require.NoError(t, err)
	require.NotNil(t, resp)
	assert.NotNil(t, resp.Meta)
	assert.Equal(t, 5, resp.Data.(*entry.Entry).ID)
}
