package entry

import (
	"fmt"

	"github.com/dmitrymomot/pushkit/pkg/schema"
)

// Entry is the public shape of a single transformed record.
type Entry struct {
	ID         any            `json:"id"`
	Attributes map[string]any `json:"attributes"`
}

// Response is the standard envelope for entity event payloads.
type Response struct {
	Data any            `json:"data"`
	Meta map[string]any `json:"meta"`
}

// Transformer reshapes raw records according to their schemas.
type Transformer struct {
	registry schema.Registry
}

// NewTransformer creates a transformer resolving related schemas through the
// given registry.
func NewTransformer(registry schema.Registry) *Transformer {
	return &Transformer{registry: registry}
}

// Response transforms a record (or list of records) and wraps it in the
// {data, meta} envelope.
func (t *Transformer) Response(data any, s *schema.Schema) (*Response, error) {
	transformed, err := t.Transform(data, s)
	if err != nil {
		return nil, err
	}
	return &Response{Data: transformed, Meta: map[string]any{}}, nil
}

// Transform converts a raw record into the {id, attributes} shape. Nil input
// is returned unchanged at any depth, lists are transformed element-wise, and
// any other non-object value is a schema violation.
func (t *Transformer) Transform(data any, s *schema.Schema) (any, error) {
	switch v := data.(type) {
	case nil:
		return nil, nil
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			transformed, err := t.Transform(item, s)
			if err != nil {
				return nil, err
			}
			out[i] = transformed
		}
		return out, nil
	case []map[string]any:
		out := make([]any, len(v))
		for i, item := range v {
			transformed, err := t.Transform(item, s)
			if err != nil {
				return nil, err
			}
			out[i] = transformed
		}
		return out, nil
	case map[string]any:
		return t.transformObject(v, s)
	default:
		return nil, fmt.Errorf("%w, got %T", ErrInvalidEntry, data)
	}
}

func (t *Transformer) transformObject(record map[string]any, s *schema.Schema) (*Entry, error) {
	attributes := make(map[string]any, len(record))

	for key, value := range record {
		if key == "id" {
			continue
		}

		attr, declared := s.Attribute(key)
		if !declared {
			attributes[key] = value
			continue
		}

		transformed, err := t.transformAttribute(value, attr)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", key, err)
		}
		attributes[key] = transformed
	}

	return &Entry{ID: record["id"], Attributes: attributes}, nil
}

func (t *Transformer) transformAttribute(value any, attr schema.Attribute) (any, error) {
	switch attr.Type {
	case schema.TypeRelation:
		if !isEntryValue(value) || attr.Target == "" {
			return value, nil
		}
		target, err := t.registry.ContentType(attr.Target)
		if err != nil {
			return nil, err
		}
		data, err := t.Transform(value, target)
		if err != nil {
			return nil, err
		}
		return map[string]any{"data": data}, nil

	case schema.TypeComponent:
		if !isEntryValue(value) {
			return value, nil
		}
		component, err := t.registry.Component(attr.Component)
		if err != nil {
			return nil, err
		}
		return t.transformComponent(value, component)

	case schema.TypeDynamicZone:
		items, ok := value.([]any)
		if !ok {
			return value, nil
		}
		out := make([]any, len(items))
		for i, item := range items {
			transformed, err := t.transformZoneItem(item)
			if err != nil {
				return nil, err
			}
			out[i] = transformed
		}
		return out, nil

	case schema.TypeMedia:
		if !isEntryValue(value) {
			return value, nil
		}
		file, err := t.registry.ContentType(schema.FileUID)
		if err != nil {
			return nil, err
		}
		data, err := t.Transform(value, file)
		if err != nil {
			return nil, err
		}
		return map[string]any{"data": data}, nil

	default:
		return value, nil
	}
}

// transformComponent flattens a component entry to {id, ...attributes},
// dropping the nested attributes wrapper top-level entries carry.
func (t *Transformer) transformComponent(value any, component *schema.Schema) (any, error) {
	if items, ok := value.([]any); ok {
		out := make([]any, len(items))
		for i, item := range items {
			flattened, err := t.transformComponent(item, component)
			if err != nil {
				return nil, err
			}
			out[i] = flattened
		}
		return out, nil
	}

	transformed, err := t.Transform(value, component)
	if err != nil {
		return nil, err
	}
	e, ok := transformed.(*Entry)
	if !ok {
		return transformed, nil
	}

	flat := make(map[string]any, len(e.Attributes)+1)
	flat["id"] = e.ID
	for k, v := range e.Attributes {
		flat[k] = v
	}
	return flat, nil
}

// transformZoneItem resolves a dynamic zone item through the component tag it
// carries and flattens it like a regular component.
func (t *Transformer) transformZoneItem(item any) (any, error) {
	record, ok := item.(map[string]any)
	if !ok {
		if item == nil {
			return nil, nil
		}
		return nil, fmt.Errorf("%w, got %T in dynamic zone", ErrInvalidEntry, item)
	}

	uid, _ := record[schema.ComponentKey].(string)
	component, err := t.registry.Component(uid)
	if err != nil {
		return nil, err
	}
	return t.transformComponent(record, component)
}

// isEntryValue reports whether a value can be treated as an entry: nil,
// a single object or a list of objects.
func isEntryValue(value any) bool {
	switch value.(type) {
	case nil, map[string]any, []any, []map[string]any:
		return true
	default:
		return false
	}
}
