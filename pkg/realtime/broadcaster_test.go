package realtime_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/pushkit/pkg/ability"
	"github.com/dmitrymomot/pushkit/pkg/entry"
	"github.com/dmitrymomot/pushkit/pkg/hub"
	"github.com/dmitrymomot/pushkit/pkg/realtime"
	"github.com/dmitrymomot/pushkit/pkg/schema"
	"github.com/dmitrymomot/pushkit/pkg/strategy"
)

const tokenSalt = "test-salt"

func testRegistry() *schema.MemoryRegistry {
	reg := schema.NewMemoryRegistry()
	reg.RegisterContentType(&schema.Schema{
		UID:          "article",
		SingularName: "article",
		Attributes: map[string]schema.Attribute{
			"title":  {Type: schema.TypeScalar},
			"secret": {Type: schema.TypeScalar, Private: true},
		},
	})
	return reg
}

func articleSchema(t *testing.T, reg schema.Registry) *schema.Schema {
	t.Helper()
	s, err := reg.ContentType("article")
	require.NoError(t, err)
	return s
}

func identityFixtures() *strategy.MemoryStore {
	store := strategy.NewMemoryStore()
	store.AddRole(strategy.Role{
		ID:   "1",
		Name: "Editor",
		Permissions: []ability.Permission{
			{Action: "article.find"},
			{Action: "article.update"},
		},
	})
	store.AddRole(strategy.Role{
		ID:   "2",
		Name: "Viewer",
		Permissions: []ability.Permission{
			{Action: "article.find"},
		},
	})
	store.AddToken(strategy.HashKey("bot-key", tokenSalt), strategy.Token{
		ID:   "t1",
		Name: "Bot",
		Type: strategy.TokenTypeFullAccess,
	})
	store.AddToken(strategy.HashKey("reader-key", tokenSalt), strategy.Token{
		ID:   "t2",
		Name: "Reader",
		Type: strategy.TokenTypeReadOnly,
		Permissions: []ability.Permission{
			{Action: "article.find"},
		},
	})
	return store
}

func newBroadcaster(t *testing.T, h hub.Hub) *realtime.Broadcaster {
	t.Helper()
	store := identityFixtures()
	return realtime.NewBroadcaster(h, testRegistry(), []strategy.Strategy{
		strategy.NewRoleStrategy([]byte("signing-key"), store, store),
		strategy.NewTokenStrategy(store, tokenSalt),
	})
}

func receiveEvent(t *testing.T, sub hub.Subscriber) hub.Event {
	t.Helper()
	select {
	case ev, ok := <-sub.Events():
		require.True(t, ok, "subscriber channel closed")
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return hub.Event{}
	}
}

func assertSilent(t *testing.T, sub hub.Subscriber) {
	t.Helper()
	select {
	case ev := <-sub.Events():
		t.Fatalf("unexpected event %q", ev.Name)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroadcaster_EmitToQualifyingRoomsOnly(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := hub.NewMemoryHub(4)
	defer h.Close()
	b := newBroadcaster(t, h)

	editor, err := h.Join(ctx, "io-role-editor")
	require.NoError(t, err)
	viewer, err := h.Join(ctx, "io-role-viewer")
	require.NoError(t, err)
	bot, err := h.Join(ctx, "io-token-bot")
	require.NoError(t, err)
	reader, err := h.Join(ctx, "io-token-reader")
	require.NoError(t, err)

	reg := testRegistry()
	require.NoError(t, b.Emit(ctx, realtime.ActionUpdate, articleSchema(t, reg), map[string]any{
		"id":    5,
		"title": "hello",
	}))

	ev := receiveEvent(t, editor)
	assert.Equal(t, "article:update", ev.Name)
	resp, ok := ev.Data.(*entry.Response)
	require.True(t, ok)
	assert.Equal(t, 5, resp.Data.(*entry.Entry).ID)

	assert.Equal(t, "article:update", receiveEvent(t, bot).Name, "full-access rooms qualify unconditionally")

	assertSilent(t, viewer)
	assertSilent(t, reader)
}

func TestBroadcaster_ReadOnlyTokenNeverSeesWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := hub.NewMemoryHub(4)
	defer h.Close()
	b := newBroadcaster(t, h)

	reader, err := h.Join(ctx, "io-token-reader")
	require.NoError(t, err)

	reg := testRegistry()
	for _, action := range []realtime.Action{realtime.ActionCreate, realtime.ActionUpdate, realtime.ActionDelete} {
		require.NoError(t, b.Emit(ctx, action, articleSchema(t, reg), map[string]any{"id": 1}))
	}
	assertSilent(t, reader)
}

func TestBroadcaster_SanitizesPayloadPerRoom(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := hub.NewMemoryHub(4)
	defer h.Close()
	b := newBroadcaster(t, h)

	editor, err := h.Join(ctx, "io-role-editor")
	require.NoError(t, err)

	reg := testRegistry()
	require.NoError(t, b.Emit(ctx, realtime.ActionUpdate, articleSchema(t, reg), map[string]any{
		"id":     5,
		"title":  "hello",
		"secret": "hidden",
	}))

	resp := receiveEvent(t, editor).Data.(*entry.Response)
	attrs := resp.Data.(*entry.Entry).Attributes
	assert.Equal(t, "hello", attrs["title"])
	assert.NotContains(t, attrs, "secret")
}

func TestBroadcaster_NilRecordIsNoop(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := hub.NewMemoryHub(4)
	defer h.Close()
	b := newBroadcaster(t, h)

	editor, err := h.Join(ctx, "io-role-editor")
	require.NoError(t, err)

	reg := testRegistry()
	require.NoError(t, b.Emit(ctx, realtime.ActionUpdate, articleSchema(t, reg), nil))
	assertSilent(t, editor)
}

func TestBroadcaster_RoomNameNormalization(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := strategy.NewMemoryStore()
	store.AddRole(strategy.Role{
		ID:   "3",
		Name: "Content Manager",
		Permissions: []ability.Permission{
			{Action: "article.update"},
		},
	})

	h := hub.NewMemoryHub(4)
	defer h.Close()
	reg := testRegistry()
	b := realtime.NewBroadcaster(h, reg, []strategy.Strategy{
		strategy.NewRoleStrategy([]byte("signing-key"), store, store),
	})

	sub, err := h.Join(ctx, "io-role-content-manager")
	require.NoError(t, err)

	require.NoError(t, b.Emit(ctx, realtime.ActionUpdate, articleSchema(t, reg), map[string]any{"id": 1}))
	assert.Equal(t, "article:update", receiveEvent(t, sub).Name)
}

// failingStrategy always fails room enumeration.
type failingStrategy struct{}

func (failingStrategy) Name() string { return "failing" }
func (failingStrategy) Authenticate(ctx context.Context, creds strategy.Credentials) (*strategy.Identity, error) {
	return nil, errors.New("always fails")
}
func (failingStrategy) Verify(state strategy.AuthState, scopes ...string) error { return nil }
func (failingStrategy) RoomName(id *strategy.Identity) string                   { return "" }
func (failingStrategy) Rooms(ctx context.Context) ([]*strategy.Identity, error) {
	return nil, errors.New("enumeration failed")
}
func (failingStrategy) Credentials(id *strategy.Identity) string { return "" }

func TestBroadcaster_FailureIsolation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store := identityFixtures()
	h := hub.NewMemoryHub(4)
	defer h.Close()
	reg := testRegistry()
	b := realtime.NewBroadcaster(h, reg, []strategy.Strategy{
		failingStrategy{},
		strategy.NewRoleStrategy([]byte("signing-key"), store, store),
	})

	editor, err := h.Join(ctx, "io-role-editor")
	require.NoError(t, err)

	err = b.Emit(ctx, realtime.ActionUpdate, articleSchema(t, reg), map[string]any{"id": 5})
	assert.Error(t, err, "enumeration failure is reported")
	assert.Equal(t, "article:update", receiveEvent(t, editor).Name, "remaining strategies still emit")
}

func TestBroadcaster_Raw(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	h := hub.NewMemoryHub(4)
	defer h.Close()
	b := newBroadcaster(t, h)

	editor, err := h.Join(ctx, "io-role-editor")
	require.NoError(t, err)
	viewer, err := h.Join(ctx, "io-role-viewer")
	require.NoError(t, err)

	t.Run("explicit rooms", func(t *testing.T) {
		require.NoError(t, b.Raw(ctx, "system:maintenance", "scheduled", "io-role-editor"))
		ev := receiveEvent(t, editor)
		assert.Equal(t, "system:maintenance", ev.Name)
		assert.Equal(t, "scheduled", ev.Data)
		assertSilent(t, viewer)
	})

	t.Run("all rooms", func(t *testing.T) {
		require.NoError(t, b.Raw(ctx, "system:ping", nil))
		assert.Equal(t, "system:ping", receiveEvent(t, editor).Name)
		assert.Equal(t, "system:ping", receiveEvent(t, viewer).Name)
	})
}
