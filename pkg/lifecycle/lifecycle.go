package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/pushkit/pkg/realtime"
	"github.com/dmitrymomot/pushkit/pkg/schema"
)

// Subscription enables lifecycle emission for one content type. A nil or
// empty Actions list enables all three mutation kinds.
type Subscription struct {
	UID     string
	Actions []realtime.Action
}

func (s Subscription) enabled(action realtime.Action) bool {
	if len(s.Actions) == 0 {
		return true
	}
	for _, a := range s.Actions {
		if a == action {
			return true
		}
	}
	return false
}

// Query selects records for a refetch or snapshot.
type Query struct {
	// IDs restricts the result to records with one of these ids.
	IDs []any

	// Where restricts the result by field equality. Ignored when IDs is set.
	Where map[string]any

	// Fields projects the result to the named fields plus id. Empty means
	// all fields.
	Fields []string
}

// EntityService reads records from the backing store. Bulk hooks use it to
// resolve which records a mutation touches.
type EntityService interface {
	FindMany(ctx context.Context, uid string, q Query) ([]map[string]any, error)
}

// Emitter dispatches one mutation event. *realtime.Broadcaster satisfies it.
type Emitter interface {
	Emit(ctx context.Context, action realtime.Action, sc *schema.Schema, record any) error
}

// Snapshot carries the pre-mutation state from a "before" hook to its
// matching "after" hook. It must not be reused across mutations.
type Snapshot struct {
	ids     []any
	records []map[string]any
}

// Binder wires persistence hooks to broadcast emission for the subscribed
// content types.
type Binder struct {
	emitter  Emitter
	registry schema.Registry
	entities EntityService
	subs     map[string]Subscription
	logger   *slog.Logger
}

// BinderOption configures a Binder during construction.
type BinderOption func(*Binder)

// WithLogger configures the logger used for skipped emissions.
func WithLogger(logger *slog.Logger) BinderOption {
	return func(b *Binder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBinder creates a binder emitting for the given subscriptions.
func NewBinder(emitter Emitter, registry schema.Registry, entities EntityService, subs []Subscription, opts ...BinderOption) *Binder {
	b := &Binder{
		emitter:  emitter,
		registry: registry,
		entities: entities,
		subs:     make(map[string]Subscription, len(subs)),
		logger:   slog.New(slog.DiscardHandler),
	}
	for _, sub := range subs {
		b.subs[sub.UID] = sub
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// subscribed resolves the schema for a uid if the action is enabled for it.
func (b *Binder) subscribed(uid string, action realtime.Action) (*schema.Schema, error) {
	sub, ok := b.subs[uid]
	if !ok || !sub.enabled(action) {
		return nil, nil
	}
	sc, err := b.registry.ContentType(uid)
	if err != nil {
		return nil, fmt.Errorf("lifecycle: resolve schema for %s: %w", uid, err)
	}
	return sc, nil
}

// AfterCreate emits a create event with the mutation result.
func (b *Binder) AfterCreate(ctx context.Context, uid string, record any) error {
	return b.emitSingle(ctx, uid, realtime.ActionCreate, record)
}

// AfterCreateMany refetches the created records by the ids the batch result
// exposes and emits one create event per record. Without ids nothing is
// emitted.
func (b *Binder) AfterCreateMany(ctx context.Context, uid string, ids []any) error {
	sc, err := b.subscribed(uid, realtime.ActionCreate)
	if err != nil || sc == nil {
		return err
	}
	if len(ids) == 0 {
		b.logger.DebugContext(ctx, "bulk create exposed no ids, skipping emission",
			slog.String("uid", uid))
		return nil
	}

	records, err := b.entities.FindMany(ctx, uid, Query{IDs: ids})
	if err != nil {
		return fmt.Errorf("lifecycle: refetch created %s records: %w", uid, err)
	}
	return b.emitEach(ctx, realtime.ActionCreate, sc, records)
}

// AfterUpdate emits an update event with the mutation result.
func (b *Binder) AfterUpdate(ctx context.Context, uid string, record any) error {
	return b.emitSingle(ctx, uid, realtime.ActionUpdate, record)
}

// BeforeUpdateMany snapshots the ids of the records the update filter
// matches. The filter criteria are only meaningful before the mutation runs.
func (b *Binder) BeforeUpdateMany(ctx context.Context, uid string, where map[string]any) (*Snapshot, error) {
	sc, err := b.subscribed(uid, realtime.ActionUpdate)
	if err != nil || sc == nil {
		return nil, err
	}

	records, err := b.entities.FindMany(ctx, uid, Query{Where: where, Fields: []string{"id"}})
	if err != nil {
		return nil, fmt.Errorf("lifecycle: snapshot %s update ids: %w", uid, err)
	}

	ids := make([]any, 0, len(records))
	for _, record := range records {
		if id, ok := record["id"]; ok {
			ids = append(ids, id)
		}
	}
	return &Snapshot{ids: ids}, nil
}

// AfterUpdateMany refetches the snapshotted ids and emits one update event
// per record. A missing snapshot skips emission.
func (b *Binder) AfterUpdateMany(ctx context.Context, uid string, snap *Snapshot) error {
	sc, err := b.subscribed(uid, realtime.ActionUpdate)
	if err != nil || sc == nil {
		return err
	}
	if snap == nil || len(snap.ids) == 0 {
		b.logger.DebugContext(ctx, "bulk update snapshot missing, skipping emission",
			slog.String("uid", uid))
		return nil
	}

	records, err := b.entities.FindMany(ctx, uid, Query{IDs: snap.ids})
	if err != nil {
		return fmt.Errorf("lifecycle: refetch updated %s records: %w", uid, err)
	}
	return b.emitEach(ctx, realtime.ActionUpdate, sc, records)
}

// AfterDelete emits a delete event with the mutation result.
func (b *Binder) AfterDelete(ctx context.Context, uid string, record any) error {
	return b.emitSingle(ctx, uid, realtime.ActionDelete, record)
}

// BeforeDeleteMany snapshots the full records the delete filter matches.
// Deleted rows cannot be refetched afterwards.
func (b *Binder) BeforeDeleteMany(ctx context.Context, uid string, where map[string]any) (*Snapshot, error) {
	sc, err := b.subscribed(uid, realtime.ActionDelete)
	if err != nil || sc == nil {
		return nil, err
	}

	records, err := b.entities.FindMany(ctx, uid, Query{Where: where})
	if err != nil {
		return nil, fmt.Errorf("lifecycle: snapshot %s delete records: %w", uid, err)
	}
	return &Snapshot{records: records}, nil
}

// AfterDeleteMany emits one delete event per snapshotted record. A missing
// snapshot skips emission.
func (b *Binder) AfterDeleteMany(ctx context.Context, uid string, snap *Snapshot) error {
	sc, err := b.subscribed(uid, realtime.ActionDelete)
	if err != nil || sc == nil {
		return err
	}
	if snap == nil || len(snap.records) == 0 {
		b.logger.DebugContext(ctx, "bulk delete snapshot missing, skipping emission",
			slog.String("uid", uid))
		return nil
	}
	return b.emitEach(ctx, realtime.ActionDelete, sc, snap.records)
}

func (b *Binder) emitSingle(ctx context.Context, uid string, action realtime.Action, record any) error {
	sc, err := b.subscribed(uid, action)
	if err != nil || sc == nil {
		return err
	}
	return b.emitter.Emit(ctx, action, sc, record)
}

func (b *Binder) emitEach(ctx context.Context, action realtime.Action, sc *schema.Schema, records []map[string]any) error {
	var errs []error
	for _, record := range records {
		if err := b.emitter.Emit(ctx, action, sc, record); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
