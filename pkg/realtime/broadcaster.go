package realtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/pushkit/pkg/entry"
	"github.com/dmitrymomot/pushkit/pkg/hub"
	"github.com/dmitrymomot/pushkit/pkg/sanitize"
	"github.com/dmitrymomot/pushkit/pkg/schema"
	"github.com/dmitrymomot/pushkit/pkg/strategy"
)

// Action is a mutation kind carried in event names.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Broadcaster fans entity mutations out to authorized rooms.
type Broadcaster struct {
	hub         hub.Hub
	strategies  []strategy.Strategy
	sanitizer   *sanitize.Sanitizer
	transformer *entry.Transformer
	logger      *slog.Logger
}

// Option configures a Broadcaster during construction.
type Option func(*Broadcaster)

// WithLogger configures the logger used for isolated per-room failures.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Broadcaster) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBroadcaster creates a broadcaster emitting through the given hub and
// evaluating the given strategies in order.
func NewBroadcaster(h hub.Hub, registry schema.Registry, strategies []strategy.Strategy, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		hub:         h,
		strategies:  strategies,
		sanitizer:   sanitize.NewSanitizer(registry),
		transformer: entry.NewTransformer(registry),
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Hub exposes the underlying hub, e.g. for transports that join connections.
func (b *Broadcaster) Hub() hub.Hub {
	return b.hub
}

// Emit dispatches one mutation to every qualifying room. A nil record is a
// no-op. Room evaluation is sequential in strategy order, then room order;
// failures sanitizing, transforming or emitting for one room are logged and
// skipped so the remaining rooms still receive their payload.
func (b *Broadcaster) Emit(ctx context.Context, action Action, sc *schema.Schema, record any) error {
	if record == nil {
		return nil
	}

	eventName := sc.SingularName + ":" + string(action)
	requiredScope := sc.UID + "." + string(action)

	var errs []error
	for _, strat := range b.strategies {
		rooms, err := strat.Rooms(ctx)
		if err != nil {
			b.logger.ErrorContext(ctx, "failed to enumerate rooms",
				slog.String("strategy", strat.Name()), slog.Any("error", err))
			errs = append(errs, fmt.Errorf("%s rooms: %w", strat.Name(), err))
			continue
		}

		for _, room := range rooms {
			if err := b.emitToRoom(ctx, strat, room, eventName, requiredScope, sc, record); err != nil {
				b.logger.ErrorContext(ctx, "failed to emit to room",
					slog.String("strategy", strat.Name()),
					slog.String("room", room.Name),
					slog.String("event", eventName),
					slog.Any("error", err))
				errs = append(errs, fmt.Errorf("room %s: %w", room.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}

// emitToRoom evaluates a single room and, if it qualifies, emits the
// sanitized payload to it. The room's ability is rebuilt from its current
// permission set on every call; nothing is cached between mutations.
func (b *Broadcaster) emitToRoom(ctx context.Context, strat strategy.Strategy, room *strategy.Identity, eventName, requiredScope string, sc *schema.Schema, record any) error {
	ab := room.Ability()
	if room.Type != strategy.TokenTypeFullAccess && !ab.Can(requiredScope) {
		return nil
	}

	state := strategy.AuthState{Identity: room, Ability: ab}
	auth := sanitize.AuthContext{
		Name:    strat.Name(),
		Ability: ab,
		Verify: func(scopes ...string) error {
			return strat.Verify(state, scopes...)
		},
		Credentials: strat.Credentials(room),
	}

	sanitized, err := b.sanitizer.Output(record, sc, auth)
	if err != nil {
		return err
	}
	payload, err := b.transformer.Response(sanitized, sc)
	if err != nil {
		return err
	}

	channel := strategy.NormalizeRoomName(strat.RoomName(room))
	return b.hub.Emit(ctx, channel, hub.Event{Name: eventName, Data: payload})
}

// Raw emits an unshaped payload directly to the given rooms, bypassing
// authorization entirely. With no rooms the event goes to every subscriber.
// Intended only for non-entity system events.
func (b *Broadcaster) Raw(ctx context.Context, event string, data any, rooms ...string) error {
	ev := hub.Event{Name: event, Data: data}
	if len(rooms) == 0 {
		return b.hub.Broadcast(ctx, ev)
	}

	var errs []error
	for _, room := range rooms {
		if err := b.hub.Emit(ctx, strategy.NormalizeRoomName(room), ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
