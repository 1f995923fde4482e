package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

// broadcastRoom is the reserved envelope room name for hub-wide broadcasts.
const broadcastRoom = "*"

// envelope is the wire format events travel over Redis in.
type envelope struct {
	Room  string          `json:"room"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RedisHub bridges a local hub across processes using Redis pub/sub. Emit
// publishes to Redis; every node's bridge re-delivers received events to its
// own local hub, so subscribers on any node see emissions from all nodes.
//
// Bridged event data arrives as json.RawMessage. Consumers that forward
// payloads verbatim (such as the websocket gateway) are unaffected.
type RedisHub struct {
	local  Hub
	client redis.UniversalClient
	prefix string
	pubsub *redis.PubSub
	logger *slog.Logger

	wg        sync.WaitGroup
	closeOnce sync.Once
	closeErr  error
}

// RedisOption configures a RedisHub during construction.
type RedisOption func(*RedisHub)

// WithChannelPrefix sets the Redis channel prefix. Defaults to "pushkit:".
func WithChannelPrefix(prefix string) RedisOption {
	return func(h *RedisHub) {
		if prefix != "" {
			h.prefix = prefix
		}
	}
}

// WithRedisLogger configures the logger for bridge delivery failures.
func WithRedisLogger(logger *slog.Logger) RedisOption {
	return func(h *RedisHub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// NewRedisHub creates a Redis-bridged hub on top of a local hub and starts
// the receive loop. The returned hub must be closed to stop the bridge.
func NewRedisHub(ctx context.Context, client redis.UniversalClient, local Hub, opts ...RedisOption) (*RedisHub, error) {
	h := &RedisHub{
		local:  local,
		client: client,
		prefix: "pushkit:",
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(h)
	}

	h.pubsub = client.PSubscribe(ctx, h.prefix+"*")
	if _, err := h.pubsub.Receive(ctx); err != nil {
		_ = h.pubsub.Close()
		return nil, fmt.Errorf("hub: redis subscribe failed: %w", err)
	}

	h.wg.Add(1)
	go h.receiveLoop()

	return h, nil
}

func (h *RedisHub) receiveLoop() {
	defer h.wg.Done()

	ctx := context.Background()
	for msg := range h.pubsub.Channel() {
		var env envelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			h.logger.Warn("dropping undecodable bridge message",
				slog.String("channel", msg.Channel), slog.Any("error", err))
			continue
		}

		ev := Event{Name: env.Event, Data: env.Data}
		var err error
		if env.Room == broadcastRoom {
			err = h.local.Broadcast(ctx, ev)
		} else {
			err = h.local.Emit(ctx, env.Room, ev)
		}
		if err != nil && !errors.Is(err, ErrHubClosed) {
			h.logger.Warn("local delivery of bridged event failed",
				slog.String("room", env.Room), slog.Any("error", err))
		}
	}
}

// Join subscribes to a room on the local hub.
func (h *RedisHub) Join(ctx context.Context, room string) (Subscriber, error) {
	return h.local.Join(ctx, room)
}

// Emit publishes an event to the room's Redis channel. Local delivery
// happens when the bridged message is received back, keeping ordering
// identical across nodes.
func (h *RedisHub) Emit(ctx context.Context, room string, ev Event) error {
	return h.publish(ctx, room, ev)
}

// Broadcast publishes an event for every room on every node.
func (h *RedisHub) Broadcast(ctx context.Context, ev Event) error {
	return h.publish(ctx, broadcastRoom, ev)
}

func (h *RedisHub) publish(ctx context.Context, room string, ev Event) error {
	data, err := json.Marshal(ev.Data)
	if err != nil {
		return fmt.Errorf("hub: encoding event data: %w", err)
	}
	payload, err := json.Marshal(envelope{Room: room, Event: ev.Name, Data: data})
	if err != nil {
		return fmt.Errorf("hub: encoding envelope: %w", err)
	}
	// Suffix only sharpens PSUBSCRIBE routing; the envelope's room field is
	// authoritative on the receiving side.
	channel := h.prefix + room
	if err := h.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("hub: publish failed: %w", err)
	}
	return nil
}

// Rooms lists rooms with local subscribers.
func (h *RedisHub) Rooms() []string { return h.local.Rooms() }

// Count returns the number of local subscribers in a room.
func (h *RedisHub) Count(room string) int { return h.local.Count(room) }

// Close stops the bridge and closes the local hub. Idempotent.
func (h *RedisHub) Close() error {
	h.closeOnce.Do(func() {
		err := h.pubsub.Close()
		h.wg.Wait()
		h.closeErr = errors.Join(err, h.local.Close())
	})
	return h.closeErr
}
