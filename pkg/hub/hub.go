package hub

import "context"

// Event is a named payload delivered to a room's subscribers.
type Event struct {
	Name string `json:"event"`
	Data any    `json:"data"`
}

// Subscriber receives the events of one room.
// Implementations must be safe for concurrent use.
type Subscriber interface {
	// Events returns the channel events are delivered on. The channel is
	// closed when the subscriber closes.
	Events() <-chan Event

	// Room returns the room this subscriber joined.
	Room() string

	// ID returns the unique subscriber id.
	ID() string

	// Close leaves the room and releases resources. Idempotent.
	Close() error
}

// Hub delivers events to rooms of subscribers.
// Implementations must handle slow consumers without blocking emitters.
type Hub interface {
	// Join subscribes to a room. The subscription is cleaned up when the
	// context is cancelled.
	Join(ctx context.Context, room string) (Subscriber, error)

	// Emit delivers an event to every subscriber of a room. Emitting to a
	// room with no subscribers is not an error.
	Emit(ctx context.Context, room string, ev Event) error

	// Broadcast delivers an event to every subscriber of every room.
	Broadcast(ctx context.Context, ev Event) error

	// Rooms lists rooms that currently have subscribers.
	Rooms() []string

	// Count returns the number of subscribers in a room.
	Count(room string) int

	// Close shuts the hub down and closes all subscribers.
	Close() error
}
