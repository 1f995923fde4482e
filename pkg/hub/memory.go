package hub

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MemoryHub is an in-process Hub. Events are sent non-blocking: a subscriber
// whose buffer is full misses the event rather than stalling the emitter.
// All methods are safe for concurrent use.
type MemoryHub struct {
	mu         sync.RWMutex
	rooms      map[string]map[string]*memorySubscriber
	bufferSize int
	closed     bool
	cleanupWg  sync.WaitGroup
}

type memorySubscriber struct {
	id     string
	room   string
	events chan Event
	hub    *MemoryHub

	mu     sync.RWMutex
	closed bool
}

// NewMemoryHub creates an in-memory hub. The bufferSize sets each
// subscriber's event buffer; a minimum of 1 is enforced so sends stay
// non-blocking.
func NewMemoryHub(bufferSize int) *MemoryHub {
	return &MemoryHub{
		rooms:      make(map[string]map[string]*memorySubscriber),
		bufferSize: max(bufferSize, 1),
	}
}

// Join subscribes to a room. If the hub is closed, a closed subscriber is
// returned along with ErrHubClosed.
func (h *MemoryHub) Join(ctx context.Context, room string) (Subscriber, error) {
	sub := &memorySubscriber{
		id:     uuid.New().String(),
		room:   room,
		events: make(chan Event, h.bufferSize),
		hub:    h,
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = sub.Close()
		return sub, ErrHubClosed
	}
	members, ok := h.rooms[room]
	if !ok {
		members = make(map[string]*memorySubscriber)
		h.rooms[room] = members
	}
	members[sub.id] = sub
	h.mu.Unlock()

	if ctx.Done() != nil {
		h.cleanupWg.Add(1)
		go func() {
			defer h.cleanupWg.Done()
			<-ctx.Done()
			_ = sub.Close()
		}()
	}

	return sub, nil
}

// Emit delivers an event to every subscriber of a room, dropping it for
// subscribers whose buffer is full.
func (h *MemoryHub) Emit(ctx context.Context, room string, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}
	for _, sub := range h.rooms[room] {
		sub.send(ev)
	}
	return nil
}

// Broadcast delivers an event to every subscriber of every room.
func (h *MemoryHub) Broadcast(ctx context.Context, ev Event) error {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return ErrHubClosed
	}
	for _, members := range h.rooms {
		for _, sub := range members {
			sub.send(ev)
		}
	}
	return nil
}

// Rooms lists rooms that currently have subscribers.
func (h *MemoryHub) Rooms() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms := make([]string, 0, len(h.rooms))
	for room := range h.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

// Count returns the number of subscribers in a room.
func (h *MemoryHub) Count(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close shuts the hub down and closes all subscribers. Idempotent.
func (h *MemoryHub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true

	subs := make([]*memorySubscriber, 0)
	for _, members := range h.rooms {
		for _, sub := range members {
			subs = append(subs, sub)
		}
	}
	clear(h.rooms)
	h.mu.Unlock()

	for _, sub := range subs {
		sub.markClosed()
	}

	h.cleanupWg.Wait()
	return nil
}

func (h *MemoryHub) leave(sub *memorySubscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()

	members, ok := h.rooms[sub.room]
	if !ok {
		return
	}
	delete(members, sub.id)
	if len(members) == 0 {
		delete(h.rooms, sub.room)
	}
}

func (s *memorySubscriber) Events() <-chan Event { return s.events }
func (s *memorySubscriber) Room() string         { return s.room }
func (s *memorySubscriber) ID() string           { return s.id }

// Close leaves the room and closes the event channel. Idempotent.
func (s *memorySubscriber) Close() error {
	s.hub.leave(s)
	s.markClosed()
	return nil
}

func (s *memorySubscriber) markClosed() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		close(s.events)
		s.closed = true
	}
}

// send delivers non-blocking; a full buffer drops the event.
func (s *memorySubscriber) send(ev Event) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return false
	}
	select {
	case s.events <- ev:
		return true
	default:
		return false
	}
}
