package ws

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/dmitrymomot/pushkit/pkg/hub"
)

// Conn is one upgraded peer connection joined to a single room.
type Conn struct {
	room   string
	ws     *websocket.Conn
	sub    hub.Subscriber
	cancel context.CancelFunc

	out       chan hub.Event
	done      chan struct{}
	closeOnce sync.Once
}

// ID returns the unique connection id.
func (c *Conn) ID() string {
	return c.sub.ID()
}

// Room returns the room this connection joined.
func (c *Conn) Room() string {
	return c.room
}

// Send queues a server-initiated event for delivery to this peer only.
// It never blocks; a full send buffer is reported as ErrSendBufferFull.
func (c *Conn) Send(event string, data any) error {
	select {
	case <-c.done:
		return ErrConnClosed
	default:
	}
	select {
	case c.out <- hub.Event{Name: event, Data: data}:
		return nil
	case <-c.done:
		return ErrConnClosed
	default:
		return ErrSendBufferFull
	}
}

// Close leaves the room and closes the underlying connection. Idempotent.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.cancel()
		_ = c.sub.Close()
		_ = c.ws.Close()
	})
	return nil
}
