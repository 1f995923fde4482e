package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/dmitrymomot/pushkit/pkg/hub"
	"github.com/dmitrymomot/pushkit/pkg/realtime"
	"github.com/dmitrymomot/pushkit/pkg/strategy"
)

// ConnectionEvent is the reserved handler name fired once per successful
// connection, right after the join.
const ConnectionEvent = "connection"

// Handler reacts to a named event from a connected peer. For the reserved
// connection event data is nil.
type Handler func(ctx context.Context, conn *Conn, data json.RawMessage)

// Gateway upgrades HTTP requests to WebSocket connections gated by the
// broadcaster's handshake.
type Gateway struct {
	broadcaster *realtime.Broadcaster
	cfg         Config
	upgrader    websocket.Upgrader
	limiter     *rate.Limiter
	logger      *slog.Logger

	mu       sync.RWMutex
	handlers map[string]Handler
}

// GatewayOption configures a Gateway during construction.
type GatewayOption func(*Gateway)

// WithLogger configures the gateway logger.
func WithLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithCheckOrigin overrides the upgrade origin check. The default accepts
// any origin.
func WithCheckOrigin(check func(r *http.Request) bool) GatewayOption {
	return func(g *Gateway) {
		g.upgrader.CheckOrigin = check
	}
}

// NewGateway creates a gateway in front of the given broadcaster.
func NewGateway(b *realtime.Broadcaster, cfg Config, opts ...GatewayOption) *Gateway {
	g := &Gateway{
		broadcaster: b,
		cfg:         cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  cfg.ReadBufferSize,
			WriteBufferSize: cfg.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		logger:   slog.New(slog.DiscardHandler),
		handlers: make(map[string]Handler),
	}
	if cfg.HandshakeRate > 0 {
		g.limiter = rate.NewLimiter(rate.Limit(cfg.HandshakeRate), max(cfg.HandshakeBurst, 1))
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handle registers a handler for a named inbound event. Registering
// ConnectionEvent makes the handler fire on every successful connection.
func (g *Gateway) Handle(name string, h Handler) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.handlers[name] = h
}

func (g *Gateway) handler(name string) (Handler, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	h, ok := g.handlers[name]
	return h, ok
}

// ServeHTTP authenticates the peer, upgrades the connection and joins it to
// its resolved room. Credentials are read from the strategy and token query
// parameters. Rejections happen before the upgrade with a meaningful status.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if g.limiter != nil && !g.limiter.Allow() {
		http.Error(w, "handshake rate exceeded", http.StatusTooManyRequests)
		return
	}

	creds := strategy.Credentials{
		Strategy: r.URL.Query().Get("strategy"),
		Token:    r.URL.Query().Get("token"),
	}
	room, err := g.broadcaster.Handshake(r.Context(), creds)
	if err != nil {
		g.logger.InfoContext(r.Context(), "handshake rejected",
			slog.String("remote_addr", r.RemoteAddr), slog.Any("error", err))
		http.Error(w, err.Error(), rejectionStatus(err))
		return
	}

	// The request context ends with this handler; the connection outlives it.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))

	sub, err := g.broadcaster.Hub().Join(ctx, room)
	if err != nil {
		cancel()
		http.Error(w, "failed to join room", http.StatusServiceUnavailable)
		return
	}

	wsConn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error response.
		_ = sub.Close()
		cancel()
		return
	}

	conn := &Conn{
		room:   room,
		ws:     wsConn,
		sub:    sub,
		cancel: cancel,
		out:    make(chan hub.Event, max(g.cfg.SendBuffer, 1)),
		done:   make(chan struct{}),
	}

	g.logger.InfoContext(ctx, "connection joined",
		slog.String("conn_id", conn.ID()),
		slog.String("room", room))

	if h, ok := g.handler(ConnectionEvent); ok {
		h(ctx, conn, nil)
	}

	go g.writePump(ctx, conn)
	go g.readPump(ctx, conn)
}

// rejectionStatus maps handshake failures to HTTP status codes.
func rejectionStatus(err error) int {
	switch {
	case errors.Is(err, strategy.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, strategy.ErrForbidden), errors.Is(err, realtime.ErrNoRoom):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// writePump forwards room events and server-initiated sends to the peer and
// keeps the connection alive with pings. It owns all writes.
func (g *Gateway) writePump(ctx context.Context, c *Conn) {
	ticker := time.NewTicker(g.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		_ = c.Close()
	}()

	for {
		select {
		case ev, ok := <-c.sub.Events():
			if !ok {
				_ = c.write(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := c.writeEvent(ev, g.cfg.WriteTimeout); err != nil {
				g.logger.DebugContext(ctx, "write failed",
					slog.String("conn_id", c.ID()), slog.Any("error", err))
				return
			}
		case ev := <-c.out:
			if err := c.writeEvent(ev, g.cfg.WriteTimeout); err != nil {
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readPump dispatches inbound frames to registered handlers. It owns all
// reads and drives connection teardown on peer disconnect.
func (g *Gateway) readPump(ctx context.Context, c *Conn) {
	defer func() {
		_ = c.Close()
	}()

	c.ws.SetReadLimit(g.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(g.cfg.PongTimeout))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(g.cfg.PongTimeout))
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				g.logger.DebugContext(ctx, "read failed",
					slog.String("conn_id", c.ID()), slog.Any("error", err))
			}
			return
		}

		var frame struct {
			Event string          `json:"event"`
			Data  json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(message, &frame); err != nil || frame.Event == "" {
			g.logger.DebugContext(ctx, "dropping malformed frame",
				slog.String("conn_id", c.ID()))
			continue
		}
		if frame.Event == ConnectionEvent {
			continue
		}

		if h, ok := g.handler(frame.Event); ok {
			h(ctx, c, frame.Data)
		}
	}
}

func (c *Conn) writeEvent(ev hub.Event, timeout time.Duration) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(timeout))
	return c.ws.WriteJSON(ev)
}

func (c *Conn) write(messageType int, payload []byte) error {
	_ = c.ws.SetWriteDeadline(time.Now().Add(time.Second))
	return c.ws.WriteMessage(messageType, payload)
}
