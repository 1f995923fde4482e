// Package hub provides room-oriented event fan-out for live connections.
//
// A Hub groups subscribers into named rooms and delivers events to every
// subscriber of a room. The in-memory implementation drops events for slow
// subscribers instead of blocking emitters, and cleans subscriptions up when
// their context is cancelled.
//
// Basic usage:
//
//	h := hub.NewMemoryHub(16)
//	defer h.Close()
//
//	sub, _ := h.Join(ctx, "io-role-editor")
//	defer sub.Close()
//
//	h.Emit(ctx, "io-role-editor", hub.Event{Name: "article:update", Data: payload})
//
//	for ev := range sub.Events() {
//		// deliver ev to the connection
//	}
//
// For multi-node deployments, RedisHub bridges emissions across processes
// over Redis pub/sub while local delivery stays in memory.
package hub
