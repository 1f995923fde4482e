// Package realtime dispatches entity mutation events to authorized rooms.
//
// The Broadcaster reproduces, at emission time, the same per-identity
// authorization decision the synchronous query API would make for an HTTP
// request. On every mutation it walks all registered strategies, enumerates
// each strategy's rooms from live permission state, rebuilds the room's
// ability, and emits the sanitized and transformed payload only to rooms
// whose ability grants the mutation's scope. A failure evaluating one room
// never affects the others.
//
// The same Broadcaster also gates new connections: Handshake authenticates a
// peer's credentials against the matching strategy and resolves the single
// room the connection joins.
package realtime
