// Package ws exposes the broadcast engine over WebSocket.
//
// The Gateway is an http.Handler. Each connection presents its credentials
// as query parameters (strategy, token), goes through the broadcaster's
// handshake and, on success, is joined to exactly one room. Events emitted
// to that room are written to the peer as JSON frames of the form
// {"event": name, "data": payload}. Inbound frames of the same shape are
// dispatched to handlers registered with Handle; the reserved "connection"
// handler fires once right after a successful join.
//
// Handshakes are rate limited across the gateway. Rejected peers receive an
// HTTP error before the upgrade, so transports can surface the reason.
package ws
