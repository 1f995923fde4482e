package ws

import "errors"

var (
	// ErrConnClosed is returned when sending on a closed connection.
	ErrConnClosed = errors.New("ws: connection closed")

	// ErrSendBufferFull is returned when a connection cannot keep up with
	// server-initiated sends.
	ErrSendBufferFull = errors.New("ws: send buffer full")
)
