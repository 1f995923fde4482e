package realtime

import "errors"

// ErrNoRoom is returned when a handshake cannot resolve any room for the
// connecting peer. The connection must be refused, never silently dropped.
var ErrNoRoom = errors.New("realtime: no valid room found")
