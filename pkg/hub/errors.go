package hub

import "errors"

var (
	// ErrHubClosed is returned when operations are attempted on a closed hub.
	ErrHubClosed = errors.New("hub: closed")

	// ErrInvalidEnvelope is returned when a bridged message cannot be decoded.
	ErrInvalidEnvelope = errors.New("hub: invalid bridge envelope")
)
