package schema

import "errors"

var (
	// ErrUnknownContentType is returned when a content type UID is not registered.
	ErrUnknownContentType = errors.New("schema: unknown content type")

	// ErrUnknownComponent is returned when a component UID is not registered.
	ErrUnknownComponent = errors.New("schema: unknown component")
)
