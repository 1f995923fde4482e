package sanitize

import "errors"

// ErrInvalidInput is returned when a value that must be a record is neither
// nil, an object, nor a list of objects.
var ErrInvalidInput = errors.New("sanitize: value must be an object")
