package entry

import "errors"

// ErrInvalidEntry is returned when a value that must be an entry is neither
// nil, an object, nor a list of objects.
var ErrInvalidEntry = errors.New("entry: value must be an object")
