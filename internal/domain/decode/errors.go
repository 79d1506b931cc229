package decode

import "errors"

// Sentinel kinds for decode errors.
var (
	ErrMalformedInput = errors.New("malformed input")
)
