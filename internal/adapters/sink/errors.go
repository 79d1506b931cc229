package sink

import "errors"

// Sentinel kinds for sink errors.
var (
	ErrUnavailable = errors.New("sink unavailable")
)
