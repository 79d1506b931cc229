package blob

import "errors"

// Sentinel kinds for blob source errors.
var (
	ErrNotFound     = errors.New("blob not found")
	ErrAccessDenied = errors.New("blob access denied")
)
