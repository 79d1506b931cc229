package service

import "errors"

// Sentinel kinds for service lifecycle errors.
var (
	ErrNotStarted = errors.New("service not started")
	ErrNoSource   = errors.New("no blob source configured")
	ErrNoSink     = errors.New("no sink configured")
)
