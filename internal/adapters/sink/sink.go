// Package sink defines the key-value sink contract used by the batch writer.
//
// A sink persists records by their designated key field with overwrite
// semantics, which makes re-submission of the same records idempotent.
// Implementations report per-item outcomes so callers can retry only the
// failed subset.
package sink

import (
	"context"

	"github.com/okian/sluice/internal/domain/record"
)

// FailReason identifies why one item could not be written.
type FailReason string

// Fixed per-item failure reasons.
const (
	FailThrottled FailReason = "throttled"
	FailMalformed FailReason = "malformed"
	FailUnknown   FailReason = "unknown-error"
)

// Retryable reports whether a failed item may succeed on re-submission.
func (r FailReason) Retryable() bool {
	return r == FailThrottled
}

// Result reports per-key outcomes for one batch put.
type Result struct {
	// Succeeded holds keys that were durably written.
	Succeeded []string
	// Failed maps each failed key to its reason.
	Failed map[string]FailReason
}

// Sink persists records keyed by a designated field.
type Sink interface {
	// BatchPut writes items by key, overwriting existing values.
	// A non-nil error means the sink as a whole is unreachable; per-item
	// problems are reported through the Result instead.
	BatchPut(ctx context.Context, items []record.Record) (Result, error)
}
