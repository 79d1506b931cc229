package sink

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/sluice/internal/domain/record"
)

// Default memory sink configuration constants.
const (
	defaultMemoryKeyField = "id"
)

// MemorySink implements Sink with a mutex-guarded map. It backs local runs
// and tests; items without a usable key are rejected as malformed, mirroring
// what a managed store would do.
type MemorySink struct {
	mu       sync.RWMutex
	items    map[string]record.Record
	keyField string
}

// NewMemorySink creates an in-memory sink with configuration options.
func NewMemorySink(opts ...MemoryOption) *MemorySink {
	s := &MemorySink{
		items:    make(map[string]record.Record),
		keyField: defaultMemoryKeyField,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MemoryOption applies a configuration option to the MemorySink.
type MemoryOption func(*MemorySink)

// WithMemoryKeyField sets the key field used to address items.
func WithMemoryKeyField(field string) MemoryOption {
	return func(s *MemorySink) {
		if field != "" {
			s.keyField = field
		}
	}
}

// BatchPut stores items by key, overwriting existing values.
func (s *MemorySink) BatchPut(ctx context.Context, items []record.Record) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	res := Result{Failed: map[string]FailReason{}}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, item := range items {
		key, ok := item.Key(s.keyField)
		if !ok {
			// Unkeyed items cannot be addressed; report them by position so
			// each rejection stays a distinct entry.
			res.Failed[fmt.Sprintf("#%d", i)] = FailMalformed
			continue
		}
		s.items[key] = item.Clone()
		res.Succeeded = append(res.Succeeded, key)
	}
	return res, nil
}

// Get returns the stored record for key, if present.
func (s *MemorySink) Get(key string) (record.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.items[key]
	return r, ok
}

// Len returns the number of stored records.
func (s *MemorySink) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
