// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/sluice/internal/adapters/blob"
	"github.com/okian/sluice/internal/adapters/sink"
	"github.com/okian/sluice/internal/domain/decode"
	"github.com/okian/sluice/internal/domain/validate"
	"github.com/okian/sluice/internal/ingest"
	"github.com/okian/sluice/pkg/logger"
)

// Service implements the trigger interface consumed by the HTTP API. It owns
// only read-only wiring; every invocation carries its own state, so
// concurrent invocations never interfere.
type Service struct {
	mu sync.RWMutex

	// Core components
	source       blob.Source
	sink         sink.Sink
	orchestrator *ingest.Orchestrator

	// Configuration
	keyField    string
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	concurrency int

	// State
	started     bool
	invocations atomic.Int64
	failures    atomic.Int64

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithSource injects the blob source.
func WithSource(source blob.Source) Option {
	return func(s *Service) {
		if source != nil {
			s.source = source
		}
	}
}

// WithSink injects the key-value sink.
func WithSink(snk sink.Sink) Option {
	return func(s *Service) {
		if snk != nil {
			s.sink = snk
		}
	}
}

// WithKeyField sets the record field used as the partition key.
func WithKeyField(field string) Option {
	return func(s *Service) {
		if field != "" {
			s.keyField = field
		}
	}
}

// WithBatchSize bounds how many records one sink call may carry.
func WithBatchSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.batchSize = size
		}
	}
}

// WithMaxAttempts bounds retries of throttled items.
func WithMaxAttempts(attempts int) Option {
	return func(s *Service) {
		if attempts > 0 {
			s.maxAttempts = attempts
		}
	}
}

// WithRetryBaseDelay sets the first backoff delay.
func WithRetryBaseDelay(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.baseDelay = d
		}
	}
}

// WithBatchConcurrency bounds how many batches are in flight at once.
func WithBatchConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a new Service with default configuration. The blob source
// and sink are injected rather than constructed here so callers can wire
// real clients or test doubles.
func New(opts ...Option) *Service {
	s := &Service{
		keyField:    "id",
		batchSize:   25,
		maxAttempts: 3,
		baseDelay:   100 * time.Millisecond,
		concurrency: 4,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start wires the pipeline stages. Idempotent.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.source == nil {
		return ErrNoSource
	}
	if s.sink == nil {
		return ErrNoSink
	}

	writer := ingest.NewWriter(s.sink,
		ingest.WithWriterKeyField(s.keyField),
		ingest.WithBatchSize(s.batchSize),
		ingest.WithMaxAttempts(s.maxAttempts),
		ingest.WithBaseDelay(s.baseDelay),
		ingest.WithConcurrency(s.concurrency),
	)
	s.orchestrator = ingest.NewOrchestrator(
		s.source,
		decode.NewJSONDecoder(),
		validate.NewFieldValidator(validate.WithKeyField(s.keyField)),
		writer,
	)

	s.started = true
	s.logger.Info(ctx, "ingestion service started",
		logger.String("key_field", s.keyField),
		logger.Int("batch_size", s.batchSize),
		logger.Int("max_attempts", s.maxAttempts),
		logger.Int("batch_concurrency", s.concurrency),
	)
	return nil
}

// Stop shuts the service down. Invocations in flight run to completion on
// their own contexts; there is nothing to roll back.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.started = false
	s.logger.Info(context.Background(), "ingestion service stopped")
}

// Process runs one invocation for the referenced blob.
func (s *Service) Process(ctx context.Context, bucket, key string) (ingest.Result, error) {
	s.mu.RLock()
	orch := s.orchestrator
	started := s.started
	s.mu.RUnlock()

	if !started {
		return ingest.Result{}, ErrNotStarted
	}

	s.invocations.Add(1)
	result, err := orch.Process(ctx, blob.Ref{Bucket: bucket, Key: key})
	if err != nil {
		s.failures.Add(1)
	}
	return result, err
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":            s.started,
		"key_field":          s.keyField,
		"batch_size":         s.batchSize,
		"max_attempts":       s.maxAttempts,
		"batch_concurrency":  s.concurrency,
		"invocations":        s.invocations.Load(),
		"failed_invocations": s.failures.Load(),
	}
	if counter, ok := s.sink.(interface{ Len() int }); ok {
		stats["sink_records"] = counter.Len()
	}
	return stats
}
