package ingest

import (
	"time"

	"github.com/okian/sluice/pkg/logger"
)

// WriterOption applies a configuration option to the Writer.
type WriterOption func(*Writer)

// WithBatchSize bounds how many records one sink call may carry.
func WithBatchSize(size int) WriterOption {
	return func(w *Writer) {
		if size > 0 {
			w.batchSize = size
		}
	}
}

// WithMaxAttempts bounds how often a throttled item is retried.
func WithMaxAttempts(attempts int) WriterOption {
	return func(w *Writer) {
		if attempts > 0 {
			w.maxAttempts = attempts
		}
	}
}

// WithBaseDelay sets the first backoff delay; it doubles per attempt.
func WithBaseDelay(d time.Duration) WriterOption {
	return func(w *Writer) {
		if d > 0 {
			w.baseDelay = d
		}
	}
}

// WithConcurrency bounds how many batches are in flight at once.
func WithConcurrency(n int) WriterOption {
	return func(w *Writer) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithWriterKeyField sets the key field used to map sink outcomes back to records.
func WithWriterKeyField(field string) WriterOption {
	return func(w *Writer) {
		if field != "" {
			w.keyField = field
		}
	}
}

// WithWriterLogger sets a custom logger for the writer.
func WithWriterLogger(l logger.Logger) WriterOption {
	return func(w *Writer) {
		if l != nil {
			w.logger = l
		}
	}
}

// OrchestratorOption applies a configuration option to the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithLogger sets a custom logger for the orchestrator.
func WithLogger(l logger.Logger) OrchestratorOption {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}
