// Package ingest implements the blob-to-sink ingestion pipeline: batching,
// retry of throttled items, and per-invocation orchestration.
package ingest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/sluice/internal/adapters/sink"
	"github.com/okian/sluice/internal/domain/record"
	"github.com/okian/sluice/pkg/logger"
	"github.com/okian/sluice/pkg/metrics"
)

// Default writer configuration constants.
const (
	defaultBatchSize   = 25
	defaultMaxAttempts = 3
	defaultBaseDelay   = 100 * time.Millisecond
	defaultConcurrency = 4
	maxBackoffDelay    = 5 * time.Second
	defaultKeyField    = "id"
)

// WriteResult aggregates per-key outcomes across all batches of one call.
type WriteResult struct {
	// Written holds keys durably persisted by the sink.
	Written []string
	// Failed maps keys that could not be written, after retry exhaustion,
	// to their final reason.
	Failed map[string]sink.FailReason
}

// Writer partitions records into bounded batches and submits them to the
// sink. Batches are independent: one failing never aborts the others, and
// throttled items are retried with exponential backoff before being
// recorded as failed.
type Writer struct {
	sink        sink.Sink
	keyField    string
	batchSize   int
	maxAttempts int
	baseDelay   time.Duration
	concurrency int
	logger      logger.Logger
}

// NewWriter creates a batch writer with configuration options.
func NewWriter(s sink.Sink, opts ...WriterOption) *Writer {
	w := &Writer{
		sink:        s,
		keyField:    defaultKeyField,
		batchSize:   defaultBatchSize,
		maxAttempts: defaultMaxAttempts,
		baseDelay:   defaultBaseDelay,
		concurrency: defaultConcurrency,
		logger:      logger.Get().Named("writer"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// batchOutcome carries one batch's merged result back to the coordinator.
type batchOutcome struct {
	written []string
	failed  map[string]sink.FailReason
	err     error
}

// Write persists records and reports per-key outcomes.
// A non-nil error means the sink was unreachable; partial results up to that
// point are still returned.
func (w *Writer) Write(ctx context.Context, records []record.Record) (WriteResult, error) {
	result := WriteResult{Failed: map[string]sink.FailReason{}}
	if len(records) == 0 {
		return result, nil
	}

	batches := partition(records, w.batchSize)

	workers := w.concurrency
	if workers > len(batches) {
		workers = len(batches)
	}
	if workers < 1 {
		workers = 1
	}

	// Workers submit batches independently; the coordinator merges their
	// partial outcomes sequentially so no shared state needs locking. The
	// outcome channel closes once every worker has drained, so the merge
	// loop below terminates even when cancellation stops the feeder early.
	batchCh := make(chan []record.Record)
	outcomeCh := make(chan batchOutcome)
	workCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchCh {
				outcomeCh <- w.submitBatch(workCtx, batch)
			}
		}()
	}
	go func() {
		defer close(batchCh)
		for _, batch := range batches {
			select {
			case batchCh <- batch:
			case <-workCtx.Done():
				return
			}
		}
	}()
	go func() {
		wg.Wait()
		close(outcomeCh)
	}()

	var sinkErr error
	for outcome := range outcomeCh {
		result.Written = append(result.Written, outcome.written...)
		for key, reason := range outcome.failed {
			result.Failed[key] = reason
		}
		if outcome.err != nil && sinkErr == nil {
			sinkErr = outcome.err
			cancel()
		}
	}
	// Caller cancellation can stop the feeder before any worker observes
	// an error; surface it so an abandoned write never reads as success.
	if sinkErr == nil {
		sinkErr = ctx.Err()
	}
	if sinkErr != nil {
		return result, fmt.Errorf("batch write: %w", sinkErr)
	}
	return result, nil
}

// submitBatch pushes one batch through the sink, retrying only the throttled
// subset until it drains or attempts run out.
func (w *Writer) submitBatch(ctx context.Context, batch []record.Record) batchOutcome {
	outcome := batchOutcome{failed: map[string]sink.FailReason{}}

	byKey := make(map[string]record.Record, len(batch))
	for _, r := range batch {
		if key, ok := r.Key(w.keyField); ok {
			byKey[key] = r
		}
	}

	pending := batch
	for attempt := 1; ; attempt++ {
		start := time.Now()
		res, err := w.sink.BatchPut(ctx, pending)
		metrics.RecordSinkPutLatency(float64(time.Since(start).Milliseconds()))
		metrics.RecordBatchSubmission()
		if err != nil {
			outcome.err = err
			return outcome
		}

		outcome.written = append(outcome.written, res.Succeeded...)

		var retry []record.Record
		for key, reason := range res.Failed {
			r, known := byKey[key]
			if reason.Retryable() && known && attempt < w.maxAttempts {
				retry = append(retry, r)
				continue
			}
			outcome.failed[key] = reason
		}
		if len(retry) == 0 {
			return outcome
		}

		metrics.RecordBatchRetry()
		w.logger.Debug(ctx, "retrying throttled items",
			logger.Int("attempt", attempt),
			logger.Int("items", len(retry)),
		)
		if err := sleepWithContext(ctx, w.backoffDelay(attempt)); err != nil {
			// Canceled mid-retry: whatever is still pending stays throttled.
			for _, r := range retry {
				if key, ok := r.Key(w.keyField); ok {
					outcome.failed[key] = sink.FailThrottled
				}
			}
			return outcome
		}
		pending = retry
	}
}

// backoffDelay doubles the base delay per attempt, capped.
func (w *Writer) backoffDelay(attempt int) time.Duration {
	delay := w.baseDelay
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= maxBackoffDelay {
			return maxBackoffDelay
		}
	}
	return delay
}

// partition splits records into slices of at most size items.
func partition(records []record.Record, size int) [][]record.Record {
	if size < 1 {
		size = defaultBatchSize
	}
	batches := make([][]record.Record, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		batches = append(batches, records[start:end])
	}
	return batches
}

// sleepWithContext waits for d or until ctx is canceled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
