package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/sluice/internal/adapters/blob"
	"github.com/okian/sluice/internal/adapters/sink"
	"github.com/okian/sluice/internal/domain/decode"
	"github.com/okian/sluice/internal/domain/record"
	"github.com/okian/sluice/internal/domain/validate"
	"github.com/okian/sluice/pkg/logger"
	"github.com/okian/sluice/pkg/metrics"
)

// Result aggregates the outcome of one invocation. All counts refer to the
// single source blob; entities never outlive the invocation.
//
// Invariants: Valid+Invalid == Decoded and Written+Failed == Valid.
type Result struct {
	InvocationID string                     `json:"invocation_id"`
	Bucket       string                     `json:"bucket"`
	Key          string                     `json:"key"`
	Decoded      int                        `json:"decoded"`
	Valid        int                        `json:"valid"`
	Invalid      int                        `json:"invalid"`
	Written      int                        `json:"written"`
	Failed       int                        `json:"failed"`
	InvalidKeys  map[string]validate.Reason `json:"invalid_keys,omitempty"`
	FailedKeys   map[string]sink.FailReason `json:"failed_keys,omitempty"`
}

// Summary renders a human-readable one-liner for callers.
func (r Result) Summary() string {
	return fmt.Sprintf("decoded=%d valid=%d invalid=%d written=%d failed=%d",
		r.Decoded, r.Valid, r.Invalid, r.Written, r.Failed)
}

// Orchestrator coordinates decode, validation, and batch writing for one
// blob. Per-record problems are aggregated into the Result; only blob fetch
// failures, decode failures, and a wholly unreachable sink abort the
// invocation.
type Orchestrator struct {
	source    blob.Source
	decoder   decode.Decoder
	validator validate.Validator
	writer    *Writer
	logger    logger.Logger
}

// NewOrchestrator wires a pipeline from injected stage implementations.
func NewOrchestrator(source blob.Source, decoder decode.Decoder, validator validate.Validator, writer *Writer, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		source:    source,
		decoder:   decoder,
		validator: validator,
		writer:    writer,
		logger:    logger.Get().Named("orchestrator"),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Process runs one invocation end to end for the referenced blob.
func (o *Orchestrator) Process(ctx context.Context, ref blob.Ref) (Result, error) {
	start := time.Now()
	result := Result{
		InvocationID: uuid.NewString(),
		Bucket:       ref.Bucket,
		Key:          ref.Key,
		InvalidKeys:  map[string]validate.Reason{},
		FailedKeys:   map[string]sink.FailReason{},
	}
	defer func() {
		metrics.RecordInvocationDuration(float64(time.Since(start).Milliseconds()))
	}()

	data, err := o.source.Get(ctx, ref)
	if err != nil {
		metrics.RecordInvocation("failed")
		o.logger.Error(ctx, "blob fetch failed",
			logger.String("invocation_id", result.InvocationID),
			logger.String("bucket", ref.Bucket),
			logger.String("key", ref.Key),
			logger.Error(err),
		)
		return result, fmt.Errorf("fetch blob: %w", err)
	}

	records, err := o.decoder.Decode(ctx, data)
	if err != nil {
		metrics.RecordInvocation("failed")
		o.logger.Error(ctx, "decode failed",
			logger.String("invocation_id", result.InvocationID),
			logger.String("key", ref.Key),
			logger.Error(err),
		)
		return result, fmt.Errorf("decode blob: %w", err)
	}
	result.Decoded = len(records)
	metrics.RecordDecodedRecords(result.Decoded)

	valid := make([]record.Record, 0, len(records))
	for i, r := range records {
		outcome := o.validator.Validate(ctx, r)
		if outcome.Valid {
			valid = append(valid, r)
			continue
		}
		name, ok := r.Key(o.validator.KeyField())
		if !ok {
			// No usable key; report by position within the blob.
			name = fmt.Sprintf("#%d", i)
		}
		result.InvalidKeys[name] = outcome.Reason
	}
	result.Valid = len(valid)
	// Duplicate keys may collapse in InvalidKeys; count off the decoded total
	// so valid+invalid always adds up.
	result.Invalid = result.Decoded - result.Valid
	metrics.RecordValidRecords(result.Valid)
	metrics.RecordInvalidRecords(result.Invalid)

	writeRes, err := o.writer.Write(ctx, valid)
	if err != nil {
		metrics.RecordInvocation("failed")
		o.logger.Error(ctx, "sink unreachable",
			logger.String("invocation_id", result.InvocationID),
			logger.String("key", ref.Key),
			logger.Error(err),
		)
		return result, err
	}
	result.Written = len(writeRes.Written)
	for key, reason := range writeRes.Failed {
		result.FailedKeys[key] = reason
	}
	result.Failed = len(result.FailedKeys)
	metrics.RecordWrittenRecords(result.Written)
	metrics.RecordFailedRecords(result.Failed)
	metrics.RecordInvocation("completed")

	o.logger.Info(ctx, "invocation completed",
		logger.String("invocation_id", result.InvocationID),
		logger.String("bucket", ref.Bucket),
		logger.String("key", ref.Key),
		logger.Int("decoded", result.Decoded),
		logger.Int("valid", result.Valid),
		logger.Int("invalid", result.Invalid),
		logger.Int("written", result.Written),
		logger.Int("failed", result.Failed),
	)
	return result, nil
}
