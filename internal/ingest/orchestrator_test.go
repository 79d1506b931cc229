package ingest_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sluice/internal/adapters/blob"
	"github.com/okian/sluice/internal/adapters/sink"
	"github.com/okian/sluice/internal/domain/decode"
	"github.com/okian/sluice/internal/domain/validate"
	"github.com/okian/sluice/internal/ingest"
)

// fakeSource serves blobs from a map.
type fakeSource struct {
	blobs map[string][]byte
}

func (f *fakeSource) Get(_ context.Context, ref blob.Ref) ([]byte, error) {
	data, ok := f.blobs[ref.Bucket+"/"+ref.Key]
	if !ok {
		return nil, blob.ErrNotFound
	}
	return data, nil
}

func newPipeline(source blob.Source, snk sink.Sink) *ingest.Orchestrator {
	writer := ingest.NewWriter(snk,
		ingest.WithBatchSize(25),
		ingest.WithBaseDelay(time.Millisecond),
	)
	return ingest.NewOrchestrator(source, decode.NewJSONDecoder(), validate.NewFieldValidator(), writer)
}

func TestOrchestrator(t *testing.T) {
	Convey("Given an orchestrator over a memory sink", t, func() {
		ctx := context.Background()
		ref := blob.Ref{Bucket: "ingest", Key: "batch.json"}

		Convey("When all records are valid", func() {
			source := &fakeSource{blobs: map[string][]byte{
				"ingest/batch.json": []byte(`[{"id":"a1"},{"id":"a2"},{"id":"a3"}]`),
			}}
			memory := sink.NewMemorySink()
			result, err := newPipeline(source, memory).Process(ctx, ref)

			Convey("Then every record is decoded, valid, and written", func() {
				So(err, ShouldBeNil)
				So(result.Decoded, ShouldEqual, 3)
				So(result.Valid, ShouldEqual, 3)
				So(result.Invalid, ShouldEqual, 0)
				So(result.Written, ShouldEqual, 3)
				So(result.Failed, ShouldEqual, 0)
				So(memory.Len(), ShouldEqual, 3)
			})

			Convey("Then the invocation is tagged with an id", func() {
				So(err, ShouldBeNil)
				So(result.InvocationID, ShouldNotBeEmpty)
				So(result.Bucket, ShouldEqual, "ingest")
				So(result.Key, ShouldEqual, "batch.json")
			})
		})

		Convey("When one record is missing the key field", func() {
			source := &fakeSource{blobs: map[string][]byte{
				"ingest/batch.json": []byte(`[{"id":"a1","name":"X"},{"name":"Y"}]`),
			}}
			memory := sink.NewMemorySink()
			result, err := newPipeline(source, memory).Process(ctx, ref)

			Convey("Then the invalid record is set aside, not written", func() {
				So(err, ShouldBeNil)
				So(result.Decoded, ShouldEqual, 2)
				So(result.Valid, ShouldEqual, 1)
				So(result.Invalid, ShouldEqual, 1)
				So(result.Written, ShouldEqual, 1)
				So(result.InvalidKeys["#1"], ShouldEqual, validate.ReasonMissingKeyField)

				So(memory.Len(), ShouldEqual, 1)
				stored, ok := memory.Get("a1")
				So(ok, ShouldBeTrue)
				So(stored["name"], ShouldEqual, "X")
			})

			Convey("Then the accounting invariants hold", func() {
				So(err, ShouldBeNil)
				So(result.Valid+result.Invalid, ShouldEqual, result.Decoded)
				So(result.Written+result.Failed, ShouldEqual, result.Valid)
			})
		})

		Convey("When the blob is empty", func() {
			source := &fakeSource{blobs: map[string][]byte{
				"ingest/batch.json": []byte(``),
			}}
			result, err := newPipeline(source, sink.NewMemorySink()).Process(ctx, ref)

			Convey("Then the invocation fails with a decode error", func() {
				So(err, ShouldWrap, decode.ErrMalformedInput)
				So(result.Decoded, ShouldEqual, 0)
			})
		})

		Convey("When the blob does not exist", func() {
			source := &fakeSource{blobs: map[string][]byte{}}
			_, err := newPipeline(source, sink.NewMemorySink()).Process(ctx, ref)

			Convey("Then the invocation fails with not found", func() {
				So(err, ShouldWrap, blob.ErrNotFound)
			})
		})

		Convey("When the same blob is processed twice", func() {
			source := &fakeSource{blobs: map[string][]byte{
				"ingest/batch.json": []byte(`[{"id":"a1","v":"first"},{"id":"a2","v":"first"}]`),
			}}
			memory := sink.NewMemorySink()
			pipeline := newPipeline(source, memory)

			first, err1 := pipeline.Process(ctx, ref)
			second, err2 := pipeline.Process(ctx, ref)

			Convey("Then the sink state is unchanged by the redelivery", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first.Written, ShouldEqual, 2)
				So(second.Written, ShouldEqual, 2)
				So(memory.Len(), ShouldEqual, 2)
			})
		})

		Convey("When items fail to write after retries", func() {
			source := &fakeSource{blobs: map[string][]byte{
				"ingest/batch.json": []byte(`[{"id":"a1"},{"id":"a2"},{"id":"a3"}]`),
			}}
			scripted := newScriptedSink()
			scripted.throttleFor["a2"] = 99
			writer := ingest.NewWriter(scripted,
				ingest.WithMaxAttempts(2),
				ingest.WithBaseDelay(time.Millisecond),
			)
			orch := ingest.NewOrchestrator(source, decode.NewJSONDecoder(), validate.NewFieldValidator(), writer)

			result, err := orch.Process(ctx, ref)

			Convey("Then partial failure is a normal completed outcome", func() {
				So(err, ShouldBeNil)
				So(result.Written, ShouldEqual, 2)
				So(result.Failed, ShouldEqual, 1)
				So(result.FailedKeys["a2"], ShouldEqual, sink.FailThrottled)
				So(result.Written+result.Failed, ShouldEqual, result.Valid)
			})

			Convey("Then the summary reports every count", func() {
				So(err, ShouldBeNil)
				So(result.Summary(), ShouldEqual, "decoded=3 valid=3 invalid=0 written=2 failed=1")
			})
		})

		Convey("When the sink is wholly unreachable", func() {
			source := &fakeSource{blobs: map[string][]byte{
				"ingest/batch.json": []byte(`[{"id":"a1"}]`),
			}}
			scripted := newScriptedSink()
			scripted.unavailable = true
			writer := ingest.NewWriter(scripted, ingest.WithBaseDelay(time.Millisecond))
			orch := ingest.NewOrchestrator(source, decode.NewJSONDecoder(), validate.NewFieldValidator(), writer)

			_, err := orch.Process(ctx, ref)

			Convey("Then the invocation fails rather than retrying forever", func() {
				So(err, ShouldWrap, sink.ErrUnavailable)
			})
		})
	})
}
