package ingest_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sluice/internal/adapters/sink"
	"github.com/okian/sluice/internal/domain/record"
	"github.com/okian/sluice/internal/ingest"
)

// scriptedSink throttles or rejects chosen keys and records every call.
type scriptedSink struct {
	mu          sync.Mutex
	throttleFor map[string]int // key -> remaining attempts to throttle
	reject      map[string]sink.FailReason
	unavailable bool
	store       map[string]record.Record
	calls       int
	batchSizes  []int
}

func newScriptedSink() *scriptedSink {
	return &scriptedSink{
		throttleFor: map[string]int{},
		reject:      map[string]sink.FailReason{},
		store:       map[string]record.Record{},
	}
}

func (s *scriptedSink) BatchPut(ctx context.Context, items []record.Record) (sink.Result, error) {
	if err := ctx.Err(); err != nil {
		return sink.Result{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls++
	s.batchSizes = append(s.batchSizes, len(items))
	if s.unavailable {
		return sink.Result{}, sink.ErrUnavailable
	}

	res := sink.Result{Failed: map[string]sink.FailReason{}}
	for _, item := range items {
		key, _ := item.Key("id")
		if reason, bad := s.reject[key]; bad {
			res.Failed[key] = reason
			continue
		}
		if s.throttleFor[key] > 0 {
			s.throttleFor[key]--
			res.Failed[key] = sink.FailThrottled
			continue
		}
		s.store[key] = item
		res.Succeeded = append(res.Succeeded, key)
	}
	return res, nil
}

func makeRecords(n int) []record.Record {
	records := make([]record.Record, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, record.Record{"id": fmt.Sprintf("r%03d", i)})
	}
	return records
}

func TestWriter(t *testing.T) {
	Convey("Given a batch writer over a scripted sink", t, func() {
		ctx := context.Background()

		Convey("When writing more records than one batch holds", func() {
			s := newScriptedSink()
			w := ingest.NewWriter(s,
				ingest.WithBatchSize(25),
				ingest.WithConcurrency(1),
				ingest.WithBaseDelay(time.Millisecond),
			)

			res, err := w.Write(ctx, makeRecords(60))

			Convey("Then records are partitioned into bounded batches", func() {
				So(err, ShouldBeNil)
				So(s.calls, ShouldEqual, 3)
				So(s.batchSizes, ShouldResemble, []int{25, 25, 10})
			})

			Convey("Then everything is written", func() {
				So(err, ShouldBeNil)
				So(res.Written, ShouldHaveLength, 60)
				So(res.Failed, ShouldBeEmpty)
				So(s.store, ShouldHaveLength, 60)
			})
		})

		Convey("When the sink throttles two items on the first attempt", func() {
			s := newScriptedSink()
			s.throttleFor["r003"] = 1
			s.throttleFor["r017"] = 1
			w := ingest.NewWriter(s,
				ingest.WithBatchSize(25),
				ingest.WithConcurrency(1),
				ingest.WithBaseDelay(time.Millisecond),
			)

			res, err := w.Write(ctx, makeRecords(25))

			Convey("Then the retry drains them and nothing fails", func() {
				So(err, ShouldBeNil)
				So(res.Written, ShouldHaveLength, 25)
				So(res.Failed, ShouldBeEmpty)
				// One full batch plus one retry carrying only the throttled pair.
				So(s.calls, ShouldEqual, 2)
				So(s.batchSizes[1], ShouldEqual, 2)
			})
		})

		Convey("When one item is throttled past retry exhaustion", func() {
			s := newScriptedSink()
			s.throttleFor["r010"] = 99
			w := ingest.NewWriter(s,
				ingest.WithBatchSize(25),
				ingest.WithMaxAttempts(3),
				ingest.WithConcurrency(1),
				ingest.WithBaseDelay(time.Millisecond),
			)

			res, err := w.Write(ctx, makeRecords(25))

			Convey("Then it is recorded failed and the rest are written", func() {
				So(err, ShouldBeNil)
				So(res.Written, ShouldHaveLength, 24)
				So(res.Failed, ShouldHaveLength, 1)
				So(res.Failed["r010"], ShouldEqual, sink.FailThrottled)
			})

			Convey("Then exactly maxAttempts submissions carried the item", func() {
				So(err, ShouldBeNil)
				So(s.calls, ShouldEqual, 3)
			})
		})

		Convey("When the sink permanently rejects an item", func() {
			s := newScriptedSink()
			s.reject["r001"] = sink.FailMalformed
			w := ingest.NewWriter(s,
				ingest.WithConcurrency(1),
				ingest.WithBaseDelay(time.Millisecond),
			)

			res, err := w.Write(ctx, makeRecords(5))

			Convey("Then the rejection is final with no retry", func() {
				So(err, ShouldBeNil)
				So(s.calls, ShouldEqual, 1)
				So(res.Written, ShouldHaveLength, 4)
				So(res.Failed["r001"], ShouldEqual, sink.FailMalformed)
			})
		})

		Convey("When the sink is wholly unreachable", func() {
			s := newScriptedSink()
			s.unavailable = true
			w := ingest.NewWriter(s, ingest.WithConcurrency(1))

			_, err := w.Write(ctx, makeRecords(10))

			Convey("Then the write fails with the sink error", func() {
				So(err, ShouldWrap, sink.ErrUnavailable)
			})
		})

		Convey("When the sink is unreachable with more batches than workers", func() {
			s := newScriptedSink()
			s.unavailable = true
			w := ingest.NewWriter(s,
				ingest.WithBatchSize(1),
				ingest.WithConcurrency(1),
				ingest.WithBaseDelay(time.Millisecond),
			)

			type writeReturn struct {
				res ingest.WriteResult
				err error
			}
			done := make(chan writeReturn, 1)
			go func() {
				res, err := w.Write(ctx, makeRecords(50))
				done <- writeReturn{res: res, err: err}
			}()

			Convey("Then the write returns promptly instead of waiting on undispatched batches", func() {
				select {
				case ret := <-done:
					So(ret.err, ShouldWrap, sink.ErrUnavailable)
					So(len(ret.res.Written), ShouldBeLessThan, 50)
				case <-time.After(5 * time.Second):
					So("write did not return", ShouldBeEmpty)
				}
			})
		})

		Convey("When the caller cancels mid-write", func() {
			s := newScriptedSink()
			w := ingest.NewWriter(s,
				ingest.WithBatchSize(1),
				ingest.WithConcurrency(1),
				ingest.WithBaseDelay(time.Millisecond),
			)

			canceled, cancel := context.WithCancel(ctx)
			cancel()

			done := make(chan error, 1)
			go func() {
				_, err := w.Write(canceled, makeRecords(30))
				done <- err
			}()

			Convey("Then the write unwinds without hanging", func() {
				select {
				case err := <-done:
					So(err, ShouldWrap, context.Canceled)
				case <-time.After(5 * time.Second):
					So("write did not return", ShouldBeEmpty)
				}
			})
		})

		Convey("When there is nothing to write", func() {
			s := newScriptedSink()
			w := ingest.NewWriter(s)

			res, err := w.Write(ctx, nil)

			Convey("Then the sink is never called", func() {
				So(err, ShouldBeNil)
				So(s.calls, ShouldEqual, 0)
				So(res.Written, ShouldBeEmpty)
				So(res.Failed, ShouldBeEmpty)
			})
		})

		Convey("When batches are submitted concurrently", func() {
			s := newScriptedSink()
			w := ingest.NewWriter(s,
				ingest.WithBatchSize(10),
				ingest.WithConcurrency(4),
				ingest.WithBaseDelay(time.Millisecond),
			)

			res, err := w.Write(ctx, makeRecords(100))

			Convey("Then the merged result still accounts for every record", func() {
				So(err, ShouldBeNil)
				So(res.Written, ShouldHaveLength, 100)
				So(res.Failed, ShouldBeEmpty)
				So(s.calls, ShouldEqual, 10)
			})
		})
	})
}
