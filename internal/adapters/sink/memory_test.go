package sink_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sluice/internal/adapters/sink"
	"github.com/okian/sluice/internal/domain/record"
)

func TestMemorySink(t *testing.T) {
	Convey("Given an in-memory sink", t, func() {
		s := sink.NewMemorySink()
		ctx := context.Background()

		Convey("When putting a batch of keyed records", func() {
			res, err := s.BatchPut(ctx, []record.Record{
				{"id": "a1", "name": "X"},
				{"id": "a2", "name": "Y"},
			})

			Convey("Then all records are stored by key", func() {
				So(err, ShouldBeNil)
				So(res.Succeeded, ShouldHaveLength, 2)
				So(res.Failed, ShouldBeEmpty)
				So(s.Len(), ShouldEqual, 2)

				stored, ok := s.Get("a1")
				So(ok, ShouldBeTrue)
				So(stored["name"], ShouldEqual, "X")
			})
		})

		Convey("When putting the same key twice", func() {
			_, err := s.BatchPut(ctx, []record.Record{{"id": "a1", "name": "X"}})
			So(err, ShouldBeNil)
			_, err = s.BatchPut(ctx, []record.Record{{"id": "a1", "name": "Z"}})
			So(err, ShouldBeNil)

			Convey("Then the value is overwritten, not duplicated", func() {
				So(s.Len(), ShouldEqual, 1)
				stored, _ := s.Get("a1")
				So(stored["name"], ShouldEqual, "Z")
			})
		})

		Convey("When a record has no usable key", func() {
			res, err := s.BatchPut(ctx, []record.Record{{"name": "anonymous"}})

			Convey("Then it is reported malformed and nothing is stored", func() {
				So(err, ShouldBeNil)
				So(res.Succeeded, ShouldBeEmpty)
				So(res.Failed, ShouldHaveLength, 1)
				So(res.Failed["#0"], ShouldEqual, sink.FailMalformed)
				So(s.Len(), ShouldEqual, 0)
			})
		})

		Convey("When several unkeyed records mix with a record keyed \"id\"", func() {
			res, err := s.BatchPut(ctx, []record.Record{
				{"name": "anon"},
				{"id": "id", "name": "field-named"},
				{"name": "also-anon"},
			})

			Convey("Then each rejection is a distinct entry and real keys never collide", func() {
				So(err, ShouldBeNil)
				So(res.Succeeded, ShouldResemble, []string{"id"})
				So(res.Failed, ShouldHaveLength, 2)
				So(res.Failed["#0"], ShouldEqual, sink.FailMalformed)
				So(res.Failed["#2"], ShouldEqual, sink.FailMalformed)
				So(s.Len(), ShouldEqual, 1)
			})
		})

		Convey("When the caller mutates a record after the put", func() {
			original := record.Record{"id": "a1", "name": "X"}
			_, err := s.BatchPut(ctx, []record.Record{original})
			So(err, ShouldBeNil)
			original["name"] = "mutated"

			Convey("Then the stored copy is unaffected", func() {
				stored, _ := s.Get("a1")
				So(stored["name"], ShouldEqual, "X")
			})
		})

		Convey("When the context is canceled", func() {
			canceled, cancel := context.WithCancel(ctx)
			cancel()
			_, err := s.BatchPut(canceled, []record.Record{{"id": "a1"}})

			Convey("Then the put fails", func() {
				So(err, ShouldNotBeNil)
			})
		})
	})

	Convey("Given a memory sink with a custom key field", t, func() {
		s := sink.NewMemorySink(sink.WithMemoryKeyField("sku"))

		Convey("When putting records keyed by sku", func() {
			res, err := s.BatchPut(context.Background(), []record.Record{{"sku": "p-1"}})

			Convey("Then the custom key is used", func() {
				So(err, ShouldBeNil)
				So(res.Succeeded, ShouldResemble, []string{"p-1"})
				_, ok := s.Get("p-1")
				So(ok, ShouldBeTrue)
			})
		})
	})
}

func TestFailReason(t *testing.T) {
	Convey("Given the failure reasons", t, func() {
		Convey("Then only throttled is retryable", func() {
			So(sink.FailThrottled.Retryable(), ShouldBeTrue)
			So(sink.FailMalformed.Retryable(), ShouldBeFalse)
			So(sink.FailUnknown.Retryable(), ShouldBeFalse)
		})
	})
}
