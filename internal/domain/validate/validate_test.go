package validate_test

import (
	"context"
	"encoding/json"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/sluice/internal/domain/record"
	"github.com/okian/sluice/internal/domain/validate"
)

func TestFieldValidator(t *testing.T) {
	Convey("Given a validator with default options", t, func() {
		v := validate.NewFieldValidator()
		ctx := context.Background()

		Convey("Then the key field defaults to id", func() {
			So(v.KeyField(), ShouldEqual, "id")
		})

		Convey("When validating a complete record", func() {
			r := record.Record{
				"id":     "a1",
				"name":   "X",
				"amount": json.Number("12.50"),
				"active": true,
				"meta":   map[string]any{"source": "demo"},
				"tags":   []any{"a", "b"},
				"note":   nil,
			}
			outcome := v.Validate(ctx, r)

			Convey("Then it is valid", func() {
				So(outcome.Valid, ShouldBeTrue)
			})

			Convey("Then the record is not mutated", func() {
				So(r, ShouldHaveLength, 7)
				So(r["id"], ShouldEqual, "a1")
			})
		})

		Convey("When the key field is absent", func() {
			outcome := v.Validate(ctx, record.Record{"name": "Y"})

			Convey("Then it is invalid with missing-key-field", func() {
				So(outcome.Valid, ShouldBeFalse)
				So(outcome.Reason, ShouldEqual, validate.ReasonMissingKeyField)
			})
		})

		Convey("When the key field is null", func() {
			outcome := v.Validate(ctx, record.Record{"id": nil})

			Convey("Then it is invalid with missing-key-field", func() {
				So(outcome.Valid, ShouldBeFalse)
				So(outcome.Reason, ShouldEqual, validate.ReasonMissingKeyField)
			})
		})

		Convey("When the key field is an empty string", func() {
			outcome := v.Validate(ctx, record.Record{"id": ""})

			Convey("Then it is invalid with missing-key-field", func() {
				So(outcome.Valid, ShouldBeFalse)
				So(outcome.Reason, ShouldEqual, validate.ReasonMissingKeyField)
			})
		})

		Convey("When the key field is not a string", func() {
			outcome := v.Validate(ctx, record.Record{"id": json.Number("7")})

			Convey("Then the key is unusable and the record is invalid", func() {
				So(outcome.Valid, ShouldBeFalse)
				So(outcome.Reason, ShouldEqual, validate.ReasonMissingKeyField)
			})
		})

		Convey("When a value has a disallowed type", func() {
			outcome := v.Validate(ctx, record.Record{"id": "a1", "value": float64(3.14)})

			Convey("Then it is invalid with wrong-type", func() {
				So(outcome.Valid, ShouldBeFalse)
				So(outcome.Reason, ShouldEqual, validate.ReasonWrongType)
			})
		})

		Convey("When a nested value has a disallowed type", func() {
			outcome := v.Validate(ctx, record.Record{
				"id":   "a1",
				"meta": map[string]any{"depth": float64(1)},
			})

			Convey("Then it is invalid with wrong-type", func() {
				So(outcome.Valid, ShouldBeFalse)
				So(outcome.Reason, ShouldEqual, validate.ReasonWrongType)
			})
		})
	})

	Convey("Given a validator with a custom key field", t, func() {
		v := validate.NewFieldValidator(validate.WithKeyField("sku"))

		Convey("When validating records against it", func() {
			ctx := context.Background()
			good := v.Validate(ctx, record.Record{"sku": "p-1"})
			bad := v.Validate(ctx, record.Record{"id": "a1"})

			Convey("Then only records with the custom key pass", func() {
				So(v.KeyField(), ShouldEqual, "sku")
				So(good.Valid, ShouldBeTrue)
				So(bad.Valid, ShouldBeFalse)
				So(bad.Reason, ShouldEqual, validate.ReasonMissingKeyField)
			})
		})
	})
}
