// Package validate classifies records against the required-field contract.
//
// Validation is a pure, per-record step: records pass through unchanged and
// the outcome of one record never depends on another.
package validate

import (
	"context"

	"github.com/okian/sluice/internal/domain/record"
)

// Default validator configuration constants.
const (
	defaultKeyField = "id"
)

// Reason identifies why a record was rejected.
type Reason string

// Fixed rejection reasons.
const (
	ReasonMissingKeyField Reason = "missing-key-field"
	ReasonWrongType       Reason = "wrong-type"
)

// Outcome tags a record as valid or invalid with a reason.
type Outcome struct {
	Valid  bool
	Reason Reason
}

// Validator classifies a single record.
type Validator interface {
	// Validate checks the record against the contract. The record is never
	// mutated or enriched.
	Validate(ctx context.Context, r record.Record) Outcome
	// KeyField returns the designated partition key field name.
	KeyField() string
}

// FieldValidator implements Validator with a configurable key field.
type FieldValidator struct {
	keyField string
}

// NewFieldValidator creates a validator with configuration options.
func NewFieldValidator(opts ...Option) *FieldValidator {
	v := &FieldValidator{
		keyField: defaultKeyField,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// KeyField returns the configured key field name.
func (v *FieldValidator) KeyField() string {
	return v.keyField
}

// Validate checks the key field and the value types of the record.
func (v *FieldValidator) Validate(_ context.Context, r record.Record) Outcome {
	if _, ok := r.Key(v.keyField); !ok {
		return Outcome{Valid: false, Reason: ReasonMissingKeyField}
	}
	for _, value := range r {
		if !record.AllowedValue(value) {
			return Outcome{Valid: false, Reason: ReasonWrongType}
		}
	}
	return Outcome{Valid: true}
}
