// Package decode turns one raw blob into an ordered sequence of records.
//
// The decoder is a pure transform: no side effects, no retained state.
// Numbers are decoded into json.Number rather than float64 so monetary and
// scientific values keep their exact textual representation.
package decode

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/okian/sluice/internal/domain/record"
)

// Decoder parses raw blob bytes into records.
type Decoder interface {
	// Decode normalizes a single JSON object or an array of objects into a
	// slice of records. Empty or malformed input yields ErrMalformedInput.
	Decode(ctx context.Context, blob []byte) ([]record.Record, error)
}

// JSONDecoder implements Decoder for JSON blobs.
type JSONDecoder struct{}

// NewJSONDecoder creates a JSON decoder.
func NewJSONDecoder() *JSONDecoder {
	return &JSONDecoder{}
}

// Decode parses blob into records.
func (d *JSONDecoder) Decode(ctx context.Context, blob []byte) ([]record.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("decode canceled: %w", err)
	}
	trimmed := bytes.TrimSpace(blob)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("%w: empty blob", ErrMalformedInput)
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()

	var records []record.Record
	switch trimmed[0] {
	case '[':
		if err := dec.Decode(&records); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
	case '{':
		var single record.Record
		if err := dec.Decode(&single); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedInput, err)
		}
		records = []record.Record{single}
	default:
		return nil, fmt.Errorf("%w: expected object or array", ErrMalformedInput)
	}

	// Reject trailing garbage after the top-level value.
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("%w: trailing data after JSON value", ErrMalformedInput)
	}
	return records, nil
}
