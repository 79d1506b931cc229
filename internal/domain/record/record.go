// Package record contains the record shape passed between pipeline stages.
package record

import "encoding/json"

// Record is one semi-structured record, keyed by field name. Values are the
// JSON value set: string, json.Number, bool, nested map, ordered list, nil.
// Numbers stay json.Number end to end so high-precision decimals survive a
// decode/encode round trip byte for byte.
type Record map[string]any

// Key returns the value of the designated key field.
// ok is false when the field is absent, null, not a string, or empty.
func (r Record) Key(field string) (string, bool) {
	v, present := r[field]
	if !present {
		return "", false
	}
	s, isString := v.(string)
	if !isString || s == "" {
		return "", false
	}
	return s, true
}

// Clone returns a shallow copy of the record. Nested values are shared;
// pipeline stages never mutate them.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// AllowedValue reports whether v belongs to the value set a record may carry.
// Nested maps and lists are checked recursively.
func AllowedValue(v any) bool {
	switch val := v.(type) {
	case nil, string, bool, json.Number:
		return true
	case map[string]any:
		for _, nested := range val {
			if !AllowedValue(nested) {
				return false
			}
		}
		return true
	case []any:
		for _, item := range val {
			if !AllowedValue(item) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
