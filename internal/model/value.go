// Package model implements the document value model: canonical ordering and
// equality, dot-path access, the query predicate language, and the update
// modifier language.
//
// Documents are represented as the same dynamic shapes encoding/json already
// produces: map[string]any for objects, []any for arrays, float64/string/
// bool/nil for scalars, and time.Time for dates (encoding/json has no native
// date type, so dates only ever appear after Deserialize has decoded a
// "$$date" tag, or when constructed directly in Go).
package model

import "time"

// Doc is a document: a tree of keyed values rooted at an object.
type Doc = map[string]any

// Undefined is the sentinel for a value that is absent altogether: a
// dot-path that resolves to nothing, a missing field under an operator.
// It is distinct from nil, which represents a stored JSON null.
type Undefined struct{}

// undef is the single instance of the undefined sentinel.
var undef = Undefined{}

// Undef returns the undefined sentinel value.
func Undef() any { return undef }

// IsUndefined reports whether v is the undefined sentinel.
func IsUndefined(v any) bool {
	_, ok := v.(Undefined)
	return ok
}

// IsScalar reports whether v is one of the "simple" comparable leaf kinds
// used by candidate selection heuristics: string, number, boolean, date, or
// null. Arrays and objects are not scalar.
func IsScalar(v any) bool {
	switch v.(type) {
	case nil, string, float64, int, int64, bool, time.Time:
		return true
	default:
		return false
	}
}

// AsFloat64 normalizes any Go numeric kind to float64, mirroring JSON's
// single numeric type. ok is false for non-numeric input.
func AsFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// typeRank assigns the total order over heterogeneous value kinds:
// undefined < null < number < string < boolean < date < array <
// object.
func typeRank(v any) int {
	switch val := v.(type) {
	case Undefined:
		return 0
	case nil:
		return 1
	case string:
		return 3
	case bool:
		return 4
	case time.Time:
		return 5
	case []any:
		return 6
	case map[string]any:
		return 7
	default:
		if _, ok := AsFloat64(val); ok {
			return 2
		}
		// Unknown Go type: treat as object-rank so it sorts last among
		// "normal" values rather than silently miscomparing.
		return 7
	}
}
