package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Serialize renders doc as a single-line JSON text record. Dates are
// encoded as {"$$date": <ms>} on the way out. Key validation is re-run
// during serialization so no invalid key can slip into the log.
func Serialize(doc Doc) (string, error) {
	if err := ValidateDoc(doc); err != nil {
		return "", err
	}

	prepared := prepareForMarshal(doc)

	b, err := json.Marshal(prepared)
	if err != nil {
		return "", fmt.Errorf("serializing document: %w", err)
	}
	return string(b), nil
}

// prepareForMarshal walks a document tree converting time.Time leaves into
// their {"$$date": ms} wire shape ahead of json.Marshal, since
// encoding/json has no native way to special-case one Go type within a
// map[string]any tree.
func prepareForMarshal(v any) any {
	switch val := v.(type) {
	case time.Time:
		return map[string]any{"$$date": val.UnixMilli()}
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = prepareForMarshal(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = prepareForMarshal(vv)
		}
		return out
	default:
		return val
	}
}

// Deserialize parses a single-line JSON text record, decoding {"$$date": ms}
// shapes back into time.Time. It is the inverse of Serialize:
// Deserialize(Serialize(d)) == d for all valid documents.
func Deserialize(line string) (Doc, error) {
	var raw any
	if err := json.Unmarshal([]byte(line), &raw); err != nil {
		return nil, fmt.Errorf("parsing record: %w", err)
	}

	top, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("parsing record: top-level value is not an object")
	}

	return reviveDates(top).(Doc), nil
}

func reviveDates(v any) any {
	switch val := v.(type) {
	case map[string]any:
		if ms, ok := asDateTag(val); ok {
			return time.UnixMilli(ms).UTC()
		}
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = reviveDates(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = reviveDates(vv)
		}
		return out
	default:
		return val
	}
}

// asDateTag reports whether m is exactly a {"$$date": <number>} wrapper.
func asDateTag(m map[string]any) (int64, bool) {
	if len(m) != 1 {
		return 0, false
	}
	raw, ok := m["$$date"]
	if !ok {
		return 0, false
	}
	f, ok := AsFloat64(raw)
	if !ok {
		return 0, false
	}
	return int64(f), true
}
