package model

import (
	"sort"
	"strings"
	"time"
)

// StringComparator orders two strings for sort/index purposes. Returns <0,
// 0, >0 like strings.Compare. A caller-supplied implementation lets callers
// plug in locale-sensitive collation.
type StringComparator func(a, b string) int

// DefaultStringComparator orders strings byte-lexicographically.
func DefaultStringComparator(a, b string) int { return strings.Compare(a, b) }

// Compare implements the total order over heterogeneous values.
// Used by ordered indexes and by sort. strCmp may be nil, in which case
// DefaultStringComparator is used.
func Compare(a, b any, strCmp StringComparator) int {
	if strCmp == nil {
		strCmp = DefaultStringComparator
	}

	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}

	switch ra {
	case 0: // undefined
		return 0
	case 1: // null
		return 0
	case 2: // number
		fa, _ := AsFloat64(a)
		fb, _ := AsFloat64(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		default:
			return 0
		}
	case 3: // string
		return strCmp(a.(string), b.(string))
	case 4: // bool
		ba, bb := a.(bool), b.(bool)
		if ba == bb {
			return 0
		}
		if !ba {
			return -1
		}
		return 1
	case 5: // date
		ta, tb := a.(time.Time), b.(time.Time)
		switch {
		case ta.Before(tb):
			return -1
		case ta.After(tb):
			return 1
		default:
			return 0
		}
	case 6: // array
		return compareArrays(a.([]any), b.([]any), strCmp)
	default: // object
		return compareObjects(toMap(a), toMap(b), strCmp)
	}
}

func toMap(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return nil
}

func compareArrays(a, b []any, strCmp StringComparator) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := Compare(a[i], b[i], strCmp); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// compareObjects orders two objects by sorted key list first, then by
// recursive value comparison of the shared keys, ties broken by size.
func compareObjects(a, b map[string]any, strCmp StringComparator) int {
	ka := sortedKeys(a)
	kb := sortedKeys(b)

	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := strCmp(ka[i], kb[i]); c != 0 {
			return c
		}
	}

	for i := 0; i < len(ka) && i < len(kb); i++ {
		if c := Compare(a[ka[i]], b[kb[i]], strCmp); c != 0 {
			return c
		}
	}

	return len(ka) - len(kb)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Less reports whether a orders strictly before b.
func Less(a, b any, strCmp StringComparator) bool { return Compare(a, b, strCmp) < 0 }
