package model

import "sort"

// SortSpec is one `{field: direction}` pair from a cursor's sort
// specification, direction being +1 (ascending) or -1 (descending).
type SortSpec struct {
	Field     string
	Direction int
}

// SortDocs sorts docs in place using the canonical value ordering across
// multiple keys with per-key direction, stable so that ties preserve
// candidate order.
func SortDocs(docs []Doc, specs []SortSpec, strCmp StringComparator) {
	sort.SliceStable(docs, func(i, j int) bool {
		for _, s := range specs {
			vi := GetDotPath(docs[i], s.Field)
			vj := GetDotPath(docs[j], s.Field)
			c := Compare(vi, vj, strCmp)
			if c == 0 {
				continue
			}
			if s.Direction < 0 {
				return c > 0
			}
			return c < 0
		}
		return false
	})
}
