package model

import "time"

// ThingsEqual implements the equality relation, which differs
// from Compare==0 in several places:
//
//   - Undefined is never equal to anything, including itself.
//   - Arrays compare unequal to non-arrays, even if Compare would rank them
//     adjacently.
//   - Objects require matching key sets and recursively equal values.
func ThingsEqual(a, b any) bool {
	if IsUndefined(a) || IsUndefined(b) {
		return false
	}

	switch av := a.(type) {
	case nil:
		return b == nil
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case time.Time:
		bv, ok := b.(time.Time)
		return ok && av.Equal(bv)
	case []any:
		bv, ok := b.([]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !ThingsEqual(av[i], bv[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		bv, ok := b.(map[string]any)
		if !ok || len(av) != len(bv) {
			return false
		}
		for k, vv := range av {
			bvv, present := bv[k]
			if !present || !ThingsEqual(vv, bvv) {
				return false
			}
		}
		return true
	default:
		fa, okA := AsFloat64(a)
		fb, okB := AsFloat64(b)
		if okA && okB {
			return fa == fb
		}
		return false
	}
}
