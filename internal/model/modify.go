package model

import (
	"fmt"
	"strings"
)

// ErrInvalidModifier reports a malformed or unknown update modifier.
type ErrInvalidModifier struct{ Reason string }

func (e *ErrInvalidModifier) Error() string { return "invalid modifier: " + e.Reason }

func invalidModifier(format string, args ...any) error {
	return &ErrInvalidModifier{Reason: fmt.Sprintf(format, args...)}
}

// ErrIDImmutable is returned when an update attempts to change `_id`.
type ErrIDImmutable struct{}

func (e *ErrIDImmutable) Error() string { return "_id is immutable" }

// ErrMixedFieldsAndModifiers is returned when an update document contains
// both `$`-prefixed modifier keys and plain field keys, which makes it
// ambiguous whether the caller wanted a replacement or a modification.
type ErrMixedFieldsAndModifiers struct{}

func (e *ErrMixedFieldsAndModifiers) Error() string {
	return "update document mixes modifier and non-modifier keys"
}

// ModifyDoc applies updateQuery to doc and returns the
// resulting document. The original is never mutated. ModifyDoc re-validates
// key-name invariants on the result before returning.
func ModifyDoc(doc Doc, updateQuery Doc, strCmp StringComparator) (Doc, error) {
	hasModifierKeys, hasPlainKeys := false, false
	for k := range updateQuery {
		if strings.HasPrefix(k, "$") {
			hasModifierKeys = true
		} else {
			hasPlainKeys = true
		}
	}

	if hasModifierKeys && hasPlainKeys {
		return nil, &ErrMixedFieldsAndModifiers{}
	}

	var result Doc
	var err error

	if !hasModifierKeys {
		result, err = applyReplacement(doc, updateQuery)
	} else {
		result, err = applyModifiers(doc, updateQuery, strCmp)
	}
	if err != nil {
		return nil, err
	}

	if err := ValidateDoc(result); err != nil {
		return nil, err
	}

	return result, nil
}

// applyReplacement implements full-document replacement: the original
// `_id` is preserved, and the caller may not supply a different `_id`.
func applyReplacement(old, replacement Doc) (Doc, error) {
	if newID, ok := replacement["_id"]; ok {
		if oldID, ok2 := old["_id"]; ok2 && !ThingsEqual(newID, oldID) {
			return nil, &ErrIDImmutable{}
		}
	}

	out := DeepCloneMap(replacement)
	if oldID, ok := old["_id"]; ok {
		out["_id"] = DeepClone(oldID)
	}
	return out, nil
}

func applyModifiers(doc Doc, updateQuery Doc, strCmp StringComparator) (Doc, error) {
	result := DeepCloneMap(doc)

	for modifier, argsVal := range updateQuery {
		args, ok := argsVal.(map[string]any)
		if !ok {
			return nil, invalidModifier("%s requires a document argument", modifier)
		}

		apply, known := modifierFuncs[modifier]
		if !known {
			return nil, invalidModifier("unknown modifier %q", modifier)
		}

		for path, arg := range args {
			var err error
			result, err = apply(result, path, arg, strCmp)
			if err != nil {
				return nil, err
			}
		}
	}

	if newID, ok := queryIDIfPresent(updateQuery); ok {
		if oldID, has := doc["_id"]; has && !ThingsEqual(newID, oldID) {
			return nil, &ErrIDImmutable{}
		}
	}
	if oldID, has := doc["_id"]; has {
		result["_id"] = DeepClone(oldID)
	}

	return result, nil
}

// queryIDIfPresent looks for an explicit "_id" path anywhere among $set
// arguments, the only way a modifier update could attempt to touch _id.
func queryIDIfPresent(updateQuery Doc) (any, bool) {
	setArgs, ok := updateQuery["$set"].(map[string]any)
	if !ok {
		return nil, false
	}
	v, ok := setArgs["_id"]
	return v, ok
}

type modifierFunc func(doc Doc, path string, arg any, strCmp StringComparator) (Doc, error)

var modifierFuncs = map[string]modifierFunc{
	"$set":      modSet,
	"$unset":    modUnset,
	"$inc":      modInc,
	"$min":      modMin,
	"$max":      modMax,
	"$push":     modPush,
	"$addToSet": modAddToSet,
	"$pop":      modPop,
	"$pull":     modPull,
}

func modSet(doc Doc, path string, arg any, _ StringComparator) (Doc, error) {
	return SetDotPath(doc, path, DeepClone(arg)), nil
}

func modUnset(doc Doc, path string, _ any, _ StringComparator) (Doc, error) {
	return UnsetDotPath(doc, path), nil
}

func modInc(doc Doc, path string, arg any, _ StringComparator) (Doc, error) {
	delta, ok := AsFloat64(arg)
	if !ok {
		return nil, invalidModifier("$inc requires a numeric argument for %q", path)
	}

	cur := GetDotPath(doc, path)
	var base float64
	if !IsUndefined(cur) {
		b, ok := AsFloat64(cur)
		if !ok {
			return nil, invalidModifier("$inc target %q is not numeric", path)
		}
		base = b
	}

	return SetDotPath(doc, path, base+delta), nil
}

func modMin(doc Doc, path string, arg any, strCmp StringComparator) (Doc, error) {
	cur := GetDotPath(doc, path)
	if IsUndefined(cur) || Compare(arg, cur, strCmp) < 0 {
		return SetDotPath(doc, path, DeepClone(arg)), nil
	}
	return doc, nil
}

func modMax(doc Doc, path string, arg any, strCmp StringComparator) (Doc, error) {
	cur := GetDotPath(doc, path)
	if IsUndefined(cur) || Compare(arg, cur, strCmp) > 0 {
		return SetDotPath(doc, path, DeepClone(arg)), nil
	}
	return doc, nil
}

// pushSpec is the shape of a $push argument: either a bare value to append,
// or {$each: [...], $slice: n}.
type pushSpec struct {
	each  []any
	slice *int
	isDoc bool
}

func parsePushSpec(arg any) pushSpec {
	m, ok := arg.(map[string]any)
	if !ok {
		return pushSpec{each: []any{arg}}
	}

	each, hasEach := m["$each"].([]any)
	sliceVal, hasSlice := m["$slice"]

	if !hasEach && !hasSlice {
		// Not a recognized sub-document shape: treat as a bare value even
		// though it happens to be an object.
		return pushSpec{each: []any{arg}}
	}

	spec := pushSpec{isDoc: true}
	if hasEach {
		spec.each = each
	}
	// $slice without $each is treated as empty each.
	if hasSlice {
		if n, ok := AsFloat64(sliceVal); ok {
			i := int(n)
			spec.slice = &i
		}
	}
	return spec
}

func modPush(doc Doc, path string, arg any, _ StringComparator) (Doc, error) {
	spec := parsePushSpec(arg)

	cur := GetDotPath(doc, path)
	var arr []any
	if !IsUndefined(cur) {
		existing, ok := cur.([]any)
		if !ok {
			return nil, invalidModifier("$push target %q is not an array", path)
		}
		arr = append([]any{}, existing...)
	}

	for _, v := range spec.each {
		arr = append(arr, DeepClone(v))
	}

	if spec.slice != nil {
		arr = applySlice(arr, *spec.slice)
	}

	return SetDotPath(doc, path, arr), nil
}

func applySlice(arr []any, n int) []any {
	switch {
	case n == 0:
		return []any{}
	case n > 0:
		if n >= len(arr) {
			return arr
		}
		return arr[:n]
	default: // negative: keep last -n elements
		keep := -n
		if keep >= len(arr) {
			return arr
		}
		return arr[len(arr)-keep:]
	}
}

func modAddToSet(doc Doc, path string, arg any, strCmp StringComparator) (Doc, error) {
	var items []any
	if m, ok := arg.(map[string]any); ok {
		if each, ok := m["$each"].([]any); ok {
			items = each
		} else {
			items = []any{arg}
		}
	} else {
		items = []any{arg}
	}

	cur := GetDotPath(doc, path)
	var arr []any
	if !IsUndefined(cur) {
		existing, ok := cur.([]any)
		if !ok {
			return nil, invalidModifier("$addToSet target %q is not an array", path)
		}
		arr = append([]any{}, existing...)
	}

	for _, item := range items {
		found := false
		for _, existing := range arr {
			if Compare(existing, item, strCmp) == 0 {
				found = true
				break
			}
		}
		if !found {
			arr = append(arr, DeepClone(item))
		}
	}

	return SetDotPath(doc, path, arr), nil
}

func modPop(doc Doc, path string, arg any, _ StringComparator) (Doc, error) {
	n, ok := AsFloat64(arg)
	if !ok || n != float64(int(n)) {
		return nil, invalidModifier("$pop requires an integer argument for %q", path)
	}
	direction := int(n)
	if direction == 0 {
		return doc, nil
	}

	cur := GetDotPath(doc, path)
	arr, ok := cur.([]any)
	if !ok {
		if IsUndefined(cur) {
			return doc, nil
		}
		return nil, invalidModifier("$pop target %q is not an array", path)
	}
	if len(arr) == 0 {
		return doc, nil
	}

	var out []any
	if direction > 0 {
		out = arr[:len(arr)-1]
	} else {
		out = arr[1:]
	}

	return SetDotPath(doc, path, append([]any{}, out...)), nil
}

func modPull(doc Doc, path string, arg any, strCmp StringComparator) (Doc, error) {
	cur := GetDotPath(doc, path)
	arr, ok := cur.([]any)
	if !ok {
		if IsUndefined(cur) {
			return doc, nil
		}
		return nil, invalidModifier("$pull target %q is not an array", path)
	}

	subQuery, isQuery := arg.(map[string]any)

	out := make([]any, 0, len(arr))
	for _, elem := range arr {
		var (
			matches bool
			err     error
		)

		if isQuery && len(subQuery) > 0 {
			matches, err = MatchElement(elem, subQuery, strCmp)
		} else {
			matches = ThingsEqual(elem, arg)
		}

		if err != nil {
			return nil, err
		}
		if !matches {
			out = append(out, elem)
		}
	}

	return SetDotPath(doc, path, out), nil
}
