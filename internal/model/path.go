package model

import (
	"strconv"
	"strings"
)

// GetDotPath resolves a dot-separated path against doc.
//
// For array segments: a purely numeric segment indexes into the array; a
// non-numeric segment projects the remaining path over each element,
// producing an array of per-element results. An empty or exhausted path
// yields the current value.
func GetDotPath(doc any, path string) any {
	if path == "" {
		return doc
	}
	return getSegments(doc, strings.Split(path, "."))
}

func getSegments(v any, segs []string) any {
	if len(segs) == 0 {
		return v
	}

	seg := segs[0]
	rest := segs[1:]

	switch node := v.(type) {
	case map[string]any:
		child, ok := node[seg]
		if !ok {
			return Undef()
		}
		return getSegments(child, rest)

	case []any:
		if idx, err := strconv.Atoi(seg); err == nil {
			if idx < 0 || idx >= len(node) {
				return Undef()
			}
			return getSegments(node[idx], rest)
		}
		// Non-numeric segment: project the *whole remaining path*
		// (this segment plus rest) over every element.
		results := make([]any, 0, len(node))
		for _, elem := range node {
			results = append(results, getSegments(elem, segs))
		}
		return results

	default:
		return Undef()
	}
}

// SetDotPath returns a new tree identical to doc except that the value at
// path has been set to val, creating intermediate objects as needed.
// Numeric path segments beyond the root are not supported for creation
// (matching the modifier language's restriction to object paths); existing
// arrays along the path are still navigable by numeric index.
func SetDotPath(doc Doc, path string, val any) Doc {
	out := cloneDocShallowDeep(doc)
	segs := strings.Split(path, ".")
	setSegments(out, segs, val)
	return out
}

func setSegments(node Doc, segs []string, val any) {
	if len(segs) == 1 {
		node[segs[0]] = val
		return
	}

	key := segs[0]
	if arr, isArr := node[key].([]any); isArr {
		if idx, err := strconv.Atoi(segs[1]); err == nil && idx >= 0 && idx < len(arr) {
			if len(segs) == 2 {
				arr[idx] = val
				return
			}
			elem, ok := arr[idx].(map[string]any)
			if !ok {
				elem = Doc{}
				arr[idx] = elem
			}
			setSegments(elem, segs[2:], val)
			return
		}
	}
	child, ok := node[key].(map[string]any)
	if !ok {
		child = Doc{}
	} else {
		child = cloneDocShallowDeep(child)
	}
	node[key] = child
	setSegments(child, segs[1:], val)
}

// UnsetDotPath returns a new tree identical to doc except the key named by
// the final path segment has been removed from its parent object. Unsetting
// a path whose parent does not exist, or whose parent is not an object, is
// a no-op.
func UnsetDotPath(doc Doc, path string) Doc {
	out := cloneDocShallowDeep(doc)
	segs := strings.Split(path, ".")
	unsetSegments(out, segs)
	return out
}

func unsetSegments(node Doc, segs []string) {
	if len(segs) == 1 {
		delete(node, segs[0])
		return
	}

	child, ok := node[segs[0]].(map[string]any)
	if !ok {
		return
	}
	cloned := cloneDocShallowDeep(child)
	node[segs[0]] = cloned
	unsetSegments(cloned, segs[1:])
}

// cloneDocShallowDeep performs a deep clone of a document-shaped value
// (map[string]any / []any / scalars), used by the modifier language so that
// in-place mutation of the working copy never reaches the caller's original.
func cloneDocShallowDeep(v any) Doc {
	m, ok := v.(map[string]any)
	if !ok {
		return Doc{}
	}
	return DeepCloneMap(m)
}

// DeepCloneMap returns a deep copy of a document.
func DeepCloneMap(m map[string]any) Doc {
	out := make(Doc, len(m))
	for k, v := range m {
		out[k] = DeepClone(v)
	}
	return out
}

// DeepClone returns a deep copy of any document-shaped value.
func DeepClone(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return DeepCloneMap(val)
	case []any:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = DeepClone(e)
		}
		return out
	default:
		return val
	}
}
