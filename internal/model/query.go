package model

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Regex marks a query value as a regular expression, which documents
// themselves cannot carry as a value kind. Field values matched against
// a Regex must be strings.
type Regex struct{ *regexp.Regexp }

// WhereFunc is the receiver-style predicate used by the `$where` operator.
type WhereFunc func(doc Doc) (bool, error)

// ErrInvalidQuery reports a malformed predicate document.
type ErrInvalidQuery struct{ Reason string }

func (e *ErrInvalidQuery) Error() string { return "invalid query: " + e.Reason }

func invalidQuery(format string, args ...any) error {
	return &ErrInvalidQuery{Reason: fmt.Sprintf(format, args...)}
}

// MatchQuery reports whether doc satisfies query.
func MatchQuery(doc Doc, query Doc, strCmp StringComparator) (bool, error) {
	for key, val := range query {
		var (
			matched bool
			err     error
		)

		switch key {
		case "$or":
			matched, err = matchOr(doc, val, strCmp)
		case "$and":
			matched, err = matchAnd(doc, val, strCmp)
		case "$not":
			matched, err = matchNot(doc, val, strCmp)
		case "$where":
			matched, err = matchWhere(doc, val)
		default:
			matched, err = matchFieldClause(doc, key, val, strCmp)
		}

		if err != nil {
			return false, err
		}
		if !matched {
			return false, nil
		}
	}
	return true, nil
}

func matchOr(doc Doc, val any, strCmp StringComparator) (bool, error) {
	subs, ok := val.([]any)
	if !ok {
		return false, invalidQuery("$or requires an array argument")
	}
	for _, sub := range subs {
		subQuery, ok := sub.(map[string]any)
		if !ok {
			return false, invalidQuery("$or elements must be query documents")
		}
		m, err := MatchQuery(doc, subQuery, strCmp)
		if err != nil {
			return false, err
		}
		if m {
			return true, nil
		}
	}
	return false, nil
}

func matchAnd(doc Doc, val any, strCmp StringComparator) (bool, error) {
	subs, ok := val.([]any)
	if !ok {
		return false, invalidQuery("$and requires an array argument")
	}
	for _, sub := range subs {
		subQuery, ok := sub.(map[string]any)
		if !ok {
			return false, invalidQuery("$and elements must be query documents")
		}
		m, err := MatchQuery(doc, subQuery, strCmp)
		if err != nil {
			return false, err
		}
		if !m {
			return false, nil
		}
	}
	return true, nil
}

func matchNot(doc Doc, val any, strCmp StringComparator) (bool, error) {
	subQuery, ok := val.(map[string]any)
	if !ok {
		return false, invalidQuery("$not requires a query document")
	}
	m, err := MatchQuery(doc, subQuery, strCmp)
	if err != nil {
		return false, err
	}
	return !m, nil
}

func matchWhere(doc Doc, val any) (bool, error) {
	fn, ok := val.(WhereFunc)
	if !ok {
		return false, invalidQuery("$where requires a function")
	}
	return fn(doc)
}

// matchFieldClause evaluates a single `{field: v}` clause.
func matchFieldClause(doc Doc, field string, v any, strCmp StringComparator) (bool, error) {
	fieldVal := GetDotPath(doc, field)

	isArrayOperatorDoc, err := isArraySpecificOperatorDoc(v)
	if err != nil {
		return false, err
	}
	_, isRegex := v.(Regex)

	if arr, ok := fieldVal.([]any); ok && !isArrayOperatorDoc && !isRegex {
		if queryArr, ok := v.([]any); ok {
			// Query value is itself an array: requires full equality.
			return ThingsEqual(arr, queryArr), nil
		}
		// Otherwise: matches iff any element matches the clause.
		for _, elem := range arr {
			m, err := matchValue(elem, v, strCmp)
			if err != nil {
				return false, err
			}
			if m {
				return true, nil
			}
		}
		return false, nil
	}

	return matchValue(fieldVal, v, strCmp)
}

// isArraySpecificOperatorDoc reports whether v is an operator document
// containing $size or $elemMatch, the two operators that apply directly to
// an array value rather than element-wise.
func isArraySpecificOperatorDoc(v any) (bool, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return false, nil
	}
	for k := range m {
		if k == "$size" || k == "$elemMatch" {
			return true, nil
		}
	}
	return false, nil
}

// matchValue evaluates a single non-array-dispatching value match: operator
// document, regex, or structural equality.
func matchValue(fieldVal, v any, strCmp StringComparator) (bool, error) {
	if rx, ok := v.(Regex); ok {
		s, ok := fieldVal.(string)
		if !ok {
			return false, nil
		}
		return rx.MatchString(s), nil
	}

	if opDoc, ok := v.(map[string]any); ok && len(opDoc) > 0 && isOperatorDoc(opDoc) {
		for op, arg := range opDoc {
			m, err := applyOperator(op, fieldVal, arg, strCmp)
			if err != nil {
				return false, err
			}
			if !m {
				return false, nil
			}
		}
		return true, nil
	}

	if opDoc, ok := v.(map[string]any); ok && len(opDoc) > 0 && mixedOperatorDoc(opDoc) {
		return false, invalidQuery("cannot mix operator and non-operator keys in %v", opDoc)
	}

	return ThingsEqual(fieldVal, v), nil
}

// MatchElement matches a single value (typically an array element) against
// either an operator document (applied directly to the value) or a field
// query document (applied against the value as an object). Used by $pull
// and $elemMatch-style per-element evaluation.
func MatchElement(elem any, subQuery Doc, strCmp StringComparator) (bool, error) {
	if isOperatorDoc(subQuery) {
		return matchValue(elem, subQuery, strCmp)
	}
	elemDoc, ok := elem.(map[string]any)
	if !ok {
		return false, nil
	}
	return MatchQuery(elemDoc, subQuery, strCmp)
}

func isOperatorDoc(m map[string]any) bool {
	for k := range m {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

func mixedOperatorDoc(m map[string]any) bool {
	hasOp, hasPlain := false, false
	for k := range m {
		if strings.HasPrefix(k, "$") {
			hasOp = true
		} else {
			hasPlain = true
		}
	}
	return hasOp && hasPlain
}

func applyOperator(op string, fieldVal, arg any, strCmp StringComparator) (bool, error) {
	switch op {
	case "$lt", "$lte", "$gt", "$gte":
		return applyComparison(op, fieldVal, arg, strCmp)
	case "$ne":
		if IsUndefined(fieldVal) {
			return true, nil
		}
		return !ThingsEqual(fieldVal, arg), nil
	case "$in":
		list, ok := arg.([]any)
		if !ok {
			return false, invalidQuery("$in requires an array argument")
		}
		for _, item := range list {
			if ThingsEqual(fieldVal, item) {
				return true, nil
			}
		}
		return false, nil
	case "$nin":
		list, ok := arg.([]any)
		if !ok {
			return false, invalidQuery("$nin requires an array argument")
		}
		for _, item := range list {
			if ThingsEqual(fieldVal, item) {
				return false, nil
			}
		}
		return true, nil
	case "$regex":
		rx, ok := arg.(Regex)
		if !ok {
			return false, invalidQuery("$regex requires a regex argument")
		}
		s, ok := fieldVal.(string)
		if !ok {
			return false, nil
		}
		return rx.MatchString(s), nil
	case "$exists":
		want := truthy(arg)
		isUndef := IsUndefined(fieldVal)
		return want != isUndef, nil
	case "$size":
		n, ok := AsFloat64(arg)
		if !ok || n != float64(int(n)) {
			return false, invalidQuery("$size requires an integer argument")
		}
		arr, ok := fieldVal.([]any)
		if !ok {
			return false, nil
		}
		return len(arr) == int(n), nil
	case "$elemMatch":
		subQuery, ok := arg.(map[string]any)
		if !ok {
			return false, invalidQuery("$elemMatch requires a query document")
		}
		arr, ok := fieldVal.([]any)
		if !ok {
			return false, nil
		}
		for _, elem := range arr {
			elemDoc, ok := elem.(map[string]any)
			if !ok {
				continue
			}
			m, err := MatchQuery(elemDoc, subQuery, strCmp)
			if err != nil {
				return false, err
			}
			if m {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, invalidQuery("unknown operator %q", op)
	}
}

// applyComparison implements $lt/$lte/$gt/$gte: comparisons only apply
// within the same primitive type (string, number, or date); across types
// they return false.
func applyComparison(op string, fieldVal, arg any, strCmp StringComparator) (bool, error) {
	if !samePrimitiveType(fieldVal, arg) {
		return false, nil
	}

	c := Compare(fieldVal, arg, strCmp)
	switch op {
	case "$lt":
		return c < 0, nil
	case "$lte":
		return c <= 0, nil
	case "$gt":
		return c > 0, nil
	case "$gte":
		return c >= 0, nil
	default:
		return false, invalidQuery("unknown comparison operator %q", op)
	}
}

func samePrimitiveType(a, b any) bool {
	_, aNum := AsFloat64(a)
	_, bNum := AsFloat64(b)
	if aNum && bNum {
		return true
	}
	_, aStr := a.(string)
	_, bStr := b.(string)
	if aStr && bStr {
		return true
	}
	_, aDate := a.(time.Time)
	_, bDate := b.(time.Time)
	if aDate && bDate {
		return true
	}
	return false
}

// truthy interprets the $exists operand loosely: any string, including
// the empty one, counts as exists-true.
func truthy(v any) bool {
	switch val := v.(type) {
	case bool:
		return val
	case nil:
		return false
	case string:
		return true // empty string counts as exists-true
	default:
		if f, ok := AsFloat64(val); ok {
			return f != 0
		}
		return true
	}
}
