package model_test

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justlep/nedb/internal/model"
)

func mustMatch(t *testing.T, doc, query model.Doc) bool {
	t.Helper()
	matched, err := model.MatchQuery(doc, query, nil)
	require.NoError(t, err)
	return matched
}

func Test_MatchQuery_Plain_Equality(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"a": 5.0, "b": "hello"}

	assert.True(t, mustMatch(t, doc, model.Doc{"a": 5.0}))
	assert.False(t, mustMatch(t, doc, model.Doc{"a": 6.0}))
	assert.True(t, mustMatch(t, doc, model.Doc{"a": 5.0, "b": "hello"}))
}

func Test_MatchQuery_Or(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"a": 5.0}
	query := model.Doc{"$or": []any{model.Doc{"a": 4.0}, model.Doc{"a": 5.0}}}
	assert.True(t, mustMatch(t, doc, query))

	query2 := model.Doc{"$or": []any{model.Doc{"a": 4.0}, model.Doc{"a": 6.0}}}
	assert.False(t, mustMatch(t, doc, query2))
}

func Test_MatchQuery_Or_Rejects_NonArray(t *testing.T) {
	t.Parallel()

	_, err := model.MatchQuery(model.Doc{"a": 1.0}, model.Doc{"$or": model.Doc{"a": 1.0}}, nil)
	require.Error(t, err)
}

func Test_MatchQuery_And(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"a": 5.0, "b": "hi"}

	assert.True(t, mustMatch(t, doc, model.Doc{"$and": []any{model.Doc{"a": 5.0}, model.Doc{"b": "hi"}}}))
	assert.False(t, mustMatch(t, doc, model.Doc{"$and": []any{model.Doc{"a": 5.0}, model.Doc{"b": "nope"}}}))
}

func Test_MatchQuery_Not(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"a": 5.0}
	assert.False(t, mustMatch(t, doc, model.Doc{"$not": model.Doc{"a": 5.0}}))
	assert.True(t, mustMatch(t, doc, model.Doc{"$not": model.Doc{"a": 6.0}}))
}

func Test_MatchQuery_Where(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"a": 5.0}
	fn := model.WhereFunc(func(d model.Doc) (bool, error) {
		v, _ := d["a"].(float64)
		return v > 3, nil
	})

	assert.True(t, mustMatch(t, doc, model.Doc{"$where": fn}))
}

func Test_MatchQuery_Array_Field_Matches_Element(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"tags": []any{"a", "b", "c"}}
	assert.True(t, mustMatch(t, doc, model.Doc{"tags": "b"}))
	assert.False(t, mustMatch(t, doc, model.Doc{"tags": "z"}))
}

func Test_MatchQuery_Array_Query_Value_Requires_Full_Equality(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"tags": []any{"a", "b"}}
	assert.True(t, mustMatch(t, doc, model.Doc{"tags": []any{"a", "b"}}))
	assert.False(t, mustMatch(t, doc, model.Doc{"tags": []any{"a"}}))
}

func Test_MatchQuery_Size_Applies_To_Whole_Array(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"tags": []any{"a", "b", "c"}}
	assert.True(t, mustMatch(t, doc, model.Doc{"tags": model.Doc{"$size": 3.0}}))
	assert.False(t, mustMatch(t, doc, model.Doc{"tags": model.Doc{"$size": 2.0}}))
}

func Test_MatchQuery_ElemMatch(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"items": []any{
		model.Doc{"x": 1.0, "y": 2.0},
		model.Doc{"x": 5.0, "y": 6.0},
	}}

	assert.True(t, mustMatch(t, doc, model.Doc{"items": model.Doc{"$elemMatch": model.Doc{"x": 5.0}}}))
	assert.False(t, mustMatch(t, doc, model.Doc{"items": model.Doc{"$elemMatch": model.Doc{"x": 99.0}}}))
}

func Test_MatchQuery_Comparison_Same_Type_Only(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"a": 5.0}
	assert.True(t, mustMatch(t, doc, model.Doc{"a": model.Doc{"$gt": 3.0}}))
	assert.False(t, mustMatch(t, doc, model.Doc{"a": model.Doc{"$gt": "3"}}), "cross-type comparison is always false")
}

func Test_MatchQuery_Ne(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"a": 5.0}
	assert.True(t, mustMatch(t, doc, model.Doc{"a": model.Doc{"$ne": 6.0}}))
	assert.False(t, mustMatch(t, doc, model.Doc{"a": model.Doc{"$ne": 5.0}}))

	// undefined satisfies $ne for any target.
	assert.True(t, mustMatch(t, model.Doc{}, model.Doc{"missing": model.Doc{"$ne": 5.0}}))
}

func Test_MatchQuery_In_Nin(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"a": 5.0}
	assert.True(t, mustMatch(t, doc, model.Doc{"a": model.Doc{"$in": []any{4.0, 5.0}}}))
	assert.False(t, mustMatch(t, doc, model.Doc{"a": model.Doc{"$in": []any{4.0, 6.0}}}))
	assert.True(t, mustMatch(t, doc, model.Doc{"a": model.Doc{"$nin": []any{4.0, 6.0}}}))
}

func Test_MatchQuery_Exists(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"a": "", "b": 1.0}
	assert.True(t, mustMatch(t, doc, model.Doc{"a": model.Doc{"$exists": true}}), "empty string counts as exists-true")
	assert.False(t, mustMatch(t, doc, model.Doc{"missing": model.Doc{"$exists": true}}))
	assert.True(t, mustMatch(t, doc, model.Doc{"missing": model.Doc{"$exists": false}}))
}

func Test_MatchQuery_Regex(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"s": "hello world"}
	rx := model.Regex{Regexp: regexp.MustCompile(`^hello`)}

	assert.True(t, mustMatch(t, doc, model.Doc{"s": rx}))
	assert.False(t, mustMatch(t, doc, model.Doc{"s": model.Regex{Regexp: regexp.MustCompile(`^world`)}}))
}

func Test_MatchQuery_Mixed_Operator_And_Plain_Keys_Is_Error(t *testing.T) {
	t.Parallel()

	_, err := model.MatchQuery(model.Doc{"a": 1.0}, model.Doc{"a": model.Doc{"$gt": 0.0, "plain": 1.0}}, nil)
	require.Error(t, err)
}

func Test_MatchQuery_Dates_Compare_By_Timestamp(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"t": time.UnixMilli(5000)}
	assert.True(t, mustMatch(t, doc, model.Doc{"t": model.Doc{"$gt": time.UnixMilli(1000)}}))
	assert.False(t, mustMatch(t, doc, model.Doc{"t": model.Doc{"$lt": time.UnixMilli(1000)}}))
}
