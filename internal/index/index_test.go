package index_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justlep/nedb/internal/index"
	"github.com/justlep/nedb/internal/model"
)

func docIDs(docs []model.Doc) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		id, _ := d["_id"].(string)
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

func Test_Index_Insert_And_GetMatching_Scalar(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "age"}, nil)
	d1 := model.Doc{"_id": "1", "age": 30.0}
	d2 := model.Doc{"_id": "2", "age": 30.0}
	d3 := model.Doc{"_id": "3", "age": 40.0}

	require.NoError(t, ix.Insert(d1))
	require.NoError(t, ix.Insert(d2))
	require.NoError(t, ix.Insert(d3))

	assert.Equal(t, []string{"1", "2"}, docIDs(ix.GetMatching(30.0)))
	assert.Equal(t, 3, ix.Len())
}

func Test_Index_Unique_Violation_Rolls_Back(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "email", Unique: true}, nil)
	d1 := model.Doc{"_id": "1", "email": "a@x.com"}
	d2 := model.Doc{"_id": "2", "email": "a@x.com"}

	require.NoError(t, ix.Insert(d1))
	err := ix.Insert(d2)
	require.Error(t, err)
	assert.IsType(t, &index.ErrUniqueViolated{}, err)

	assert.Equal(t, 1, ix.Len())
	assert.Equal(t, []string{"1"}, docIDs(ix.GetMatching("a@x.com")))
}

func Test_Index_Batch_Insert_Rolls_Back_All_On_Failure(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "email", Unique: true}, nil)
	docs := []model.Doc{
		{"_id": "1", "email": "a@x.com"},
		{"_id": "2", "email": "b@x.com"},
		{"_id": "3", "email": "a@x.com"}, // collides with doc 1
	}

	err := ix.Insert(docs)
	require.Error(t, err)
	assert.Equal(t, 0, ix.Len(), "entire batch must be rolled back")
}

func Test_Index_Sparse_Skips_Undefined_Field(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "nick", Sparse: true}, nil)
	d1 := model.Doc{"_id": "1"}
	d2 := model.Doc{"_id": "2", "nick": "bob"}

	require.NoError(t, ix.Insert(d1))
	require.NoError(t, ix.Insert(d2))

	assert.Equal(t, 1, ix.Len(), "sparse index should not index the undefined field")
}

func Test_Index_NonSparse_Indexes_Undefined_Field(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "nick"}, nil)
	d1 := model.Doc{"_id": "1"}

	require.NoError(t, ix.Insert(d1))
	assert.Equal(t, 1, ix.Len())
}

func Test_Index_Array_Field_Indexes_Each_Unique_Value(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "tags"}, nil)
	d1 := model.Doc{"_id": "1", "tags": []any{"a", "b", "a"}}

	require.NoError(t, ix.Insert(d1))
	assert.Equal(t, 2, ix.Len(), "duplicate array values must be deduped")
	assert.Equal(t, []string{"1"}, docIDs(ix.GetMatching("a")))
	assert.Equal(t, []string{"1"}, docIDs(ix.GetMatching("b")))
}

func Test_Index_GetMatching_Array_Query_Unions_By_Id(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "tag"}, nil)
	d1 := model.Doc{"_id": "1", "tag": "a"}
	d2 := model.Doc{"_id": "2", "tag": "b"}
	require.NoError(t, ix.Insert(d1))
	require.NoError(t, ix.Insert(d2))

	got := ix.GetMatching([]any{"a", "b", "a"})
	assert.Equal(t, []string{"1", "2"}, docIDs(got))
}

func Test_Index_Remove(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "age"}, nil)
	d1 := model.Doc{"_id": "1", "age": 30.0}
	require.NoError(t, ix.Insert(d1))

	ix.Remove(d1)
	assert.Equal(t, 0, ix.Len())
	assert.Empty(t, ix.GetMatching(30.0))
}

func Test_Index_Update_Reinserts_Old_On_Failure(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "email", Unique: true}, nil)
	d1 := model.Doc{"_id": "1", "email": "a@x.com"}
	d2 := model.Doc{"_id": "2", "email": "b@x.com"}
	require.NoError(t, ix.Insert(d1))
	require.NoError(t, ix.Insert(d2))

	// attempt to update d1 to collide with d2's key
	newD1 := model.Doc{"_id": "1", "email": "b@x.com"}
	err := ix.Update(d1, newD1)
	require.Error(t, err)

	assert.Equal(t, []string{"1"}, docIDs(ix.GetMatching("a@x.com")), "old value must be restored")
	assert.Equal(t, []string{"2"}, docIDs(ix.GetMatching("b@x.com")))
}

func Test_Index_UpdateBatch_Rolls_Back_On_Failure(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "email", Unique: true}, nil)
	d1 := model.Doc{"_id": "1", "email": "a@x.com"}
	d2 := model.Doc{"_id": "2", "email": "b@x.com"}
	d3 := model.Doc{"_id": "3", "email": "c@x.com"}
	require.NoError(t, ix.Insert([]model.Doc{d1, d2, d3}))

	newD1 := model.Doc{"_id": "1", "email": "z@x.com"}
	newD2 := model.Doc{"_id": "2", "email": "c@x.com"} // collides with d3

	err := ix.UpdateBatch([]index.UpdatePair{
		{Old: d1, New: newD1},
		{Old: d2, New: newD2},
	})
	require.Error(t, err)

	assert.Equal(t, []string{"1"}, docIDs(ix.GetMatching("a@x.com")))
	assert.Equal(t, []string{"2"}, docIDs(ix.GetMatching("b@x.com")))
	assert.Equal(t, []string{"3"}, docIDs(ix.GetMatching("c@x.com")))
}

func Test_Index_GetBetweenBounds(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "n"}, nil)
	for i, id := range []string{"1", "2", "3", "4", "5"} {
		require.NoError(t, ix.Insert(model.Doc{"_id": id, "n": float64(i + 1)}))
	}

	got := ix.GetBetweenBounds(index.Bounds{Gte: 2.0, Lte: 4.0})
	assert.Equal(t, []string{"2", "3", "4"}, docIDs(got))
}

func Test_Index_Reset_Rolls_Back_On_Failure(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "email", Unique: true}, nil)
	require.NoError(t, ix.Insert(model.Doc{"_id": "1", "email": "a@x.com"}))

	err := ix.Reset([]model.Doc{
		{"_id": "2", "email": "b@x.com"},
		{"_id": "3", "email": "b@x.com"},
	})
	require.Error(t, err)
	assert.Equal(t, 0, ix.Len(), "reset must leave the index empty on failure")
}

func Test_Index_GetAll_Flattens_In_Key_Order(t *testing.T) {
	t.Parallel()

	ix := index.New(index.Options{FieldName: "n"}, nil)
	require.NoError(t, ix.Insert(model.Doc{"_id": "c", "n": 3.0}))
	require.NoError(t, ix.Insert(model.Doc{"_id": "a", "n": 1.0}))
	require.NoError(t, ix.Insert(model.Doc{"_id": "b", "n": 2.0}))

	got := ix.GetAll()
	require.Len(t, got, 3)
	assert.Equal(t, 1.0, got[0]["n"])
	assert.Equal(t, 2.0, got[1]["n"])
	assert.Equal(t, 3.0, got[2]["n"])
}
