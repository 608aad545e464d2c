package nedb_test

import (
	"context"
	"os"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justlep/nedb"
	"github.com/justlep/nedb/internal/model"
)

// End-to-end tests exercising full insert/index/persist/reload cycles
// against a real datafile on disk.

func openFile(t *testing.T, path string, opts nedb.Options) *nedb.Collection {
	t.Helper()
	opts.Filename = path
	opts.Autoload = true
	col, err := nedb.Open(opts)
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), testCloseTimeout)
		defer cancel()
		_ = col.Close(ctx)
	})
	return col
}

func readFileLines(t *testing.T, path string) []string {
	t.Helper()
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimRight(string(content), "\n"), "\n")
	if len(lines) == 1 && lines[0] == "" {
		return nil
	}
	return lines
}

func sortByID(docs []model.Doc) {
	sort.Slice(docs, func(i, j int) bool {
		a, _ := docs[i]["_id"].(string)
		b, _ := docs[j]["_id"].(string)
		return a < b
	})
}

func Test_Insert_Then_Find_Then_Reload_Returns_Same_Documents(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/data.db"
	col := openFile(t, path, nedb.Options{})

	_, err := col.Insert(
		model.Doc{"a": 5.0, "b": "hello"},
		model.Doc{"a": 42.0, "b": "world"},
	)
	require.NoError(t, err)

	before, err := col.Find(model.Doc{}).Exec()
	require.NoError(t, err)
	require.Len(t, before, 2)
	for _, doc := range before {
		assert.NotEmpty(t, doc["_id"])
	}

	ctx, cancel := context.WithTimeout(context.Background(), testCloseTimeout)
	defer cancel()
	require.NoError(t, col.Close(ctx))

	col2 := openFile(t, path, nedb.Options{})
	after, err := col2.Find(model.Doc{}).Exec()
	require.NoError(t, err)

	sortByID(before)
	sortByID(after)
	if diff := cmp.Diff(before, after); diff != "" {
		t.Fatalf("documents changed across reload (-before +after):\n%s", diff)
	}
}

func Test_Bulk_Insert_Violating_Unique_Index_Leaves_No_Trace(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/data.db"
	col := openFile(t, path, nedb.Options{})
	require.NoError(t, col.EnsureIndex(nedb.IndexOptions{FieldName: "a", Unique: true}))

	_, err := col.Insert(
		model.Doc{"a": 5.0, "b": "hello"},
		model.Doc{"a": 42.0, "b": "world"},
		model.Doc{"a": 5.0, "b": "bloup"},
		model.Doc{"a": 7.0},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, nedb.ErrUniqueViolated)

	n, err := col.Count(model.Doc{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	lines := readFileLines(t, path)
	require.Len(t, lines, 1, "the file must contain only the index-creation record")
	assert.Contains(t, lines[0], "$$indexCreated")
}

func Test_TTL_Index_Reaps_Expired_Document_On_Read(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/data.db"
	col := openFile(t, path, nedb.Options{})

	seconds := 0.2
	require.NoError(t, col.EnsureIndex(nedb.IndexOptions{FieldName: "exp", ExpireAfterSeconds: &seconds}))

	_, err := col.Insert(model.Doc{"hello": "world", "exp": time.Now()})
	require.NoError(t, err)

	time.Sleep(300 * time.Millisecond)

	got, err := col.FindOne(model.Doc{})
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, col.Compact())

	for _, line := range readFileLines(t, path) {
		assert.NotContains(t, line, "world", "a compacted log must not mention the reaped document")
	}
}

func Test_Find_By_In_Is_Independent_Of_Argument_Order(t *testing.T) {
	t.Parallel()

	col := openMemory(t, nedb.Options{})

	var ids []string
	for _, n := range []float64{1, 2, 3} {
		docs, err := col.Insert(model.Doc{"docNumber": n})
		require.NoError(t, err)
		ids = append(ids, docs[0]["_id"].(string))
	}

	got, err := col.Find(model.Doc{"_id": model.Doc{"$in": []any{ids[0], ids[2], ids[1]}}}).Exec()
	require.NoError(t, err)
	require.Len(t, got, 3)

	var numbers []float64
	for _, doc := range got {
		numbers = append(numbers, doc["docNumber"].(float64))
	}
	sort.Float64s(numbers)
	assert.Equal(t, []float64{1, 2, 3}, numbers)
}

func Test_Upsert_With_Logical_Query_Builds_Doc_From_Modifiers_Only(t *testing.T) {
	t.Parallel()

	col := openMemory(t, nedb.Options{})

	res, err := col.Update(
		model.Doc{"$or": []any{model.Doc{"a": 4.0}, model.Doc{"a": 5.0}}},
		model.Doc{"$set": model.Doc{"hello": "world"}, "$inc": model.Doc{"bloup": 3.0}},
		nedb.UpdateOptions{Upsert: true},
	)
	require.NoError(t, err)
	require.True(t, res.Upsert)
	require.Len(t, res.AffectedDocuments, 1)

	doc := res.AffectedDocuments[0]
	assert.Equal(t, "world", doc["hello"])
	assert.Equal(t, 3.0, doc["bloup"])
	assert.NotEmpty(t, doc["_id"])
	assert.NotContains(t, doc, "a", "the logical operator must not leak into the synthesized document")
}

func Test_Failed_Update_Across_Multiple_Unique_Indexes_Rolls_Back_All(t *testing.T) {
	t.Parallel()

	col := openMemory(t, nedb.Options{})
	for _, field := range []string{"a", "b", "c"} {
		require.NoError(t, col.EnsureIndex(nedb.IndexOptions{FieldName: field, Unique: true}))
	}

	originals := []model.Doc{
		{"a": 1.0, "b": 10.0, "c": 100.0},
		{"a": 2.0, "b": 20.0, "c": 200.0},
		{"a": 3.0, "b": 30.0, "c": 300.0},
	}
	inserted, err := col.Insert(originals...)
	require.NoError(t, err)

	// b would collide with the third document's b: 30.
	_, err = col.Update(
		model.Doc{"a": 2.0},
		model.Doc{"$inc": model.Doc{"a": 10.0, "c": 1000.0}, "$set": model.Doc{"b": 30.0}},
		nedb.UpdateOptions{},
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, nedb.ErrUniqueViolated)

	after, err := col.Find(model.Doc{}).Exec()
	require.NoError(t, err)

	sortByID(inserted)
	sortByID(after)
	if diff := cmp.Diff(inserted, after); diff != "" {
		t.Fatalf("documents changed despite the failed update (-want +got):\n%s", diff)
	}

	for _, a := range []float64{1, 2, 3} {
		got, err := col.FindOne(model.Doc{"a": a})
		require.NoError(t, err)
		require.NotNil(t, got, "index on a must still resolve a=%v", a)
	}
}

func Test_Update_Mixing_Fields_And_Modifiers_Is_Rejected(t *testing.T) {
	t.Parallel()

	col := openMemory(t, nedb.Options{})
	_, err := col.Insert(model.Doc{"_id": "x1"})
	require.NoError(t, err)

	_, err = col.Update(model.Doc{"_id": "x1"}, model.Doc{"$set": model.Doc{"a": 1.0}, "b": 2.0}, nedb.UpdateOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, nedb.ErrMixedFieldsAndModifiers)
}

func Test_Compaction_Fires_OnCompactionDone_Exactly_Once_Per_Compact(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/data.db"

	fired := 0
	col := openFile(t, path, nedb.Options{OnCompactionDone: func() { fired++ }})

	loads := fired // loadDatabase ends in an initial compaction
	require.NoError(t, col.Compact())
	assert.Equal(t, loads+1, fired)

	require.NoError(t, col.Compact())
	assert.Equal(t, loads+2, fired)
}

func Test_Index_Options_Survive_Reload(t *testing.T) {
	t.Parallel()

	path := t.TempDir() + "/data.db"
	col := openFile(t, path, nedb.Options{})
	require.NoError(t, col.EnsureIndex(nedb.IndexOptions{FieldName: "email", Unique: true}))

	_, err := col.Insert(model.Doc{"_id": "x1", "email": "a@x.com"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), testCloseTimeout)
	defer cancel()
	require.NoError(t, col.Close(ctx))

	col2 := openFile(t, path, nedb.Options{})
	_, err = col2.Insert(model.Doc{"_id": "x2", "email": "a@x.com"})
	require.Error(t, err, "the unique index must be rebuilt from the log on reload")
	assert.ErrorIs(t, err, nedb.ErrUniqueViolated)
}

func Test_Range_Query_On_Primary_Key_Falls_Back_To_Scan(t *testing.T) {
	t.Parallel()

	col := openMemory(t, nedb.Options{})
	_, err := col.Insert(model.Doc{"_id": "a1"}, model.Doc{"_id": "b2"}, model.Doc{"_id": "c3"})
	require.NoError(t, err)

	got, err := col.Find(model.Doc{"_id": model.Doc{"$lt": "c"}}).Exec()
	require.NoError(t, err)
	assert.Len(t, got, 2)
}
