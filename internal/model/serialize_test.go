package model_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justlep/nedb/internal/model"
)

func Test_Serialize_Deserialize_Roundtrip(t *testing.T) {
	t.Parallel()

	doc := model.Doc{
		"_id":     "abc123",
		"name":    "hello",
		"n":       5.0,
		"flag":    true,
		"tags":    []any{"a", "b"},
		"nested":  model.Doc{"x": 1.0},
		"created": time.UnixMilli(1_700_000_000_000).UTC(),
	}

	line, err := model.Serialize(doc)
	require.NoError(t, err)

	out, err := model.Deserialize(line)
	require.NoError(t, err)

	assert.Equal(t, doc, out)
}

func Test_Serialize_Rejects_Invalid_Keys(t *testing.T) {
	t.Parallel()

	_, err := model.Serialize(model.Doc{"$bad": 1.0})
	require.Error(t, err)
}

func Test_Serialize_Encodes_Dates_As_DateTag(t *testing.T) {
	t.Parallel()

	doc := model.Doc{"t": time.UnixMilli(1234)}
	line, err := model.Serialize(doc)
	require.NoError(t, err)

	assert.Contains(t, line, `"$$date"`)
	assert.Contains(t, line, "1234")
}

func Test_Deserialize_Rejects_NonObject_Top_Level(t *testing.T) {
	t.Parallel()

	_, err := model.Deserialize(`[1,2,3]`)
	require.Error(t, err)
}

func Test_Deserialize_Revives_Nested_Dates(t *testing.T) {
	t.Parallel()

	line := `{"_id":"a","items":[{"t":{"$$date":5000}}]}`
	out, err := model.Deserialize(line)
	require.NoError(t, err)

	items := out["items"].([]any)
	inner := items[0].(model.Doc)
	tm, ok := inner["t"].(time.Time)
	require.True(t, ok)
	assert.Equal(t, int64(5000), tm.UnixMilli())
}
