package model_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/justlep/nedb/internal/model"
)

func Test_SortDocs_Single_Key_Ascending(t *testing.T) {
	t.Parallel()

	docs := []model.Doc{
		{"a": 3.0},
		{"a": 1.0},
		{"a": 2.0},
	}

	model.SortDocs(docs, []model.SortSpec{{Field: "a", Direction: 1}}, nil)

	assert.Equal(t, []model.Doc{{"a": 1.0}, {"a": 2.0}, {"a": 3.0}}, docs)
}

func Test_SortDocs_Single_Key_Descending(t *testing.T) {
	t.Parallel()

	docs := []model.Doc{
		{"a": 1.0},
		{"a": 3.0},
		{"a": 2.0},
	}

	model.SortDocs(docs, []model.SortSpec{{Field: "a", Direction: -1}}, nil)

	assert.Equal(t, []model.Doc{{"a": 3.0}, {"a": 2.0}, {"a": 1.0}}, docs)
}

func Test_SortDocs_Multi_Key_Breaks_Ties(t *testing.T) {
	t.Parallel()

	docs := []model.Doc{
		{"a": 1.0, "b": 2.0},
		{"a": 1.0, "b": 1.0},
		{"a": 0.0, "b": 5.0},
	}

	model.SortDocs(docs, []model.SortSpec{
		{Field: "a", Direction: 1},
		{Field: "b", Direction: 1},
	}, nil)

	assert.Equal(t, []model.Doc{
		{"a": 0.0, "b": 5.0},
		{"a": 1.0, "b": 1.0},
		{"a": 1.0, "b": 2.0},
	}, docs)
}

func Test_SortDocs_Is_Stable_On_Full_Tie(t *testing.T) {
	t.Parallel()

	docs := []model.Doc{
		{"a": 1.0, "id": "first"},
		{"a": 1.0, "id": "second"},
	}

	model.SortDocs(docs, []model.SortSpec{{Field: "a", Direction: 1}}, nil)

	assert.Equal(t, "first", docs[0]["id"])
	assert.Equal(t, "second", docs[1]["id"])
}
