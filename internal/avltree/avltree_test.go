package avltree_test

import (
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justlep/nedb/internal/avltree"
)

func intCompare(a, b int) int  { return a - b }
func intEqual(a, b int) bool   { return a == b }
func newIntTree() *avltree.Tree[int, int] {
	return avltree.New[int, int](intCompare, intEqual)
}

func Test_Tree_Insert_Search(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	tree.Insert(5, 50)
	tree.Insert(3, 30)
	tree.Insert(7, 70)

	assert.Equal(t, []int{50}, tree.Search(5))
	assert.Equal(t, []int{30}, tree.Search(3))
	assert.Nil(t, tree.Search(99))
	assert.Equal(t, 3, tree.Len())
}

func Test_Tree_Insert_Same_Key_Appends_To_Bucket(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	tree.Insert(5, 1)
	tree.Insert(5, 2)
	tree.Insert(5, 3)

	assert.Equal(t, []int{1, 2, 3}, tree.Search(5))
	assert.Equal(t, 3, tree.Len())
}

func Test_Tree_Has(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	tree.Insert(1, 1)
	assert.True(t, tree.Has(1))
	assert.False(t, tree.Has(2))
}

func Test_Tree_Delete_Removes_Specific_Value_From_Bucket(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	tree.Insert(5, 1)
	tree.Insert(5, 2)

	tree.Delete(5, 1)

	assert.Equal(t, []int{2}, tree.Search(5))
	assert.Equal(t, 1, tree.Len())
}

func Test_Tree_Delete_Empties_Bucket_Removes_Key(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	tree.Insert(5, 1)
	tree.Delete(5, 1)

	assert.False(t, tree.Has(5))
	assert.Nil(t, tree.Search(5))
	assert.Equal(t, 0, tree.Len())
}

func Test_Tree_Delete_Unknown_Value_Is_NoOp(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	tree.Insert(5, 1)
	tree.Delete(5, 99)

	assert.Equal(t, []int{1}, tree.Search(5))
	assert.Equal(t, 1, tree.Len())
}

func Test_Tree_Delete_Unknown_Key_Is_NoOp(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	tree.Insert(5, 1)
	tree.Delete(99, 1)

	assert.Equal(t, 1, tree.Len())
}

func Test_Tree_Delete_With_Two_Children_Splices_Successor(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	for _, k := range []int{5, 3, 8, 1, 4, 7, 9} {
		tree.Insert(k, k*10)
	}

	tree.Delete(5, 50)

	assert.False(t, tree.Has(5))
	for _, k := range []int{3, 8, 1, 4, 7, 9} {
		assert.True(t, tree.Has(k), "key %d should survive deletion of root", k)
	}
	assert.Equal(t, 6, tree.Len())
}

func Test_Tree_ExecuteOnEveryNode_Visits_In_Ascending_Key_Order(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	keys := []int{5, 1, 9, 3, 7, 2, 8}
	for _, k := range keys {
		tree.Insert(k, k)
	}

	var visited []int
	tree.ExecuteOnEveryNode(func(key int, values []int) {
		visited = append(visited, key)
	})

	sorted := append([]int{}, keys...)
	sort.Ints(sorted)
	assert.Equal(t, sorted, visited)
}

func Test_Tree_BetweenBounds_Inclusive_Bounds(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	for i := 1; i <= 10; i++ {
		tree.Insert(i, i)
	}

	gte, lte := 3, 6
	got := tree.BetweenBounds(avltree.Bounds[int]{Gte: &gte, Lte: &lte})
	sort.Ints(got)
	assert.Equal(t, []int{3, 4, 5, 6}, got)
}

func Test_Tree_BetweenBounds_Exclusive_Bounds(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	for i := 1; i <= 10; i++ {
		tree.Insert(i, i)
	}

	gt, lt := 3, 6
	got := tree.BetweenBounds(avltree.Bounds[int]{Gt: &gt, Lt: &lt})
	sort.Ints(got)
	assert.Equal(t, []int{4, 5}, got)
}

func Test_Tree_BetweenBounds_Unbounded_Side(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	for i := 1; i <= 5; i++ {
		tree.Insert(i, i)
	}

	gte := 3
	got := tree.BetweenBounds(avltree.Bounds[int]{Gte: &gte})
	sort.Ints(got)
	assert.Equal(t, []int{3, 4, 5}, got)
}

func Test_Tree_Stays_Balanced_Under_Sequential_Insert(t *testing.T) {
	t.Parallel()

	tree := newIntTree()
	const n = 1000
	for i := 0; i < n; i++ {
		tree.Insert(i, i)
	}

	require.Equal(t, n, tree.Len())
	for i := 0; i < n; i++ {
		require.True(t, tree.Has(i))
	}

	gte, lte := 100, 200
	got := tree.BetweenBounds(avltree.Bounds[int]{Gte: &gte, Lte: &lte})
	assert.Len(t, got, 101)
}
