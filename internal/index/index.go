// Package index implements the ordered, AVL-backed secondary index and
// the specialized unique-string primary index.
package index

import (
	"github.com/justlep/nedb/internal/avltree"
	"github.com/justlep/nedb/internal/model"
)

// Options configures a single field index.
type Options struct {
	FieldName string
	Unique    bool
	Sparse    bool
}

// Index is the ordered, AVL-backed secondary index over one document field.
// Not safe for concurrent use; all mutation happens inside the executor's
// single-consumer loop.
type Index struct {
	opts   Options
	tree   *avltree.Tree[any, model.Doc]
	strCmp model.StringComparator
}

func docsEqualByID(a, b model.Doc) bool {
	ai, _ := a["_id"].(string)
	bi, _ := b["_id"].(string)
	return ai == bi
}

// New creates an empty Index over opts.FieldName.
func New(opts Options, strCmp model.StringComparator) *Index {
	if strCmp == nil {
		strCmp = model.DefaultStringComparator
	}
	cmp := func(a, b any) int { return model.Compare(a, b, strCmp) }
	return &Index{
		opts:   opts,
		tree:   avltree.New[any, model.Doc](cmp, docsEqualByID),
		strCmp: strCmp,
	}
}

// FieldName returns the indexed field name.
func (ix *Index) FieldName() string { return ix.opts.FieldName }

// Options returns the index's configuration.
func (ix *Index) Options() Options { return ix.opts }

// Reset empties the tree; if docs is non-nil, inserts them all, rolling
// back to empty on any failure.
func (ix *Index) Reset(docs []model.Doc) error {
	cmp := func(a, b any) int { return model.Compare(a, b, ix.strCmp) }
	ix.tree = avltree.New[any, model.Doc](cmp, docsEqualByID)

	if docs == nil {
		return nil
	}

	if err := ix.Insert(docs); err != nil {
		ix.tree = avltree.New[any, model.Doc](cmp, docsEqualByID)
		return err
	}
	return nil
}

// fieldValues computes the set of unique index keys a document contributes
// under this index's field, applying array dedup-by-equality (dates
// compared by timestamp).
//
// ok is false when the field is undefined and the index is sparse: the
// document contributes no keys and insert/remove must no-op.
func (ix *Index) fieldValues(doc model.Doc) (values []any, isArray bool, ok bool) {
	fv := model.GetDotPath(doc, ix.opts.FieldName)

	if model.IsUndefined(fv) {
		if ix.opts.Sparse {
			return nil, false, false
		}
		return []any{fv}, false, true
	}

	arr, isArr := fv.([]any)
	if !isArr {
		return []any{fv}, false, true
	}

	unique := make([]any, 0, len(arr))
	for _, v := range arr {
		dup := false
		for _, u := range unique {
			if model.Compare(u, v, ix.strCmp) == 0 {
				dup = true
				break
			}
		}
		if !dup {
			unique = append(unique, v)
		}
	}
	return unique, true, true
}

// Insert adds one document, or a batch of documents.
//
// For a single document: if the field value is undefined and the index is
// sparse, it is a no-op. If the value is an array, the document is
// inserted once per unique value; a partial failure rolls back the values
// already inserted for that document.
//
// For a batch ([]model.Doc), documents are inserted in order; on any
// failure, every previously inserted document in the batch is removed
// and the error is re-raised.
func (ix *Index) Insert(docOrDocs any) error {
	switch v := docOrDocs.(type) {
	case model.Doc:
		return ix.insertOne(v)
	case []model.Doc:
		inserted := make([]model.Doc, 0, len(v))
		for _, d := range v {
			if err := ix.insertOne(d); err != nil {
				for _, done := range inserted {
					ix.removeOne(done)
				}
				return err
			}
			inserted = append(inserted, d)
		}
		return nil
	default:
		panic("index: Insert requires model.Doc or []model.Doc")
	}
}

func (ix *Index) insertOne(doc model.Doc) error {
	values, _, ok := ix.fieldValues(doc)
	if !ok {
		return nil
	}

	inserted := make([]any, 0, len(values))
	for _, v := range values {
		if ix.opts.Unique {
			if existing := ix.tree.Search(v); len(existing) > 0 {
				for _, done := range inserted {
					ix.tree.Delete(done, doc)
				}
				return &ErrUniqueViolated{FieldName: ix.opts.FieldName, Key: v}
			}
		}
		ix.tree.Insert(v, doc)
		inserted = append(inserted, v)
	}
	return nil
}

// Remove removes one document, or a batch, symmetric with Insert. Remove
// never fails for uniqueness reasons.
func (ix *Index) Remove(docOrDocs any) {
	switch v := docOrDocs.(type) {
	case model.Doc:
		ix.removeOne(v)
	case []model.Doc:
		for _, d := range v {
			ix.removeOne(d)
		}
	default:
		panic("index: Remove requires model.Doc or []model.Doc")
	}
}

func (ix *Index) removeOne(doc model.Doc) {
	values, _, ok := ix.fieldValues(doc)
	if !ok {
		return
	}
	for _, v := range values {
		ix.tree.Delete(v, doc)
	}
}

// UpdatePair is one (old, new) document pair for a vectorized Update.
type UpdatePair struct {
	Old model.Doc
	New model.Doc
}

// Update removes old and inserts newDoc; if the insert fails, old is
// re-inserted (which cannot fail) and the error is re-raised.
func (ix *Index) Update(old, newDoc model.Doc) error {
	ix.removeOne(old)
	if err := ix.insertOne(newDoc); err != nil {
		ix.insertOne(old) //nolint:errcheck // re-insert of a previously-present document cannot fail
		return err
	}
	return nil
}

// UpdateBatch applies a vectorized update: removes all olds, then inserts
// all news; if any insert fails, every completed new insert is undone and
// every old is re-inserted.
func (ix *Index) UpdateBatch(pairs []UpdatePair) error {
	for _, p := range pairs {
		ix.removeOne(p.Old)
	}

	inserted := make([]model.Doc, 0, len(pairs))
	for _, p := range pairs {
		if err := ix.insertOne(p.New); err != nil {
			for _, done := range inserted {
				ix.removeOne(done)
			}
			for _, p2 := range pairs {
				ix.insertOne(p2.Old) //nolint:errcheck // re-insert of a previously-present document cannot fail
			}
			return err
		}
		inserted = append(inserted, p.New)
	}
	return nil
}

// RevertUpdate swaps the role of old/new and calls Update.
func (ix *Index) RevertUpdate(old, newDoc model.Doc) error {
	return ix.Update(newDoc, old)
}

// RevertUpdateBatch swaps the role of old/new for every pair and calls
// UpdateBatch.
func (ix *Index) RevertUpdateBatch(pairs []UpdatePair) error {
	swapped := make([]UpdatePair, len(pairs))
	for i, p := range pairs {
		swapped[i] = UpdatePair{Old: p.New, New: p.Old}
	}
	return ix.UpdateBatch(swapped)
}

// GetMatching returns documents whose indexed field equals v (scalar), or
// the union by _id of per-value matches (v an array).
func (ix *Index) GetMatching(v any) []model.Doc {
	arr, isArr := v.([]any)
	if !isArr {
		return append([]model.Doc(nil), ix.tree.Search(v)...)
	}

	seen := make(map[string]bool)
	var out []model.Doc
	for _, item := range arr {
		for _, doc := range ix.tree.Search(item) {
			id, _ := doc["_id"].(string)
			if !seen[id] {
				seen[id] = true
				out = append(out, doc)
			}
		}
	}
	return out
}

// Bounds mirrors the $lt/$lte/$gt/$gte subset of a query clause.
type Bounds struct {
	Lt, Lte, Gt, Gte any
}

// GetBetweenBounds delegates to the underlying AVL tree.
func (ix *Index) GetBetweenBounds(b Bounds) []model.Doc {
	tb := avltree.Bounds[any]{}
	if b.Lt != nil {
		tb.Lt = &b.Lt
	}
	if b.Lte != nil {
		tb.Lte = &b.Lte
	}
	if b.Gt != nil {
		tb.Gt = &b.Gt
	}
	if b.Gte != nil {
		tb.Gte = &b.Gte
	}
	return ix.tree.BetweenBounds(tb)
}

// GetAll flattens the tree's nodes' data in key order.
func (ix *Index) GetAll() []model.Doc {
	var out []model.Doc
	ix.tree.ExecuteOnEveryNode(func(_ any, values []model.Doc) {
		out = append(out, values...)
	})
	return out
}

// Len returns the number of (key, doc) pairs currently indexed.
func (ix *Index) Len() int { return ix.tree.Len() }
