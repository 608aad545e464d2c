package nedb

import (
	"errors"

	"github.com/justlep/nedb/internal/model"
)

// Cursor is a deferred query: a predicate plus optional sort, skip,
// limit, and projection, applied to the candidate documents the
// Collection selects for the query.
type Cursor struct {
	col   *Collection
	query model.Doc

	sort       []model.SortSpec
	skip       int
	limit      int
	projection model.Doc
}

// Find returns a Cursor over documents matching query. Sort/Skip/Limit/
// Project narrow it further before Exec runs it.
func (c *Collection) Find(query model.Doc) *Cursor {
	return &Cursor{col: c, query: query}
}

// Sort orders results by specs, each a field plus +1/-1 direction, most
// significant first.
func (cur *Cursor) Sort(specs ...model.SortSpec) *Cursor {
	cur.sort = specs
	return cur
}

// Skip discards the first n matches.
func (cur *Cursor) Skip(n int) *Cursor {
	cur.skip = n
	return cur
}

// Limit caps the result at n matches. Zero (the default) means unlimited.
func (cur *Cursor) Limit(n int) *Cursor {
	cur.limit = n
	return cur
}

// Project applies a MongoDB-style projection: all-1 keys pick fields,
// all-0 keys omit them - mixing the two is an error, except that `_id`
// may be excluded independently of the mode.
func (cur *Cursor) Project(projection model.Doc) *Cursor {
	cur.projection = projection
	return cur
}

// Exec runs the cursor and returns a deep clone of the matching,
// projected documents.
func (cur *Cursor) Exec() ([]model.Doc, error) {
	var out []model.Doc
	err := cur.col.exec.Submit(func() error {
		res, err := cur.execSync()
		out = res
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return out, nil
}

// execSync is the non-scheduled variant run directly on the executor's
// goroutine: getCandidates, filter, sort/skip/limit, project.
func (cur *Cursor) execSync() ([]model.Doc, error) {
	candidates, err := cur.col.getCandidates(cur.query, false)
	if err != nil {
		return nil, err
	}

	var results []model.Doc

	if len(cur.sort) > 0 {
		for _, doc := range candidates {
			ok, err := model.MatchQuery(doc, cur.query, cur.col.strCmp)
			if err != nil {
				return nil, err
			}
			if ok {
				results = append(results, doc)
			}
		}
		model.SortDocs(results, cur.sort, cur.col.strCmp)
		results = applySkipLimit(results, cur.skip, cur.limit)
	} else {
		skipped := 0
		for _, doc := range candidates {
			ok, err := model.MatchQuery(doc, cur.query, cur.col.strCmp)
			if err != nil {
				return nil, err
			}
			if !ok {
				continue
			}
			if skipped < cur.skip {
				skipped++
				continue
			}
			results = append(results, doc)
			if cur.limit > 0 && len(results) >= cur.limit {
				break
			}
		}
	}

	return applyProjection(results, cur.projection)
}

func applySkipLimit(docs []model.Doc, skip, limit int) []model.Doc {
	if skip > 0 {
		if skip >= len(docs) {
			return nil
		}
		docs = docs[skip:]
	}
	if limit > 0 && limit < len(docs) {
		docs = docs[:limit]
	}
	return docs
}

type projectionMode int

const (
	projectionPick projectionMode = iota
	projectionOmit
)

func applyProjection(docs []model.Doc, projection model.Doc) ([]model.Doc, error) {
	if len(projection) == 0 {
		out := make([]model.Doc, len(docs))
		for i, d := range docs {
			out[i] = model.DeepCloneMap(d)
		}
		return out, nil
	}

	mode, idExcluded, err := classifyProjection(projection)
	if err != nil {
		return nil, err
	}

	out := make([]model.Doc, len(docs))
	for i, d := range docs {
		out[i] = projectOne(d, mode, projection, idExcluded)
	}
	return out, nil
}

// classifyProjection determines whether projection is pick-mode or
// omit-mode (ignoring `_id`, which is tracked separately), rejecting a
// mix of the two.
func classifyProjection(projection model.Doc) (projectionMode, bool, error) {
	idExcluded := false
	var mode *projectionMode

	for k, v := range projection {
		n, ok := model.AsFloat64(v)
		if !ok {
			return 0, false, newErr(ErrProjectionConflict, errors.New("nedb: projection values must be 0 or 1"))
		}
		include := n != 0

		if k == "_id" {
			if !include {
				idExcluded = true
			}
			continue
		}

		m := projectionOmit
		if include {
			m = projectionPick
		}
		if mode == nil {
			mode = &m
		} else if *mode != m {
			return 0, false, newErr(ErrProjectionConflict, errors.New("nedb: projection mixes include and exclude fields"))
		}
	}

	if mode == nil {
		// Only `_id: 0` was given: every other field passes through.
		return projectionOmit, idExcluded, nil
	}
	return *mode, idExcluded, nil
}

func projectOne(doc model.Doc, mode projectionMode, projection model.Doc, idExcluded bool) model.Doc {
	var out model.Doc

	switch mode {
	case projectionPick:
		out = model.Doc{}
		for k, v := range projection {
			if k == "_id" {
				continue
			}
			n, _ := model.AsFloat64(v)
			if n == 0 {
				continue
			}
			val := model.GetDotPath(doc, k)
			if model.IsUndefined(val) {
				continue
			}
			out = model.SetDotPath(out, k, model.DeepClone(val))
		}
	case projectionOmit:
		out = model.DeepCloneMap(doc)
		for k, v := range projection {
			if k == "_id" {
				continue
			}
			n, _ := model.AsFloat64(v)
			if n != 0 {
				continue
			}
			out = model.UnsetDotPath(out, k)
		}
	}

	if idExcluded {
		delete(out, "_id")
	} else if id, ok := doc["_id"]; ok {
		if _, exists := out["_id"]; !exists {
			out["_id"] = id
		}
	}

	return out
}

// FindOne returns the first document matching query (in candidate
// order), or nil if none match.
func (c *Collection) FindOne(query model.Doc) (model.Doc, error) {
	docs, err := c.Find(query).Limit(1).Exec()
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, nil
	}
	return docs[0], nil
}

// Count returns the number of documents matching query.
func (c *Collection) Count(query model.Doc) (int, error) {
	docs, err := c.Find(query).Exec()
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}
