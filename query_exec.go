package nedb

import (
	"time"

	"github.com/justlep/nedb/internal/index"
	"github.com/justlep/nedb/internal/model"
)

// getCandidates returns a heuristically-selected superset of query's
// matches, not a cost-based plan: it inspects the query shape and picks
// the first applicable index, falling back to a full scan. Unless skipExpiration is set, any candidate whose TTL field
// holds a date older than its threshold is reaped (best-effort, by id)
// and excluded from the result.
func (c *Collection) getCandidates(query model.Doc, skipExpiration bool) ([]model.Doc, error) {
	candidates := c.selectCandidates(query)

	if skipExpiration || len(c.ttl) == 0 {
		return candidates, nil
	}

	now := time.Now().UTC()
	var live []model.Doc
	var expiredIDs []string

	for _, doc := range candidates {
		if id, expired := c.isExpired(doc, now); expired {
			expiredIDs = append(expiredIDs, id)
			continue
		}
		live = append(live, doc)
	}

	if len(expiredIDs) > 0 {
		// Best-effort: a reap failure must not surface to the caller's
		// read.
		_, _ = c.removeSync(model.Doc{"_id": model.Doc{"$in": idsToAny(expiredIDs)}}, true)
	}

	return live, nil
}

func idsToAny(ids []string) []any {
	out := make([]any, len(ids))
	for i, id := range ids {
		out[i] = id
	}
	return out
}

func (c *Collection) isExpired(doc model.Doc, now time.Time) (id string, expired bool) {
	id, _ = doc["_id"].(string)
	for fieldName, seconds := range c.ttl {
		v := model.GetDotPath(doc, fieldName)
		t, ok := v.(time.Time)
		if !ok {
			continue
		}
		if now.Sub(t) > time.Duration(seconds*float64(time.Second)) {
			return id, true
		}
	}
	return id, false
}

// selectCandidates implements the index-selection heuristic itself,
// without TTL handling.
func (c *Collection) selectCandidates(query model.Doc) []model.Doc {
	if len(query) == 1 {
		if v, ok := query["_id"]; ok && model.IsScalar(v) {
			return c.indexes["_id"].GetMatching(v)
		}
	}

	for field, v := range query {
		if model.IsScalar(v) {
			if ix, ok := c.indexes[field]; ok {
				return ix.GetMatching(v)
			}
		}
	}

	for field, v := range query {
		clause, ok := v.(model.Doc)
		if !ok {
			continue
		}
		if in, ok := clause["$in"]; ok && len(clause) == 1 {
			if ix, ok := c.indexes[field]; ok {
				return ix.GetMatching(in)
			}
		}
	}

	for field, v := range query {
		clause, ok := v.(model.Doc)
		if !ok {
			continue
		}
		if bounds, ok := asIndexBounds(clause); ok {
			// Only ordered indexes support range scans; the primary hash
			// index does not, so a bounded _id query falls through to the
			// full scan below.
			if ix, ok := c.indexes[field].(*index.Index); ok {
				return ix.GetBetweenBounds(bounds)
			}
		}
	}

	return c.indexes["_id"].GetAll()
}

// asIndexBounds reports whether clause is composed entirely of
// $lt/$lte/$gt/$gte keys, translating it to index.Bounds if so.
func asIndexBounds(clause model.Doc) (index.Bounds, bool) {
	var b index.Bounds
	found := false
	for k, v := range clause {
		switch k {
		case "$lt":
			b.Lt = v
		case "$lte":
			b.Lte = v
		case "$gt":
			b.Gt = v
		case "$gte":
			b.Gte = v
		default:
			return index.Bounds{}, false
		}
		found = true
	}
	return b, found
}
