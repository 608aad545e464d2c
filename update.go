package nedb

import (
	"errors"
	"strings"
	"time"

	"github.com/justlep/nedb/internal/index"
	"github.com/justlep/nedb/internal/model"
)

// Update applies updateQuery to every document matching query (or only
// the first, in candidate order, unless opts.Multi). opts.Upsert and opts.Multi are mutually exclusive.
func (c *Collection) Update(query, updateQuery model.Doc, opts UpdateOptions) (UpdateResult, error) {
	if opts.Upsert && opts.Multi {
		return UpdateResult{}, newErr(ErrInvalidOptions, errors.New("nedb: UpdateOptions.Upsert and Multi cannot both be set"))
	}

	var result UpdateResult
	err := c.exec.Submit(func() error {
		res, err := c.updateSync(query, updateQuery, opts)
		result = res
		return err
	})
	if err != nil {
		return UpdateResult{}, classify(err)
	}
	return result, nil
}

func (c *Collection) updateSync(query, updateQuery model.Doc, opts UpdateOptions) (UpdateResult, error) {
	candidates, err := c.getCandidates(query, false)
	if err != nil {
		return UpdateResult{}, err
	}

	var matched []model.Doc
	for _, doc := range candidates {
		ok, err := model.MatchQuery(doc, query, c.strCmp)
		if err != nil {
			return UpdateResult{}, err
		}
		if !ok {
			continue
		}
		matched = append(matched, doc)
		if !opts.Multi {
			break
		}
	}

	if len(matched) == 0 {
		if !opts.Upsert {
			return UpdateResult{}, nil
		}
		return c.upsertSync(query, updateQuery)
	}

	now := time.Now().UTC()
	pairs := make([]index.UpdatePair, 0, len(matched))
	newDocs := make([]model.Doc, 0, len(matched))

	for _, old := range matched {
		newDoc, err := model.ModifyDoc(old, updateQuery, c.strCmp)
		if err != nil {
			return UpdateResult{}, err
		}
		if createdAt, ok := old["createdAt"]; ok {
			newDoc["createdAt"] = createdAt
		}
		if c.opts.TimestampData {
			newDoc["updatedAt"] = now
		}
		if err := model.ValidateDoc(newDoc); err != nil {
			return UpdateResult{}, err
		}
		pairs = append(pairs, index.UpdatePair{Old: old, New: newDoc})
		newDocs = append(newDocs, newDoc)
	}

	if err := c.updateAllIndexes(pairs); err != nil {
		return UpdateResult{}, err
	}

	if err := c.log.PersistUpserts(newDocs); err != nil {
		c.revertAllIndexes(pairs)
		return UpdateResult{}, err
	}

	result := UpdateResult{NumAffected: len(newDocs)}
	if opts.ReturnUpdatedDocs {
		cloned := make([]model.Doc, len(newDocs))
		for i, d := range newDocs {
			cloned[i] = model.DeepCloneMap(d)
		}
		result.AffectedDocuments = cloned
	}
	return result, nil
}

// upsertSync inserts a synthesized document when an upsert matched
// nothing: the update document itself when it
// contains no modifiers, or the modifiers applied to a base document
// built from the query's concrete field values otherwise.
func (c *Collection) upsertSync(query, updateQuery model.Doc) (UpdateResult, error) {
	hasModifiers := false
	for k := range updateQuery {
		if strings.HasPrefix(k, "$") {
			hasModifiers = true
			break
		}
	}

	var toInsert model.Doc
	if !hasModifiers {
		toInsert = model.DeepCloneMap(updateQuery)
	} else {
		base := queryToBaseDoc(query)
		modified, err := model.ModifyDoc(base, updateQuery, c.strCmp)
		if err != nil {
			return UpdateResult{}, err
		}
		toInsert = modified
	}

	inserted, err := c.insertSync([]model.Doc{toInsert})
	if err != nil {
		return UpdateResult{}, err
	}

	return UpdateResult{NumAffected: 1, AffectedDocuments: inserted, Upsert: true}, nil
}

// queryToBaseDoc builds a seed document from query's concrete field
// values, dropping top-level logical operators ($or/$and/...) and any
// field clause that is itself entirely operator keys (no concrete value
// to seed with).
func queryToBaseDoc(query model.Doc) model.Doc {
	base := model.Doc{}
	for k, v := range query {
		if strings.HasPrefix(k, "$") {
			continue
		}
		if sub, ok := v.(map[string]any); ok && isAllOperatorKeys(sub) {
			continue
		}
		base[k] = model.DeepClone(v)
	}
	return base
}

func isAllOperatorKeys(doc model.Doc) bool {
	if len(doc) == 0 {
		return false
	}
	for k := range doc {
		if !strings.HasPrefix(k, "$") {
			return false
		}
	}
	return true
}

// revertAllIndexes undoes a just-committed updateAllIndexes batch across
// every index, restoring the pre-update documents. Re-inserting documents
// that were present moments ago cannot fail under unique constraints they
// already satisfied.
func (c *Collection) revertAllIndexes(pairs []index.UpdatePair) {
	for _, ix := range c.indexes {
		_ = ix.RevertUpdateBatch(pairs)
	}
}
