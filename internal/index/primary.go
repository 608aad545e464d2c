package index

import (
	"strings"

	"github.com/justlep/nedb/internal/model"
)

// Primary is the always-present, implicitly-unique index over `_id`,
// implemented as a unique-string hash map rather than a tree for O(1)
// lookups on the common findById path.
type Primary struct {
	fieldName string
	byKey     map[string]model.Doc
}

// NewPrimary creates an empty Primary index over fieldName. fieldName must
// not contain a dot (dot notation is not supported for the primary key).
func NewPrimary(fieldName string) *Primary {
	if strings.Contains(fieldName, ".") {
		panic("index: primary index field name must not contain '.'")
	}
	return &Primary{fieldName: fieldName, byKey: make(map[string]model.Doc)}
}

// FieldName returns the indexed field name (conventionally "_id").
func (p *Primary) FieldName() string { return p.fieldName }

func (p *Primary) keyOf(doc model.Doc) (string, error) {
	v, ok := doc[p.fieldName]
	if !ok {
		return "", &ErrInvalidPrimaryKey{FieldName: p.fieldName, Value: model.Undef()}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ErrInvalidPrimaryKey{FieldName: p.fieldName, Value: v}
	}
	return s, nil
}

// Reset empties the index; if docs is non-nil, inserts them all, rolling
// back to empty on any failure.
func (p *Primary) Reset(docs []model.Doc) error {
	p.byKey = make(map[string]model.Doc)
	if docs == nil {
		return nil
	}
	if err := p.Insert(docs); err != nil {
		p.byKey = make(map[string]model.Doc)
		return err
	}
	return nil
}

// Insert adds one document or a batch, validating every document carries a
// string value at fieldName and rejecting duplicate keys.
func (p *Primary) Insert(docOrDocs any) error {
	switch v := docOrDocs.(type) {
	case model.Doc:
		return p.insertOne(v)
	case []model.Doc:
		inserted := make([]string, 0, len(v))
		for _, d := range v {
			if err := p.insertOne(d); err != nil {
				for _, k := range inserted {
					delete(p.byKey, k)
				}
				return err
			}
			key, _ := p.keyOf(d)
			inserted = append(inserted, key)
		}
		return nil
	default:
		panic("index: Insert requires model.Doc or []model.Doc")
	}
}

func (p *Primary) insertOne(doc model.Doc) error {
	key, err := p.keyOf(doc)
	if err != nil {
		return err
	}
	if _, exists := p.byKey[key]; exists {
		return &ErrUniqueViolated{FieldName: p.fieldName, Key: key}
	}
	p.byKey[key] = doc
	return nil
}

// Remove removes one document or a batch.
func (p *Primary) Remove(docOrDocs any) {
	switch v := docOrDocs.(type) {
	case model.Doc:
		p.removeOne(v)
	case []model.Doc:
		for _, d := range v {
			p.removeOne(d)
		}
	default:
		panic("index: Remove requires model.Doc or []model.Doc")
	}
}

func (p *Primary) removeOne(doc model.Doc) {
	key, err := p.keyOf(doc)
	if err != nil {
		return
	}
	delete(p.byKey, key)
}

// Update removes old and inserts newDoc, re-inserting old on failure.
func (p *Primary) Update(old, newDoc model.Doc) error {
	p.removeOne(old)
	if err := p.insertOne(newDoc); err != nil {
		p.insertOne(old) //nolint:errcheck // re-insert of a previously-present document cannot fail
		return err
	}
	return nil
}

// UpdateBatch mirrors Index.UpdateBatch.
func (p *Primary) UpdateBatch(pairs []UpdatePair) error {
	for _, pr := range pairs {
		p.removeOne(pr.Old)
	}

	inserted := make([]model.Doc, 0, len(pairs))
	for _, pr := range pairs {
		if err := p.insertOne(pr.New); err != nil {
			for _, done := range inserted {
				p.removeOne(done)
			}
			for _, pr2 := range pairs {
				p.insertOne(pr2.Old) //nolint:errcheck // re-insert of a previously-present document cannot fail
			}
			return err
		}
		inserted = append(inserted, pr.New)
	}
	return nil
}

// RevertUpdate swaps old/new and calls Update.
func (p *Primary) RevertUpdate(old, newDoc model.Doc) error {
	return p.Update(newDoc, old)
}

// RevertUpdateBatch swaps old/new for every pair and calls UpdateBatch.
func (p *Primary) RevertUpdateBatch(pairs []UpdatePair) error {
	swapped := make([]UpdatePair, len(pairs))
	for i, pr := range pairs {
		swapped[i] = UpdatePair{Old: pr.New, New: pr.Old}
	}
	return p.UpdateBatch(swapped)
}

// GetMatching returns the document stored under string key v, or nil if
// absent or v is not a string. For array v, returns the union (by
// definition at most one match per array element, deduped).
func (p *Primary) GetMatching(v any) []model.Doc {
	if arr, ok := v.([]any); ok {
		seen := make(map[string]bool)
		var out []model.Doc
		for _, item := range arr {
			s, ok := item.(string)
			if !ok {
				continue
			}
			if doc, found := p.byKey[s]; found && !seen[s] {
				seen[s] = true
				out = append(out, doc)
			}
		}
		return out
	}

	s, ok := v.(string)
	if !ok {
		return nil
	}
	if doc, found := p.byKey[s]; found {
		return []model.Doc{doc}
	}
	return nil
}

// GetAll returns every document in unspecified order.
func (p *Primary) GetAll() []model.Doc {
	out := make([]model.Doc, 0, len(p.byKey))
	for _, d := range p.byKey {
		out = append(out, d)
	}
	return out
}

// Len returns the number of documents indexed.
func (p *Primary) Len() int { return len(p.byKey) }

// GetBetweenBounds is unsupported on the primary hash index; calling it is
// a programming error.
func (p *Primary) GetBetweenBounds(Bounds) []model.Doc {
	panic("index: GetBetweenBounds is not supported on a primary hash index")
}
