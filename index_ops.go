package nedb

import (
	"errors"

	"github.com/justlep/nedb/internal/index"
	"github.com/justlep/nedb/internal/persistence"
)

// EnsureIndex creates (or, if one already exists for the field, leaves
// unchanged) a secondary index, populating it from the current data and
// persisting an `$$indexCreated` record.
//
// A second call with the same FieldName is a no-op with respect to the
// index's options: to change an index's options,
// RemoveIndex it first.
func (c *Collection) EnsureIndex(opts IndexOptions) error {
	if opts.FieldName == "" {
		return newErr(ErrInvalidOptions, errors.New("nedb: IndexOptions.FieldName is required"))
	}
	if opts.FieldName == "_id" {
		return nil // the primary index always exists; idempotent no-op
	}
	err := c.exec.Submit(func() error { return c.ensureIndexSync(opts) })
	if err != nil {
		return classify(err)
	}
	return nil
}

func (c *Collection) ensureIndexSync(opts IndexOptions) error {
	if _, exists := c.indexes[opts.FieldName]; exists {
		return nil
	}

	ix := index.New(index.Options{
		FieldName: opts.FieldName,
		Unique:    opts.Unique,
		Sparse:    opts.Sparse,
	}, c.strCmp)

	docs := c.indexes["_id"].GetAll()
	if err := ix.Reset(docs); err != nil {
		return err
	}

	c.indexes[opts.FieldName] = ix

	if opts.ExpireAfterSeconds != nil {
		c.ttl[opts.FieldName] = *opts.ExpireAfterSeconds
	}

	return c.log.PersistIndexCreated(persistence.IndexSpec{
		FieldName:          opts.FieldName,
		Unique:             opts.Unique,
		Sparse:             opts.Sparse,
		ExpireAfterSeconds: opts.ExpireAfterSeconds,
	})
}

// RemoveIndex deletes the in-memory index for fieldName (and any TTL
// mapping on it) and persists an `$$indexRemoved` record. Removing a
// nonexistent index is not an error.
func (c *Collection) RemoveIndex(fieldName string) error {
	if fieldName == "_id" {
		return newErr(ErrInvalidOptions, errors.New("nedb: the primary index cannot be removed"))
	}
	err := c.exec.Submit(func() error { return c.removeIndexSync(fieldName) })
	if err != nil {
		return classify(err)
	}
	return nil
}

func (c *Collection) removeIndexSync(fieldName string) error {
	if _, exists := c.indexes[fieldName]; !exists {
		return nil
	}
	delete(c.indexes, fieldName)
	delete(c.ttl, fieldName)
	return c.log.PersistIndexRemoved(fieldName)
}
