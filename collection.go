package nedb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/justlep/nedb/internal/executor"
	"github.com/justlep/nedb/internal/idgen"
	"github.com/justlep/nedb/internal/index"
	"github.com/justlep/nedb/internal/model"
	"github.com/justlep/nedb/internal/persistence"
	"github.com/justlep/nedb/internal/storagefs"
)

// Collection is a single append-only document store with its indexes,
// persistence log, and serializing executor.
//
// All exported methods are safe to call from multiple goroutines: every
// operation, including reads, is serialized through the executor, so
// concurrent callers never observe interleaved mutations.
type Collection struct {
	opts   Options
	strCmp model.StringComparator

	// indexes always contains "_id" (a *index.Primary). Mutated only from
	// inside executor-serialized tasks, so no additional locking guards
	// it.
	indexes map[string]index.Like
	ttl     map[string]float64 // fieldName -> expireAfterSeconds

	log           *persistence.Log
	exec          *executor.Executor
	autocompactor *persistence.Autocompactor

	lastCompactionAt time.Time
}

// Open constructs a Collection backed by the real filesystem per opts.
func Open(opts Options) (*Collection, error) {
	return openWithStorage(opts, storagefs.NewReal())
}

func openWithStorage(opts Options, storage *storagefs.Storage) (*Collection, error) {
	if opts.CompareStrings == nil {
		opts.CompareStrings = model.DefaultStringComparator
	}

	inMemoryOnly := opts.InMemoryOnly || opts.Filename == ""

	if !inMemoryOnly {
		if err := storagefs.ValidateFilename(opts.Filename); err != nil {
			return nil, classify(err)
		}
	}

	log, err := persistence.New(storage, persistence.Options{
		Filename:              opts.Filename,
		InMemoryOnly:          inMemoryOnly,
		BeforeDeserialization: opts.BeforeDeserialization,
		AfterSerialization:    opts.AfterSerialization,
		CorruptAlertThreshold: opts.CorruptAlertThreshold,
		StringComparator:      opts.CompareStrings,
		OnCompactionDone:      opts.OnCompactionDone,
	})
	if err != nil {
		return nil, classify(err)
	}

	c := &Collection{
		opts:    opts,
		strCmp:  opts.CompareStrings,
		indexes: map[string]index.Like{"_id": index.NewPrimary("_id")},
		ttl:     make(map[string]float64),
		log:     log,
		exec:    executor.New(!inMemoryOnly),
	}

	if inMemoryOnly {
		return c, nil
	}

	if opts.AutocompactionInterval > 0 {
		ac, err := persistence.NewAutocompactor(opts.AutocompactionInterval, c.Compact, nil)
		if err != nil {
			return nil, classify(err)
		}
		c.autocompactor = ac
	}

	if opts.Autoload {
		err := c.Load()
		if opts.OnLoad != nil {
			opts.OnLoad(err)
		} else if err != nil {
			return nil, err
		}
	}

	if c.autocompactor != nil {
		c.autocompactor.Start()
	}

	return c, nil
}

// Load runs the bootstrap sequence and then
// drains the executor's startup buffer, whether or not the load
// succeeded, so tasks pushed before Load was called are never stranded.
// For an in-memory-only collection this is a no-op.
func (c *Collection) Load() error {
	if c.log.InMemoryOnly() {
		return nil
	}
	err := c.exec.SubmitForceQueuing(c.load)
	c.exec.ProcessBuffer()
	if err != nil {
		return classify(err)
	}
	return nil
}

func (c *Collection) load() error {
	result, err := c.log.LoadDatabase()
	if err != nil {
		return err
	}

	indexes := map[string]index.Like{"_id": index.NewPrimary("_id")}
	ttl := make(map[string]float64)

	for _, spec := range result.IndexSpecs {
		indexes[spec.FieldName] = index.New(index.Options{
			FieldName: spec.FieldName,
			Unique:    spec.Unique,
			Sparse:    spec.Sparse,
		}, c.strCmp)
		if spec.ExpireAfterSeconds != nil {
			ttl[spec.FieldName] = *spec.ExpireAfterSeconds
		}
	}

	var touched []index.Like
	for _, ix := range indexes {
		if err := ix.Insert(result.Docs); err != nil {
			for _, t := range touched {
				t.Remove(result.Docs)
			}
			return fmt.Errorf("nedb: rebuilding indexes from datafile: %w", err)
		}
		touched = append(touched, ix)
	}

	c.indexes = indexes
	c.ttl = ttl

	return c.compact()
}

// addToAllIndexes inserts docOrDocs (a model.Doc or []model.Doc) into
// every index, rolling every already-touched index back via Remove if any
// index rejects it.
func (c *Collection) addToAllIndexes(docOrDocs any) error {
	var touched []index.Like
	for _, ix := range c.indexes {
		if err := ix.Insert(docOrDocs); err != nil {
			for _, t := range touched {
				t.Remove(docOrDocs)
			}
			return err
		}
		touched = append(touched, ix)
	}
	return nil
}

func (c *Collection) removeFromAllIndexes(docOrDocs any) {
	for _, ix := range c.indexes {
		ix.Remove(docOrDocs)
	}
}

// updateAllIndexes commits pairs atomically across every index, reverting
// every already-touched index via RevertUpdateBatch if any index rejects
// the batch.
func (c *Collection) updateAllIndexes(pairs []index.UpdatePair) error {
	var touched []index.Like
	for _, ix := range c.indexes {
		if err := ix.UpdateBatch(pairs); err != nil {
			for _, t := range touched {
				t.RevertUpdateBatch(pairs)
			}
			return err
		}
		touched = append(touched, ix)
	}
	return nil
}

func (c *Collection) newUniqueID() (string, error) {
	primary := c.indexes["_id"]
	for attempt := 0; attempt < 10; attempt++ {
		id, err := idgen.New(idgen.DefaultLength)
		if err != nil {
			return "", err
		}
		if len(primary.GetMatching(id)) == 0 {
			return id, nil
		}
	}
	return "", errors.New("nedb: could not generate a unique _id after 10 attempts")
}

// Insert clones, validates, and stores each document, assigning an _id to
// any that lack one. Returns a deep clone of the
// stored documents so caller mutations on the result cannot alter cache
// state.
func (c *Collection) Insert(docs ...model.Doc) ([]model.Doc, error) {
	var result []model.Doc
	err := c.exec.Submit(func() error {
		res, err := c.insertSync(docs)
		result = res
		return err
	})
	if err != nil {
		return nil, classify(err)
	}
	return result, nil
}

func (c *Collection) insertSync(docs []model.Doc) ([]model.Doc, error) {
	if len(docs) == 0 {
		return nil, nil
	}

	prepared, err := c.prepareInsertBatch(docs)
	if err != nil {
		return nil, err
	}

	if err := c.addToAllIndexes(prepared); err != nil {
		return nil, err
	}

	if err := c.log.PersistUpserts(prepared); err != nil {
		c.removeFromAllIndexes(prepared)
		return nil, err
	}

	out := make([]model.Doc, len(prepared))
	for i, d := range prepared {
		out[i] = model.DeepCloneMap(d)
	}
	return out, nil
}

func (c *Collection) prepareInsertBatch(docs []model.Doc) ([]model.Doc, error) {
	prepared := make([]model.Doc, len(docs))
	for i, d := range docs {
		prepared[i] = model.DeepCloneMap(d)
	}

	for _, d := range prepared {
		if raw, ok := d["_id"]; !ok {
			id, err := c.newUniqueID()
			if err != nil {
				return nil, err
			}
			d["_id"] = id
		} else if _, ok := raw.(string); !ok {
			return nil, &index.ErrInvalidPrimaryKey{FieldName: "_id", Value: raw}
		}
	}

	if c.opts.TimestampData {
		now := time.Now().UTC()
		for _, d := range prepared {
			if _, ok := d["createdAt"]; !ok {
				d["createdAt"] = now
			}
			if _, ok := d["updatedAt"]; !ok {
				d["updatedAt"] = now
			}
		}
	}

	for _, d := range prepared {
		if err := model.ValidateDoc(d); err != nil {
			return nil, err
		}
	}

	return prepared, nil
}

// Compact performs an explicit compaction,
// in addition to any running autocompaction timer.
func (c *Collection) Compact() error {
	err := c.exec.Submit(c.compact)
	if err != nil {
		return classify(err)
	}
	return nil
}

func (c *Collection) compact() error {
	docs := c.indexes["_id"].GetAll()

	var specs []persistence.IndexSpec
	for name, ix := range c.indexes {
		if name == "_id" {
			continue
		}
		iix, ok := ix.(*index.Index)
		if !ok {
			continue
		}
		opts := iix.Options()
		spec := persistence.IndexSpec{FieldName: opts.FieldName, Unique: opts.Unique, Sparse: opts.Sparse}
		if seconds, ok := c.ttl[name]; ok {
			spec.ExpireAfterSeconds = &seconds
		}
		specs = append(specs, spec)
	}

	if err := c.log.Compact(docs, specs); err != nil {
		return err
	}
	c.lastCompactionAt = time.Now().UTC()
	return nil
}

// Stats is a read-only, non-authoritative snapshot of a Collection's
// current size and index configuration.
type Stats struct {
	NumDocuments      int
	NumIndexes        int
	LastCompactionAt  time.Time
	AutocompactionRun bool
}

// Stats reports a point-in-time snapshot of the collection.
func (c *Collection) Stats() (Stats, error) {
	var st Stats
	err := c.exec.Submit(func() error {
		st = Stats{
			NumDocuments:      c.indexes["_id"].Len(),
			NumIndexes:        len(c.indexes),
			LastCompactionAt:  c.lastCompactionAt,
			AutocompactionRun: c.autocompactor != nil,
		}
		return nil
	})
	if err != nil {
		return Stats{}, classify(err)
	}
	return st, nil
}

// Close stops any running autocompaction timer and the serializing
// executor. Pending operations are given a chance to complete before the
// executor goroutine exits; no further operations may be submitted
// afterward.
func (c *Collection) Close(ctx context.Context) error {
	if c.autocompactor != nil {
		c.autocompactor.Stop()
	}
	done := make(chan struct{})
	go func() {
		c.exec.Close()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
