package persistence

import (
	"fmt"

	"github.com/justlep/nedb/internal/model"
)

// serializeRecord serializes doc and, if configured, passes it through the
// afterSerialization hook before it is ever written to disk.
func (l *Log) serializeRecord(doc model.Doc) (string, error) {
	line, err := model.Serialize(doc)
	if err != nil {
		return "", err
	}
	if l.afterSerialization != nil {
		line, err = l.afterSerialization(line)
		if err != nil {
			return "", fmt.Errorf("persistence: afterSerialization hook: %w", err)
		}
	}
	return line, nil
}

func (l *Log) deserializeRecord(line string) (model.Doc, error) {
	if l.beforeDeserialization != nil {
		var err error
		line, err = l.beforeDeserialization(line)
		if err != nil {
			return nil, fmt.Errorf("persistence: beforeDeserialization hook: %w", err)
		}
	}
	return model.Deserialize(line)
}

// PersistUpserts appends one record per document to the log, each
// recording the document's full current content. It is a no-op for an
// in-memory-only log.
func (l *Log) PersistUpserts(docs []model.Doc) error {
	if l.inMemoryOnly || len(docs) == 0 {
		return nil
	}
	lines, err := l.serializeAll(docs)
	if err != nil {
		return err
	}
	return l.storage.AppendLines(l.filename, lines)
}

// PersistRemovals appends a tombstone record per removed _id.
func (l *Log) PersistRemovals(ids []string) error {
	if l.inMemoryOnly || len(ids) == 0 {
		return nil
	}
	docs := make([]model.Doc, len(ids))
	for i, id := range ids {
		docs[i] = newDeletedRecord(id)
	}
	lines, err := l.serializeAll(docs)
	if err != nil {
		return err
	}
	return l.storage.AppendLines(l.filename, lines)
}

// PersistIndexCreated appends an `$$indexCreated` record for spec.
func (l *Log) PersistIndexCreated(spec IndexSpec) error {
	if l.inMemoryOnly {
		return nil
	}
	line, err := l.serializeRecord(newIndexCreatedRecord(spec))
	if err != nil {
		return err
	}
	return l.storage.AppendLines(l.filename, []string{line})
}

// PersistIndexRemoved appends an `$$indexRemoved` record for fieldName.
func (l *Log) PersistIndexRemoved(fieldName string) error {
	if l.inMemoryOnly {
		return nil
	}
	line, err := l.serializeRecord(newIndexRemovedRecord(fieldName))
	if err != nil {
		return err
	}
	return l.storage.AppendLines(l.filename, []string{line})
}

func (l *Log) serializeAll(docs []model.Doc) ([]string, error) {
	lines := make([]string, len(docs))
	for i, doc := range docs {
		line, err := l.serializeRecord(doc)
		if err != nil {
			return nil, fmt.Errorf("persistence: serializing record %d: %w", i, err)
		}
		lines[i] = line
	}
	return lines, nil
}
