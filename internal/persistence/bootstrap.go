package persistence

import (
	"fmt"
	"path/filepath"

	"github.com/justlep/nedb/internal/model"
)

// LoadResult is the outcome of loading a datafile: the live documents and
// the non-primary indexes that were recorded against it.
type LoadResult struct {
	Docs       []model.Doc
	IndexSpecs []IndexSpec
}

// LoadDatabase performs the bootstrap sequence: ensure the
// containing directory exists, recover a crashed prior rewrite, then read
// and replay the log. For an in-memory-only log it returns an empty
// result without touching disk.
func (l *Log) LoadDatabase() (*LoadResult, error) {
	if l.inMemoryOnly {
		return &LoadResult{}, nil
	}

	if dir := filepath.Dir(l.filename); dir != "." {
		if err := l.storage.MkdirAll(dir); err != nil {
			return nil, fmt.Errorf("persistence: creating data directory: %w", err)
		}
	}

	if err := l.storage.Recover(l.filename); err != nil {
		return nil, fmt.Errorf("persistence: recovering datafile: %w", err)
	}

	exists, err := l.storage.Exists(l.filename)
	if err != nil {
		return nil, fmt.Errorf("persistence: checking datafile: %w", err)
	}
	if !exists {
		return &LoadResult{}, nil
	}

	lines, err := l.storage.ReadLines(l.filename)
	if err != nil {
		return nil, fmt.Errorf("persistence: reading datafile: %w", err)
	}

	return l.treatRawData(lines)
}

// treatRawData replays a sequence of log lines into the final live-document
// and index-spec state: later records supersede earlier ones for the same
// _id, `$$deleted` tombstones remove a document,
// and `$$indexCreated`/`$$indexRemoved` track index lifecycle. Lines that
// fail to parse are counted as corrupt; if the corrupt fraction exceeds
// corruptAlertThreshold, the whole load fails rather than silently
// dropping data.
func (l *Log) treatRawData(lines []string) (*LoadResult, error) {
	docsByID := make(map[string]model.Doc)
	var idOrder []string

	indexSpecsByField := make(map[string]IndexSpec)
	var indexFieldOrder []string

	total, corrupt := 0, 0

	for i, line := range lines {
		if line == "" {
			if i == len(lines)-1 {
				continue // a single trailing blank line is not corruption
			}
			total++
			corrupt++
			continue
		}

		total++
		rec, err := l.deserializeRecord(line)
		if err != nil {
			corrupt++
			continue
		}

		switch {
		case asBool(rec[deletedMarkerKey]):
			if id, ok := rec["_id"].(string); ok {
				delete(docsByID, id)
			}

		case rec[indexCreatedMarkerKey] != nil:
			spec, ok := asIndexSpec(rec[indexCreatedMarkerKey])
			if !ok {
				corrupt++
				continue
			}
			if _, seen := indexSpecsByField[spec.FieldName]; !seen {
				indexFieldOrder = append(indexFieldOrder, spec.FieldName)
			}
			indexSpecsByField[spec.FieldName] = spec

		case rec[indexRemovedMarkerKey] != nil:
			if fieldName, ok := rec[indexRemovedMarkerKey].(string); ok {
				delete(indexSpecsByField, fieldName)
			}

		default:
			id, ok := rec["_id"].(string)
			if !ok || id == "" {
				corrupt++
				continue
			}
			if _, seen := docsByID[id]; !seen {
				idOrder = append(idOrder, id)
			}
			docsByID[id] = rec
		}
	}

	if total > 0 {
		if ratio := float64(corrupt) / float64(total); ratio > l.corruptAlertThreshold {
			return nil, &ErrCorruptDatafile{
				Filename:     l.filename,
				CorruptLines: corrupt,
				TotalLines:   total,
				Threshold:    l.corruptAlertThreshold,
			}
		}
	}

	docs := make([]model.Doc, 0, len(docsByID))
	for _, id := range idOrder {
		if doc, ok := docsByID[id]; ok {
			docs = append(docs, doc)
		}
	}

	specs := make([]IndexSpec, 0, len(indexFieldOrder))
	for _, fieldName := range indexFieldOrder {
		if spec, ok := indexSpecsByField[fieldName]; ok {
			specs = append(specs, spec)
		}
	}

	return &LoadResult{Docs: docs, IndexSpecs: specs}, nil
}
