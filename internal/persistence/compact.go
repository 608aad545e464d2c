package persistence

import (
	"fmt"
	"sort"
	"strings"

	"github.com/justlep/nedb/internal/model"
)

// Compact rewrites the entire datafile to hold exactly one line per live
// document (ordered by _id) followed by one `$$indexCreated` line per
// non-primary index, discarding the accumulated tombstones and
// superseded update records from the append-only log. The rewrite is crash-safe: a crash mid-compaction leaves
// either the old or the new content intact, never a half-written file.
func (l *Log) Compact(docs []model.Doc, indexSpecs []IndexSpec) error {
	if l.inMemoryOnly {
		return nil
	}

	sorted := make([]model.Doc, len(docs))
	copy(sorted, docs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return model.Compare(sorted[i]["_id"], sorted[j]["_id"], l.strCmp) < 0
	})

	var b strings.Builder
	for _, doc := range sorted {
		line, err := l.serializeRecord(doc)
		if err != nil {
			return fmt.Errorf("persistence: compacting document: %w", err)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, spec := range indexSpecs {
		line, err := l.serializeRecord(newIndexCreatedRecord(spec))
		if err != nil {
			return fmt.Errorf("persistence: compacting index record: %w", err)
		}
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if err := l.storage.CrashSafeWrite(l.filename, []byte(b.String())); err != nil {
		return fmt.Errorf("persistence: compaction write: %w", err)
	}

	if l.onCompactionDone != nil {
		l.onCompactionDone()
	}
	return nil
}
