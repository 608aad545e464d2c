package nedb

import (
	"time"

	"github.com/justlep/nedb/internal/model"
)

// Options configures a [Collection] at construction.
type Options struct {
	// Filename is the path to the log file. Omitted (empty), the
	// collection is in-memory only.
	Filename string

	// InMemoryOnly forces in-memory operation even when Filename is set.
	InMemoryOnly bool

	// TimestampData auto-maintains createdAt/updatedAt date fields: every
	// insert sets both unless the caller already supplied them, and every
	// update sets updatedAt to the current time.
	TimestampData bool

	// Autoload invokes Load synchronously during [Open]. If it fails,
	// OnLoad (if set) is invoked with the error instead of Open itself
	// failing.
	Autoload bool

	// OnLoad is called with the result of an autoload. Ignored unless
	// Autoload is set.
	OnLoad func(error)

	// CorruptAlertThreshold is the fraction (0.0-1.0) of unparseable log
	// lines that aborts a load. Zero uses the default of 0.1.
	CorruptAlertThreshold float64

	// BeforeDeserialization and AfterSerialization are a mutually
	// required pair of bijective string transforms applied to every log
	// record (e.g., for at-rest encryption). Validated by round-trip
	// sampling at construction.
	BeforeDeserialization func(string) (string, error)
	AfterSerialization    func(string) (string, error)

	// CompareStrings overrides the default byte-wise string comparator
	// used for ordering and sorting (e.g., for locale-sensitive sort).
	CompareStrings model.StringComparator

	// OnCompactionDone is invoked exactly once per completed compaction,
	// after the rewritten datafile is durably in place. It runs on the
	// collection's serialized executor, so it must not call back into the
	// Collection.
	OnCompactionDone func()

	// AutocompactionInterval, if non-zero, starts a background
	// compaction timer at construction. Must be at least
	// [persistence.MinAutocompactionInterval] (5 seconds).
	AutocompactionInterval time.Duration
}

// IndexOptions configures a single field index passed to
// [Collection.EnsureIndex].
type IndexOptions struct {
	// FieldName is the indexed field, which may use dot notation for
	// nested fields.
	FieldName string

	// Unique forbids two documents sharing a key under FieldName.
	Unique bool

	// Sparse excludes documents whose FieldName resolves to undefined.
	Sparse bool

	// ExpireAfterSeconds, if set, additionally records a TTL mapping: a
	// candidate document whose FieldName holds a date older than
	// now - *ExpireAfterSeconds seconds is reaped on next read.
	ExpireAfterSeconds *float64
}

// UpdateOptions configures [Collection.Update].
type UpdateOptions struct {
	// Multi allows the update to affect more than one matching document.
	// Without it, only the first match (in candidate order) is modified.
	Multi bool

	// Upsert inserts a synthesized document when no candidate matches,
	// instead of affecting zero documents. Mutually exclusive with Multi.
	Upsert bool

	// ReturnUpdatedDocs requests the affected documents be returned
	// alongside the count.
	ReturnUpdatedDocs bool
}

// UpdateResult is the outcome of [Collection.Update].
type UpdateResult struct {
	// NumAffected is the number of documents modified, or 1 on upsert.
	NumAffected int

	// AffectedDocuments is populated only when UpdateOptions.ReturnUpdatedDocs
	// was set (or on upsert, where it is always populated with the
	// inserted document).
	AffectedDocuments []model.Doc

	// Upsert reports whether this update inserted a new document.
	Upsert bool
}
