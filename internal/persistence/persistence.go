// Package persistence implements the append-only log, compaction, and
// bootstrap-from-disk procedures.
//
// Persistence is deliberately decoupled from the collection: rather than
// holding a back-reference into the collection, callers push the data to persist as plain values and
// pull the bootstrap result back as plain values. This keeps Persistence a
// pure function of (Storage, data) -> (disk state) with no dependency
// inversion needed beyond the narrow Storage interface below.
package persistence

import "github.com/justlep/nedb/internal/model"

// Storage is the narrow capability persistence depends on; storagefs.Storage
// satisfies it structurally.
type Storage interface {
	Exists(path string) (bool, error)
	AppendLines(path string, lines []string) error
	CrashSafeWrite(path string, data []byte) error
	MkdirAll(dir string) error
	ReadLines(path string) ([]string, error)
	Recover(path string) error
}

// IndexSpec is the persisted shape of an `$$indexCreated` record: the options needed to reconstruct a non-primary index.
type IndexSpec struct {
	FieldName          string
	Unique             bool
	Sparse             bool
	ExpireAfterSeconds *float64
}

// SerializationHook transforms a serialized record string, used for
// beforeDeserialization/afterSerialization, e.g. at-rest
// encryption.
type SerializationHook func(string) (string, error)

// Log is an append-only document log with compaction, bound to one data
// file (or none, for in-memory-only collections).
type Log struct {
	storage      Storage
	filename     string
	inMemoryOnly bool

	beforeDeserialization SerializationHook
	afterSerialization    SerializationHook

	corruptAlertThreshold float64
	strCmp                model.StringComparator

	onCompactionDone func()
}

// Options configures a Log.
type Options struct {
	Filename              string
	InMemoryOnly          bool
	BeforeDeserialization SerializationHook
	AfterSerialization    SerializationHook
	CorruptAlertThreshold float64 // default 0.1
	StringComparator      model.StringComparator // default model.DefaultStringComparator
	OnCompactionDone      func()
}

// New creates a Log. Returns ErrInvalidOptions if only one of
// BeforeDeserialization/AfterSerialization is set, and ErrHookNotBijective
// if the pair fails the round-trip probe.
func New(storage Storage, opts Options) (*Log, error) {
	if opts.CorruptAlertThreshold == 0 {
		opts.CorruptAlertThreshold = 0.1
	}
	if opts.StringComparator == nil {
		opts.StringComparator = model.DefaultStringComparator
	}

	if (opts.BeforeDeserialization == nil) != (opts.AfterSerialization == nil) {
		return nil, &ErrInvalidOptions{Reason: "beforeDeserialization and afterSerialization must both be set, or neither"}
	}

	if opts.BeforeDeserialization != nil {
		if err := validateHookBijection(opts.BeforeDeserialization, opts.AfterSerialization); err != nil {
			return nil, err
		}
	}

	return &Log{
		storage:               storage,
		filename:              opts.Filename,
		inMemoryOnly:          opts.InMemoryOnly || opts.Filename == "",
		beforeDeserialization: opts.BeforeDeserialization,
		afterSerialization:    opts.AfterSerialization,
		corruptAlertThreshold: opts.CorruptAlertThreshold,
		strCmp:                opts.StringComparator,
		onCompactionDone:      opts.OnCompactionDone,
	}, nil
}

// InMemoryOnly reports whether this Log persists to disk at all.
func (l *Log) InMemoryOnly() bool { return l.inMemoryOnly }
