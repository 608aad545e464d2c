package nedb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/justlep/nedb/internal/index"
	"github.com/justlep/nedb/internal/model"
	"github.com/justlep/nedb/internal/persistence"
	"github.com/justlep/nedb/internal/storagefs"
)

// The error taxonomy surfaced to callers. Every *Error's Kind is one of these sentinels;
// use errors.Is(err, nedb.ErrUniqueViolated) etc. to classify a failure.
var (
	ErrUniqueViolated          = errors.New("unique constraint violated")
	ErrInvalidQuery            = errors.New("invalid query")
	ErrInvalidKey              = errors.New("invalid key")
	ErrInvalidModifier         = errors.New("invalid modifier")
	ErrCorruptDatafile         = errors.New("datafile is corrupt")
	ErrInvalidOptions          = errors.New("invalid options")
	ErrIDImmutable             = errors.New("_id is immutable")
	ErrMixedFieldsAndModifiers = errors.New("update mixes modifier and non-modifier keys")
	ErrProjectionConflict      = errors.New("projection mixes include and exclude fields")
)

// Error is the error type the public nedb API returns for every failure
// that falls into the taxonomy of Err* sentinels above.
//
// Kind classifies the failure (see the Err* sentinels above); Key carries
// the conflicting index key when Kind is ErrUniqueViolated and the
// violation was a single-value collision; Err is the underlying cause,
// when there is more detail than the Kind alone conveys.
//
// Use [errors.Is] to check the Kind:
//
//	if errors.Is(err, nedb.ErrUniqueViolated) { ... }
//
// Use [errors.As] to recover the Key:
//
//	var nErr *nedb.Error
//	if errors.As(err, &nErr) { fmt.Println(nErr.Key) }
type Error struct {
	Kind error
	Key  any
	Err  error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}

	var b strings.Builder
	if e.Kind != nil {
		b.WriteString(e.Kind.Error())
	}
	if e.Err != nil && e.Err != e.Kind {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	if e.Key != nil {
		fmt.Fprintf(&b, " (key=%v)", e.Key)
	}
	return b.String()
}

// Unwrap exposes both Kind and Err to errors.Is/errors.As, so callers can
// match either the taxonomy sentinel or a wrapped internal cause.
func (e *Error) Unwrap() []error {
	if e == nil {
		return nil
	}
	return []error{e.Kind, e.Err}
}

type errOpt func(*Error)

func withKey(key any) errOpt {
	return func(e *Error) { e.Key = key }
}

// newErr builds an *Error of the given kind wrapping cause.
func newErr(kind error, cause error, opts ...errOpt) error {
	e := &Error{Kind: kind, Err: cause}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// classify translates an internal-package error into the public taxonomy.
// It is the single seam where internal/model, internal/index, and
// internal/persistence error types get mapped to an *Error the rest of
// this package never needs to construct directly. Returns nil for a nil
// err, and returns anything it does not recognize unchanged.
func classify(err error) error {
	if err == nil {
		return nil
	}

	var uniqueViolated *index.ErrUniqueViolated
	if errors.As(err, &uniqueViolated) {
		return newErr(ErrUniqueViolated, err, withKey(uniqueViolated.Key))
	}

	var invalidPrimaryKey *index.ErrInvalidPrimaryKey
	if errors.As(err, &invalidPrimaryKey) {
		return newErr(ErrInvalidKey, err)
	}

	var invalidQuery *model.ErrInvalidQuery
	if errors.As(err, &invalidQuery) {
		return newErr(ErrInvalidQuery, err)
	}

	var invalidKey *model.ErrInvalidKey
	if errors.As(err, &invalidKey) {
		return newErr(ErrInvalidKey, err)
	}

	var invalidModifier *model.ErrInvalidModifier
	if errors.As(err, &invalidModifier) {
		return newErr(ErrInvalidModifier, err)
	}

	var idImmutable *model.ErrIDImmutable
	if errors.As(err, &idImmutable) {
		return newErr(ErrIDImmutable, err)
	}

	var mixed *model.ErrMixedFieldsAndModifiers
	if errors.As(err, &mixed) {
		return newErr(ErrMixedFieldsAndModifiers, err)
	}

	var corrupt *persistence.ErrCorruptDatafile
	if errors.As(err, &corrupt) {
		return newErr(ErrCorruptDatafile, err)
	}

	var invalidOpts *persistence.ErrInvalidOptions
	if errors.As(err, &invalidOpts) {
		return newErr(ErrInvalidOptions, err)
	}

	var notBijective *persistence.ErrHookNotBijective
	if errors.As(err, &notBijective) {
		return newErr(ErrInvalidOptions, err)
	}

	if errors.Is(err, storagefs.ErrReservedFilename) {
		return newErr(ErrInvalidOptions, err)
	}

	// Already one of ours (e.g. produced directly by this package), or an
	// I/O failure with no taxonomy slot of its own (disk full, permission
	// denied): pass through unchanged rather than force it into a kind it
	// isn't.
	return err
}
