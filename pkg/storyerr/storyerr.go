// Package storyerr implements the unified error taxonomy at the core
// boundary (spec.md §7): one exported error type carrying a Kind, checked
// with this package's Is function, mirroring the teacher's database package's
// IsDeadlockError/IsDuplicateKeyError/IsNotFoundError classification style.
package storyerr

import (
	"errors"
	"fmt"
)

// Kind classifies a core-boundary error (spec.md §7).
type Kind int

const (
	// StorageBackendError is an underlying index or KV store failure;
	// surfaced to the caller, and the writer path rolls back prepared
	// writers.
	StorageBackendError Kind = iota
	// QueryParseError is a user search string rejected by the parser; no
	// state change.
	QueryParseError
	// SerializationError is a failure to encode/decode a record; skipped
	// with a logged warning in iteration paths, fatal in single-record
	// paths.
	SerializationError
	// IOError is a filesystem error; partial writes are cleaned up via
	// atomic rename.
	IOError
	// NotMappable is an unexpected type or out-of-range date; indicates a
	// bug or corrupt data.
	NotMappable
	// NotFound is returned as an empty option, not as an error, by the
	// higher-level APIs — this kind exists so internal layers can still
	// check it with Is before translating to an option at the boundary.
	NotFound
)

func (k Kind) String() string {
	switch k {
	case StorageBackendError:
		return "storage backend error"
	case QueryParseError:
		return "query parse error"
	case SerializationError:
		return "serialization error"
	case IOError:
		return "io error"
	case NotMappable:
		return "not mappable"
	case NotFound:
		return "not found"
	default:
		return "unknown error"
	}
}

// Error is the single error type used at the core boundary.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}

	return fmt.Sprintf("%s: %s", e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New wraps err with kind.
func New(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Newf wraps a formatted error with kind.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// Is reports whether err, or any error it wraps, is an *Error of the given
// Kind, e.g. storyerr.Is(err, storyerr.NotFound). A Kind is not itself an
// error value, so errors.Is cannot be used for this check.
func Is(err error, kind Kind) bool {
	var se *Error

	return errors.As(err, &se) && se.Kind == kind
}
