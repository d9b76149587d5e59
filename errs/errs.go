// Package errs holds the error taxonomy shared by every SuffixDB layer.
//
// Low-level failures are wrapped with context and then marked with one of the
// sentinels below, so callers classify them with errors.Is regardless of how
// deep the wrap chain is.
package errs

import (
	"github.com/cockroachdb/errors"
)

var (
	// ErrIO is fatal: a read, write, seek or sync on the backing file failed.
	ErrIO = errors.New("io error")
	// ErrCorruption is fatal: a structural check failed while loading or decoding.
	ErrCorruption = errors.New("corrupt store")

	// rejected input, the caller may retry with corrected input
	ErrInvalidSymbol       = errors.New("invalid symbol")
	ErrDuplicateSequenceID = errors.New("duplicate sequence id")
	ErrCapacityExceeded    = errors.New("capacity exceeded")

	ErrNotFinalized    = errors.New("tree is not finalized")
	ErrUnknownSequence = errors.New("unknown sequence id")
	ErrPoolExhausted   = errors.New("all buffer pool frames are pinned")
	ErrClosed          = errors.New("store is closed")
)

// IO wraps err with the formatted context and marks it as ErrIO.
func IO(err error, format string, args ...interface{}) error {
	return errors.Mark(errors.Wrapf(err, format, args...), ErrIO)
}

// Corruption builds a new error marked as ErrCorruption.
func Corruption(format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), ErrCorruption)
}

// Mark attaches the taxonomy sentinel kind to a freshly formatted error.
func Mark(kind error, format string, args ...interface{}) error {
	return errors.Mark(errors.Newf(format, args...), kind)
}

// Wrapf adds context to err and keeps its marks.
func Wrapf(err error, format string, args ...interface{}) error {
	return errors.Wrapf(err, format, args...)
}

// Is reports whether err is classified as target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
