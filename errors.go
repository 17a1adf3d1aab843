package mcckpt

import (
	"errors"
	"fmt"

	"github.com/hupe1980/mcckpt/codec"
	"github.com/hupe1980/mcckpt/model"
	"github.com/hupe1980/mcckpt/persistence"
)

// ErrNoCheckpoint is returned by Load when nothing has been committed yet.
var ErrNoCheckpoint = errors.New("no checkpoint committed")

// ErrorKind classifies checkpoint failures.
type ErrorKind int

const (
	// KindIO covers failed writes, flushes, renames and commits.
	KindIO ErrorKind = iota
	// KindDestinationUnavailable means the output could not be opened.
	KindDestinationUnavailable
	// KindClosedStream means a value was written to a stream that was not open.
	KindClosedStream
	// KindShapeInconsistency means the snapshot failed validation; nothing
	// was written.
	KindShapeInconsistency
)

// String returns the stable name of the kind.
func (k ErrorKind) String() string {
	switch k {
	case KindDestinationUnavailable:
		return "destination unavailable"
	case KindClosedStream:
		return "write on closed stream"
	case KindShapeInconsistency:
		return "shape inconsistency"
	default:
		return "io"
	}
}

// Error is returned by Checkpointer operations.
//
// The original underlying error can be accessed via errors.Unwrap, so
// errors.Is(err, codec.ErrClosedStream) and errors.As(err, **model.ShapeError)
// work through it.
type Error struct {
	Kind ErrorKind
	Path string
	Err  error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindDestinationUnavailable:
		return fmt.Sprintf("open checkpoint output file %s: %v", e.Path, e.Err)
	default:
		return fmt.Sprintf("checkpoint %s: %s: %v", e.Path, e.Kind, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Report is the message written to stderr before a fatal exit.
func (e *Error) Report() string {
	if e.Kind == KindDestinationUnavailable {
		return "Error opening checkpoint output file " + e.Path
	}
	return "Error writing checkpoint output file " + e.Path + ": " + e.Err.Error()
}

// IsKind reports whether err is an *Error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

// classifyWriteError maps an error from persistence.WriteCheckpoint to a kind.
func classifyWriteError(err error) ErrorKind {
	var shape *model.ShapeError
	switch {
	case errors.As(err, &shape),
		errors.Is(err, model.ErrStepOverflow),
		errors.Is(err, persistence.ErrPTFlagRequired):
		return KindShapeInconsistency
	case errors.Is(err, codec.ErrClosedStream):
		return KindClosedStream
	default:
		return KindIO
	}
}
