package polyglot

import (
	"errors"
	"fmt"
)

var (
	// ErrCast is matched by every *CastError.
	ErrCast = errors.New("cast error")
	// ErrUnsupported is matched by every *UnsupportedError.
	ErrUnsupported = errors.New("unsupported operation")
	// ErrIndex is matched by every *IndexError.
	ErrIndex = errors.New("index out of bounds")
)

// CastError reports a conversion that the value's current capabilities do
// not support.
type CastError struct {
	Value  string
	Target string
	Reason string
}

func (e *CastError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("cannot convert %s to %s", e.Value, e.Target)
	}
	return fmt.Sprintf("cannot convert %s to %s: %s", e.Value, e.Target, e.Reason)
}

func (e *CastError) Is(target error) bool { return target == ErrCast }

// UnsupportedError reports a capability-gated operation invoked on a value
// that lacks the capability. Members hidden by the host access policy are
// reported with this error too, exactly like missing ones.
type UnsupportedError struct {
	Op     string
	Value  string
	Reason string
}

func (e *UnsupportedError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unsupported operation %s on %s", e.Op, e.Value)
	}
	return fmt.Sprintf("unsupported operation %s on %s: %s", e.Op, e.Value, e.Reason)
}

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

// IndexError reports array element access outside [0, Size).
type IndexError struct {
	Index int64
	Size  int64
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of bounds for size %d", e.Index, e.Size)
}

func (e *IndexError) Is(target error) bool { return target == ErrIndex }

func castError(obj Object, target, format string, args ...any) error {
	return &CastError{Value: describe(obj), Target: target, Reason: fmt.Sprintf(format, args...)}
}

func unsupported(obj Object, op, format string, args ...any) error {
	return &UnsupportedError{Op: op, Value: describe(obj), Reason: fmt.Sprintf(format, args...)}
}

func describe(obj Object) string {
	if obj == nil {
		return "<nil>"
	}
	return string(obj.Type())
}
