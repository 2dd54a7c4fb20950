package hostaccess

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is matched by every *InvalidArgumentError.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgumentError reports input rejected by a builder or descriptor
// constructor at call time.
type InvalidArgumentError struct {
	Op     string
	Reason string
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("hostaccess: %s: %s", e.Op, e.Reason)
}

func (e *InvalidArgumentError) Is(target error) bool {
	return target == ErrInvalidArgument
}

func invalidArgument(op, format string, args ...any) error {
	return &InvalidArgumentError{Op: op, Reason: fmt.Sprintf(format, args...)}
}
