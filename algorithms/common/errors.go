package common

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument is wrapped by every argument validation failure in the
// analysis packages. Test for it with errors.Is.
var ErrInvalidArgument = errors.New("invalid argument")

// InvalidArgument formats a message and wraps it with ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
