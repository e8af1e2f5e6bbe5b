package cursor

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned, before any I/O, when a caller passes
	// an unusable user or stream name.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrEmptyUser       = fmt.Errorf("%w: user cannot be empty", ErrInvalidArgument)
	ErrEmptyStream     = fmt.Errorf("%w: stream name cannot be empty", ErrInvalidArgument)

	// ErrStoreOperationFailed matches every *OpError.
	ErrStoreOperationFailed = errors.New("cursor store operation failed")
)

// OpError reports a failure of the backing store. Callers never see the
// backend's own error types directly, only through Unwrap.
type OpError struct {
	Op  string
	Key string
	Err error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("cursor store %s %q: %v", e.Op, e.Key, e.Err)
}

func (e *OpError) Unwrap() error {
	return e.Err
}

func (e *OpError) Is(target error) bool {
	return target == ErrStoreOperationFailed
}
