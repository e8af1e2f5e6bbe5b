package pagination

import (
	"errors"
	"fmt"
)

var (
	// ErrProtocolViolation matches every *ProtocolError.
	ErrProtocolViolation = errors.New("pagination protocol violation")
	ErrPageLimit         = errors.New("page limit reached")
)

// ProtocolError is a token the other side sent that cannot be used.
type ProtocolError struct {
	Header string
	Value  string
	Reason string
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s %q: %s", e.Header, e.Value, e.Reason)
}

func (e *ProtocolError) Is(target error) bool {
	return target == ErrProtocolViolation
}
