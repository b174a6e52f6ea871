package wire

import (
	"errors"
	"fmt"
)

// ErrShortMessage indicates a payload too short for its declared
// protocol layout.
var ErrShortMessage = errors.New("message truncated")

// UnknownProtocolError reports a protocol code this model does not
// define. The code is kept for error reports back to the sender.
type UnknownProtocolError struct {
	Code byte
}

// Error implements error.
func (e *UnknownProtocolError) Error() string {
	return fmt.Sprintf("unknown protocol %d", e.Code)
}
