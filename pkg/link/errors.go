package link

import "errors"

var (
	// ErrNoParameters indicates a parameter extraction without a
	// retained parameter message.
	ErrNoParameters = errors.New("no parameters to extract")
	// ErrClosed indicates the transport is closed.
	ErrClosed = errors.New("transport closed")
)
