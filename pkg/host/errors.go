package host

import "errors"

var (
	// ErrNotReady indicates there is no connected controller to talk
	// to yet.
	ErrNotReady = errors.New("not ready")
	// ErrNoReply indicates the reception ack never came. An ack for a
	// later message settles all earlier pending ones with this error.
	ErrNoReply = errors.New("no reply")
)
