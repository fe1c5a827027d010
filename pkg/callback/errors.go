package callback

import "errors"

// ErrChannelClosed is returned when a pending send's registration closes,
// via transport error, explicit stop, or a global reset, while waiting.
var ErrChannelClosed = errors.New("callback channel closed")

// ErrBackpressure is returned when a registration's bounded send queue is
// full; callers should treat the callback as unavailable, same as a
// missing client_id.
var ErrBackpressure = errors.New("callback channel send queue full")

// ErrNotFound is returned when no registration exists for a client_id.
var ErrNotFound = errors.New("callback channel not registered")

// RemoteError wraps an error frame's payload sent back by a callback
// client.
type RemoteError struct {
	Message string
}

func (e *RemoteError) Error() string { return e.Message }
