package dispatch

import "errors"

// ConfigurationError wraps an action that could not be configured or
// resolved at dispatch time (e.g. an unresolvable class callback name).
var ErrConfigurationError = errors.New("dispatch: configuration error")

// UpstreamFailure wraps a Forward/OverrideForward round trip that
// failed to reach or complete against its target.
var ErrUpstreamFailure = errors.New("dispatch: upstream failure")

// CallbackLoadFailure wraps a ClassCallback that failed to resolve or
// instantiate.
var ErrCallbackLoadFailure = errors.New("dispatch: callback load failure")

// CallbackTimeout wraps an ObjectCallback that did not receive a
// response within its configured timeout.
var ErrCallbackTimeout = errors.New("dispatch: callback timeout")

// CallbackChannelClosed wraps an ObjectCallback whose registration
// closed while the call was pending.
var ErrCallbackChannelClosed = errors.New("dispatch: callback channel closed")

// CallbackUnavailable wraps an ObjectCallback whose client_id has no
// live registration, or whose send queue is full (backpressure is
// treated identically to a missing client).
var ErrCallbackUnavailable = errors.New("dispatch: callback unavailable")
