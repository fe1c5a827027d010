package core

import "errors"

// ErrPortBindFailure is returned when Start or BindPorts cannot open a
// requested listener.
var ErrPortBindFailure = errors.New("core: failed to bind port")

// ErrAlreadyRunning is returned by Start when the server is already
// RUNNING.
var ErrAlreadyRunning = errors.New("core: already running")

// ErrStopped is returned by any operation invoked after Stop has
// completed.
var ErrStopped = errors.New("core: server stopped")
