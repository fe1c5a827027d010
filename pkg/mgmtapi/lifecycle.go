package mgmtapi

import "context"

// Lifecycle is the subset of the server's lifecycle (pkg/core) that the
// management API's /status, /bind, and /stop handlers need. Kept as an
// interface here so mgmtapi never imports core — core imports mgmtapi
// to build its root handler instead.
type Lifecycle interface {
	// Ports returns every currently bound port.
	Ports() []int
	// BindPorts opens additional listeners and returns the resulting
	// full set of bound ports.
	BindPorts(ports []int) ([]int, error)
	// Stop performs a graceful shutdown and returns once it has
	// completed. The /stop handler calls it on its own goroutine, so it
	// replies before shutdown finishes.
	Stop(ctx context.Context) error
	// Reset broadcasts RESET, clears the expectation store and log, and
	// closes every live callback registration. It never unbinds ports.
	Reset(ctx context.Context) error
}
