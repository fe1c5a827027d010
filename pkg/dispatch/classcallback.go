package dispatch

import (
	"context"
	"fmt"
	"sync"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// ClassCallback is the local-process analogue of a remote
// ObjectCallback: resolved by name, instantiated, and handed the
// matched request's fingerprint.
type ClassCallback interface {
	Handle(ctx context.Context, fp expectation.RequestFingerprint) (CallbackOutcome, error)
}

// CallbackOutcome is what a ClassCallback or ObjectCallback decides to
// do with a request: respond directly, or forward it upstream.
// Exactly one field should be set.
type CallbackOutcome struct {
	Response *expectation.LiteralResponse `json:"response,omitempty"`
	Forward  *expectation.ForwardTarget   `json:"forward,omitempty"`
}

// ClassCallbackFactory builds a fresh ClassCallback instance, mirroring
// a zero-argument constructor.
type ClassCallbackFactory func() (ClassCallback, error)

// ClassCallbackRegistry resolves a class name to a factory, registered
// ahead of time by whatever embeds this module (there is no runtime
// class loading in Go).
type ClassCallbackRegistry struct {
	mu        sync.RWMutex
	factories map[string]ClassCallbackFactory
}

// NewClassCallbackRegistry returns an empty registry.
func NewClassCallbackRegistry() *ClassCallbackRegistry {
	return &ClassCallbackRegistry{factories: make(map[string]ClassCallbackFactory)}
}

// Register associates name with factory, overwriting any previous
// registration under the same name.
func (r *ClassCallbackRegistry) Register(name string, factory ClassCallbackFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Instantiate resolves name and constructs a fresh callback instance.
func (r *ClassCallbackRegistry) Instantiate(name string) (ClassCallback, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: no class callback registered as %q", ErrConfigurationError, name)
	}
	return factory()
}
