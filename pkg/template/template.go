// Package template defines the contract a dynamic-response template
// language implements, without implementing one. Template evaluation
// is an external, pluggable collaborator: this server only needs to
// know how to call it.
package template

import (
	"errors"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// ErrNoEvaluator is returned by dispatch when a LiteralResponse names a
// template but no Evaluator has been registered.
var ErrNoEvaluator = errors.New("template: no evaluator registered")

// Evaluator renders a template string against the matched request,
// producing the response to send in its place. Implementations decide
// their own template language (the teacher's own server speaks several
// interchangeably); this package only fixes the call shape.
type Evaluator interface {
	Evaluate(tmpl string, fp expectation.RequestFingerprint) (*expectation.LiteralResponse, error)
}

// Registry holds the single active Evaluator, if any. Most deployments
// need at most one template language; a nil Registry (or one with no
// Evaluator set) simply means dispatch never sees a populated Template
// field and never calls it.
type Registry struct {
	evaluator Evaluator
}

// NewRegistry returns a Registry with no evaluator set.
func NewRegistry() *Registry {
	return &Registry{}
}

// Set installs the active evaluator, replacing any previous one.
func (r *Registry) Set(e Evaluator) {
	r.evaluator = e
}

// Evaluate renders tmpl via the registered evaluator. Returns
// ErrNoEvaluator if none is set.
func (r *Registry) Evaluate(tmpl string, fp expectation.RequestFingerprint) (*expectation.LiteralResponse, error) {
	if r.evaluator == nil {
		return nil, ErrNoEvaluator
	}
	return r.evaluator.Evaluate(tmpl, fp)
}
