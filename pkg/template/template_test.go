package template_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockdcore/mockdcore/pkg/expectation"
	"github.com/mockdcore/mockdcore/pkg/template"
)

type fakeEvaluator struct {
	resp *expectation.LiteralResponse
	err  error
	got  string
}

func (f *fakeEvaluator) Evaluate(tmpl string, fp expectation.RequestFingerprint) (*expectation.LiteralResponse, error) {
	f.got = tmpl
	return f.resp, f.err
}

func TestRegistry_Evaluate_NoEvaluatorSet(t *testing.T) {
	r := template.NewRegistry()

	_, err := r.Evaluate("{{ .Path }}", expectation.RequestFingerprint{})

	assert.ErrorIs(t, err, template.ErrNoEvaluator)
}

func TestRegistry_Evaluate_DelegatesToSetEvaluator(t *testing.T) {
	want := &expectation.LiteralResponse{StatusCode: 201}
	fake := &fakeEvaluator{resp: want}
	r := template.NewRegistry()
	r.Set(fake)

	fp := expectation.RequestFingerprint{Path: "/widgets"}
	got, err := r.Evaluate("{{ .Path }}", fp)

	require.NoError(t, err)
	assert.Same(t, want, got)
	assert.Equal(t, "{{ .Path }}", fake.got)
}

func TestRegistry_Evaluate_PropagatesEvaluatorError(t *testing.T) {
	boom := errors.New("boom")
	fake := &fakeEvaluator{err: boom}
	r := template.NewRegistry()
	r.Set(fake)

	_, err := r.Evaluate("bad", expectation.RequestFingerprint{})

	assert.ErrorIs(t, err, boom)
}
