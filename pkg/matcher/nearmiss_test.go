package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

func TestBreakdown_PartialMatch(t *testing.T) {
	m := expectation.RequestMatcher{
		Method: expectation.StringMatch{Equals: "GET"},
		Path:   expectation.StringMatch{Equals: "/orders"},
	}
	fp := expectation.RequestFingerprint{Method: "GET", Path: "/items"}

	nm := Breakdown(m, fp)
	assert.Equal(t, 2, nm.TotalFields)
	assert.Equal(t, 1, nm.MatchedFields)
	assert.Equal(t, 50, nm.MatchPercentage)
	assert.Contains(t, nm.Reason, "method matched")
}

func TestBreakdown_NoFieldsSpecifiedMatchesEverything(t *testing.T) {
	nm := Breakdown(expectation.RequestMatcher{}, expectation.RequestFingerprint{Method: "GET"})
	assert.Equal(t, 0, nm.TotalFields)
	assert.Equal(t, "all specified fields matched", nm.Reason)
}

func TestCollectNearMisses_ExcludesZeroScore(t *testing.T) {
	exps := []expectation.Expectation{
		{
			ID: "close",
			Matcher: expectation.RequestMatcher{
				Method: expectation.StringMatch{Equals: "GET"},
				Path:   expectation.StringMatch{Equals: "/orders"},
			},
		},
		{
			ID: "far",
			Matcher: expectation.RequestMatcher{
				Method: expectation.StringMatch{Equals: "POST"},
				Path:   expectation.StringMatch{Equals: "/other"},
			},
		},
	}
	fp := expectation.RequestFingerprint{Method: "GET", Path: "/items"}

	near := CollectNearMisses(exps, fp, 3)
	require.Len(t, near, 1)
	assert.Equal(t, "close", near[0].ExpectationID)
}
