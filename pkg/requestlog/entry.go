// Package requestlog is the append-only, capacity-bounded journal of
// recorded interactions that powers retrieval and verification queries.
package requestlog

import (
	"time"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// ResponseRecord is the response half of a recorded interaction, whether
// it was a literal respond, a forwarded upstream response, or an error
// action's synthetic outcome.
type ResponseRecord struct {
	StatusCode int
	Headers    map[string][]string
	Body       []byte
}

// Entry is one recorded interaction: { sequence, received_at,
// expectation_id?, request, response, forwarded_request?,
// forwarded_response? }.
type Entry struct {
	Sequence int64
	ReceivedAt time.Time

	// TraceID uniquely identifies this interaction, independent of its
	// Sequence, for correlating it with out-of-band logs.
	TraceID string

	// ExpectationID is nil when no expectation matched.
	ExpectationID *string

	Request  expectation.RequestFingerprint
	Response ResponseRecord

	ForwardedRequest  *expectation.RequestFingerprint
	ForwardedResponse *ResponseRecord

	// Outer excludes this entry from Verify and VerifySequence counts.
	// Nothing in this module sets it: the mock dispatch path records
	// every entry with Outer false, including requests that a forward
	// sent back into this same server.
	Outer bool

	// NearMiss lists IDs of the expectations that came closest to
	// matching (each matched at least one of its specified fields), best
	// match first, for diagnosing an unexpected 404.
	NearMiss []string

	// Error, when non-empty, holds the message of the dispatch error
	// that produced this entry, or "MatcherNotFound" when no expectation
	// matched.
	Error string
}
