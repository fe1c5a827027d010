package mgmtapi

import (
	"encoding/json"

	"github.com/mockdcore/mockdcore/pkg/expectation"
	"github.com/mockdcore/mockdcore/pkg/requestlog"
)

// expectationList accepts either a single expectation object or an array,
// since PUT /expectation is documented to take "expectation[]" but a
// single-object body is the common case in practice.
type expectationList []expectation.Expectation

func (l *expectationList) UnmarshalJSON(data []byte) error {
	var arr []expectation.Expectation
	if err := json.Unmarshal(data, &arr); err == nil {
		*l = arr
		return nil
	}
	var single expectation.Expectation
	if err := json.Unmarshal(data, &single); err != nil {
		return err
	}
	*l = []expectation.Expectation{single}
	return nil
}

type addExpectationsResponse struct {
	IDs []string `json:"ids"`
}

// clearKind selects what PUT /clear removes.
type clearKind string

const (
	clearAll          clearKind = "ALL"
	clearLog          clearKind = "LOG"
	clearExpectations clearKind = "EXPECTATIONS"
)

type clearRequest struct {
	Matcher *expectation.RequestMatcher `json:"matcher,omitempty"`
	Type    clearKind                   `json:"type,omitempty"`
}

type retrieveResponse struct {
	Entries []requestlog.Entry `json:"entries"`
}

type verifyTimes struct {
	Exactly *int `json:"exactly,omitempty"`
	AtLeast *int `json:"atLeast,omitempty"`
	AtMost  *int `json:"atMost,omitempty"`
}

func (t verifyTimes) resolve() requestlog.Times {
	if t.Exactly != nil {
		return requestlog.Exactly(*t.Exactly)
	}
	return requestlog.Times{AtLeast: t.AtLeast, AtMost: t.AtMost}
}

type verifyRequest struct {
	Request expectation.RequestMatcher `json:"request"`
	Times   verifyTimes                `json:"times"`
}

type verifySequenceRequest struct {
	Requests []expectation.RequestMatcher `json:"requests"`
}

type verifyFailureResponse struct {
	Report string `json:"report"`
}

type statusResponse struct {
	Ports []int `json:"ports"`
}

type bindRequest struct {
	Ports []int `json:"ports"`
}

type bindResponse struct {
	Ports []int `json:"ports"`
}

type errorResponse struct {
	Error string `json:"error"`
}
