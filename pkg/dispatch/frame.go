package dispatch

import (
	"encoding/json"
	"fmt"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// wireFingerprint is the JSON shape of a RequestFingerprint sent to a
// remote ObjectCallback over the callback channel.
type wireFingerprint struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query,omitempty"`
	Headers map[string][]string `json:"headers,omitempty"`
	Cookies map[string]string   `json:"cookies,omitempty"`
	Body    string              `json:"body,omitempty"`
}

func marshalFingerprint(fp expectation.RequestFingerprint) (json.RawMessage, error) {
	wire := wireFingerprint{
		Method:  fp.Method,
		Path:    fp.Path,
		Query:   fp.Query,
		Headers: fp.Headers,
		Cookies: fp.Cookies,
		Body:    string(fp.Body),
	}
	data, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("dispatch: marshaling request fingerprint: %w", err)
	}
	return data, nil
}

func unmarshalCallbackOutcome(payload json.RawMessage) (CallbackOutcome, error) {
	var outcome CallbackOutcome
	if err := json.Unmarshal(payload, &outcome); err != nil {
		return CallbackOutcome{}, fmt.Errorf("dispatch: decoding callback outcome: %w", err)
	}
	return outcome, nil
}
