package mgmtapi

import (
	"io"
	"net/http"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// maxMockBodyBytes bounds how much of an inbound mock request body is
// read into a fingerprint; requests are mocked traffic, not arbitrary
// uploads, so this is generous but not unbounded.
const maxMockBodyBytes = 10 << 20

// buildFingerprint captures the parts of r the matcher evaluates
// against a RequestMatcher.
func buildFingerprint(r *http.Request) (expectation.RequestFingerprint, error) {
	var body []byte
	if r.Body != nil {
		data, err := io.ReadAll(io.LimitReader(r.Body, maxMockBodyBytes))
		if err != nil {
			return expectation.RequestFingerprint{}, err
		}
		body = data
	}

	cookies := make(map[string]string)
	for _, c := range r.Cookies() {
		cookies[c.Name] = c.Value
	}

	return expectation.RequestFingerprint{
		Method:  r.Method,
		Path:    r.URL.Path,
		Query:   map[string][]string(r.URL.Query()),
		Headers: map[string][]string(r.Header),
		Cookies: cookies,
		Body:    body,
	}, nil
}
