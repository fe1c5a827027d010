package matcher

import (
	"net/url"
	"strings"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// Result is the outcome of evaluating a RequestMatcher against a
// RequestFingerprint: whether it matched, and any named path captures
// extracted from a {name}-bearing path pattern.
type Result struct {
	Matched        bool
	PathCaptures   map[string]string
}

// Matches implements the pure matching predicate: method, path,
// query, headers, cookies and body are each evaluated independently, then
// combined with AND; Not inverts the combined result, not the individual
// fields.
func Matches(m expectation.RequestMatcher, fp expectation.RequestFingerprint) Result {
	methodOK := matchStringCI(m.Method, fp.Method)

	pathOK, captures := PathCaptures(m.Path, fp.Path)

	queryOK := matchValueList(m.Query, fp.Query)
	headersOK := matchValueList(canonicalHeaderConstraint(m.Headers), canonicalHeaders(fp.Headers))
	cookiesOK := matchCookies(m.Cookies, fp.Cookies)
	bodyOK := matchBody(m.Body, fp.Body)

	matched := methodOK && pathOK && queryOK && headersOK && cookiesOK && bodyOK
	if m.Not {
		matched = !matched
		captures = nil
	}

	return Result{Matched: matched, PathCaptures: captures}
}

// canonicalHeaders folds header names to their canonical MIME form so that
// a matcher constraint key such as "content-type" matches a fingerprint
// built with "Content-Type".
func canonicalHeaders(headers map[string][]string) map[string][]string {
	if headers == nil {
		return nil
	}
	out := make(map[string][]string, len(headers))
	for k, v := range headers {
		out[canonicalHeaderKey(k)] = v
	}
	return out
}

func canonicalHeaderConstraint(constraint expectation.ValueList) expectation.ValueList {
	if constraint == nil {
		return nil
	}
	out := make(expectation.ValueList, len(constraint))
	for k, v := range constraint {
		out[canonicalHeaderKey(k)] = v
	}
	return out
}

func canonicalHeaderKey(key string) string {
	parts := strings.Split(key, "-")
	for i, p := range parts {
		if p == "" {
			continue
		}
		parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
	}
	return strings.Join(parts, "-")
}

// matchCookies evaluates a cookie ValueList against the single-valued
// cookie jar of a fingerprint (cookie names are unique per request, unlike
// headers/query params).
func matchCookies(constraint expectation.ValueList, actual map[string]string) bool {
	if len(constraint) == 0 {
		return true
	}
	asMultiValue := make(map[string][]string, len(actual))
	for k, v := range actual {
		asMultiValue[k] = []string{v}
	}
	return matchValueList(constraint, asMultiValue)
}

// parseFormBody parses an application/x-www-form-urlencoded body into a
// multi-value map, for BodyParameters matching.
func parseFormBody(body []byte) (map[string][]string, error) {
	values, err := url.ParseQuery(string(body))
	if err != nil {
		return nil, err
	}
	return values, nil
}
