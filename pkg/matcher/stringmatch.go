// Package matcher implements the pure request-matching predicate:
// given a concrete RequestFingerprint and a RequestMatcher, does the
// fingerprint satisfy the matcher? Matching never mutates state and never
// consults anything beyond the two values passed in.
package matcher

import (
	"regexp"
	"strings"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// matchString evaluates a single StringMatch constraint against a value.
// An empty constraint matches anything.
func matchString(m expectation.StringMatch, value string) bool {
	if m.Empty() {
		return true
	}
	if m.Equals != "" {
		return value == m.Equals
	}
	if m.Prefix != "" {
		return strings.HasPrefix(value, m.Prefix)
	}
	if m.Contains != "" {
		return strings.Contains(value, m.Contains)
	}
	if m.Regex != "" {
		re, err := regexp.Compile(m.Regex)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	}
	return true
}

// matchStringCI is matchString with case-insensitive equality/prefix/contains,
// used for method matching, which is case-insensitive on both value and name.
func matchStringCI(m expectation.StringMatch, value string) bool {
	if m.Empty() {
		return true
	}
	if m.Equals != "" {
		return strings.EqualFold(value, m.Equals)
	}
	if m.Prefix != "" {
		return strings.HasPrefix(strings.ToLower(value), strings.ToLower(m.Prefix))
	}
	if m.Contains != "" {
		return strings.Contains(strings.ToLower(value), strings.ToLower(m.Contains))
	}
	if m.Regex != "" {
		re, err := regexp.Compile("(?i)" + m.Regex)
		if err != nil {
			return false
		}
		return re.MatchString(value)
	}
	return true
}

// matchAnyValue reports whether at least one of values satisfies m, per the
// "at least one of the request's values for that key must satisfy the
// matcher's value predicate for query/headers/cookies.
func matchAnyValue(m expectation.StringMatch, values []string) bool {
	if m.Empty() {
		return true
	}
	for _, v := range values {
		if matchString(m, v) {
			return true
		}
	}
	return false
}

// matchValueList evaluates a ValueList against a multi-value map. Keys not
// mentioned in the constraint are unconstrained; names are matched exactly
// as given by the caller (for headers, Matches and Breakdown canonicalize
// the names on both sides before calling this).
func matchValueList(constraint expectation.ValueList, actual map[string][]string) bool {
	for key, m := range constraint {
		if !matchAnyValue(m, actual[key]) {
			return false
		}
	}
	return true
}
