package matcher

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// FieldResult reports whether one field of a matcher was satisfied by a
// fingerprint, for the diagnostic breakdown shown on a 404.
type FieldResult struct {
	Field    string
	Matched  bool
	Expected any
	Actual   any
}

// NearMiss is an expectation that matched on at least one field but was
// ultimately rejected, used to explain an unexpected 404.
type NearMiss struct {
	ExpectationID   string
	MatchedFields   int
	TotalFields     int
	MatchPercentage int
	Fields          []FieldResult
	Reason          string
}

// Breakdown evaluates every specified field of m against fp without
// short-circuiting, reporting per-field outcomes. This is a diagnostic
// view only — it plays no part in the matching decision itself, which is
// a strict AND over every field (see Matches).
func Breakdown(m expectation.RequestMatcher, fp expectation.RequestFingerprint) NearMiss {
	var nm NearMiss

	addField := func(name string, specified, matched bool, expected, actual any) {
		if !specified {
			return
		}
		nm.TotalFields++
		if matched {
			nm.MatchedFields++
		}
		nm.Fields = append(nm.Fields, FieldResult{
			Field: name, Matched: matched, Expected: expected, Actual: actual,
		})
	}

	addField("method", !m.Method.Empty(), matchStringCI(m.Method, fp.Method), m.Method, fp.Method)
	pathOK, _ := PathCaptures(m.Path, fp.Path)
	addField("path", !m.Path.Empty(), pathOK, m.Path, fp.Path)
	addField("query", len(m.Query) > 0, matchValueList(m.Query, fp.Query), m.Query, fp.Query)
	addField("headers", len(m.Headers) > 0, matchValueList(canonicalHeaderConstraint(m.Headers), canonicalHeaders(fp.Headers)), m.Headers, fp.Headers)
	addField("cookies", len(m.Cookies) > 0, matchCookies(m.Cookies, fp.Cookies), m.Cookies, fp.Cookies)
	addField("body", m.Body != nil, matchBody(m.Body, fp.Body), m.Body, len(fp.Body))

	if nm.TotalFields > 0 {
		nm.MatchPercentage = (nm.MatchedFields * 100) / nm.TotalFields
	}
	nm.Reason = generateReason(nm.Fields)
	return nm
}

func generateReason(fields []FieldResult) string {
	var matched []string
	var firstMismatch *FieldResult
	for i := range fields {
		if fields[i].Matched {
			matched = append(matched, fields[i].Field)
		} else if firstMismatch == nil {
			firstMismatch = &fields[i]
		}
	}
	if firstMismatch == nil {
		return "all specified fields matched"
	}
	mismatch := fmt.Sprintf("%s expected %v, got %v", firstMismatch.Field, firstMismatch.Expected, firstMismatch.Actual)
	if len(matched) == 0 {
		return mismatch
	}
	return joinFields(matched) + " matched, but " + mismatch
}

func joinFields(fields []string) string {
	switch len(fields) {
	case 0:
		return ""
	case 1:
		return fields[0]
	case 2:
		return fields[0] + " and " + fields[1]
	default:
		return strings.Join(fields[:len(fields)-1], ", ") + ", and " + fields[len(fields)-1]
	}
}

// CollectNearMisses evaluates every expectation against fp and returns the
// topN with at least one matched field, ranked by match percentage
// descending. Intended to be called only on a 404, never on the hot path
// of a matched request.
func CollectNearMisses(expectations []expectation.Expectation, fp expectation.RequestFingerprint, topN int) []NearMiss {
	if topN <= 0 {
		topN = 3
	}
	var candidates []NearMiss
	for _, exp := range expectations {
		nm := Breakdown(exp.Matcher, fp)
		if nm.MatchedFields == 0 {
			continue
		}
		nm.ExpectationID = exp.ID
		candidates = append(candidates, nm)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].MatchPercentage > candidates[j].MatchPercentage
	})
	if len(candidates) > topN {
		candidates = candidates[:topN]
	}
	return candidates
}
