package matcher

import (
	"bytes"
	"encoding/json"
	"regexp"

	"github.com/beevik/etree"
	"github.com/ohler55/ojg/oj"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

// matchBody dispatches on the body matcher's tag.
func matchBody(m *expectation.BodyMatcher, body []byte) bool {
	if m == nil {
		return true
	}
	switch m.Type {
	case expectation.BodyNone:
		return true
	case expectation.BodyRaw:
		return bytes.Equal(m.Raw, body)
	case expectation.BodyString:
		return string(body) == m.String
	case expectation.BodyRegex:
		re, err := regexp.Compile(m.Regex)
		if err != nil {
			return false
		}
		return re.MatchString(string(body))
	case expectation.BodyJSON:
		return matchJSONBody(m, body)
	case expectation.BodyXML:
		return matchXMLBody(m.XML, body)
	case expectation.BodySchema:
		return matchSchemaBody(m.Schema, body)
	case expectation.BodyParameters:
		return matchParametersBody(m.Parameters, body)
	case expectation.BodyJSONPath:
		return matchJSONPathBody(m.JSONPath, body)
	default:
		return false
	}
}

// matchJSONBody implements STRICT (full equality after parsing) and
// ONLY_MATCHING_FIELDS (every field in the matcher JSON equals the
// request's, extra fields permitted).
func matchJSONBody(m *expectation.BodyMatcher, body []byte) bool {
	var actual any
	if err := json.Unmarshal(body, &actual); err != nil {
		return false
	}

	if m.MatchMode == expectation.MatchOnlyMatchingFields {
		return jsonSubsetMatches(m.JSON, actual)
	}

	// STRICT: deep-equal via canonical JSON round-trip, following the
	// ojg-based deep comparisons used elsewhere in the matching pipeline.
	expectedJSON, err := oj.Marshal(m.JSON)
	if err != nil {
		return false
	}
	actualJSON, err := oj.Marshal(actual)
	if err != nil {
		return false
	}
	return bytes.Equal(expectedJSON, actualJSON)
}

// jsonSubsetMatches reports whether every field present in expected is also
// present and equal in actual. Extra fields on actual are permitted. Nested
// objects/arrays are compared recursively; arrays compare element-wise.
func jsonSubsetMatches(expected, actual any) bool {
	switch exp := expected.(type) {
	case map[string]any:
		act, ok := actual.(map[string]any)
		if !ok {
			return false
		}
		for k, ev := range exp {
			av, present := act[k]
			if !present || !jsonSubsetMatches(ev, av) {
				return false
			}
		}
		return true
	case []any:
		act, ok := actual.([]any)
		if !ok || len(act) != len(exp) {
			return false
		}
		for i := range exp {
			if !jsonSubsetMatches(exp[i], act[i]) {
				return false
			}
		}
		return true
	default:
		eb, err1 := oj.Marshal(expected)
		ab, err2 := oj.Marshal(actual)
		return err1 == nil && err2 == nil && bytes.Equal(eb, ab)
	}
}

// matchXMLBody parses the request body and the expected XML document with
// etree and compares their re-serialized forms. Whitespace between
// elements is kept, so documents that differ only in whitespace do not
// match.
func matchXMLBody(expected string, body []byte) bool {
	expDoc := etree.NewDocument()
	if err := expDoc.ReadFromString(expected); err != nil {
		return false
	}
	actDoc := etree.NewDocument()
	if err := actDoc.ReadFromBytes(body); err != nil {
		return false
	}
	expStr, err1 := expDoc.WriteToString()
	actStr, err2 := actDoc.WriteToString()
	return err1 == nil && err2 == nil && expStr == actStr
}

// matchSchemaBody validates the request body against a JSON Schema.
func matchSchemaBody(schemaText string, body []byte) bool {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("expectation.json", bytes.NewReader([]byte(schemaText))); err != nil {
		return false
	}
	sch, err := compiler.Compile("expectation.json")
	if err != nil {
		return false
	}
	var instance any
	if err := json.Unmarshal(body, &instance); err != nil {
		return false
	}
	return sch.Validate(instance) == nil
}

// matchParametersBody matches a form-encoded parameter set with the same
// multiset semantics as query/header matching.
func matchParametersBody(constraint expectation.ValueList, body []byte) bool {
	values, err := parseFormBody(body)
	if err != nil {
		return false
	}
	return matchValueList(constraint, values)
}
