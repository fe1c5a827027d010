package matcher

import (
	"encoding/json"
	"reflect"

	"github.com/ohler55/ojg/jp"
)

// matchJSONPathBody reports whether every JSONPath condition is satisfied
// by body. A condition is either a plain expected value (the path must
// resolve to a value equal to it) or an {"exists": bool} object (the path
// must, or must not, resolve to anything). An empty condition set matches
// nothing that isn't the zero-conditions case of matchBody itself.
func matchJSONPathBody(conditions map[string]any, body []byte) bool {
	if len(conditions) == 0 {
		return false
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return false
	}

	for path, expected := range conditions {
		if !matchesJSONPathCondition(path, expected, data) {
			return false
		}
	}
	return true
}

func matchesJSONPathCondition(path string, expected, data any) bool {
	expr, err := jp.ParseString(path)
	if err != nil {
		return false
	}
	results := expr.Get(data)

	if exists, ok := existenceCheck(expected); ok {
		return exists == (len(results) > 0)
	}

	for _, result := range results {
		if jsonValuesEqual(result, expected) {
			return true
		}
	}
	return false
}

// existenceCheck reports whether expected is an {"exists": bool} marker
// and, if so, the boolean it carries.
func existenceCheck(expected any) (exists bool, ok bool) {
	m, isMap := expected.(map[string]any)
	if !isMap || len(m) != 1 {
		return false, false
	}
	b, hasExists := m["exists"].(bool)
	if !hasExists {
		return false, false
	}
	return b, true
}

// jsonValuesEqual compares two decoded-JSON values, treating every numeric
// representation as float64 so that an expectation written as an int
// still matches a json.Unmarshal-produced float64.
func jsonValuesEqual(actual, expected any) bool {
	if reflect.DeepEqual(actual, expected) {
		return true
	}
	an, aok := toFloat64(actual)
	en, eok := toFloat64(expected)
	return aok && eok && an == en
}

func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
