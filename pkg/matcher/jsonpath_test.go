package matcher

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mockdcore/mockdcore/pkg/expectation"
)

func TestMatchJSONPathBody_ValueMatch(t *testing.T) {
	conditions := map[string]any{"$.user.name": "ada"}
	body := []byte(`{"user":{"name":"ada","age":30}}`)
	assert.True(t, matchJSONPathBody(conditions, body))
}

func TestMatchJSONPathBody_ValueMismatch(t *testing.T) {
	conditions := map[string]any{"$.user.name": "grace"}
	body := []byte(`{"user":{"name":"ada"}}`)
	assert.False(t, matchJSONPathBody(conditions, body))
}

func TestMatchJSONPathBody_NumericCoercion(t *testing.T) {
	conditions := map[string]any{"$.user.age": 30}
	body := []byte(`{"user":{"age":30}}`)
	assert.True(t, matchJSONPathBody(conditions, body))
}

func TestMatchJSONPathBody_AllConditionsRequired(t *testing.T) {
	conditions := map[string]any{
		"$.user.name": "ada",
		"$.user.age":  99,
	}
	body := []byte(`{"user":{"name":"ada","age":30}}`)
	assert.False(t, matchJSONPathBody(conditions, body))
}

func TestMatchJSONPathBody_ExistenceTrue(t *testing.T) {
	conditions := map[string]any{"$.user.email": map[string]any{"exists": true}}
	assert.True(t, matchJSONPathBody(conditions, []byte(`{"user":{"email":"a@b.com"}}`)))
	assert.False(t, matchJSONPathBody(conditions, []byte(`{"user":{}}`)))
}

func TestMatchJSONPathBody_ExistenceFalse(t *testing.T) {
	conditions := map[string]any{"$.user.email": map[string]any{"exists": false}}
	assert.True(t, matchJSONPathBody(conditions, []byte(`{"user":{}}`)))
	assert.False(t, matchJSONPathBody(conditions, []byte(`{"user":{"email":"a@b.com"}}`)))
}

func TestMatchJSONPathBody_InvalidBody(t *testing.T) {
	conditions := map[string]any{"$.user.name": "ada"}
	assert.False(t, matchJSONPathBody(conditions, []byte("not json")))
}

func TestMatchJSONPathBody_InvalidExpression(t *testing.T) {
	conditions := map[string]any{"$[unclosed": "ada"}
	assert.False(t, matchJSONPathBody(conditions, []byte(`{"a":1}`)))
}

func TestMatchJSONPathBody_NoConditions(t *testing.T) {
	assert.False(t, matchJSONPathBody(nil, []byte(`{"a":1}`)))
}

func TestMatchBody_DispatchesJSONPath(t *testing.T) {
	m := &expectation.BodyMatcher{
		Type:     expectation.BodyJSONPath,
		JSONPath: map[string]any{"$.ok": true},
	}
	assert.True(t, matchBody(m, []byte(`{"ok":true}`)))
}
