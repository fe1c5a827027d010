// Package expectation defines the data model shared by the matcher, the
// expectation store, and the action dispatcher: request fingerprints,
// request-matchers, actions, and the expectation envelope that ties them
// together.
package expectation

import "time"

// StringMatch is a constraint on a single string value. Exactly one mode
// field should be set; an all-empty StringMatch matches anything.
type StringMatch struct {
	Equals   string `json:"equals,omitempty" yaml:"equals,omitempty"`
	Regex    string `json:"regex,omitempty" yaml:"regex,omitempty"`
	Prefix   string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
	Contains string `json:"contains,omitempty" yaml:"contains,omitempty"`
}

// Empty reports whether the constraint carries no restriction at all.
func (m StringMatch) Empty() bool {
	return m.Equals == "" && m.Regex == "" && m.Prefix == "" && m.Contains == ""
}

// ValueList is a constraint against one-of-many header/query/cookie values.
// At least one of the request's values for the key must satisfy it.
type ValueList map[string]StringMatch

// BodyType tags which shape the body matcher (or fingerprint) carries.
type BodyType string

const (
	BodyNone       BodyType = ""
	BodyRaw        BodyType = "raw"
	BodyString     BodyType = "string"
	BodyJSON       BodyType = "json"
	BodyXML        BodyType = "xml"
	BodyRegex      BodyType = "regex"
	BodySchema     BodyType = "schema"
	BodyParameters BodyType = "parameters"
	BodyJSONPath   BodyType = "jsonpath"
)

// BodyMatchMode controls how a JSON body constraint is evaluated; XML body
// matching does not consult it.
type BodyMatchMode string

const (
	MatchStrict              BodyMatchMode = "STRICT"
	MatchOnlyMatchingFields  BodyMatchMode = "ONLY_MATCHING_FIELDS"
)

// BodyMatcher is the tagged-union body constraint.
type BodyMatcher struct {
	Type BodyType `json:"type,omitempty" yaml:"type,omitempty"`

	// Raw/String/Regex/Schema payloads.
	Raw    []byte `json:"raw,omitempty" yaml:"raw,omitempty"`
	String string `json:"string,omitempty" yaml:"string,omitempty"`
	Regex  string `json:"regex,omitempty" yaml:"regex,omitempty"`
	Schema string `json:"schema,omitempty" yaml:"schema,omitempty"`
	XML    string `json:"xml,omitempty" yaml:"xml,omitempty"`

	// JSON carries the expected value plus how strictly it is compared.
	JSON      any           `json:"json,omitempty" yaml:"json,omitempty"`
	MatchMode BodyMatchMode `json:"matchMode,omitempty" yaml:"matchMode,omitempty"`

	// Parameters matches an application/x-www-form-urlencoded parameter
	// set, same multiset semantics as query params. Multipart bodies are
	// not parsed.
	Parameters ValueList `json:"parameters,omitempty" yaml:"parameters,omitempty"`

	// JSONPath maps a JSONPath expression to an expected value (or an
	// {"exists": bool} existence check); every entry must match. Used
	// by BodyJSONPath.
	JSONPath map[string]any `json:"jsonPath,omitempty" yaml:"jsonPath,omitempty"`
}

// RequestMatcher is the constraint-shaped counterpart of RequestFingerprint.
// Every field is optional; an unset field is unconstrained.
type RequestMatcher struct {
	Method  StringMatch `json:"method,omitempty" yaml:"method,omitempty"`
	Path    StringMatch `json:"path,omitempty" yaml:"path,omitempty"`
	Query   ValueList   `json:"query,omitempty" yaml:"query,omitempty"`
	Headers ValueList   `json:"headers,omitempty" yaml:"headers,omitempty"`
	Cookies ValueList   `json:"cookies,omitempty" yaml:"cookies,omitempty"`
	Body    *BodyMatcher `json:"body,omitempty" yaml:"body,omitempty"`

	// Not negates the result of evaluating every field above.
	Not bool `json:"not,omitempty" yaml:"not,omitempty"`
}

// RequestFingerprint is the concrete request presented to the matcher.
// Populated by the classifier from the inbound HTTP request.
type RequestFingerprint struct {
	Method  string
	Path    string
	Query   map[string][]string
	Headers map[string][]string
	Cookies map[string]string
	Body    []byte
}

// ActionKind tags the Action union.
type ActionKind string

const (
	ActionRespond         ActionKind = "RESPOND"
	ActionForward         ActionKind = "FORWARD"
	ActionOverrideForward ActionKind = "OVERRIDE_FORWARD"
	ActionClassCallback   ActionKind = "CLASS_CALLBACK"
	ActionObjectCallback  ActionKind = "OBJECT_CALLBACK"
	ActionError           ActionKind = "ERROR"
)

// LiteralResponse is a canned HTTP response.
type LiteralResponse struct {
	StatusCode int               `json:"statusCode" yaml:"statusCode"`
	ReasonPhrase string          `json:"reasonPhrase,omitempty" yaml:"reasonPhrase,omitempty"`
	Headers    map[string][]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body       []byte            `json:"body,omitempty" yaml:"body,omitempty"`
	Delay      *DelaySpec        `json:"delay,omitempty" yaml:"delay,omitempty"`

	// Template, when set, is evaluated against the matched request by an
	// external template evaluator instead of using
	// Body verbatim.
	Template string `json:"template,omitempty" yaml:"template,omitempty"`
}

// DelaySpec is a (duration, jitter?) pair applied before the first byte.
type DelaySpec struct {
	Duration time.Duration `json:"duration" yaml:"duration"`
	Jitter   time.Duration `json:"jitter,omitempty" yaml:"jitter,omitempty"`
}

// ForwardTarget names an upstream to forward to.
type ForwardTarget struct {
	Scheme string `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	Host   string `json:"host" yaml:"host"`
	Port   int    `json:"port,omitempty" yaml:"port,omitempty"`
}

// RequestOverride overlays non-empty fields onto the original request
// before forwarding (OverrideForward).
type RequestOverride struct {
	Method  string              `json:"method,omitempty" yaml:"method,omitempty"`
	Path    string              `json:"path,omitempty" yaml:"path,omitempty"`
	Headers map[string][]string `json:"headers,omitempty" yaml:"headers,omitempty"`
	Body    []byte              `json:"body,omitempty" yaml:"body,omitempty"`
}

// ErrorVariant tags the transport-level fault an Error action injects.
type ErrorVariant string

const (
	ErrorDrop  ErrorVariant = "DROP"
	ErrorReset ErrorVariant = "RESET"
	ErrorDelay ErrorVariant = "DELAY"
)

// ErrorAction configures a transport-level fault.
type ErrorAction struct {
	Variant ErrorVariant `json:"variant" yaml:"variant"`
	Delay   *DelaySpec   `json:"delay,omitempty" yaml:"delay,omitempty"`

	// DropAfterBytes, when set with Variant DROP, lets the connection
	// stream the first N bytes of the response before dropping.
	DropAfterBytes int `json:"dropAfterBytes,omitempty" yaml:"dropAfterBytes,omitempty"`
}

// Action is the tagged-union action. Exactly one field matching Kind
// should be populated.
type Action struct {
	Kind ActionKind `json:"kind" yaml:"kind"`

	Respond  *LiteralResponse `json:"respond,omitempty" yaml:"respond,omitempty"`
	Forward  *ForwardTarget   `json:"forward,omitempty" yaml:"forward,omitempty"`

	OverrideForwardTarget *ForwardTarget   `json:"overrideForwardTarget,omitempty" yaml:"overrideForwardTarget,omitempty"`
	Override              *RequestOverride `json:"override,omitempty" yaml:"override,omitempty"`

	ClassCallbackName string `json:"classCallbackName,omitempty" yaml:"classCallbackName,omitempty"`

	ObjectCallbackClientID string `json:"objectCallbackClientId,omitempty" yaml:"objectCallbackClientId,omitempty"`

	Error *ErrorAction `json:"error,omitempty" yaml:"error,omitempty"`
}

// RemainingUses encodes either UNLIMITED or a bounded positive count.
type RemainingUses struct {
	Unlimited bool `json:"unlimited,omitempty" yaml:"unlimited,omitempty"`
	Count     int  `json:"count,omitempty" yaml:"count,omitempty"`
}

// Unlimited is the canonical unbounded RemainingUses value.
func Unlimited() RemainingUses { return RemainingUses{Unlimited: true} }

// Times returns a bounded RemainingUses value of n.
func Times(n int) RemainingUses { return RemainingUses{Count: n} }

// Expectation is the tuple of { id, matcher, action, remaining_uses,
// priority_index }.
type Expectation struct {
	ID            string         `json:"id" yaml:"id"`
	Matcher       RequestMatcher `json:"matcher" yaml:"matcher"`
	Action        Action         `json:"action" yaml:"action"`
	RemainingUses RemainingUses  `json:"remainingUses" yaml:"remainingUses"`

	// PriorityIndex preserves insertion order; assigned by the store, not
	// the caller.
	PriorityIndex int64 `json:"priorityIndex" yaml:"priorityIndex"`

	CreatedAt time.Time `json:"createdAt" yaml:"createdAt"`
}
