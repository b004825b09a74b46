package tools

import (
	"encoding/json"
	"fmt"
)

// FailureKind classifies a tool failure. Every failing tool invocation maps
// to exactly one kind, checked in a fixed order: configuration first (before
// any network activity), then transport, then provider-reported errors, then
// structurally broken success responses, with a catch-all for the rest.
type FailureKind string

const (
	// KindConfigMissing means a required credential or environment value is
	// absent. Checked before any outbound request is built.
	KindConfigMissing FailureKind = "config_missing"

	// KindInvalidArgument means the caller-supplied tool arguments failed
	// validation (e.g. checkout buyer info without an email).
	KindInvalidArgument FailureKind = "invalid_argument"

	// KindTransportError means a non-2xx HTTP status or a network failure.
	KindTransportError FailureKind = "transport_error"

	// KindProviderError means the upstream service returned its own error
	// envelope (GraphQL errors, PostgREST error object, store-level errors).
	KindProviderError FailureKind = "provider_error"

	// KindMalformedResponse means the upstream reported success yet an
	// expected field is absent or semantically empty.
	KindMalformedResponse FailureKind = "malformed_response"

	// KindUnexpected is the catch-all for anything not anticipated.
	KindUnexpected FailureKind = "unexpected"
)

// Failure is the structured error shape returned to the agent. Details carries
// the full upstream diagnostic payload verbatim; the caller is an autonomous
// agent that may need it to decide a next action.
type Failure struct {
	Kind    FailureKind `json:"kind"`
	Message string      `json:"error"`
	Details any         `json:"details,omitempty"`
}

// Result is the outcome of a single tool invocation: either a success payload
// or a [Failure]. Exactly one of the two is set.
type Result struct {
	payload any
	failure *Failure
}

// OK returns a success Result wrapping payload.
func OK(payload any) *Result {
	return &Result{payload: payload}
}

// Fail returns a failure Result of the given kind. details may be nil.
func Fail(kind FailureKind, message string, details any) *Result {
	return &Result{failure: &Failure{Kind: kind, Message: message, Details: details}}
}

// Failf returns a failure Result with a formatted message and no details.
func Failf(kind FailureKind, format string, args ...any) *Result {
	return Fail(kind, fmt.Sprintf(format, args...), nil)
}

// IsFailure reports whether r carries a failure.
func (r *Result) IsFailure() bool {
	return r.failure != nil
}

// Failure returns the failure carried by r, or nil on success.
func (r *Result) Failure() *Failure {
	return r.failure
}

// Payload returns the success payload carried by r, or nil on failure.
func (r *Result) Payload() any {
	return r.payload
}

// Status returns "ok" for a success and the failure kind otherwise.
// Used as the metrics status attribute.
func (r *Result) Status() string {
	if r.failure != nil {
		return string(r.failure.Kind)
	}
	return "ok"
}

// MarshalText renders the result as the JSON text surfaced to the agent.
// String success payloads are passed through verbatim; everything else is
// JSON-encoded. Encoding failures degrade to an unexpected-failure body
// rather than an error, so a Result can always be rendered.
func (r *Result) MarshalText() string {
	if r.failure != nil {
		data, err := json.Marshal(r.failure)
		if err != nil {
			return fmt.Sprintf(`{"kind":%q,"error":"failed to encode failure: %s"}`, KindUnexpected, err)
		}
		return string(data)
	}
	if s, ok := r.payload.(string); ok {
		return s
	}
	data, err := json.Marshal(r.payload)
	if err != nil {
		return fmt.Sprintf(`{"kind":%q,"error":"failed to encode result: %s"}`, KindUnexpected, err)
	}
	return string(data)
}
