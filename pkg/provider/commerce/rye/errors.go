package rye

import (
	"encoding/json"
	"fmt"
)

// HTTPError is returned when Rye responds with a non-2xx status or the
// response body cannot be read. Body carries the raw response text.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("rye: HTTP error %d", e.StatusCode)
}

// GraphQLError is returned when the top-level response envelope carries an
// errors array. Errors holds that array verbatim.
type GraphQLError struct {
	Errors json.RawMessage
}

func (e *GraphQLError) Error() string {
	return "rye: GraphQL error"
}

// OperationError is returned when the named operation payload itself carries
// a non-empty errors list (e.g. createCart.errors, getCart.errors).
type OperationError struct {
	Op     string
	Errors []ErrorDetail
}

func (e *OperationError) Error() string {
	return fmt.Sprintf("rye: %s reported %d error(s)", e.Op, len(e.Errors))
}

// MalformedError is returned when the response reported no explicit error
// yet the field named by Missing is absent or null. Raw holds the payload
// the field was expected in, for diagnosis.
type MalformedError struct {
	Missing string
	Raw     json.RawMessage
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("rye: %s not found in response", e.Missing)
}

// EmptyCartError is returned when cart creation reported success at every
// protocol level yet the created cart has no stores or no cart lines. This
// guards against silent no-op creation. Cart holds what was received.
type EmptyCartError struct {
	Cart *Cart
}

func (e *EmptyCartError) Error() string {
	return "rye: cart created but appears empty or item not added successfully"
}

// StoreError is returned when a store inside an otherwise successful cart
// reports store-level errors. Cart holds the full cart for diagnosis.
type StoreError struct {
	Errors []ErrorDetail
	Cart   *Cart
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("rye: store reported %d error(s) during cart creation", len(e.Errors))
}
