// Package rye provides a client for the Rye commerce GraphQL API: product
// tracking, product detail lookup, cart creation, and cart retrieval.
//
// All operations share a single executor and a single validation routine:
// every response goes through the same top-level-error, operation-payload and
// operation-error checks, so the failure taxonomy is identical across
// operations. Typed error values ([HTTPError], [GraphQLError],
// [OperationError], [MalformedError], [EmptyCartError], [StoreError]) let
// callers classify failures with errors.As.
//
// Idempotent reads (product detail lookup, cart retrieval) are retried a
// bounded number of times on transport failures; mutations are never retried.
package rye

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/poltergeist-ai/poltergeist/internal/resilience"
)

const (
	// DefaultEndpoint is the Rye staging GraphQL endpoint.
	DefaultEndpoint = "https://staging.graphql.api.rye.com/v1/query"

	// requestTimeout bounds a single GraphQL call.
	requestTimeout = 30 * time.Second

	// readRetryAttempts and readRetryDelay bound the retry policy applied to
	// idempotent reads.
	readRetryAttempts = 3
	readRetryDelay    = 250 * time.Millisecond
)

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithEndpoint overrides the GraphQL endpoint (e.g. an httptest server URL).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		c.endpoint = endpoint
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests to count
// or intercept transport calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// WithoutRetries disables the bounded retry policy on idempotent reads.
func WithoutRetries() Option {
	return func(c *Client) {
		c.readRetry = resilience.RetryPolicy{}
	}
}

// Client calls the Rye GraphQL API. Safe for concurrent use.
type Client struct {
	endpoint   string
	authHeader string
	shopperIP  string
	httpClient *http.Client
	readRetry  resilience.RetryPolicy
}

// New creates a Rye Client. authHeader is the full Authorization header
// value; shopperIP is forwarded as the Rye-Shopper-IP header. Both must be
// non-empty.
func New(authHeader, shopperIP string, opts ...Option) (*Client, error) {
	if authHeader == "" || shopperIP == "" {
		return nil, errors.New("rye: authHeader and shopperIP must not be empty")
	}
	c := &Client{
		endpoint:   DefaultEndpoint,
		authHeader: authHeader,
		shopperIP:  shopperIP,
		httpClient: &http.Client{Timeout: requestTimeout},
		readRetry: resilience.RetryPolicy{
			Attempts:  readRetryAttempts,
			Delay:     readRetryDelay,
			Retryable: isTransient,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// isTransient reports whether err is a transport-level failure worth
// retrying: a 5xx status or a network error before any status was received.
// Provider-reported and malformed-response errors are never retried.
func isTransient(err error) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode >= 500
	}
	var gqlErr *GraphQLError
	var opErr *OperationError
	var malformed *MalformedError
	if errors.As(err, &gqlErr) || errors.As(err, &opErr) || errors.As(err, &malformed) {
		return false
	}
	return true
}

// execute posts a GraphQL document and returns the decoded envelope. It
// checks, in order: transport failure, non-2xx status, top-level errors.
func (c *Client) execute(ctx context.Context, query string, variables map[string]any) (*response, error) {
	payload, err := json.Marshal(graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return nil, fmt.Errorf("rye: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("rye: build request: %w", err)
	}
	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Rye-Shopper-IP", c.shopperIP)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rye: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("rye: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &MalformedError{Missing: "response envelope", Raw: json.RawMessage(body)}
	}
	if hasTopLevelErrors(env.Errors) {
		return nil, &GraphQLError{Errors: env.Errors}
	}

	return &response{body: json.RawMessage(body), data: env.Data}, nil
}

// hasTopLevelErrors reports whether the envelope errors field carries actual
// error entries. Servers emit "errors": null or "errors": [] alongside good
// data; neither counts as a failure. A non-array errors value does.
func hasTopLevelErrors(raw json.RawMessage) bool {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return true
	}
	return len(entries) > 0
}

// operationPayload extracts data.<op> from a decoded response. An absent or
// null payload yields a [MalformedError] carrying the full body.
func operationPayload(r *response, op string) (json.RawMessage, error) {
	var data map[string]json.RawMessage
	if len(r.data) > 0 {
		if err := json.Unmarshal(r.data, &data); err != nil {
			return nil, &MalformedError{Missing: op, Raw: r.body}
		}
	}
	payload, ok := data[op]
	if !ok || len(payload) == 0 || bytes.Equal(payload, []byte("null")) {
		return nil, &MalformedError{Missing: op, Raw: r.body}
	}
	return payload, nil
}

// RequestProductTracking asks Rye to start tracking the Amazon product at
// productURL and returns the assigned Rye product ID.
func (c *Client) RequestProductTracking(ctx context.Context, productURL string) (string, error) {
	variables := map[string]any{
		"input": map[string]any{"url": productURL},
	}
	resp, err := c.execute(ctx, requestProductByURLMutation, variables)
	if err != nil {
		return "", err
	}

	payload, err := operationPayload(resp, "requestAmazonProductByURL")
	if err != nil {
		return "", err
	}

	var out struct {
		ProductID string `json:"productId"`
	}
	if err := json.Unmarshal(payload, &out); err != nil || out.ProductID == "" {
		return "", &MalformedError{Missing: "productId", Raw: resp.body}
	}
	return out.ProductID, nil
}

// ProductByID fetches detail information for an already-tracked product.
// This read is idempotent and goes through the bounded retry policy.
func (c *Client) ProductByID(ctx context.Context, productID string) (*Product, error) {
	variables := map[string]any{
		"input": map[string]any{"id": productID, "marketplace": MarketplaceAmazon},
	}

	return resilience.ExecuteWithResult(ctx, c.readRetry, "rye.productByID", func() (*Product, error) {
		resp, err := c.execute(ctx, productDetailsQuery, variables)
		if err != nil {
			return nil, err
		}
		payload, err := operationPayload(resp, "product")
		if err != nil {
			return nil, err
		}
		var p Product
		if err := json.Unmarshal(payload, &p); err != nil {
			return nil, &MalformedError{Missing: "product", Raw: resp.body}
		}
		return &p, nil
	})
}

// CreateCart creates a cart containing quantity units of the given product.
//
// Success requires all of, in order: no top-level errors, a createCart
// payload, no operation-level errors, a cart with an ID, a non-empty
// store/line structure, and no store-level errors. Each check failing yields
// its own typed error. CreateCart is a mutation and is never retried.
func (c *Client) CreateCart(ctx context.Context, productID string, quantity int) (*CreateCartPayload, error) {
	variables := map[string]any{
		"input": map[string]any{
			"items": map[string]any{
				"amazonCartItemsInput": []map[string]any{
					{"quantity": quantity, "productId": productID},
				},
			},
		},
	}

	resp, err := c.execute(ctx, createCartMutation, variables)
	if err != nil {
		return nil, err
	}

	raw, err := operationPayload(resp, "createCart")
	if err != nil {
		return nil, err
	}

	var payload CreateCartPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &MalformedError{Missing: "createCart", Raw: resp.body}
	}

	if len(payload.Errors) > 0 {
		return nil, &OperationError{Op: "createCart", Errors: payload.Errors}
	}
	if payload.Cart == nil || payload.Cart.ID == "" {
		return nil, &MalformedError{Missing: "cart id", Raw: raw}
	}
	if len(payload.Cart.Stores) == 0 || len(payload.Cart.Stores[0].CartLines) == 0 {
		return nil, &EmptyCartError{Cart: payload.Cart}
	}
	// Store-level errors can accompany an apparently populated cart; they
	// still mean the item was not added cleanly.
	for _, store := range payload.Cart.Stores {
		if len(store.Errors) > 0 {
			return nil, &StoreError{Errors: store.Errors, Cart: payload.Cart}
		}
	}

	return &payload, nil
}

// GetCart fetches the full cart with the given ID. The getCart envelope
// carries both a cart and an errors field; either may be set. This read is
// idempotent and goes through the bounded retry policy.
func (c *Client) GetCart(ctx context.Context, cartID string) (*Cart, error) {
	variables := map[string]any{"id": cartID}

	return resilience.ExecuteWithResult(ctx, c.readRetry, "rye.getCart", func() (*Cart, error) {
		resp, err := c.execute(ctx, getCartQuery, variables)
		if err != nil {
			return nil, err
		}

		raw, err := operationPayload(resp, "getCart")
		if err != nil {
			return nil, err
		}

		var env struct {
			Cart   *Cart         `json:"cart"`
			Errors []ErrorDetail `json:"errors"`
		}
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, &MalformedError{Missing: "getCart", Raw: resp.body}
		}
		if len(env.Errors) > 0 {
			return nil, &OperationError{Op: "getCart", Errors: env.Errors}
		}
		if env.Cart == nil {
			return nil, &MalformedError{Missing: "cart", Raw: raw}
		}
		return env.Cart, nil
	})
}
