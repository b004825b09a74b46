// Package supabase provides a minimal client for the Supabase PostgREST API,
// covering the three operations Poltergeist needs: insert, upsert, and
// filtered select. Rows travel as JSON; the caller decodes result sets into
// its own types.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// restPath is the PostgREST route prefix on a Supabase project URL.
const restPath = "/rest/v1/"

// requestTimeout bounds a single datastore call.
const requestTimeout = 30 * time.Second

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client. Used by tests to count
// or intercept transport calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// Client calls the Supabase PostgREST API. Safe for concurrent use.
type Client struct {
	baseURL    string
	key        string
	httpClient *http.Client
}

// New creates a Supabase Client for the project at baseURL, authenticating
// with the given service-role key. Both must be non-empty.
func New(baseURL, serviceRoleKey string, opts ...Option) (*Client, error) {
	if baseURL == "" || serviceRoleKey == "" {
		return nil, errors.New("supabase: baseURL and serviceRoleKey must not be empty")
	}
	c := &Client{
		baseURL:    baseURL,
		key:        serviceRoleKey,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// APIError is the PostgREST error envelope, surfaced verbatim.
type APIError struct {
	StatusCode int
	Message    string `json:"message"`
	Code       string `json:"code"`
	Details    string `json:"details"`
	Hint       string `json:"hint"`

	// Body is the raw response body, kept for when the envelope fields are
	// empty or the body is not the standard error shape.
	Body string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("supabase: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("supabase: request failed with status %d", e.StatusCode)
}

// Filter restricts a [Select] to rows matching a PostgREST operator
// expression, e.g. {Column: "user_identifier", Op: "eq", Value: "a@b.c"}.
type Filter struct {
	Column string
	Op     string
	Value  string
}

// Query describes a [Select]: projected columns, filters, ordering, and a
// row limit. Zero values mean "all columns", "no filter", "no order", and
// "no limit" respectively.
type Query struct {
	Columns    string
	Filters    []Filter
	OrderBy    string
	Descending bool
	Limit      int
}

// Insert adds one row to table and returns the inserted representation.
func (c *Client) Insert(ctx context.Context, table string, row any) (json.RawMessage, error) {
	return c.write(ctx, table, row, url.Values{}, "return=representation")
}

// Upsert inserts row into table, overwriting any existing row that conflicts
// on the onConflict column. A second upsert with the same key therefore
// replaces the first rather than creating a duplicate.
func (c *Client) Upsert(ctx context.Context, table string, row any, onConflict string) (json.RawMessage, error) {
	params := url.Values{}
	if onConflict != "" {
		params.Set("on_conflict", onConflict)
	}
	return c.write(ctx, table, row, params, "resolution=merge-duplicates,return=representation")
}

// write posts a row with the given query params and Prefer header.
func (c *Client) write(ctx context.Context, table string, row any, params url.Values, prefer string) (json.RawMessage, error) {
	payload, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("supabase: encode row: %w", err)
	}

	endpoint := c.baseURL + restPath + table
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("supabase: build request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Prefer", prefer)

	return c.do(req)
}

// Select reads rows from table according to q.
func (c *Client) Select(ctx context.Context, table string, q Query) (json.RawMessage, error) {
	params := url.Values{}
	columns := q.Columns
	if columns == "" {
		columns = "*"
	}
	params.Set("select", columns)
	for _, f := range q.Filters {
		params.Set(f.Column, f.Op+"."+f.Value)
	}
	if q.OrderBy != "" {
		direction := "asc"
		if q.Descending {
			direction = "desc"
		}
		params.Set("order", q.OrderBy+"."+direction)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	endpoint := c.baseURL + restPath + table + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("supabase: build request: %w", err)
	}
	c.setHeaders(req)

	return c.do(req)
}

// setHeaders applies the authentication and content headers PostgREST needs.
func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("apikey", c.key)
	req.Header.Set("Authorization", "Bearer "+c.key)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
}

// do executes the request and returns the raw body on 2xx, or an [APIError]
// decoded from the PostgREST error envelope otherwise.
func (c *Client) do(req *http.Request) (json.RawMessage, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase: request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("supabase: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(body)}
		// Best effort; a non-JSON body still surfaces via Body.
		_ = json.Unmarshal(body, apiErr)
		return nil, apiErr
	}

	return json.RawMessage(body), nil
}
