// Package firecrawl provides a Firecrawl-backed product search client using
// the Firecrawl search REST API (POST /v1/search).
//
// Usage:
//
//	c, err := firecrawl.New(apiKey)
//	results, err := c.Search(ctx, "mechanical keyboard", 10)
package firecrawl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	defaultBaseURL = "https://api.firecrawl.dev"
	searchPath     = "/v1/search"

	// requestTimeout bounds a single search call. The upstream has no
	// contractual latency bound, so a hard client-side timeout protects the
	// invoking tool from hanging.
	requestTimeout = 30 * time.Second
)

// Option is a functional option for configuring the Client.
type Option func(*Client)

// WithBaseURL overrides the Firecrawl API root (e.g. an httptest server URL).
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests to count
// or intercept transport calls.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
	}
}

// Client calls the Firecrawl search API. Safe for concurrent use.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a Firecrawl Client. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("firecrawl: apiKey must not be empty")
	}
	c := &Client{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// HTTPError is returned when Firecrawl responds with a non-2xx status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("firecrawl: unexpected status %d", e.StatusCode)
}

// MalformedError is returned when the response is 2xx yet does not carry the
// expected result sequence. Raw holds the full response body for diagnosis.
type MalformedError struct {
	Raw json.RawMessage
}

func (e *MalformedError) Error() string {
	return "firecrawl: unexpected response format from search"
}

// SearchResult is a single entry from the Firecrawl search response.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// searchRequest is the JSON payload for POST /v1/search.
type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit,omitempty"`
}

// searchResponse is the top-level response from POST /v1/search.
type searchResponse struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error,omitempty"`
}

// Search runs a search query and returns up to limit results. A limit of 0
// leaves the result count to the provider.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	payload, err := json.Marshal(searchRequest{Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("firecrawl: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("firecrawl: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("firecrawl: search: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("firecrawl: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	return parseSearchResponse(body)
}

// parseSearchResponse extracts the result sequence from a raw search response
// body. Factored out so tests can cover parsing without a live server.
func parseSearchResponse(body []byte) ([]SearchResult, error) {
	var sr searchResponse
	if err := json.Unmarshal(body, &sr); err != nil {
		return nil, &MalformedError{Raw: json.RawMessage(body)}
	}
	if sr.Success != nil && !*sr.Success {
		return nil, &MalformedError{Raw: json.RawMessage(body)}
	}

	var results []SearchResult
	if err := json.Unmarshal(sr.Data, &results); err != nil {
		// Not a sequence of results; surface the whole body for diagnosis.
		return nil, &MalformedError{Raw: json.RawMessage(body)}
	}
	if len(results) == 0 {
		// A missing or empty sequence is treated the same as a wrong shape:
		// the caller gets the raw body rather than a silent empty success.
		return nil, &MalformedError{Raw: json.RawMessage(body)}
	}
	return results, nil
}
