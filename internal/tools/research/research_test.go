package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/poltergeist-ai/poltergeist/internal/config"
	"github.com/poltergeist-ai/poltergeist/internal/tools"
)

// countingTransport counts outbound requests; used to prove credential
// failures never reach the network.
type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, http.ErrHandlerTimeout
}

func testConfig(apiKey, baseURL string) *config.Config {
	cfg := &config.Config{}
	cfg.Search.APIKey = apiKey
	cfg.Search.BaseURL = baseURL
	return cfg
}

func TestResearch_EmptyQuery(t *testing.T) {
	ts := New(testConfig("fc-key", "https://unused"))
	res := ts.handleResearch(context.Background(), json.RawMessage(`{"query":""}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindInvalidArgument {
		t.Fatalf("result = %v, want invalid_argument", res)
	}
}

func TestResearch_MissingCredentialsSkipsNetwork(t *testing.T) {
	transport := &countingTransport{}
	ts := New(testConfig("", "https://unused"),
		WithHTTPClient(&http.Client{Transport: transport}))

	res := ts.handleResearch(context.Background(), json.RawMessage(`{"query":"keyboard"}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindConfigMissing {
		t.Fatalf("result = %v, want config_missing", res)
	}
	if got := transport.calls.Load(); got != 0 {
		t.Errorf("network calls = %d, want 0", got)
	}
}

func TestResearch_MapsResultsWithDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[
			{"title":"Keyboard","url":"https://x","description":"clicky"},
			{"title":"","url":"","description":""}
		]}`))
	}))
	defer srv.Close()

	ts := New(testConfig("fc-key", srv.URL))
	res := ts.handleResearch(context.Background(), json.RawMessage(`{"query":"keyboard"}`))
	if res.IsFailure() {
		t.Fatalf("failure: %+v", res.Failure())
	}

	out := res.Payload().(researchOutput)
	if len(out.Results) != 2 {
		t.Fatalf("len(results) = %d", len(out.Results))
	}
	if out.Results[0].Title != "Keyboard" || out.Results[0].Snippet != "clicky" {
		t.Errorf("first = %+v", out.Results[0])
	}
	if out.Results[1].Title != "N/A" || out.Results[1].URL != "N/A" || out.Results[1].Snippet != "" {
		t.Errorf("second = %+v, want N/A defaults", out.Results[1])
	}
}

func TestResearch_UpstreamFailureClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ts := New(testConfig("fc-key", srv.URL))
	res := ts.handleResearch(context.Background(), json.RawMessage(`{"query":"keyboard"}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindTransportError {
		t.Fatalf("result = %v, want transport_error", res)
	}
}

func TestResearch_EmptyResultsAreMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"success":true,"data":[]}`))
	}))
	defer srv.Close()

	ts := New(testConfig("fc-key", srv.URL))
	res := ts.handleResearch(context.Background(), json.RawMessage(`{"query":"keyboard"}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindMalformedResponse {
		t.Fatalf("result = %v, want malformed_response", res)
	}
}

func TestTools_Registration(t *testing.T) {
	ts := New(testConfig("fc-key", "https://unused"))
	list := ts.Tools()
	if len(list) != 1 {
		t.Fatalf("len(Tools()) = %d, want 1", len(list))
	}
	if list[0].Name != "research_products" {
		t.Errorf("Name = %q", list[0].Name)
	}
	if list[0].InputSchema == nil || list[0].Handler == nil {
		t.Error("tool missing schema or handler")
	}
}
