package catalog

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

type countingTransport struct {
	calls atomic.Int32
}

func (c *countingTransport) RoundTrip(*http.Request) (*http.Response, error) {
	c.calls.Add(1)
	return nil, http.ErrHandlerTimeout
}

func testConfig(endpoint string) *config.Config {
	cfg := &config.Config{}
	cfg.Commerce.Endpoint = endpoint
	cfg.Commerce.AuthHeader = "Basic abc"
	cfg.Commerce.ShopperIP = "203.0.113.7"
	return cfg
}

func fakeCommerce(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestTracking_MissingCredentialsSkipsNetwork(t *testing.T) {
	cfg := testConfig("https://unused")
	cfg.Commerce.AuthHeader = ""
	transport := &countingTransport{}
	ts := New(cfg, WithHTTPClient(&http.Client{Transport: transport}))

	res := ts.handleTracking(context.Background(), json.RawMessage(`{"product_url":"https://amazon.com/dp/x"}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindConfigMissing {
		t.Fatalf("result = %v, want config_missing", res)
	}
	if got := transport.calls.Load(); got != 0 {
		t.Errorf("network calls = %d, want 0", got)
	}
}

func TestTracking_EmptyURL(t *testing.T) {
	ts := New(testConfig("https://unused"))
	res := ts.handleTracking(context.Background(), json.RawMessage(`{"product_url":""}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindInvalidArgument {
		t.Fatalf("result = %v, want invalid_argument", res)
	}
}

func TestTracking_Success(t *testing.T) {
	srv := fakeCommerce(t, `{"data":{"requestAmazonProductByURL":{"productId":"B0EXAMPLE"}}}`)
	ts := New(testConfig(srv.URL))

	res := ts.handleTracking(context.Background(), json.RawMessage(`{"product_url":"https://amazon.com/dp/B0EXAMPLE"}`))
	if res.IsFailure() {
		t.Fatalf("failure: %+v", res.Failure())
	}
	out := res.Payload().(trackingOutput)
	if out.ProductID != "B0EXAMPLE" {
		t.Errorf("ProductID = %q", out.ProductID)
	}
}

func TestTracking_MissingProductID(t *testing.T) {
	srv := fakeCommerce(t, `{"data":{"requestAmazonProductByURL":{}}}`)
	ts := New(testConfig(srv.URL))

	res := ts.handleTracking(context.Background(), json.RawMessage(`{"product_url":"https://amazon.com/dp/x"}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindMalformedResponse {
		t.Fatalf("result = %v, want malformed_response", res)
	}
}

func TestDetails_Success(t *testing.T) {
	srv := fakeCommerce(t, `{"data":{"product":{
		"id":"B0KB","title":"Keyboard","url":"https://amazon.com/dp/B0KB",
		"isAvailable":true,"price":{"value":4999,"currency":"USD"},
		"images":[{"url":"https://img/1.jpg"},{"url":"https://img/2.png?sz=500"},{"url":""}],
		"ASIN":"B0KB"}}}`)
	ts := New(testConfig(srv.URL))

	res := ts.handleDetails(context.Background(), json.RawMessage(`{"product_id":"B0KB"}`))
	if res.IsFailure() {
		t.Fatalf("failure: %+v", res.Failure())
	}

	out := res.Payload().(detailsOutput)
	if out.Title != "Keyboard" || out.ASIN != "B0KB" {
		t.Errorf("product = %+v", out.Product)
	}
	if len(out.ImagePreviews) != 2 {
		t.Fatalf("len(previews) = %d, want 2 (empty URL skipped)", len(out.ImagePreviews))
	}
	if out.ImagePreviews[0].MIMEType != "image/jpeg" || out.ImagePreviews[0].Type != "image" {
		t.Errorf("first preview = %+v", out.ImagePreviews[0])
	}
	if out.ImagePreviews[1].MIMEType != "image/png" {
		t.Errorf("second preview = %+v, query string should not affect mime", out.ImagePreviews[1])
	}
}

func TestDetails_ProviderError(t *testing.T) {
	srv := fakeCommerce(t, `{"errors":[{"message":"product not tracked"}]}`)
	ts := New(testConfig(srv.URL))

	res := ts.handleDetails(context.Background(), json.RawMessage(`{"product_id":"B0NOPE"}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindProviderError {
		t.Fatalf("result = %v, want provider_error", res)
	}
}

func TestImageMIMEType(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://img/a.jpg", "image/jpeg"},
		{"https://img/a.JPEG", "image/jpeg"},
		{"https://img/a.png", "image/png"},
		{"https://img/a.gif", "image/gif"},
		{"https://img/a.webp", "image/webp"},
		{"https://img/a.png?width=500", "image/png"},
		{"https://img/no-extension", "image/jpeg"},
	}
	for _, tc := range tests {
		if got := imageMIMEType(tc.url); got != tc.want {
			t.Errorf("imageMIMEType(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestTools_Registration(t *testing.T) {
	ts := New(testConfig("https://unused"))
	list := ts.Tools()
	if len(list) != 2 {
		t.Fatalf("len(Tools()) = %d, want 2", len(list))
	}
	names := map[string]bool{}
	for _, tool := range list {
		names[tool.Name] = true
		if tool.InputSchema == nil || tool.Handler == nil {
			t.Errorf("tool %q missing schema or handler", tool.Name)
		}
	}
	if !names["request_amazon_product_tracking"] || !names["fetch_amazon_product_details"] {
		t.Errorf("tool names = %v", names)
	}
}
