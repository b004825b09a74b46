package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/poltergeist-ai/poltergeist/internal/config"
	"github.com/poltergeist-ai/poltergeist/internal/tools"
	"github.com/poltergeist-ai/poltergeist/pkg/provider/commerce/rye"
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

func fakeCommerce(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestCreate_MissingCredentialsSkipsNetwork(t *testing.T) {
	cfg := testConfig("https://unused")
	cfg.Commerce.ShopperIP = ""
	transport := &countingTransport{}
	ts := New(cfg, WithHTTPClient(&http.Client{Transport: transport}))

	res := ts.handleCreate(context.Background(), json.RawMessage(`{"product_id":"B0KB"}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindConfigMissing {
		t.Fatalf("result = %v, want config_missing", res)
	}
	if got := transport.calls.Load(); got != 0 {
		t.Errorf("network calls = %d, want 0", got)
	}
}

func TestCreate_QuantityDefaultsToOne(t *testing.T) {
	var gotQuantity float64
	srv := fakeCommerce(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Variables map[string]any `json:"variables"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		input := req.Variables["input"].(map[string]any)
		items := input["items"].(map[string]any)
		first := items["amazonCartItemsInput"].([]any)[0].(map[string]any)
		gotQuantity = first["quantity"].(float64)
		_, _ = w.Write([]byte(`{"data":{"createCart":{"cart":{"id":"cart-1","stores":[{"cartLines":[{"quantity":1,"product":{"id":"B0KB"}}]}]},"errors":[]}}}`))
	})

	ts := New(testConfig(srv.URL))
	res := ts.handleCreate(context.Background(), json.RawMessage(`{"product_id":"B0KB"}`))
	if res.IsFailure() {
		t.Fatalf("failure: %+v", res.Failure())
	}
	if gotQuantity != 1 {
		t.Errorf("quantity sent = %v, want 1", gotQuantity)
	}
}

func TestCreate_NegativeQuantity(t *testing.T) {
	ts := New(testConfig("https://unused"))
	res := ts.handleCreate(context.Background(), json.RawMessage(`{"product_id":"B0KB","quantity":-2}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindInvalidArgument {
		t.Fatalf("result = %v, want invalid_argument", res)
	}
}

func TestCreate_ReturnsFullPayload(t *testing.T) {
	srv := fakeCommerce(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"createCart":{"cart":{"id":"cart-1","cost":{"subtotal":{"value":1000,"currency":"USD"},"isEstimated":true},"stores":[{"cartLines":[{"quantity":1,"product":{"id":"B0KB","title":"Keyboard"}}]}]},"errors":[]}}}`))
	})

	ts := New(testConfig(srv.URL))
	res := ts.handleCreate(context.Background(), json.RawMessage(`{"product_id":"B0KB","quantity":1}`))
	if res.IsFailure() {
		t.Fatalf("failure: %+v", res.Failure())
	}
	payload := res.Payload().(*rye.CreateCartPayload)
	if payload.Cart == nil || payload.Cart.ID != "cart-1" {
		t.Errorf("payload = %+v", payload)
	}
	if len(payload.Errors) != 0 {
		t.Errorf("errors = %+v", payload.Errors)
	}
	cost := payload.Cart.Cost
	if cost == nil || cost.Subtotal == nil || cost.Subtotal.Value != 1000 {
		t.Errorf("cost = %+v", cost)
	}
}

func TestCreate_StoreErrorsSurfaceCart(t *testing.T) {
	srv := fakeCommerce(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"createCart":{"cart":{"id":"cart-1","stores":[{"cartLines":[{"quantity":1,"product":{"id":"B0KB"}}],"errors":[{"code":"OFFER_NOT_AVAILABLE","message":"gone"}]}]},"errors":[]}}}`))
	})

	ts := New(testConfig(srv.URL))
	res := ts.handleCreate(context.Background(), json.RawMessage(`{"product_id":"B0KB"}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindProviderError {
		t.Fatalf("result = %v, want provider_error", res)
	}
	details := res.Failure().Details.(map[string]any)
	if details["cart_details_received"] == nil {
		t.Error("details should carry the received cart")
	}
}

func TestCreate_EmptyCartIsMalformed(t *testing.T) {
	srv := fakeCommerce(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"createCart":{"cart":{"id":"cart-1","stores":[]},"errors":[]}}}`))
	})

	ts := New(testConfig(srv.URL))
	res := ts.handleCreate(context.Background(), json.RawMessage(`{"product_id":"B0KB"}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindMalformedResponse {
		t.Fatalf("result = %v, want malformed_response", res)
	}
}

func TestGet_Success(t *testing.T) {
	srv := fakeCommerce(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"getCart":{"cart":{"id":"cart-1","cost":{"total":{"value":1500,"currency":"USD"}},"stores":[{"cartLines":[{"quantity":1,"product":{"id":"B0KB","title":"Keyboard"}}]}]},"errors":null}}}`))
	})

	ts := New(testConfig(srv.URL))
	res := ts.handleGet(context.Background(), json.RawMessage(`{"cart_id":"cart-1"}`))
	if res.IsFailure() {
		t.Fatalf("failure: %+v", res.Failure())
	}
	cart := res.Payload().(*rye.Cart)
	if cart.ID != "cart-1" || len(cart.Stores) != 1 {
		t.Errorf("cart = %+v", cart)
	}
}

func TestGet_EmptyCartID(t *testing.T) {
	ts := New(testConfig("https://unused"))
	res := ts.handleGet(context.Background(), json.RawMessage(`{"cart_id":""}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindInvalidArgument {
		t.Fatalf("result = %v, want invalid_argument", res)
	}
}

func TestGet_OperationErrors(t *testing.T) {
	srv := fakeCommerce(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"getCart":{"cart":null,"errors":[{"code":"CART_NOT_FOUND","message":"no cart"}]}}}`))
	})

	ts := New(testConfig(srv.URL))
	res := ts.handleGet(context.Background(), json.RawMessage(`{"cart_id":"cart-x"}`))
	if res.Failure() == nil || res.Failure().Kind != tools.KindProviderError {
		t.Fatalf("result = %v, want provider_error", res)
	}
}

func TestTools_Registration(t *testing.T) {
	ts := New(testConfig("https://unused"))
	list := ts.Tools()
	if len(list) != 2 {
		t.Fatalf("len(Tools()) = %d, want 2", len(list))
	}
	if list[0].Name != "create_amazon_cart" || list[1].Name != "get_rye_cart_details" {
		t.Errorf("names = %q, %q", list[0].Name, list[1].Name)
	}
}
