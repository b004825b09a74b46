// Package cart provides the Rye cart tools: creating a one-product cart and
// fetching the current state of an existing cart.
package cart

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/poltergeist-ai/poltergeist/internal/config"
	"github.com/poltergeist-ai/poltergeist/internal/tools"
	"github.com/poltergeist-ai/poltergeist/pkg/provider/commerce/rye"
)

// Option is a functional option for configuring the Toolset.
type Option func(*Toolset)

// WithHTTPClient replaces the HTTP client used for commerce calls.
func WithHTTPClient(h *http.Client) Option {
	return func(t *Toolset) {
		t.httpClient = h
	}
}

// Toolset holds the configuration for the cart tools.
type Toolset struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates the cart Toolset.
func New(cfg *config.Config, opts ...Option) *Toolset {
	t := &Toolset{cfg: cfg}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Toolset) client() (*rye.Client, *tools.Result) {
	if !t.cfg.HasCommerceCredentials() {
		return nil, tools.Failf(tools.KindConfigMissing,
			"%s or %s not set in environment variables",
			config.EnvCommerceAuthHeader, config.EnvCommerceShopperIP)
	}
	opts := []rye.Option{rye.WithEndpoint(t.cfg.Commerce.Endpoint)}
	if t.httpClient != nil {
		opts = append(opts, rye.WithHTTPClient(t.httpClient))
	}
	client, err := rye.New(t.cfg.Commerce.AuthHeader, t.cfg.Commerce.ShopperIP, opts...)
	if err != nil {
		return nil, tools.ClassifyError(err)
	}
	return client, nil
}

// createArgs is the JSON-decoded input for create_amazon_cart.
type createArgs struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// handleCreate implements the create_amazon_cart tool. Cart creation is a
// mutation and is never retried.
func (t *Toolset) handleCreate(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args createArgs
	if fail := tools.ParseArgs(raw, &args); fail != nil {
		return fail
	}
	if args.ProductID == "" {
		return tools.Fail(tools.KindInvalidArgument, "product_id must not be empty", nil)
	}
	if args.Quantity == 0 {
		args.Quantity = 1
	}
	if args.Quantity < 0 {
		return tools.Fail(tools.KindInvalidArgument, "quantity must be positive", nil)
	}

	client, fail := t.client()
	if fail != nil {
		return fail
	}

	payload, err := client.CreateCart(ctx, args.ProductID, args.Quantity)
	if err != nil {
		return tools.ClassifyError(err)
	}
	// The whole operation payload goes back to the caller, not just the
	// nested cart, so the errors slot stays visible in the output shape.
	return tools.OK(payload)
}

// getArgs is the JSON-decoded input for get_rye_cart_details.
type getArgs struct {
	CartID string `json:"cart_id"`
}

// handleGet implements the get_rye_cart_details tool.
func (t *Toolset) handleGet(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args getArgs
	if fail := tools.ParseArgs(raw, &args); fail != nil {
		return fail
	}
	if args.CartID == "" {
		return tools.Fail(tools.KindInvalidArgument, "cart_id must not be empty", nil)
	}

	client, fail := t.client()
	if fail != nil {
		return fail
	}

	cart, err := client.GetCart(ctx, args.CartID)
	if err != nil {
		return tools.ClassifyError(err)
	}
	return tools.OK(cart)
}

// Tools returns the cart toolset ready for registration.
func (t *Toolset) Tools() []tools.Tool {
	return []tools.Tool{
		{
			Name:        "create_amazon_cart",
			Description: "Creates a new Rye cart containing a single Amazon product and returns the created cart with its cost estimate.",
			InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
				"product_id": tools.StringProp("Rye product ID (ASIN) to add to the new cart."),
				"quantity":   tools.IntProp("How many units to add. Defaults to 1."),
			}, "product_id"),
			Handler: t.handleCreate,
		},
		{
			Name:        "get_rye_cart_details",
			Description: "Fetches the current contents and cost of an existing Rye cart by its cart ID.",
			InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
				"cart_id": tools.StringProp("ID of the Rye cart to inspect."),
			}, "cart_id"),
			Handler: t.handleGet,
		},
	}
}
