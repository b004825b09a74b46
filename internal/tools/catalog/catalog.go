// Package catalog provides the product tracking and product detail tools
// backed by the Rye commerce GraphQL API:
//
//   - "request_amazon_product_tracking" — register a product URL with Rye and
//     return the assigned product ID.
//   - "fetch_amazon_product_details"   — fetch title, availability, price and
//     images for an already-tracked product.
package catalog

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/poltergeist-ai/poltergeist/internal/config"
	"github.com/poltergeist-ai/poltergeist/internal/tools"
	"github.com/poltergeist-ai/poltergeist/pkg/provider/commerce/rye"
)

// Option is a functional option for configuring the Toolset.
type Option func(*Toolset)

// WithHTTPClient replaces the HTTP client used for commerce calls. Used by
// tests to count transport calls.
func WithHTTPClient(h *http.Client) Option {
	return func(t *Toolset) {
		t.httpClient = h
	}
}

// Toolset holds the configuration for the catalog tools.
type Toolset struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates the catalog Toolset.
func New(cfg *config.Config, opts ...Option) *Toolset {
	t := &Toolset{cfg: cfg}
	for _, o := range opts {
		o(t)
	}
	return t
}

// client builds a Rye client from the injected config, or returns a
// config-missing failure before any network activity.
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

// trackingArgs is the JSON-decoded input for request_amazon_product_tracking.
type trackingArgs struct {
	ProductURL string `json:"product_url"`
}

// trackingOutput is the success payload of request_amazon_product_tracking.
type trackingOutput struct {
	ProductID string `json:"productId"`
}

// handleTracking implements the request_amazon_product_tracking tool.
func (t *Toolset) handleTracking(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args trackingArgs
	if fail := tools.ParseArgs(raw, &args); fail != nil {
		return fail
	}
	if args.ProductURL == "" {
		return tools.Fail(tools.KindInvalidArgument, "product_url must not be empty", nil)
	}

	client, fail := t.client()
	if fail != nil {
		return fail
	}

	productID, err := client.RequestProductTracking(ctx, args.ProductURL)
	if err != nil {
		return tools.ClassifyError(err)
	}
	return tools.OK(trackingOutput{ProductID: productID})
}

// detailsArgs is the JSON-decoded input for fetch_amazon_product_details.
type detailsArgs struct {
	ProductID string `json:"product_id"`
}

// ImagePreview is a renderable image reference attached to product details
// so the calling agent can preview product images inline.
type ImagePreview struct {
	Type     string `json:"type"`
	URL      string `json:"url"`
	MIMEType string `json:"mimeType"`
}

// detailsOutput is the success payload of fetch_amazon_product_details: the
// product itself plus preview-capable references for each image URL.
type detailsOutput struct {
	rye.Product
	ImagePreviews []ImagePreview `json:"image_previews"`
}

// handleDetails implements the fetch_amazon_product_details tool.
func (t *Toolset) handleDetails(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args detailsArgs
	if fail := tools.ParseArgs(raw, &args); fail != nil {
		return fail
	}
	if args.ProductID == "" {
		return tools.Fail(tools.KindInvalidArgument, "product_id must not be empty", nil)
	}

	client, fail := t.client()
	if fail != nil {
		return fail
	}

	product, err := client.ProductByID(ctx, args.ProductID)
	if err != nil {
		return tools.ClassifyError(err)
	}

	previews := make([]ImagePreview, 0, len(product.Images))
	for _, img := range product.Images {
		if img.URL == "" {
			continue
		}
		previews = append(previews, ImagePreview{
			Type:     "image",
			URL:      img.URL,
			MIMEType: imageMIMEType(img.URL),
		})
	}
	return tools.OK(detailsOutput{Product: *product, ImagePreviews: previews})
}

// imageMIMEType guesses an image MIME type from the URL's file extension.
// Amazon image CDNs serve JPEG by default, so that is the fallback.
func imageMIMEType(rawURL string) string {
	ext := strings.ToLower(path.Ext(strings.SplitN(rawURL, "?", 2)[0]))
	switch ext {
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// Tools returns the catalog toolset ready for registration.
func (t *Toolset) Tools() []tools.Tool {
	return []tools.Tool{
		{
			Name:        "request_amazon_product_tracking",
			Description: "Requests Rye to start tracking an Amazon product by its URL and returns the Rye productId.",
			InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
				"product_url": tools.StringProp("Marketplace URL of the product to track."),
			}, "product_url"),
			Handler: t.handleTracking,
		},
		{
			Name:        "fetch_amazon_product_details",
			Description: "Fetch detailed info for an Amazon product already tracked in Rye using its productId / ASIN. Includes image_previews the agent can render.",
			InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
				"product_id": tools.StringProp("Rye product ID (ASIN) of the tracked product."),
			}, "product_id"),
			Handler: t.handleDetails,
		},
	}
}
