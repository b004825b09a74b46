package rye

import "encoding/json"

// Marketplace identifies the upstream marketplace a product belongs to.
// Only Amazon is wired today.
const MarketplaceAmazon = "AMAZON"

// Money is a monetary amount as returned by the Rye API. Value is expressed
// in minor units (cents); DisplayValue is the human-readable major-unit form.
type Money struct {
	Value        float64 `json:"value"`
	DisplayValue string  `json:"displayValue,omitempty"`
	Currency     string  `json:"currency"`
}

// Image is a product image reference.
type Image struct {
	URL string `json:"url"`
}

// Product is the detail payload for a tracked product.
type Product struct {
	ID          string  `json:"id,omitempty"`
	Title       string  `json:"title"`
	URL         string  `json:"url"`
	IsAvailable bool    `json:"isAvailable"`
	Price       *Money  `json:"price"`
	Images      []Image `json:"images"`
	ASIN        string  `json:"ASIN,omitempty"`
}

// CartLineProduct is the product summary embedded in a cart line.
type CartLineProduct struct {
	ID    string `json:"id"`
	Title string `json:"title"`
	Price *Money `json:"price,omitempty"`
}

// CartLine is one product-quantity pair within a store.
type CartLine struct {
	Quantity int             `json:"quantity"`
	Product  CartLineProduct `json:"product"`
}

// Store groups the cart lines of a single marketplace store together with
// any store-scoped errors the provider reported for it.
type Store struct {
	CartLines []CartLine    `json:"cartLines"`
	Errors    []ErrorDetail `json:"errors,omitempty"`
}

// CartCost is the cost breakdown of a cart. Any component may be nil when
// the provider has not computed it yet.
type CartCost struct {
	Subtotal    *Money `json:"subtotal"`
	Shipping    *Money `json:"shipping"`
	Tax         *Money `json:"tax"`
	Total       *Money `json:"total"`
	IsEstimated bool   `json:"isEstimated,omitempty"`
}

// Cart is the nested cart object shared by cart creation and retrieval.
type Cart struct {
	ID     string    `json:"id"`
	Cost   *CartCost `json:"cost"`
	Stores []Store   `json:"stores"`
}

// CreateCartPayload is the full createCart operation payload returned to the
// caller on success.
type CreateCartPayload struct {
	Cart   *Cart         `json:"cart"`
	Errors []ErrorDetail `json:"errors,omitempty"`
}

// ErrorDetail is a single operation- or store-level error entry in a Rye
// response.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// graphQLRequest is the JSON body of every Rye call.
type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

// envelope is the top-level GraphQL response wrapper.
type envelope struct {
	Data   json.RawMessage `json:"data"`
	Errors json.RawMessage `json:"errors"`
}

// response pairs the decoded envelope with the raw body so that malformed
// responses can surface the exact bytes received.
type response struct {
	body json.RawMessage
	data json.RawMessage
}
