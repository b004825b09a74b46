// Package checkout provides the order recording tools. Checkout is
// record-only: it snapshots the cart from Rye and persists an order row in
// the Supabase "orders" table without executing a payment transaction.
package checkout

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"

	"github.com/poltergeist-ai/poltergeist/internal/config"
	"github.com/poltergeist-ai/poltergeist/internal/tools"
	"github.com/poltergeist-ai/poltergeist/pkg/provider/commerce/rye"
	"github.com/poltergeist-ai/poltergeist/pkg/provider/datastore/supabase"
)

const (
	ordersTable = "orders"

	// statusCreated is the lifecycle state of a freshly recorded order.
	// No payment has been executed for it.
	statusCreated = "CREATED"

	defaultPurchaseLimit = 10
)

var validate = validator.New()

// Option is a functional option for configuring the Toolset.
type Option func(*Toolset)

// WithHTTPClient replaces the HTTP client used for both commerce and
// datastore calls.
func WithHTTPClient(h *http.Client) Option {
	return func(t *Toolset) {
		t.commerceHTTP = h
		t.datastoreHTTP = h
	}
}

// WithCommerceHTTPClient replaces only the commerce HTTP client.
func WithCommerceHTTPClient(h *http.Client) Option {
	return func(t *Toolset) {
		t.commerceHTTP = h
	}
}

// WithDatastoreHTTPClient replaces only the datastore HTTP client.
func WithDatastoreHTTPClient(h *http.Client) Option {
	return func(t *Toolset) {
		t.datastoreHTTP = h
	}
}

// Toolset holds the configuration for the checkout tools. The two upstream
// clients are separate so each can carry its own instrumentation.
type Toolset struct {
	cfg           *config.Config
	commerceHTTP  *http.Client
	datastoreHTTP *http.Client
}

// New creates the checkout Toolset.
func New(cfg *config.Config, opts ...Option) *Toolset {
	t := &Toolset{cfg: cfg}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Toolset) commerceClient() (*rye.Client, *tools.Result) {
	if !t.cfg.HasCommerceCredentials() {
		return nil, tools.Failf(tools.KindConfigMissing,
			"%s or %s not set in environment variables",
			config.EnvCommerceAuthHeader, config.EnvCommerceShopperIP)
	}
	opts := []rye.Option{rye.WithEndpoint(t.cfg.Commerce.Endpoint)}
	if t.commerceHTTP != nil {
		opts = append(opts, rye.WithHTTPClient(t.commerceHTTP))
	}
	client, err := rye.New(t.cfg.Commerce.AuthHeader, t.cfg.Commerce.ShopperIP, opts...)
	if err != nil {
		return nil, tools.ClassifyError(err)
	}
	return client, nil
}

func (t *Toolset) datastoreClient() (*supabase.Client, *tools.Result) {
	if !t.cfg.HasDatastoreCredentials() {
		return nil, tools.Failf(tools.KindConfigMissing,
			"%s or %s not set in environment variables",
			config.EnvDatastoreURL, config.EnvDatastoreServiceRoleKey)
	}
	var opts []supabase.Option
	if t.datastoreHTTP != nil {
		opts = append(opts, supabase.WithHTTPClient(t.datastoreHTTP))
	}
	client, err := supabase.New(t.cfg.Datastore.URL, t.cfg.Datastore.ServiceRoleKey, opts...)
	if err != nil {
		return nil, tools.ClassifyError(err)
	}
	return client, nil
}

// BuyerInfo identifies the buyer recording the checkout. Only the email is
// required; it doubles as the user identifier on the stored order.
type BuyerInfo struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
}

// checkoutArgs is the JSON-decoded input for checkout_amazon_cart.
type checkoutArgs struct {
	CartID    string    `json:"cart_id"`
	BuyerInfo BuyerInfo `json:"buyer_info"`
}

// ItemSnapshot is one flattened cart line persisted with the order.
type ItemSnapshot struct {
	ProductID     string   `json:"productId"`
	Title         string   `json:"title"`
	Quantity      int      `json:"quantity"`
	PriceValue    *float64 `json:"price_value"`
	PriceCurrency string   `json:"price_currency,omitempty"`
}

// OrderRow is the record inserted into the orders table. Its fields map
// one to one onto the table columns; PostgREST rejects insert bodies naming
// columns the table does not have.
type OrderRow struct {
	RyeOrderID          *string        `json:"rye_order_id"`
	RyeCartID           string         `json:"rye_cart_id"`
	UserIdentifier      string         `json:"user_identifier"`
	Status              string         `json:"status"`
	TotalAmountValue    float64        `json:"total_amount_value"`
	TotalAmountCurrency string         `json:"total_amount_currency"`
	ItemsSnapshot       []ItemSnapshot `json:"items_snapshot"`
}

// checkoutOutput is the success payload of checkout_amazon_cart. OrderRef
// is a client-side receipt reference; it is returned to the caller but not
// persisted with the order row.
type checkoutOutput struct {
	OrderRef  string          `json:"order_ref"`
	OrderData OrderRow        `json:"order_data"`
	Inserted  json.RawMessage `json:"supabase_insert"`
}

// handleCheckout implements the checkout_amazon_cart tool. The cart read
// strictly precedes the datastore insert so that a failed snapshot never
// produces a partial order record.
func (t *Toolset) handleCheckout(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args checkoutArgs
	if fail := tools.ParseArgs(raw, &args); fail != nil {
		return fail
	}
	if args.CartID == "" {
		return tools.Fail(tools.KindInvalidArgument, "cart_id must not be empty", nil)
	}
	if err := validate.Struct(args.BuyerInfo); err != nil {
		return tools.Fail(tools.KindInvalidArgument,
			"buyer_info must include a valid email", err.Error())
	}

	store, fail := t.datastoreClient()
	if fail != nil {
		return fail
	}
	commerce, fail := t.commerceClient()
	if fail != nil {
		return fail
	}

	cart, err := commerce.GetCart(ctx, args.CartID)
	if err != nil {
		return tools.ClassifyError(err)
	}

	totalValue, totalCurrency, fail := cartTotal(cart.Cost)
	if fail != nil {
		return fail
	}

	row := OrderRow{
		RyeCartID:           args.CartID,
		UserIdentifier:      args.BuyerInfo.Email,
		Status:              statusCreated,
		TotalAmountValue:    totalValue,
		TotalAmountCurrency: totalCurrency,
		ItemsSnapshot:       itemsSnapshot(cart.Stores),
	}

	inserted, err := store.Insert(ctx, ordersTable, row)
	if err != nil {
		return tools.Fail(tools.KindProviderError, "datastore insert failed", map[string]any{
			"error":      err.Error(),
			"order_data": row,
		})
	}
	return tools.OK(checkoutOutput{
		OrderRef:  uuid.NewString(),
		OrderData: row,
		Inserted:  inserted,
	})
}

// cartTotal sums the cost components, converting minor units to the major
// currency unit. A currency mismatch across components is rejected rather
// than silently recorded with the wrong currency.
func cartTotal(cost *rye.CartCost) (float64, string, *tools.Result) {
	var minor float64
	var currency string
	if cost == nil {
		return 0, "", nil
	}
	for _, m := range []*rye.Money{cost.Subtotal, cost.Shipping, cost.Tax} {
		if m == nil {
			continue
		}
		minor += m.Value
		if m.Currency == "" {
			continue
		}
		if currency == "" {
			currency = m.Currency
		} else if currency != m.Currency {
			return 0, "", tools.Fail(tools.KindMalformedResponse,
				"cart cost components report inconsistent currencies",
				map[string]any{"currencies": []string{currency, m.Currency}})
		}
	}
	return minor / 100, currency, nil
}

// itemsSnapshot flattens every store's cart lines into order line items.
func itemsSnapshot(stores []rye.Store) []ItemSnapshot {
	items := make([]ItemSnapshot, 0)
	for _, store := range stores {
		for _, line := range store.CartLines {
			item := ItemSnapshot{
				ProductID: line.Product.ID,
				Title:     line.Product.Title,
				Quantity:  line.Quantity,
			}
			if line.Product.Price != nil {
				v := line.Product.Price.Value
				item.PriceValue = &v
				item.PriceCurrency = line.Product.Price.Currency
			}
			items = append(items, item)
		}
	}
	return items
}

// purchasesArgs is the JSON-decoded input for list_my_purchases.
type purchasesArgs struct {
	Limit int `json:"limit"`
}

// purchasesOutput is the success payload of list_my_purchases.
type purchasesOutput struct {
	Orders json.RawMessage `json:"orders"`
}

// handlePurchases implements the list_my_purchases tool.
func (t *Toolset) handlePurchases(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args purchasesArgs
	if fail := tools.ParseArgs(raw, &args); fail != nil {
		return fail
	}
	if args.Limit == 0 {
		args.Limit = defaultPurchaseLimit
	}
	if args.Limit < 0 {
		return tools.Fail(tools.KindInvalidArgument, "limit must be positive", nil)
	}

	store, fail := t.datastoreClient()
	if fail != nil {
		return fail
	}

	rows, err := store.Select(ctx, ordersTable, supabase.Query{
		OrderBy:    "ordered_at",
		Descending: true,
		Limit:      args.Limit,
	})
	if err != nil {
		return tools.ClassifyError(err)
	}
	if len(rows) == 0 || string(rows) == "null" {
		rows = json.RawMessage("[]")
	}
	return tools.OK(purchasesOutput{Orders: rows})
}

// Tools returns the checkout toolset ready for registration.
func (t *Toolset) Tools() []tools.Tool {
	return []tools.Tool{
		{
			Name:        "checkout_amazon_cart",
			Description: "Records a checkout event for a Rye cart in the order store without executing a payment. buyer_info must include at least an email.",
			InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
				"cart_id": tools.StringProp("ID of the Rye cart to record the checkout for."),
				"buyer_info": {
					Type:        "object",
					Description: "Buyer identification. email is required and becomes the order's user identifier.",
					Properties: map[string]*jsonschema.Schema{
						"email":      tools.StringProp("Buyer email address."),
						"first_name": tools.StringProp("Buyer first name."),
						"last_name":  tools.StringProp("Buyer last name."),
					},
					Required: []string{"email"},
				},
			}, "cart_id", "buyer_info"),
			Handler: t.handleCheckout,
		},
		{
			Name:        "list_my_purchases",
			Description: "Fetches the latest recorded purchases from the order store, newest first.",
			InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
				"limit": tools.IntProp("Maximum number of orders to return. Defaults to 10."),
			}),
			Handler: t.handlePurchases,
		},
	}
}
