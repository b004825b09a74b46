// Package spending provides the daily spending guardrail tools: setting a
// per-user limit and reporting how much of today's budget is already spent.
package spending

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/poltergeist-ai/poltergeist/internal/config"
	"github.com/poltergeist-ai/poltergeist/internal/tools"
	"github.com/poltergeist-ai/poltergeist/pkg/provider/datastore/supabase"
)

const (
	limitsTable = "spending_limits"
	ordersTable = "orders"

	// noLimitSentinel stands in for "no limit configured". Large enough that
	// any realistic spend stays clear of the advisory boundaries.
	noLimitSentinel = 1e30
)

// Option is a functional option for configuring the Toolset.
type Option func(*Toolset)

// WithHTTPClient replaces the HTTP client used for datastore calls.
func WithHTTPClient(h *http.Client) Option {
	return func(t *Toolset) {
		t.httpClient = h
	}
}

// Toolset holds the configuration for the spending tools.
type Toolset struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates the spending Toolset.
func New(cfg *config.Config, opts ...Option) *Toolset {
	t := &Toolset{cfg: cfg}
	for _, o := range opts {
		o(t)
	}
	return t
}

func (t *Toolset) client() (*supabase.Client, *tools.Result) {
	if !t.cfg.HasDatastoreCredentials() {
		return nil, tools.Failf(tools.KindConfigMissing,
			"%s or %s not set in environment variables",
			config.EnvDatastoreURL, config.EnvDatastoreServiceRoleKey)
	}
	var opts []supabase.Option
	if t.httpClient != nil {
		opts = append(opts, supabase.WithHTTPClient(t.httpClient))
	}
	client, err := supabase.New(t.cfg.Datastore.URL, t.cfg.Datastore.ServiceRoleKey, opts...)
	if err != nil {
		return nil, tools.ClassifyError(err)
	}
	return client, nil
}

// limitRow is the spending_limits table schema.
type limitRow struct {
	UserIdentifier string  `json:"user_identifier"`
	LimitValue     float64 `json:"limit_value"`
}

// setLimitArgs is the JSON-decoded input for set_spending_limit.
type setLimitArgs struct {
	UserIdentifier string  `json:"user_identifier"`
	LimitValue     float64 `json:"limit_value"`
}

// setLimitOutput is the success payload of set_spending_limit.
type setLimitOutput struct {
	Message string `json:"message"`
}

// handleSetLimit implements the set_spending_limit tool.
func (t *Toolset) handleSetLimit(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args setLimitArgs
	if fail := tools.ParseArgs(raw, &args); fail != nil {
		return fail
	}
	if args.UserIdentifier == "" {
		return tools.Fail(tools.KindInvalidArgument, "user_identifier must not be empty", nil)
	}
	if args.LimitValue < 0 {
		return tools.Fail(tools.KindInvalidArgument, "limit_value must not be negative", nil)
	}

	client, fail := t.client()
	if fail != nil {
		return fail
	}

	row := limitRow{UserIdentifier: args.UserIdentifier, LimitValue: args.LimitValue}
	if _, err := client.Upsert(ctx, limitsTable, row, "user_identifier"); err != nil {
		return tools.ClassifyError(err)
	}
	return tools.OK(setLimitOutput{
		Message: fmt.Sprintf("Spending limit set to %v for %s.", args.LimitValue, args.UserIdentifier),
	})
}

// statusArgs is the JSON-decoded input for get_spending_status.
type statusArgs struct {
	UserIdentifier string `json:"user_identifier"`
}

// orderToday is the projection read from today's orders.
type orderToday struct {
	TotalAmountValue    float64 `json:"total_amount_value"`
	TotalAmountCurrency string  `json:"total_amount_currency"`
	CreatedAt           string  `json:"created_at"`
}

// statusOutput is the success payload of get_spending_status.
type statusOutput struct {
	SpendingLimit     float64      `json:"spending_limit"`
	TotalSpentToday   float64      `json:"total_spent_today"`
	RemainingLimit    float64      `json:"remaining_limit"`
	TransactionsToday []orderToday `json:"transactions_today"`
	Advice            string       `json:"advice"`
}

// handleStatus implements the get_spending_status tool.
func (t *Toolset) handleStatus(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args statusArgs
	if fail := tools.ParseArgs(raw, &args); fail != nil {
		return fail
	}
	if args.UserIdentifier == "" {
		return tools.Fail(tools.KindInvalidArgument, "user_identifier must not be empty", nil)
	}

	client, fail := t.client()
	if fail != nil {
		return fail
	}

	limitValue, fail := t.fetchLimit(ctx, client, args.UserIdentifier)
	if fail != nil {
		return fail
	}

	rows, err := client.Select(ctx, ordersTable, supabase.Query{
		Columns: "total_amount_value,total_amount_currency,created_at",
		Filters: []supabase.Filter{
			{Column: "user_identifier", Op: "eq", Value: args.UserIdentifier},
			{Column: "created_at", Op: "gte", Value: dayStart(time.Now()).Format(time.RFC3339)},
		},
	})
	if err != nil {
		return tools.ClassifyError(err)
	}
	var today []orderToday
	if len(rows) > 0 && string(rows) != "null" {
		if err := json.Unmarshal(rows, &today); err != nil {
			return tools.Fail(tools.KindMalformedResponse, "orders query returned an unreadable row set", string(rows))
		}
	}
	if today == nil {
		today = []orderToday{}
	}

	var spent float64
	for _, o := range today {
		spent += o.TotalAmountValue
	}

	return tools.OK(statusOutput{
		SpendingLimit:     limitValue,
		TotalSpentToday:   spent,
		RemainingLimit:    limitValue - spent,
		TransactionsToday: today,
		Advice:            advise(spent, limitValue),
	})
}

// fetchLimit reads the user's configured limit, falling back to the sentinel
// when no row exists.
func (t *Toolset) fetchLimit(ctx context.Context, client *supabase.Client, user string) (float64, *tools.Result) {
	rows, err := client.Select(ctx, limitsTable, supabase.Query{
		Columns: "limit_value",
		Filters: []supabase.Filter{{Column: "user_identifier", Op: "eq", Value: user}},
	})
	if err != nil {
		return 0, tools.ClassifyError(err)
	}
	var limits []struct {
		LimitValue float64 `json:"limit_value"`
	}
	if len(rows) > 0 && string(rows) != "null" {
		if err := json.Unmarshal(rows, &limits); err != nil {
			return 0, tools.Fail(tools.KindMalformedResponse, "spending limit query returned an unreadable row set", string(rows))
		}
	}
	if len(limits) == 0 {
		return noLimitSentinel, nil
	}
	return limits[0].LimitValue, nil
}

// dayStart truncates a time to midnight UTC of the same day.
func dayStart(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// advise returns the advisory message for the given spend against the limit.
// Both boundaries are inclusive.
func advise(spent, limit float64) string {
	switch {
	case spent >= limit:
		return "Whoa, you've hit or exceeded your daily spending limit! Time for some anti-retail therapy 🍵."
	case spent >= 0.9*limit:
		return "You're getting close to your daily limit—maybe take a breath before splurging more."
	default:
		return "All clear! You have room to spend today."
	}
}

// Tools returns the spending toolset ready for registration.
func (t *Toolset) Tools() []tools.Tool {
	return []tools.Tool{
		{
			Name:        "set_spending_limit",
			Description: "Sets the daily spending limit for a user, replacing any existing limit.",
			InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
				"user_identifier": tools.StringProp("Identifier of the user the limit applies to."),
				"limit_value":     tools.NumberProp("Daily spending limit in major currency units."),
			}, "user_identifier", "limit_value"),
			Handler: t.handleSetLimit,
		},
		{
			Name:        "get_spending_status",
			Description: "Reports the user's daily spending limit, today's total spend, remaining budget and an advisory message.",
			InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
				"user_identifier": tools.StringProp("Identifier of the user to report on."),
			}, "user_identifier"),
			Handler: t.handleStatus,
		},
	}
}
