package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/url"

	"github.com/poltergeist-ai/poltergeist/pkg/provider/commerce/rye"
	"github.com/poltergeist-ai/poltergeist/pkg/provider/datastore/supabase"
	"github.com/poltergeist-ai/poltergeist/pkg/provider/search/firecrawl"
)

// ClassifyError converts a typed provider error into the uniform failure
// taxonomy. All tool packages funnel upstream errors through this single
// routine so that the same logical failure always maps to the same
// [FailureKind] and detail shape, regardless of which operation produced it.
func ClassifyError(err error) *Result {
	// Transport-level failures: non-2xx statuses with raw bodies.
	var ryeHTTP *rye.HTTPError
	if errors.As(err, &ryeHTTP) {
		return Fail(KindTransportError,
			fmt.Sprintf("HTTP error %d from commerce provider", ryeHTTP.StatusCode),
			ryeHTTP.Body)
	}
	var fcHTTP *firecrawl.HTTPError
	if errors.As(err, &fcHTTP) {
		return Fail(KindTransportError,
			fmt.Sprintf("HTTP error %d from search provider", fcHTTP.StatusCode),
			fcHTTP.Body)
	}

	// Provider-reported error envelopes, details passed through verbatim.
	var gqlErr *rye.GraphQLError
	if errors.As(err, &gqlErr) {
		return Fail(KindProviderError, "GraphQL error from commerce provider", gqlErr.Errors)
	}
	var opErr *rye.OperationError
	if errors.As(err, &opErr) {
		return Fail(KindProviderError,
			fmt.Sprintf("error reported by %s operation", opErr.Op),
			opErr.Errors)
	}
	var storeErr *rye.StoreError
	if errors.As(err, &storeErr) {
		return Fail(KindProviderError,
			"store-level error reported during cart creation",
			map[string]any{
				"errors":                storeErr.Errors,
				"cart_details_received": storeErr.Cart,
			})
	}
	var apiErr *supabase.APIError
	if errors.As(err, &apiErr) {
		details := map[string]any{"message": apiErr.Message}
		if apiErr.Code != "" {
			details["code"] = apiErr.Code
		}
		if apiErr.Details != "" {
			details["details"] = apiErr.Details
		}
		if apiErr.Hint != "" {
			details["hint"] = apiErr.Hint
		}
		if apiErr.Message == "" {
			details["body"] = apiErr.Body
		}
		return Fail(KindProviderError, "datastore request failed", details)
	}

	// Successful-looking but semantically empty responses.
	var emptyCart *rye.EmptyCartError
	if errors.As(err, &emptyCart) {
		return Fail(KindMalformedResponse,
			"cart created but appears empty or item not added successfully",
			map[string]any{"cart_details_received": emptyCart.Cart})
	}
	var ryeMalformed *rye.MalformedError
	if errors.As(err, &ryeMalformed) {
		return Fail(KindMalformedResponse,
			fmt.Sprintf("%s not found in provider response", ryeMalformed.Missing),
			rawDetails(ryeMalformed.Raw))
	}
	var fcMalformed *firecrawl.MalformedError
	if errors.As(err, &fcMalformed) {
		return Fail(KindMalformedResponse,
			"unexpected format from search provider",
			rawDetails(fcMalformed.Raw))
	}

	// Network failures before any status was received count as transport;
	// everything else lands in the catch-all.
	var urlErr *url.Error
	var netErr net.Error
	if errors.As(err, &urlErr) || errors.As(err, &netErr) {
		return Fail(KindTransportError, err.Error(), nil)
	}
	return Fail(KindUnexpected, fmt.Sprintf("an unexpected error occurred: %v", err), nil)
}

// rawDetails passes a raw JSON payload through as details, falling back to a
// string when the bytes are not valid JSON.
func rawDetails(raw json.RawMessage) any {
	if json.Valid(raw) {
		return raw
	}
	return string(raw)
}
