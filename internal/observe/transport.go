package observe

import (
	"fmt"
	"net/http"
	"time"
)

// providerTimeout bounds a single upstream call. It matches the budget the
// provider clients apply when no client is injected.
const providerTimeout = 30 * time.Second

// ProviderTransport is an [http.RoundTripper] that counts every upstream
// provider call on [Metrics.ProviderRequests] and failures on
// [Metrics.ProviderErrors]. Status codes are folded into their class to keep
// metric cardinality low.
type ProviderTransport struct {
	// Provider labels the upstream service (e.g. "rye", "supabase").
	Provider string

	// Metrics receives the counts. Must not be nil.
	Metrics *Metrics

	// Base performs the actual round trip. Defaults to [http.DefaultTransport].
	Base http.RoundTripper
}

// RoundTrip implements [http.RoundTripper].
func (t *ProviderTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	ctx := req.Context()

	resp, err := base.RoundTrip(req)
	if err != nil {
		t.Metrics.RecordProviderRequest(ctx, t.Provider, "error")
		t.Metrics.RecordProviderError(ctx, t.Provider)
		return nil, err
	}

	t.Metrics.RecordProviderRequest(ctx, t.Provider, statusClass(resp.StatusCode))
	if resp.StatusCode >= 400 {
		t.Metrics.RecordProviderError(ctx, t.Provider)
	}
	return resp, nil
}

// statusClass folds an HTTP status code into "2xx", "4xx" and friends.
func statusClass(code int) string {
	return fmt.Sprintf("%dxx", code/100)
}

// ProviderHTTPClient returns an [http.Client] whose transport records
// request and error counts for the named provider against m.
func ProviderHTTPClient(provider string, m *Metrics) *http.Client {
	return &http.Client{
		Timeout:   providerTimeout,
		Transport: &ProviderTransport{Provider: provider, Metrics: m},
	}
}
