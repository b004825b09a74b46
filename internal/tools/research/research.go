// Package research provides the research_products tool, backed by the
// Firecrawl search API.
package research

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/poltergeist-ai/poltergeist/internal/config"
	"github.com/poltergeist-ai/poltergeist/internal/tools"
	"github.com/poltergeist-ai/poltergeist/pkg/provider/search/firecrawl"
)

// resultLimit caps how many search results a single research call returns.
const resultLimit = 10

// Option is a functional option for configuring the Toolset.
type Option func(*Toolset)

// WithHTTPClient replaces the HTTP client used for search calls. Used by
// tests to count transport calls.
func WithHTTPClient(h *http.Client) Option {
	return func(t *Toolset) {
		t.httpClient = h
	}
}

// Toolset holds the configuration for the research tools.
type Toolset struct {
	cfg        *config.Config
	httpClient *http.Client
}

// New creates the research Toolset. Credentials are checked per invocation,
// not here, so a server without a search key still starts.
func New(cfg *config.Config, opts ...Option) *Toolset {
	t := &Toolset{cfg: cfg}
	for _, o := range opts {
		o(t)
	}
	return t
}

// researchArgs is the JSON-decoded input for the research_products tool.
type researchArgs struct {
	// Query is the free-text product search query.
	Query string `json:"query"`
}

// ResearchEntry is one normalized search result. Missing titles and URLs are
// substituted with "N/A"; missing snippets with the empty string.
type ResearchEntry struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// researchOutput is the success payload of research_products.
type researchOutput struct {
	Results []ResearchEntry `json:"results"`
}

// handleResearch implements the research_products tool.
func (t *Toolset) handleResearch(ctx context.Context, raw json.RawMessage) *tools.Result {
	var args researchArgs
	if fail := tools.ParseArgs(raw, &args); fail != nil {
		return fail
	}
	if args.Query == "" {
		return tools.Fail(tools.KindInvalidArgument, "query must not be empty", nil)
	}

	// Credential check first: no network activity without a key.
	if !t.cfg.HasSearchCredentials() {
		return tools.Failf(tools.KindConfigMissing, "%s not set", config.EnvSearchAPIKey)
	}

	opts := []firecrawl.Option{firecrawl.WithBaseURL(t.cfg.Search.BaseURL)}
	if t.httpClient != nil {
		opts = append(opts, firecrawl.WithHTTPClient(t.httpClient))
	}
	client, err := firecrawl.New(t.cfg.Search.APIKey, opts...)
	if err != nil {
		return tools.ClassifyError(err)
	}

	results, err := client.Search(ctx, args.Query, resultLimit)
	if err != nil {
		return tools.ClassifyError(err)
	}

	entries := make([]ResearchEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, ResearchEntry{
			Title:   orNA(r.Title),
			URL:     orNA(r.URL),
			Snippet: r.Description,
		})
	}
	return tools.OK(researchOutput{Results: entries})
}

// orNA substitutes "N/A" for a missing field value.
func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// Tools returns the research toolset ready for registration.
func (t *Toolset) Tools() []tools.Tool {
	return []tools.Tool{
		{
			Name:        "research_products",
			Description: "Researches products based on a query using Firecrawl and returns a list of results with title, url, and snippet.",
			InputSchema: tools.ObjectSchema(map[string]*jsonschema.Schema{
				"query": tools.StringProp("Free-text product search query."),
			}, "query"),
			Handler: t.handleResearch,
		},
	}
}
