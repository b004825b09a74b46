package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied by [Load] when the YAML file omits a value.
const (
	DefaultListenAddr = ":8000"
	DefaultMCPPath    = "/poltergeist_mcp"

	// DefaultSearchBaseURL is the public Firecrawl API root.
	DefaultSearchBaseURL = "https://api.firecrawl.dev"

	// DefaultCommerceEndpoint is the Rye staging GraphQL endpoint, matching
	// the environment the shopper credentials are issued for.
	DefaultCommerceEndpoint = "https://staging.graphql.api.rye.com/v1/query"
)

// Environment variable names for credentials.
const (
	EnvSearchAPIKey            = "FIRECRAWL_API_KEY"
	EnvCommerceAuthHeader      = "RYE_AUTH_HEADER"
	EnvCommerceShopperIP       = "RYE_SHOPPER_IP"
	EnvDatastoreURL            = "SUPABASE_URL"
	EnvDatastoreServiceRoleKey = "SUPABASE_SERVICE_ROLE_KEY"
)

// Load reads the YAML configuration file at path, applies defaults, overlays
// credentials from the process environment, and validates the result.
//
// A missing file is not an error: the server can run entirely from defaults
// and environment variables. An optional .env file in the working directory
// is loaded first (ignored when absent), matching local-development setups.
func Load(path string) (*Config, error) {
	// Best effort; a missing .env simply means the real environment is used.
	_ = godotenv.Load()

	cfg := &Config{}
	f, err := os.Open(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	default:
		defer f.Close()
		cfg, err = LoadFromReader(f)
		if err != nil {
			return nil, fmt.Errorf("config: parse %q: %w", path, err)
		}
	}

	applyDefaults(cfg)
	ApplyEnv(cfg, os.Getenv)

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r. Useful in tests where configs
// are constructed from string literals. Defaults and environment overlays are
// NOT applied; callers combine with [ApplyEnv] and [Validate] as needed.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	return cfg, nil
}

// ApplyEnv overlays credentials from getenv onto cfg. Passing a custom getenv
// allows deterministic substitution in tests without mutating the process
// environment.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	cfg.Search.APIKey = getenv(EnvSearchAPIKey)
	cfg.Commerce.AuthHeader = getenv(EnvCommerceAuthHeader)
	cfg.Commerce.ShopperIP = getenv(EnvCommerceShopperIP)
	cfg.Datastore.URL = strings.TrimRight(getenv(EnvDatastoreURL), "/")
	cfg.Datastore.ServiceRoleKey = getenv(EnvDatastoreServiceRoleKey)
}

// applyDefaults fills in zero-valued settings.
func applyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.MCPPath == "" {
		cfg.Server.MCPPath = DefaultMCPPath
	}
	if cfg.Search.BaseURL == "" {
		cfg.Search.BaseURL = DefaultSearchBaseURL
	}
	if cfg.Commerce.Endpoint == "" {
		cfg.Commerce.Endpoint = DefaultCommerceEndpoint
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MCPPath != "" && !strings.HasPrefix(cfg.Server.MCPPath, "/") {
		errs = append(errs, fmt.Errorf("server.mcp_path %q must start with /", cfg.Server.MCPPath))
	}
	if cfg.Search.BaseURL != "" && !isHTTPURL(cfg.Search.BaseURL) {
		errs = append(errs, fmt.Errorf("search.base_url %q must be an http(s) URL", cfg.Search.BaseURL))
	}
	if cfg.Commerce.Endpoint != "" && !isHTTPURL(cfg.Commerce.Endpoint) {
		errs = append(errs, fmt.Errorf("commerce.endpoint %q must be an http(s) URL", cfg.Commerce.Endpoint))
	}
	if cfg.Datastore.URL != "" && !isHTTPURL(cfg.Datastore.URL) {
		errs = append(errs, fmt.Errorf("datastore url %q must be an http(s) URL", cfg.Datastore.URL))
	}

	return errors.Join(errs...)
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
