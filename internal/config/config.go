// Package config provides the configuration schema and loader for the
// Poltergeist MCP server.
//
// Non-secret settings (listen address, log level, provider base URLs) come
// from an optional YAML file. Credentials are read once at startup from the
// process environment (with optional .env support) and overlaid onto the
// loaded Config. The resulting Config is immutable and passed explicitly to
// every toolset, so tools never touch the environment themselves.
package config

// LogLevel controls log verbosity for the Poltergeist server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Poltergeist.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader]
// and completed with [ApplyEnv].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Search    SearchConfig    `yaml:"search"`
	Commerce  CommerceConfig  `yaml:"commerce"`
	Datastore DatastoreConfig `yaml:"datastore"`
}

// ServerConfig holds network and logging settings for the Poltergeist server.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8000").
	ListenAddr string `yaml:"listen_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`

	// MCPPath is the URL path the MCP streamable-HTTP endpoint is mounted at.
	MCPPath string `yaml:"mcp_path"`
}

// SearchConfig configures the Firecrawl product-search provider.
type SearchConfig struct {
	// BaseURL overrides the Firecrawl API endpoint.
	// Leave empty to use the public default.
	BaseURL string `yaml:"base_url"`

	// APIKey authenticates against Firecrawl. Populated from the
	// FIRECRAWL_API_KEY environment variable; never set via YAML.
	APIKey string `yaml:"-"`
}

// CommerceConfig configures the Rye commerce GraphQL provider.
type CommerceConfig struct {
	// Endpoint is the Rye GraphQL query endpoint.
	// Leave empty to use the staging default.
	Endpoint string `yaml:"endpoint"`

	// AuthHeader is the full Authorization header value for Rye.
	// Populated from RYE_AUTH_HEADER; never set via YAML.
	AuthHeader string `yaml:"-"`

	// ShopperIP is the value of the Rye-Shopper-IP header.
	// Populated from RYE_SHOPPER_IP; never set via YAML.
	ShopperIP string `yaml:"-"`
}

// DatastoreConfig configures the Supabase PostgREST datastore used for order
// history and spending limits.
type DatastoreConfig struct {
	// URL is the Supabase project URL. Populated from SUPABASE_URL.
	URL string `yaml:"-"`

	// ServiceRoleKey is the Supabase service-role key.
	// Populated from SUPABASE_SERVICE_ROLE_KEY.
	ServiceRoleKey string `yaml:"-"`
}

// HasSearchCredentials reports whether the search provider is usable.
func (c *Config) HasSearchCredentials() bool {
	return c.Search.APIKey != ""
}

// HasCommerceCredentials reports whether the commerce provider is usable.
func (c *Config) HasCommerceCredentials() bool {
	return c.Commerce.AuthHeader != "" && c.Commerce.ShopperIP != ""
}

// HasDatastoreCredentials reports whether the datastore is usable.
func (c *Config) HasDatastoreCredentials() bool {
	return c.Datastore.URL != "" && c.Datastore.ServiceRoleKey != ""
}
