// pkg/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure for all hosh roles. A single
// binary process loads one Config and starts only the sections of the
// system named by Roles.Run.
type Config struct {
	App       AppConfig       `koanf:"app"`
	Bind      BindConfig      `koanf:"bind"`
	HTTP      HTTPConfig      `koanf:"http"`
	Log       LogConfig       `koanf:"log"`
	Metrics   MetricsConfig   `koanf:"metrics"`
	Tracing   TracingConfig   `koanf:"tracing"`
	Store     StoreConfig     `koanf:"store"`
	Dispatch  DispatchConfig  `koanf:"dispatch"`
	Proxy     ProxyConfig     `koanf:"proxy"`
	Discovery DiscoveryConfig `koanf:"discovery"`
	Cache     CacheConfig     `koanf:"cache"`
	Roles     RolesConfig     `koanf:"roles"`
}

// AppConfig holds general application metadata.
type AppConfig struct {
	Name        string `koanf:"name"`
	Version     string `koanf:"version"`
	Environment string `koanf:"environment"` // development, staging, production
	Debug       bool   `koanf:"debug"`
}

// BindConfig is the listen address for the web role's HTTP server.
type BindConfig struct {
	Address string `koanf:"address"`
	Port    int    `koanf:"port"`
}

// Addr returns the host:port pair to pass to net.Listen.
func (b BindConfig) Addr() string {
	return fmt.Sprintf("%s:%d", b.Address, b.Port)
}

// HTTPConfig holds tuning for the web role's HTTP server.
type HTTPConfig struct {
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	CORS            CORSConfig    `koanf:"cors"`
}

// CORSConfig configures cross-origin access to the JSON API.
type CORSConfig struct {
	Enabled          bool     `koanf:"enabled"`
	AllowedOrigins   []string `koanf:"allowed_origins"`
	AllowedMethods   []string `koanf:"allowed_methods"`
	AllowedHeaders   []string `koanf:"allowed_headers"`
	AllowCredentials bool     `koanf:"allow_credentials"`
	MaxAge           int      `koanf:"max_age"`
}

// LogConfig configures the slog-based logger.
type LogConfig struct {
	Level      string `koanf:"level"`       // debug, info, warn, error
	Format     string `koanf:"format"`      // json, text
	Output     string `koanf:"output"`      // stdout, stderr, file
	FilePath   string `koanf:"file_path"`   // used when output=file
	MaxSize    int    `koanf:"max_size"`    // MB
	MaxBackups int    `koanf:"max_backups"` // rotated file count
	MaxAge     int    `koanf:"max_age"`     // days
	Compress   bool   `koanf:"compress"`
}

// MetricsConfig configures the Prometheus /metrics endpoint.
type MetricsConfig struct {
	Enabled   bool   `koanf:"enabled"`
	Port      int    `koanf:"port"`
	Path      string `koanf:"path"`
	Namespace string `koanf:"namespace"`
	Subsystem string `koanf:"subsystem"`
}

// TracingConfig configures the optional OpenTelemetry tracer.
type TracingConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	ServiceName string  `koanf:"service_name"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// StoreConfig holds the ClickHouse result store connection.
type StoreConfig struct {
	Host        string `koanf:"host"`
	Port        int    `koanf:"port"`
	User        string `koanf:"user"`
	Password    string `koanf:"password"`
	Database    string `koanf:"database"`
	AutoMigrate bool   `koanf:"auto_migrate"`
}

// DSN returns the ClickHouse native-protocol DSN accepted by
// clickhouse-go's database/sql driver.
func (s StoreConfig) DSN() string {
	return fmt.Sprintf(
		"clickhouse://%s:%s@%s:%d/%s",
		s.User, s.Password, s.Host, s.Port, s.Database,
	)
}

// DispatchConfig holds the Dispatch API's shared secret and limits.
type DispatchConfig struct {
	APIKey              string `koanf:"api_key"`
	WebAPIURL           string `koanf:"web_api_url"`
	MaxConcurrentChecks int    `koanf:"max_concurrent_checks"`
	ResultsWindowDays   int    `koanf:"results_window_days"`
}

// ProxyConfig holds the SOCKS5/Tor proxy used to reach .onion targets.
type ProxyConfig struct {
	SocksProxy   string `koanf:"socks_proxy"`
	TorProxyHost string `koanf:"tor_proxy_host"`
	TorProxyPort int    `koanf:"tor_proxy_port"`
}

// Address returns the proxy dial address, preferring the explicit
// SOCKS_PROXY value when set and falling back to TOR_PROXY_HOST:PORT.
func (p ProxyConfig) Address() string {
	if p.SocksProxy != "" {
		return p.SocksProxy
	}
	if p.TorProxyHost == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", p.TorProxyHost, p.TorProxyPort)
}

// DiscoveryConfig controls the seed-reconciliation loop's cadence.
type DiscoveryConfig struct {
	Interval time.Duration `koanf:"interval"`
}

// CacheConfig configures the render cache backend (redis or in-memory).
type CacheConfig struct {
	Enabled    bool          `koanf:"enabled"`
	Driver     string        `koanf:"driver"` // redis, memory
	Host       string        `koanf:"host"`
	Port       int           `koanf:"port"`
	Password   string        `koanf:"password"`
	DB         int           `koanf:"db"`
	DefaultTTL time.Duration `koanf:"default_ttl"`
	MaxEntries int           `koanf:"max_entries"` // for in-memory
}

// Address returns the cache backend's dial address.
func (c CacheConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RolesConfig selects which components this process runs.
type RolesConfig struct {
	// Run holds the comma-separated role list from --roles or RUN_MODE:
	// web, checker-btc, checker-zec, discovery, all.
	Run string `koanf:"run"`
}

// List splits Run into its individual role names, trimmed and lowercased.
func (r RolesConfig) List() []string {
	parts := strings.Split(r.Run, ",")
	roles := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(strings.ToLower(p))
		if p != "" {
			roles = append(roles, p)
		}
	}
	return roles
}

// Has reports whether the given role (or "all") was selected.
func (r RolesConfig) Has(role string) bool {
	for _, p := range r.List() {
		if p == "all" || p == role {
			return true
		}
	}
	return false
}

// Validate checks the configuration for fatal startup errors. A failure
// here means the process aborts with the message on stderr before any
// role starts (the "config" error kind in the error taxonomy).
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	if c.Bind.Port <= 0 || c.Bind.Port > 65535 {
		errs = append(errs, fmt.Sprintf("bind.port must be between 1 and 65535, got %d", c.Bind.Port))
	}

	if c.Store.Host == "" {
		errs = append(errs, "store.host (CLICKHOUSE_HOST) is required")
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[strings.ToLower(c.Log.Level)] {
		errs = append(errs, fmt.Sprintf("log.level must be one of: debug, info, warn, error, got %s", c.Log.Level))
	}

	if len(c.Roles.List()) == 0 {
		errs = append(errs, "roles.run (RUN_MODE/--roles) must name at least one role: web, checker-btc, checker-zec, discovery, all")
	}

	checkerSelected := c.Roles.Has("checker-btc") || c.Roles.Has("checker-zec") || c.Roles.Has("all")
	if checkerSelected {
		if c.Dispatch.APIKey == "" {
			errs = append(errs, "dispatch.api_key (API_KEY) is required for checker roles")
		}
		if c.Dispatch.WebAPIURL == "" {
			errs = append(errs, "dispatch.web_api_url (WEB_API_URL) is required for checker roles")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}

	return nil
}

// IsDevelopment reports whether the app is running in a development environment.
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development" || c.App.Environment == "dev"
}

// IsProduction reports whether the app is running in production.
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production" || c.App.Environment == "prod"
}
