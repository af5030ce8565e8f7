// pkg/config/loader.go
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const configEnvVar = "CONFIG_PATH"

// envAliases maps the exact environment variable names named by the
// external interface to their koanf key path. Unlike a stripped-prefix
// scheme, every var here is spelled exactly as an operator sets it.
var envAliases = map[string]string{
	"CLICKHOUSE_HOST":        "store.host",
	"CLICKHOUSE_PORT":        "store.port",
	"CLICKHOUSE_USER":        "store.user",
	"CLICKHOUSE_PASSWORD":    "store.password",
	"CLICKHOUSE_DB":          "store.database",
	"CLICKHOUSE_AUTO_MIGRATE": "store.auto_migrate",
	"API_KEY":                "dispatch.api_key",
	"WEB_API_URL":            "dispatch.web_api_url",
	"MAX_CONCURRENT_CHECKS":  "dispatch.max_concurrent_checks",
	"RESULTS_WINDOW_DAYS":    "dispatch.results_window_days",
	"BIND_ADDRESS":           "bind.address",
	"BIND_PORT":              "bind.port",
	"SOCKS_PROXY":            "proxy.socks_proxy",
	"TOR_PROXY_HOST":         "proxy.tor_proxy_host",
	"TOR_PROXY_PORT":         "proxy.tor_proxy_port",
	"DISCOVERY_INTERVAL":     "discovery.interval",
	"RUN_MODE":               "roles.run",
	"APP_ENVIRONMENT":        "app.environment",
	"LOG_LEVEL":              "log.level",
	"LOG_FORMAT":             "log.format",
	"METRICS_ENABLED":        "metrics.enabled",
	"TRACING_ENABLED":        "tracing.enabled",
	"TRACING_ENDPOINT":       "tracing.endpoint",
	"CACHE_DRIVER":           "cache.driver",
	"CACHE_HOST":             "cache.host",
	"CACHE_PORT":             "cache.port",
}

// Loader loads configuration from defaults, an optional YAML file, and
// environment variables, in that order of increasing precedence.
type Loader struct {
	k           *koanf.Koanf
	configPaths []string
}

// NewLoader creates a new configuration loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		k: koanf.New("."),
		configPaths: []string{
			"config.yaml",
			"config/config.yaml",
			"/etc/hosh/config.yaml",
		},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithConfigPaths sets the paths searched for a YAML config file.
func WithConfigPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.configPaths = paths
	}
}

// Load loads configuration with precedence:
// 1. Defaults (lowest)
// 2. Config file (YAML)
// 3. Environment variables (highest)
func (l *Loader) Load() (*Config, error) {
	if err := l.loadDefaults(); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if err := l.loadConfigFile(); err != nil {
		// A config file is optional; missing is not fatal.
		fmt.Printf("Warning: %v\n", err)
	}

	if err := l.loadEnv(); err != nil {
		return nil, fmt.Errorf("failed to load env: %w", err)
	}

	var cfg Config
	if err := l.k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// loadDefaults loads the built-in default values.
func (l *Loader) loadDefaults() error {
	defaults := map[string]any{
		// App
		"app.name":        "hosh",
		"app.version":     "dev",
		"app.environment": "development",
		"app.debug":       false,

		// Bind
		"bind.address": "0.0.0.0",
		"bind.port":    8080,

		// HTTP
		"http.read_timeout":           30 * time.Second,
		"http.write_timeout":          30 * time.Second,
		"http.shutdown_timeout":       10 * time.Second,
		"http.cors.enabled":           true,
		"http.cors.allowed_origins":   []string{"*"},
		"http.cors.allowed_methods":   []string{"GET", "POST", "OPTIONS"},
		"http.cors.allowed_headers":   []string{"*"},
		"http.cors.allow_credentials": false,
		"http.cors.max_age":           86400,

		// Log
		"log.level":       "info",
		"log.format":      "json",
		"log.output":      "stdout",
		"log.max_size":    100,
		"log.max_backups": 3,
		"log.max_age":     7,
		"log.compress":    true,

		// Metrics
		"metrics.enabled":   true,
		"metrics.port":      9090,
		"metrics.path":      "/metrics",
		"metrics.namespace": "hosh",
		"metrics.subsystem": "",

		// Tracing
		"tracing.enabled":      false,
		"tracing.endpoint":     "localhost:4317",
		"tracing.service_name": "hosh",
		"tracing.sample_rate":  0.1,

		// Store (ClickHouse)
		"store.host":     "localhost",
		"store.port":     9000,
		"store.user":     "default",
		"store.password": "",
		"store.database": "hosh",
		"store.auto_migrate": true,

		// Dispatch
		"dispatch.api_key":                "",
		"dispatch.web_api_url":            "http://localhost:8080",
		"dispatch.max_concurrent_checks":  10,
		"dispatch.results_window_days":    30,

		// Proxy
		"proxy.socks_proxy":    "",
		"proxy.tor_proxy_host": "",
		"proxy.tor_proxy_port": 9050,

		// Discovery
		"discovery.interval": time.Hour,

		// Cache
		"cache.enabled":     true,
		"cache.driver":      "memory",
		"cache.host":        "localhost",
		"cache.port":        6379,
		"cache.db":          0,
		"cache.default_ttl": 10 * time.Second,
		"cache.max_entries": 10000,

		// Roles
		"roles.run": "all",
	}

	return l.k.Load(confmap.Provider(defaults, "."), nil)
}

// loadConfigFile loads configuration from a YAML file, if one is found.
func (l *Loader) loadConfigFile() error {
	if configPath := os.Getenv(configEnvVar); configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return l.k.Load(file.Provider(configPath), yaml.Parser())
		}
	}

	for _, path := range l.configPaths {
		absPath, err := filepath.Abs(path)
		if err != nil {
			continue
		}

		if _, err := os.Stat(absPath); err == nil {
			return l.k.Load(file.Provider(absPath), yaml.Parser())
		}
	}

	return fmt.Errorf("config file not found in paths: %v", l.configPaths)
}

// loadEnv loads configuration from the environment variables named in
// the external interface, via the explicit envAliases table.
func (l *Loader) loadEnv() error {
	return l.k.Load(env.Provider("", ".", func(s string) string {
		// Unknown env vars are dropped rather than guessed at — the
		// external interface is a fixed, named list.
		return envAliases[s]
	}), nil)
}

// MustLoad loads configuration or panics.
func MustLoad(opts ...LoaderOption) *Config {
	cfg, err := NewLoader(opts...).Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// Load is a convenience function that loads configuration with defaults.
func Load() (*Config, error) {
	return NewLoader().Load()
}
