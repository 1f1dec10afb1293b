// Package config loads gateway configuration.
//
// DESIGN: Configuration comes from three layers, later layers winning:
//  1. Built-in defaults (defaults.go, per-provider)
//  2. An optional YAML file (--config)
//  3. Environment variables (PROVIDER, UPSTREAM_API_KEY, ...)
//
// A missing upstream API key is a fatal configuration error surfaced by
// Validate(), never a retryable condition.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete gateway configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Upstream   UpstreamConfig   `yaml:"upstream"`
	Access     AccessConfig     `yaml:"access"`
	Monitoring MonitoringConfig `yaml:"monitoring"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// UpstreamConfig identifies the single upstream provider for this deployment.
type UpstreamConfig struct {
	// Provider selects the wire format: "openai" (default) or "anthropic".
	Provider string `yaml:"provider"`
	// BaseURL overrides the provider's default endpoint, e.g. for
	// OpenAI-compatible servers.
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	// MaxOutputTokens is sent on every call. Zero means the default ceiling.
	MaxOutputTokens int           `yaml:"max_output_tokens"`
	Timeout         time.Duration `yaml:"timeout"`
}

// AccessConfig holds the shared-secret access policy.
type AccessConfig struct {
	// Password is the shared secret. Empty means an open deployment where
	// every caller is valid but none is quota-exempt.
	Password string `yaml:"password"`
}

// MonitoringConfig holds observability settings.
type MonitoringConfig struct {
	// TelemetryPath is the SQLite file for per-request telemetry rows.
	// Empty disables persistence.
	TelemetryPath string `yaml:"telemetry_path"`
	Debug         bool   `yaml:"debug"`
}

// Default returns a Config populated with built-in defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         DefaultPort,
			ReadTimeout:  DefaultServerReadTimeout,
			WriteTimeout: DefaultServerWriteTimeout,
		},
		Upstream: UpstreamConfig{
			Provider:        "openai",
			MaxOutputTokens: DefaultMaxOutputTokens,
			Timeout:         DefaultUpstreamTimeout,
		},
	}
}

// Load reads an optional YAML file, applies environment overrides, and fills
// provider-dependent defaults. path may be empty.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.fillDefaults()
	return cfg, nil
}

// LoadFromBytes parses YAML config data directly. Used by tests.
func LoadFromBytes(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	cfg.fillDefaults()
	return cfg, nil
}

// applyEnv overrides config fields from environment variables.
func (c *Config) applyEnv() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("PROVIDER"); v != "" {
		c.Upstream.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := os.Getenv("UPSTREAM_BASE_URL"); v != "" {
		c.Upstream.BaseURL = v
	}
	if v := os.Getenv("UPSTREAM_API_KEY"); v != "" {
		c.Upstream.APIKey = v
	}
	if v := os.Getenv("UPSTREAM_MODEL"); v != "" {
		c.Upstream.Model = v
	}
	if v := os.Getenv("ACCESS_PASSWORD"); v != "" {
		c.Access.Password = v
	}
	if v := os.Getenv("TELEMETRY_PATH"); v != "" {
		c.Monitoring.TelemetryPath = v
	}
}

// fillDefaults resolves provider-dependent defaults after file and env layers.
func (c *Config) fillDefaults() {
	if c.Upstream.Provider == "" {
		c.Upstream.Provider = "openai"
	}
	if c.Upstream.BaseURL == "" {
		switch c.Upstream.Provider {
		case "anthropic":
			c.Upstream.BaseURL = DefaultAnthropicBaseURL
		default:
			c.Upstream.BaseURL = DefaultOpenAIBaseURL
		}
	}
	c.Upstream.BaseURL = strings.TrimRight(c.Upstream.BaseURL, "/")
	if c.Upstream.Model == "" {
		switch c.Upstream.Provider {
		case "anthropic":
			c.Upstream.Model = DefaultAnthropicModel
		default:
			c.Upstream.Model = DefaultOpenAIModel
		}
	}
	if c.Upstream.MaxOutputTokens <= 0 {
		c.Upstream.MaxOutputTokens = DefaultMaxOutputTokens
	}
	if c.Upstream.Timeout <= 0 {
		c.Upstream.Timeout = DefaultUpstreamTimeout
	}
	if c.Server.Port <= 0 {
		c.Server.Port = DefaultPort
	}
	if c.Server.ReadTimeout <= 0 {
		c.Server.ReadTimeout = DefaultServerReadTimeout
	}
	if c.Server.WriteTimeout <= 0 {
		c.Server.WriteTimeout = DefaultServerWriteTimeout
	}
}

// Validate checks that the configuration can serve requests.
func (c *Config) Validate() error {
	switch c.Upstream.Provider {
	case "openai", "anthropic":
	default:
		return fmt.Errorf("unknown provider %q (want openai or anthropic)", c.Upstream.Provider)
	}
	if strings.TrimSpace(c.Upstream.APIKey) == "" {
		return fmt.Errorf("upstream API key is not configured (set UPSTREAM_API_KEY)")
	}
	return nil
}
