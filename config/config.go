// Package config loads server and console configuration from optional YAML
// files with environment variable overrides.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig configures the billing API server.
type ServerConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
	// DatabasePath is the SQLite database file.
	DatabasePath string `yaml:"database_path"`

	StripeSecretKey      string `yaml:"stripe_secret_key"`
	StripePublishableKey string `yaml:"stripe_publishable_key"`
	StripeWebhookSecret  string `yaml:"stripe_webhook_secret"`

	// Plans maps plan nicknames to provider price ids.
	Plans map[string]string `yaml:"plans"`

	// CreateRateLimit caps organization creation requests per minute per IP.
	CreateRateLimit int `yaml:"create_rate_limit"`
	// AllowedOrigins are console origins permitted by CORS.
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// NewServerConfig returns a ServerConfig with defaults.
func NewServerConfig() *ServerConfig {
	return &ServerConfig{
		Addr:         ":8080",
		DatabasePath: "billing.db",
		Plans:        make(map[string]string),
	}
}

// LoadServerConfig reads the YAML file when path is non-empty, then applies
// environment overrides on top.
func LoadServerConfig(path string) (*ServerConfig, error) {
	cfg := NewServerConfig()
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *ServerConfig) applyEnv() {
	setFromEnv(&c.Addr, "BILLING_ADDR")
	setFromEnv(&c.DatabasePath, "BILLING_DB_PATH")
	setFromEnv(&c.StripeSecretKey, "STRIPE_SECRET_KEY")
	setFromEnv(&c.StripePublishableKey, "STRIPE_PUBLISHABLE_KEY")
	setFromEnv(&c.StripeWebhookSecret, "STRIPE_WEBHOOK_SECRET")
}

// ConsoleConfig configures the organization console.
type ConsoleConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr"`
	// APIBaseURL is the billing API the console talks to.
	APIBaseURL string `yaml:"api_base_url"`
	// Origin is the console's own externally visible base URL, used in
	// payment return URLs.
	Origin string `yaml:"origin"`
	// StripeSecretKey authorizes the console's server-side payment-intent
	// calls (retrieve, confirm). The publishable key served by the backend
	// only works in the browser; a restricted key scoped to payment
	// intents is enough here.
	StripeSecretKey string `yaml:"stripe_secret_key"`
}

// NewConsoleConfig returns a ConsoleConfig with defaults.
func NewConsoleConfig() *ConsoleConfig {
	return &ConsoleConfig{
		Addr:       ":3000",
		APIBaseURL: "http://localhost:8080",
		Origin:     "http://localhost:3000",
	}
}

// LoadConsoleConfig reads the YAML file when path is non-empty, then applies
// environment overrides on top. The API base URL prefers BILLING_API_URL and
// falls back to PUBLIC_BILLING_API_URL before the default.
func LoadConsoleConfig(path string) (*ConsoleConfig, error) {
	cfg := NewConsoleConfig()
	if path != "" {
		if err := loadYAML(path, cfg); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *ConsoleConfig) applyEnv() {
	setFromEnv(&c.Addr, "CONSOLE_ADDR")
	setFromEnv(&c.Origin, "CONSOLE_ORIGIN")
	setFromEnv(&c.StripeSecretKey, "STRIPE_SECRET_KEY")
	if v := os.Getenv("BILLING_API_URL"); v != "" {
		c.APIBaseURL = v
	} else if v := os.Getenv("PUBLIC_BILLING_API_URL"); v != "" {
		c.APIBaseURL = v
	}
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func setFromEnv(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
