// Package config holds runtime configuration for gitfolio.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultRelayEndpoint is the EmailJS send endpoint.
const DefaultRelayEndpoint = "https://api.emailjs.com/api/v1.0/email/send"

// Config holds all runtime configuration.
type Config struct {
	Addr     string        `yaml:"addr"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
	Verbose  bool          `yaml:"verbose"`

	// GitHub access. The token is optional; without it the public API quota
	// applies.
	GitHubToken string `yaml:"-"`

	// Contact relay. Credentials come from the environment, never the file.
	RelayEndpoint   string `yaml:"relay_endpoint"`
	RelayServiceID  string `yaml:"-"`
	RelayTemplateID string `yaml:"-"`
	RelayPublicKey  string `yaml:"-"`
	EmailTestMode   bool   `yaml:"email_test_mode"`
}

// Default returns the baseline configuration.
func Default() Config {
	return Config{
		Addr:          ":8080",
		CacheTTL:      5 * time.Minute,
		RelayEndpoint: DefaultRelayEndpoint,
	}
}

// LoadFile merges settings from a YAML file into c. A missing file is not an
// error when optional is set.
func (c *Config) LoadFile(path string, optional bool) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if optional && os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv populates environment-dependent fields (tokens, keys).
func (c *Config) LoadFromEnv() {
	c.GitHubToken = os.Getenv("GITHUB_TOKEN")
	c.RelayServiceID = os.Getenv("EMAILJS_SERVICE_ID")
	c.RelayTemplateID = os.Getenv("EMAILJS_TEMPLATE_ID")
	c.RelayPublicKey = os.Getenv("EMAILJS_PUBLIC_KEY")
	if os.Getenv("EMAIL_TEST_MODE") == "true" {
		c.EmailTestMode = true
	}
}

// RelayConfigured reports whether all relay credentials are present.
func (c *Config) RelayConfigured() bool {
	return c.RelayServiceID != "" && c.RelayTemplateID != "" && c.RelayPublicKey != ""
}

// Validate checks that all required fields are set and consistent.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("listen address is required")
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must not be negative")
	}
	if c.RelayEndpoint == "" {
		return fmt.Errorf("relay endpoint is required")
	}
	return nil
}
