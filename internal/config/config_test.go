package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want :8080", cfg.Addr)
	}
	if cfg.CacheTTL != 5*time.Minute {
		t.Errorf("CacheTTL = %v, want 5m", cfg.CacheTTL)
	}
	if cfg.RelayEndpoint != DefaultRelayEndpoint {
		t.Errorf("RelayEndpoint = %q", cfg.RelayEndpoint)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate, got %v", err)
	}
}

func TestLoadFileMissingOptional(t *testing.T) {
	cfg := Default()
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), true); err != nil {
		t.Errorf("optional missing file should not error, got %v", err)
	}
	if err := cfg.LoadFile(filepath.Join(t.TempDir(), "absent.yaml"), false); err == nil {
		t.Error("required missing file should error")
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gitfolio.yaml")
	data := "addr: \":9090\"\ncache_ttl: 1m\nemail_test_mode: true\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	if err := cfg.LoadFile(path, false); err != nil {
		t.Fatal(err)
	}
	if cfg.Addr != ":9090" {
		t.Errorf("Addr = %q, want :9090", cfg.Addr)
	}
	if cfg.CacheTTL != time.Minute {
		t.Errorf("CacheTTL = %v, want 1m", cfg.CacheTTL)
	}
	if !cfg.EmailTestMode {
		t.Error("EmailTestMode not loaded")
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "ghp_test")
	t.Setenv("EMAILJS_SERVICE_ID", "svc")
	t.Setenv("EMAILJS_TEMPLATE_ID", "tpl")
	t.Setenv("EMAILJS_PUBLIC_KEY", "key")
	t.Setenv("EMAIL_TEST_MODE", "true")

	cfg := Default()
	cfg.LoadFromEnv()
	if cfg.GitHubToken != "ghp_test" {
		t.Errorf("GitHubToken = %q", cfg.GitHubToken)
	}
	if !cfg.RelayConfigured() {
		t.Error("relay should be configured")
	}
	if !cfg.EmailTestMode {
		t.Error("EmailTestMode should be set")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"empty addr", func(c *Config) { c.Addr = "" }, true},
		{"negative ttl", func(c *Config) { c.CacheTTL = -time.Second }, true},
		{"zero ttl", func(c *Config) { c.CacheTTL = 0 }, false},
		{"empty relay endpoint", func(c *Config) { c.RelayEndpoint = "" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
