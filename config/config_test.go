package config

import (
	"strings"
	"testing"
	"time"

	"github.com/transflow/transflow/errdefs"
)

func validConfig() Config {
	return Config{
		FirecrawlBaseURL:    "https://api.firecrawl.dev/v1",
		FirecrawlTimeout:    30 * time.Second,
		OpenAIBaseURL:       "https://api.openai.com/v1",
		OpenAIModel:         "gpt-4o",
		DefaultLanguage:     "zh",
		HTTPTimeout:         30 * time.Second,
		HTTPMaxRetries:      3,
		ConcurrentDownloads: 5,
		LogLevel:            "info",
	}
}

func TestValidateOK(t *testing.T) {
	if err := validConfig().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}
}

func TestValidateBounds(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero timeout", func(c *Config) { c.HTTPTimeout = 0 }},
		{"negative timeout", func(c *Config) { c.HTTPTimeout = -time.Second }},
		{"zero firecrawl timeout", func(c *Config) { c.FirecrawlTimeout = 0 }},
		{"negative retries", func(c *Config) { c.HTTPMaxRetries = -1 }},
		{"zero concurrency", func(c *Config) { c.ConcurrentDownloads = 0 }},
		{"excess concurrency", func(c *Config) { c.ConcurrentDownloads = 21 }},
		{"bad log level", func(c *Config) { c.LogLevel = "chatty" }},
		{"long-form warning level", func(c *Config) { c.LogLevel = "warning" }},
	}
	for _, c := range cases {
		cfg := validConfig()
		c.mutate(&cfg)
		err := cfg.Validate()
		if err == nil {
			t.Errorf("%s: expected error", c.name)
			continue
		}
		if errdefs.ExitCode(err) != 2 {
			t.Errorf("%s: configuration errors should exit 2, got %d", c.name, errdefs.ExitCode(err))
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	// No TRANSFLOW_ variables set: defaults must pass validation.
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load with defaults failed: %v", err)
	}
	if cfg.ConcurrentDownloads != 5 {
		t.Errorf("ConcurrentDownloads = %d, want 5", cfg.ConcurrentDownloads)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Errorf("OpenAIModel = %q, want gpt-4o", cfg.OpenAIModel)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TRANSFLOW_HTTP_CONCURRENT_DOWNLOADS", "3")
	t.Setenv("TRANSFLOW_DEFAULT_LANGUAGE", "ja")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ConcurrentDownloads != 3 {
		t.Errorf("ConcurrentDownloads = %d, want 3", cfg.ConcurrentDownloads)
	}
	if cfg.DefaultLanguage != "ja" {
		t.Errorf("DefaultLanguage = %q, want ja", cfg.DefaultLanguage)
	}
}

func TestLoadRejectsOutOfRange(t *testing.T) {
	t.Setenv("TRANSFLOW_HTTP_CONCURRENT_DOWNLOADS", "50")

	if _, err := Load(); err == nil {
		t.Fatal("expected out-of-range concurrency to fail")
	}
}

func TestMaskSecret(t *testing.T) {
	if got := MaskSecret(""); got != "(not set)" {
		t.Errorf("empty: got %q", got)
	}
	if got := MaskSecret("ab"); got != "****" {
		t.Errorf("short: got %q", got)
	}
	got := MaskSecret("sk-abcdef123456")
	if !strings.HasPrefix(got, "sk-a") || strings.Contains(got, "bcdef123456") {
		t.Errorf("long: got %q", got)
	}
}
