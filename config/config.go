// Package config holds the transflow application configuration.
//
// Configuration is loaded from environment variables (prefix TRANSFLOW_)
// with optional .env file support, parsed once into an immutable struct
// and validated at the boundary before any component is constructed.
package config

import (
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/transflow/transflow/errdefs"
)

// Config is the application configuration. Components receive it by
// value at construction; it is never mutated afterwards.
type Config struct {
	// Firecrawl settings (web → Markdown extraction).
	FirecrawlAPIKey  string        `env:"TRANSFLOW_FIRECRAWL_API_KEY"`
	FirecrawlBaseURL string        `env:"TRANSFLOW_FIRECRAWL_BASE_URL" envDefault:"https://api.firecrawl.dev/v1"`
	FirecrawlTimeout time.Duration `env:"TRANSFLOW_FIRECRAWL_TIMEOUT" envDefault:"30s"`

	// Translation provider settings (OpenAI-compatible chat endpoint).
	OpenAIAPIKey  string `env:"TRANSFLOW_OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"TRANSFLOW_OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIModel   string `env:"TRANSFLOW_OPENAI_MODEL" envDefault:"gpt-4o"`

	// DefaultLanguage is the target language used when --lang is omitted.
	DefaultLanguage string `env:"TRANSFLOW_DEFAULT_LANGUAGE" envDefault:"zh"`

	// HTTP transport settings.
	HTTPTimeout         time.Duration `env:"TRANSFLOW_HTTP_TIMEOUT" envDefault:"30s"`
	HTTPMaxRetries      int           `env:"TRANSFLOW_HTTP_MAX_RETRIES" envDefault:"3"`
	ConcurrentDownloads int           `env:"TRANSFLOW_HTTP_CONCURRENT_DOWNLOADS" envDefault:"5"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"TRANSFLOW_LOG_LEVEL" envDefault:"info"`
}

// Load reads the optional .env file, parses environment variables and
// validates the result.
func Load() (Config, error) {
	// The .env file is optional; a missing file is not an error.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errdefs.Configurationf("parsing environment: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks configuration bounds. It is called by Load and again
// by `transflow config --validate`.
func (c Config) Validate() error {
	if c.HTTPTimeout <= 0 {
		return errdefs.Configurationf("http timeout must be positive, got %v", c.HTTPTimeout)
	}
	if c.FirecrawlTimeout <= 0 {
		return errdefs.Configurationf("firecrawl timeout must be positive, got %v", c.FirecrawlTimeout)
	}
	if c.HTTPMaxRetries < 0 {
		return errdefs.Configurationf("max retries must not be negative, got %d", c.HTTPMaxRetries)
	}
	if c.ConcurrentDownloads < 1 || c.ConcurrentDownloads > 20 {
		return errdefs.Configurationf("concurrent downloads must be between 1 and 20, got %d", c.ConcurrentDownloads)
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return errdefs.Configurationf("log level must be one of debug, info, warn, error, got %q", c.LogLevel)
	}
	return nil
}

// MaskSecret shortens a credential for display: first four characters
// plus asterisks, or "(not set)".
func MaskSecret(s string) string {
	if s == "" {
		return "(not set)"
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:4] + strings.Repeat("*", 8)
}
