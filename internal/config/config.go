// Package config provides configuration loading and validation for the
// audit service.
package config

import (
	"fmt"
	"os"
	"strconv"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultPort            = 8080
	DefaultRegion          = "us"
	DefaultPromptsPerBatch = 10
	DefaultConcurrency     = 4
)

// Config holds the runtime configuration for the audit service, loaded from
// environment variables.
type Config struct {
	// Server
	Port int

	// Storage. Empty DatabaseURL means the in-memory store.
	DatabaseURL string

	// LLM
	GeminiAPIKey string

	// SERP collaborator
	SerpAPIURL string
	SerpAPIKey string
	Region     string

	// Keyword-volume collaborator (optional)
	VolumeAPIURL string
	VolumeAPIKey string
	RedisAddr    string

	// Auth. Empty disables JWT verification.
	JWTSecret string

	// Pipeline tuning
	PromptsPerCategory int
	SerpConcurrency    int
}

// Load reads configuration from the environment. Missing optional values
// fall back to defaults; Validate reports what is still unusable.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               DefaultPort,
		DatabaseURL:        os.Getenv("DATABASE_URL"),
		GeminiAPIKey:       os.Getenv("GEMINI_API_KEY"),
		SerpAPIURL:         os.Getenv("SERP_API_URL"),
		SerpAPIKey:         os.Getenv("SERP_API_KEY"),
		Region:             DefaultRegion,
		VolumeAPIURL:       os.Getenv("VOLUME_API_URL"),
		VolumeAPIKey:       os.Getenv("VOLUME_API_KEY"),
		RedisAddr:          os.Getenv("REDIS_ADDR"),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		PromptsPerCategory: DefaultPromptsPerBatch,
		SerpConcurrency:    DefaultConcurrency,
	}

	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT: %v", err)
		}
		cfg.Port = port
	}
	if v := os.Getenv("SERP_REGION"); v != "" {
		cfg.Region = v
	}
	if v := os.Getenv("PROMPTS_PER_CATEGORY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid PROMPTS_PER_CATEGORY: %v", err)
		}
		cfg.PromptsPerCategory = n
	}
	if v := os.Getenv("SERP_CONCURRENCY"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SERP_CONCURRENCY: %v", err)
		}
		cfg.SerpConcurrency = n
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration can run the full pipeline.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config error: PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("config error: GEMINI_API_KEY is required")
	}
	if c.SerpAPIURL == "" {
		return fmt.Errorf("config error: SERP_API_URL is required")
	}
	if c.SerpAPIKey == "" {
		return fmt.Errorf("config error: SERP_API_KEY is required")
	}
	if c.PromptsPerCategory < 1 {
		return fmt.Errorf("config error: PROMPTS_PER_CATEGORY must be at least 1, got %d", c.PromptsPerCategory)
	}
	if c.SerpConcurrency < 1 {
		return fmt.Errorf("config error: SERP_CONCURRENCY must be at least 1, got %d", c.SerpConcurrency)
	}
	if c.VolumeAPIURL != "" && c.VolumeAPIKey == "" {
		return fmt.Errorf("config error: VOLUME_API_KEY is required when VOLUME_API_URL is set")
	}
	return nil
}

// VolumeEnabled reports whether the optional volume collaborator is
// configured.
func (c *Config) VolumeEnabled() bool {
	return c.VolumeAPIURL != ""
}

// AuthEnabled reports whether JWT verification is configured.
func (c *Config) AuthEnabled() bool {
	return c.JWTSecret != ""
}
