// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Supported embedding providers.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DefaultOpenAIHost is the public OpenAI API endpoint.
const DefaultOpenAIHost = "https://api.openai.com/v1"

// Config holds configuration for the embedding service and its adapter.
type Config struct {
	// Provider selects the client implementation: "openai" or "ollama".
	Provider string

	// Host is the base URL of the embedding service.
	// Example: "https://api.openai.com/v1", "http://localhost:11434"
	Host string

	// Model is the embedding model identifier.
	// Example: "text-embedding-3-small", "nomic-embed-text"
	Model string

	// APIKey authenticates against the service. Required for the public OpenAI API.
	APIKey string

	// MaxBatch is the largest number of texts sent in one request.
	MaxBatch int

	// Timeout bounds each individual request.
	Timeout time.Duration

	// RequestInterval is the minimum spacing between requests across the process.
	RequestInterval time.Duration

	// Retry controls how failed requests are retried.
	Retry RetryPolicy
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithProvider sets the provider name.
func WithProvider(provider string) ConfigOption {
	return func(c *Config) {
		c.Provider = provider
	}
}

// WithHost sets the embedding service host URL.
func WithHost(host string) ConfigOption {
	return func(c *Config) {
		c.Host = host
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the API key.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithMaxBatch sets the maximum number of texts per request.
func WithMaxBatch(n int) ConfigOption {
	return func(c *Config) {
		c.MaxBatch = n
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithRequestInterval sets the process-wide spacing between requests.
func WithRequestInterval(d time.Duration) ConfigOption {
	return func(c *Config) {
		c.RequestInterval = d
	}
}

// WithRetryPolicy replaces the retry policy.
func WithRetryPolicy(p RetryPolicy) ConfigOption {
	return func(c *Config) {
		c.Retry = p
	}
}

// DefaultConfig returns a Config for the public OpenAI embeddings API.
func DefaultConfig() *Config {
	return &Config{
		Provider:        ProviderOpenAI,
		Host:            DefaultOpenAIHost,
		Model:           "text-embedding-3-small",
		MaxBatch:        100,
		Timeout:         60 * time.Second,
		RequestInterval: 200 * time.Millisecond,
		Retry:           DefaultRetryPolicy(),
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithProvider(ProviderOllama),
//	    WithHost("http://localhost:11434"),
//	    WithModel("nomic-embed-text"),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// OpenAI-compatible hosts get a /v1 suffix; Ollama hosts lose it, since the
// Ollama client adds its own API paths.
func (c *Config) Normalize() {
	c.Provider = strings.ToLower(strings.TrimSpace(c.Provider))
	if c.Host == "" {
		return
	}
	host := strings.TrimSuffix(c.Host, "/")
	switch c.Provider {
	case ProviderOpenAI:
		if !strings.HasSuffix(host, "/v1") {
			host += "/v1"
		}
	case ProviderOllama:
		host = strings.TrimSuffix(host, "/v1")
	}
	c.Host = host
}

// RequiresAPIKey reports whether the configured host needs credentials.
func (c *Config) RequiresAPIKey() bool {
	return c.Provider == ProviderOpenAI && strings.Contains(c.Host, "api.openai.com")
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	switch c.Provider {
	case ProviderOpenAI, ProviderOllama:
	default:
		return fmt.Errorf("ai config: %w: %q", ErrUnsupportedProvider, c.Provider)
	}
	if c.Host == "" {
		return errors.New("ai config: Host is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.RequiresAPIKey() && c.APIKey == "" {
		return errors.New("ai config: APIKey is required for the OpenAI API")
	}
	if c.MaxBatch < 1 {
		return errors.New("ai config: MaxBatch must be greater than 0")
	}
	if c.Timeout <= 0 {
		return errors.New("ai config: Timeout must be greater than 0")
	}
	if c.RequestInterval < 0 {
		return errors.New("ai config: RequestInterval cannot be negative")
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("ai config: %w", ErrInvalidMaxAttempts)
	}
	return nil
}
