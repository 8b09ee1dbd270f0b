package ai

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.NotNil(t, cfg)
	assert.Equal(t, ProviderOpenAI, cfg.Provider)
	assert.Equal(t, DefaultOpenAIHost, cfg.Host)
	assert.Equal(t, "text-embedding-3-small", cfg.Model)
	assert.Equal(t, 100, cfg.MaxBatch)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
}

func TestNewConfig(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		cfg := NewConfig()
		assert.Equal(t, DefaultOpenAIHost, cfg.Host)
	})

	t.Run("with options", func(t *testing.T) {
		cfg := NewConfig(
			WithProvider(ProviderOllama),
			WithHost("http://localhost:11434"),
			WithModel("nomic-embed-text"),
			WithMaxBatch(16),
			WithTimeout(5*time.Second),
			WithRequestInterval(0),
		)
		assert.Equal(t, ProviderOllama, cfg.Provider)
		assert.Equal(t, "http://localhost:11434", cfg.Host)
		assert.Equal(t, "nomic-embed-text", cfg.Model)
		assert.Equal(t, 16, cfg.MaxBatch)
		assert.Equal(t, 5*time.Second, cfg.Timeout)
		assert.Zero(t, cfg.RequestInterval)
	})
}

func TestConfigNormalize(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		host     string
		want     string
	}{
		{"openai adds v1", ProviderOpenAI, "http://localhost:8000", "http://localhost:8000/v1"},
		{"openai keeps v1", ProviderOpenAI, "https://api.openai.com/v1", "https://api.openai.com/v1"},
		{"openai trailing slash", ProviderOpenAI, "http://localhost:8000/", "http://localhost:8000/v1"},
		{"ollama strips v1", ProviderOllama, "http://localhost:11434/v1", "http://localhost:11434"},
		{"ollama plain", ProviderOllama, "http://localhost:11434", "http://localhost:11434"},
		{"empty host", ProviderOpenAI, "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Provider: tt.provider, Host: tt.host}
			cfg.Normalize()
			assert.Equal(t, tt.want, cfg.Host)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid with key", func(c *Config) { c.APIKey = "sk-test" }, ""},
		{"missing key for public api", func(c *Config) {}, "APIKey"},
		{"local host needs no key", func(c *Config) { c.Host = "http://localhost:8000" }, ""},
		{"ollama needs no key", func(c *Config) { c.Provider = ProviderOllama; c.Host = "http://localhost:11434" }, ""},
		{"unknown provider", func(c *Config) { c.Provider = "cohere"; c.APIKey = "k" }, "unsupported"},
		{"missing host", func(c *Config) { c.Host = ""; c.APIKey = "k" }, "Host"},
		{"missing model", func(c *Config) { c.Model = ""; c.APIKey = "k" }, "Model"},
		{"zero batch", func(c *Config) { c.MaxBatch = 0; c.APIKey = "k" }, "MaxBatch"},
		{"zero timeout", func(c *Config) { c.Timeout = 0; c.APIKey = "k" }, "Timeout"},
		{"negative interval", func(c *Config) { c.RequestInterval = -1; c.APIKey = "k" }, "RequestInterval"},
		{"no attempts", func(c *Config) { c.Retry.MaxAttempts = 0; c.APIKey = "k" }, "maxAttempts"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
