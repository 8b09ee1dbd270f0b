// Package config holds the settings of an indexing run, loaded from an
// optional YAML file and overridden by command-line flags.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/poiesic/edgarindex/ai"
	"github.com/poiesic/edgarindex/ingestion"
	"gopkg.in/yaml.v3"
)

// Supported index stores.
const (
	StoreBadger  = "badger"
	StoreChromem = "chromem"
)

// Settings is the complete configuration of the indexer.
type Settings struct {
	Dir              string `yaml:"dir"`
	Store            string `yaml:"store"`
	DB               string `yaml:"db"`
	Collection       string `yaml:"collection"`
	Concurrency      int    `yaml:"concurrency"`
	AllowParamChange bool   `yaml:"allow_param_change"`

	Chunking  Chunking  `yaml:"chunking"`
	Embedding Embedding `yaml:"embedding"`
	Upsert    Upsert    `yaml:"upsert"`
}

// Chunking holds the window parameters.
type Chunking struct {
	Window  int `yaml:"window"`
	Overlap int `yaml:"overlap"`
}

// Embedding holds the embedding service settings.
type Embedding struct {
	Provider          string        `yaml:"provider"`
	Host              string        `yaml:"host"`
	Model             string        `yaml:"model"`
	APIKey            string        `yaml:"api_key"`
	BatchSize         int           `yaml:"batch_size"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestInterval   time.Duration `yaml:"request_interval"`
	MaxRetries        int           `yaml:"max_retries"`
	RetryDelay        time.Duration `yaml:"retry_delay"`
	RateLimitCooldown time.Duration `yaml:"rate_limit_cooldown"`
}

// Upsert holds the vector store write settings.
type Upsert struct {
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Default returns the settings used when neither file nor flags say otherwise.
func Default() *Settings {
	aiDefaults := ai.DefaultConfig()
	processing := ingestion.DefaultConfig()
	return &Settings{
		Dir:         "filings_data",
		Store:       StoreBadger,
		DB:          "edgar_index",
		Collection:  "edgar_filings",
		Concurrency: ingestion.DefaultConcurrency,
		Chunking: Chunking{
			Window:  processing.WindowSize,
			Overlap: processing.Overlap,
		},
		Embedding: Embedding{
			Provider:          aiDefaults.Provider,
			Host:              aiDefaults.Host,
			Model:             aiDefaults.Model,
			BatchSize:         processing.EmbedBatchSize,
			Timeout:           aiDefaults.Timeout,
			RequestInterval:   aiDefaults.RequestInterval,
			MaxRetries:        aiDefaults.Retry.MaxAttempts,
			RetryDelay:        aiDefaults.Retry.BaseDelay,
			RateLimitCooldown: aiDefaults.Retry.RateLimitCooldown,
		},
		Upsert: Upsert{
			BatchSize: processing.UpsertBatchSize,
			Timeout:   aiDefaults.Timeout,
		},
	}
}

// Load reads a YAML file over the defaults. Keys missing from the file keep
// their default values.
func Load(path string) (*Settings, error) {
	settings := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", path, err)
	}
	return settings, nil
}

// Processing returns the document processing configuration.
func (s *Settings) Processing() ingestion.Config {
	return ingestion.Config{
		WindowSize:      s.Chunking.Window,
		Overlap:         s.Chunking.Overlap,
		EmbedBatchSize:  s.Embedding.BatchSize,
		UpsertBatchSize: s.Upsert.BatchSize,
	}
}

// AI returns the embedding service configuration.
func (s *Settings) AI() *ai.Config {
	retry := ai.DefaultRetryPolicy()
	retry.MaxAttempts = s.Embedding.MaxRetries
	retry.BaseDelay = s.Embedding.RetryDelay
	retry.RateLimitCooldown = s.Embedding.RateLimitCooldown

	return ai.NewConfig(
		ai.WithProvider(s.Embedding.Provider),
		ai.WithHost(s.Embedding.Host),
		ai.WithModel(s.Embedding.Model),
		ai.WithAPIKey(s.Embedding.APIKey),
		ai.WithMaxBatch(s.Embedding.BatchSize),
		ai.WithTimeout(s.Embedding.Timeout),
		ai.WithRequestInterval(s.Embedding.RequestInterval),
		ai.WithRetryPolicy(retry),
	)
}

// Validate checks the settings that can be checked without touching the
// network or the filesystem.
func (s *Settings) Validate() error {
	switch s.Store {
	case StoreBadger, StoreChromem:
	default:
		return fmt.Errorf("unsupported store %q: must be %s or %s", s.Store, StoreBadger, StoreChromem)
	}
	if s.DB == "" {
		return errors.New("database path is required")
	}
	if s.Concurrency < 1 {
		return errors.New("concurrency must be greater than 0")
	}
	if s.Upsert.Timeout < 0 {
		return errors.New("upsert timeout cannot be negative")
	}
	if err := s.Processing().Validate(); err != nil {
		return err
	}
	return s.AI().Validate()
}
