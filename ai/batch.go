package ai

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"
)

// BatchEmbedder wraps an Embedder with the request-size ceiling, per-request
// timeout, retry policy and process-wide gate of the embedding service.
// It is safe for concurrent use; share one instance between all workers.
type BatchEmbedder struct {
	embedder  Embedder
	policy    RetryPolicy
	gate      *Gate
	maxBatch  int
	timeout   time.Duration
	dimension atomic.Int64
	logger    *slog.Logger
}

// BatchOption configures a BatchEmbedder.
type BatchOption func(*BatchEmbedder)

// WithGate shares an existing gate instead of creating one from the config.
func WithGate(gate *Gate) BatchOption {
	return func(b *BatchEmbedder) {
		if gate != nil {
			b.gate = gate
		}
	}
}

// WithBatchLogger sets a custom logger.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchEmbedder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBatchEmbedder creates the adapter from a validated config.
func NewBatchEmbedder(embedder Embedder, config *Config, opts ...BatchOption) *BatchEmbedder {
	if config == nil {
		config = DefaultConfig()
	}
	b := &BatchEmbedder{
		embedder: embedder,
		policy:   config.Retry,
		maxBatch: config.MaxBatch,
		timeout:  config.Timeout,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.gate == nil {
		b.gate = NewGate(config.RequestInterval)
	}
	b.logger = b.logger.With("component", "batch-embedder")
	return b
}

// MaxBatch returns the largest batch Embed accepts.
func (b *BatchEmbedder) MaxBatch() int {
	return b.maxBatch
}

// Dimension returns the vector dimension observed so far, or 0 before the
// first successful request.
func (b *BatchEmbedder) Dimension() int {
	return int(b.dimension.Load())
}

// Embed returns one vector per text, in input order. Transient failures are
// retried; the final failure is returned to the caller as a batch error.
func (b *BatchEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}
	if len(texts) > b.maxBatch {
		return nil, fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(texts), b.maxBatch)
	}

	var vectors [][]float32
	err := b.policy.Do(ctx, func() error {
		err := b.gate.Do(ctx, func() error {
			callCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			var err error
			vectors, err = b.embedder.EmbedTexts(callCtx, texts)
			return err
		})
		if IsRateLimit(err) {
			b.logger.Warn("embedding service rate limited, cooling down", "cooldown", b.policy.RateLimitCooldown)
			b.gate.Backoff(b.policy.RateLimitCooldown)
		}
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("embedding batch of %d failed: %w", len(texts), err)
	}

	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d, received %d", ErrEmbeddingMismatch, len(texts), len(vectors))
	}
	for i, v := range vectors {
		if err := b.checkDimension(len(v)); err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
	}

	return vectors, nil
}

// checkDimension pins the dimension to the first vector seen and rejects any
// vector of a different length afterwards.
func (b *BatchEmbedder) checkDimension(n int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	if b.dimension.CompareAndSwap(0, int64(n)) {
		return nil
	}
	if want := b.dimension.Load(); want != int64(n) {
		return fmt.Errorf("%w: expected %d, received %d", ErrDimensionMismatch, want, n)
	}
	return nil
}
