package storage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/edgarindex/core"
)

// DefaultMaxBatch is the largest upsert request sent to a store by default.
const DefaultMaxBatch = 100

// BatchWriter sends index entries to a store in bounded requests. It never
// retries: a failed request is reported to the caller, which decides what
// the failure means for the document being written.
type BatchWriter struct {
	store    IndexStore
	maxBatch int
	timeout  time.Duration
	logger   *slog.Logger
}

// WriterOption configures a BatchWriter.
type WriterOption func(*BatchWriter)

// WithMaxBatch sets the largest accepted request.
func WithMaxBatch(n int) WriterOption {
	return func(w *BatchWriter) {
		if n > 0 {
			w.maxBatch = n
		}
	}
}

// WithTimeout bounds each request. Zero disables the timeout.
func WithTimeout(d time.Duration) WriterOption {
	return func(w *BatchWriter) {
		w.timeout = d
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) WriterOption {
	return func(w *BatchWriter) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewBatchWriter creates a writer over store.
func NewBatchWriter(store IndexStore, opts ...WriterOption) *BatchWriter {
	w := &BatchWriter{
		store:    store,
		maxBatch: DefaultMaxBatch,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "batch-writer")
	return w
}

// MaxBatch returns the largest batch Write accepts.
func (w *BatchWriter) MaxBatch() int {
	return w.maxBatch
}

// Store returns the underlying store.
func (w *BatchWriter) Store() IndexStore {
	return w.store
}

// Write upserts batch as a single request. An empty batch is a no-op.
func (w *BatchWriter) Write(ctx context.Context, batch []*core.IndexEntry) error {
	if len(batch) == 0 {
		return nil
	}
	if len(batch) > w.maxBatch {
		return fmt.Errorf("%w: %d > %d", ErrBatchTooLarge, len(batch), w.maxBatch)
	}
	for _, entry := range batch {
		if entry == nil || entry.ID == "" || len(entry.Vector) == 0 {
			return ErrInvalidEntry
		}
	}

	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}

	if err := w.store.Upsert(ctx, batch...); err != nil {
		w.logger.Debug("upsert failed", "entries", len(batch), "err", err)
		return fmt.Errorf("upsert of %d entries failed: %w", len(batch), err)
	}
	return nil
}
