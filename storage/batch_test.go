package storage

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/poiesic/edgarindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingStore is an in-memory IndexStore that records each request.
type recordingStore struct {
	mu       sync.Mutex
	entries  map[string]*core.IndexEntry
	requests []int
	err      error
	delay    time.Duration
}

func newRecordingStore() *recordingStore {
	return &recordingStore{entries: make(map[string]*core.IndexEntry)}
}

func (s *recordingStore) Upsert(ctx context.Context, entries ...*core.IndexEntry) error {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, len(entries))
	if s.err != nil {
		return s.err
	}
	for _, e := range entries {
		s.entries[e.ID] = e
	}
	return nil
}

func (s *recordingStore) Count(ctx context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries), nil
}

func (s *recordingStore) Close() error { return nil }

func entries(n int) []*core.IndexEntry {
	out := make([]*core.IndexEntry, n)
	for i := range out {
		out[i] = &core.IndexEntry{
			ID:     core.MakeID("DOC", "Item 1", i),
			Vector: []float32{1, 0},
		}
	}
	return out
}

func TestBatchWriter_Write(t *testing.T) {
	store := newRecordingStore()
	w := NewBatchWriter(store, WithMaxBatch(3))

	require.NoError(t, w.Write(context.Background(), entries(3)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)
	assert.Equal(t, []int{3}, store.requests, "one request per batch")
}

func TestBatchWriter_EmptyBatch(t *testing.T) {
	store := newRecordingStore()
	w := NewBatchWriter(store)

	require.NoError(t, w.Write(context.Background(), nil))
	assert.Empty(t, store.requests)
}

func TestBatchWriter_RejectsOversizedBatch(t *testing.T) {
	store := newRecordingStore()
	w := NewBatchWriter(store, WithMaxBatch(2))

	err := w.Write(context.Background(), entries(3))
	assert.ErrorIs(t, err, ErrBatchTooLarge)
	assert.Empty(t, store.requests)
}

func TestBatchWriter_RejectsInvalidEntry(t *testing.T) {
	w := NewBatchWriter(newRecordingStore())

	batch := entries(2)
	batch[1].Vector = nil
	assert.ErrorIs(t, w.Write(context.Background(), batch), ErrInvalidEntry)
}

func TestBatchWriter_DoesNotRetry(t *testing.T) {
	store := newRecordingStore()
	store.err = errors.New("connection refused")
	w := NewBatchWriter(store)

	err := w.Write(context.Background(), entries(2))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Len(t, store.requests, 1)
}

func TestBatchWriter_Timeout(t *testing.T) {
	store := newRecordingStore()
	store.delay = time.Second
	w := NewBatchWriter(store, WithTimeout(10*time.Millisecond))

	err := w.Write(context.Background(), entries(1))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestBatchWriter_IdempotentUpsert(t *testing.T) {
	store := newRecordingStore()
	w := NewBatchWriter(store)

	require.NoError(t, w.Write(context.Background(), entries(4)))
	require.NoError(t, w.Write(context.Background(), entries(4)))

	count, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, count)
}
