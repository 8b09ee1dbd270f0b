package storage

import (
	"context"

	"github.com/poiesic/edgarindex/core"
)

// IndexStore persists index entries. Upserting an entry whose ID already
// exists replaces it, so writing the same entries twice leaves the store
// unchanged. Implementations must be thread-safe.
type IndexStore interface {
	// Upsert inserts or replaces the given entries as one request.
	Upsert(ctx context.Context, entries ...*core.IndexEntry) error

	// Count returns the number of distinct entries in the store.
	Count(ctx context.Context) (int, error)

	// Close releases resources held by the store.
	Close() error
}

// IndexRepository is an IndexStore that can also read entries back.
type IndexRepository interface {
	IndexStore

	// Get retrieves a single entry by ID.
	// Returns ErrNotFound if the entry doesn't exist.
	Get(ctx context.Context, id string) (*core.IndexEntry, error)

	// CountDocument returns the number of entries belonging to a document.
	CountDocument(ctx context.Context, documentID string) (int, error)
}

// RunRepository records the chunking parameters each collection was built
// with and a summary of every run against it.
type RunRepository interface {
	// PinParams records params for collection and returns the previously
	// pinned params, or nil on first use. Pins are compared by fingerprint.
	// If different params were pinned before, it returns ErrParamsChanged
	// unless allowChange is set, in which case the new params replace the
	// old ones.
	PinParams(ctx context.Context, collection string, params core.ChunkParams, allowChange bool) (*core.ChunkParams, error)

	// SaveRun appends a run to the ledger.
	SaveRun(ctx context.Context, run *core.RunRecord) error

	// ListRuns returns all recorded runs, oldest first.
	ListRuns(ctx context.Context) ([]*core.RunRecord, error)

	// PinnedParams returns the pin recorded for every collection.
	PinnedParams(ctx context.Context) (map[string]core.ParamsPin, error)

	// Close releases resources held by the repository.
	Close() error
}
