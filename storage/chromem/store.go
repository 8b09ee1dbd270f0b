// Package chromem provides a storage.IndexStore backed by a chromem-go
// collection, persisted to disk or held in memory.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"runtime"

	"github.com/philippgille/chromem-go"
	"github.com/poiesic/edgarindex/core"
	"github.com/poiesic/edgarindex/storage"
)

// DefaultCollection is used when no collection name is given.
const DefaultCollection = "edgar_filings"

// ErrEmbeddingRequired is returned if chromem ever asks the collection to
// embed text itself. Vectors are always computed before entries reach the store.
var ErrEmbeddingRequired = errors.New("index entries must carry their own vector")

// Store implements storage.IndexStore over a chromem-go collection.
type Store struct {
	db          *chromem.DB
	collection  *chromem.Collection
	concurrency int
	logger      *slog.Logger
}

var _ storage.IndexStore = (*Store)(nil)

// NewStore opens (or creates) the persistent database at path and the named
// collection inside it.
func NewStore(path, collection string) (storage.IndexStore, error) {
	db, err := chromem.NewPersistentDB(path, false)
	if err != nil {
		return nil, fmt.Errorf("failed to open chromem database: %w", err)
	}
	return newStore(db, collection)
}

// NewMemoryStore creates a store that lives only in memory.
func NewMemoryStore(collection string) (*Store, error) {
	return newStore(chromem.NewDB(), collection)
}

func newStore(db *chromem.DB, collection string) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	c, err := db.GetOrCreateCollection(collection, nil, refuseEmbedding)
	if err != nil {
		return nil, fmt.Errorf("failed to create/get collection: %w", err)
	}
	return &Store{
		db:          db,
		collection:  c,
		concurrency: runtime.NumCPU(),
		logger:      slog.Default().With("component", "chromem-store", "collection", collection),
	}, nil
}

func refuseEmbedding(ctx context.Context, text string) ([]float32, error) {
	return nil, ErrEmbeddingRequired
}

// Upsert adds the entries to the collection. chromem replaces documents with
// an existing ID.
func (s *Store) Upsert(ctx context.Context, entries ...*core.IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	docs := make([]chromem.Document, len(entries))
	for i, entry := range entries {
		if entry == nil || entry.ID == "" || len(entry.Vector) == 0 {
			return storage.ErrInvalidEntry
		}
		docs[i] = chromem.Document{
			ID:        entry.ID,
			Content:   entry.Metadata[core.MetaText],
			Metadata:  maps.Clone(entry.Metadata),
			Embedding: entry.Vector,
		}
	}
	if err := s.collection.AddDocuments(ctx, docs, s.concurrency); err != nil {
		return fmt.Errorf("failed to add documents: %w", err)
	}
	s.logger.Debug("upserted entries", "count", len(docs))
	return nil
}

// Count returns the number of documents in the collection.
func (s *Store) Count(ctx context.Context) (int, error) {
	return s.collection.Count(), nil
}

// Get retrieves a single entry by ID.
func (s *Store) Get(ctx context.Context, id string) (*core.IndexEntry, error) {
	doc, err := s.collection.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, id)
	}
	return &core.IndexEntry{
		ID:       doc.ID,
		Vector:   doc.Embedding,
		Metadata: doc.Metadata,
	}, nil
}

// Close is a no-op; chromem persists each document as it is added.
func (s *Store) Close() error {
	return nil
}
