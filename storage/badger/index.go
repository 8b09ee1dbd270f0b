package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/edgarindex/core"
	"github.com/poiesic/edgarindex/storage"
)

// DefaultCollection is used when no collection name is given.
const DefaultCollection = "edgar_filings"

// IndexRepository implements storage.IndexRepository for BadgerDB.
type IndexRepository struct {
	backend    *Backend
	collection string
}

var _ storage.IndexRepository = (*IndexRepository)(nil)

// NewIndexRepository creates an IndexRepository for one collection.
func NewIndexRepository(backend *Backend, collection string) (*IndexRepository, error) {
	if collection == "" {
		collection = DefaultCollection
	}
	if strings.Contains(collection, ":") {
		return nil, fmt.Errorf("collection name %q must not contain ':'", collection)
	}
	return &IndexRepository{
		backend:    backend,
		collection: collection,
	}, nil
}

// Collection returns the collection name.
func (r *IndexRepository) Collection() string {
	return r.collection
}

// Close is a no-op; the backend is owned by the caller.
func (r *IndexRepository) Close() error {
	return nil
}

// Upsert writes all entries in a single transaction, replacing any entry
// with the same ID.
func (r *IndexRepository) Upsert(ctx context.Context, entries ...*core.IndexEntry) error {
	if r.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		for _, entry := range entries {
			if entry == nil || entry.ID == "" {
				return storage.ErrInvalidEntry
			}
			key := makeIndexEntryKey(r.collection, entry.ID)
			if err := tx.Set(key, storage.MarshalIndexEntry(entry)); err != nil {
				return err
			}
		}
		return nil
	})
}

// Get retrieves a single entry by ID.
func (r *IndexRepository) Get(ctx context.Context, id string) (*core.IndexEntry, error) {
	var entry *core.IndexEntry
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeIndexEntryKey(r.collection, id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return storage.ErrNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			var unmarshalErr error
			entry, unmarshalErr = storage.UnmarshalIndexEntry(val)
			return unmarshalErr
		})
	}, false)
	return entry, err
}

// Count returns the number of entries in the collection.
func (r *IndexRepository) Count(ctx context.Context) (int, error) {
	if r.backend.IsClosed() {
		return 0, storage.ErrStorageClosed
	}
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = countPrefix(tx, makeCollectionPrefix(r.collection))
		return nil
	}, false)
	return count, err
}

// CountDocument returns the number of entries belonging to documentID.
func (r *IndexRepository) CountDocument(ctx context.Context, documentID string) (int, error) {
	var count int
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		count = countPrefix(tx, makeDocumentPrefix(r.collection, documentID))
		return nil
	}, false)
	return count, err
}
