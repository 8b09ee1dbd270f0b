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

package badger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/edgarindex/core"
	"github.com/poiesic/edgarindex/storage"
)

// RunRepository implements storage.RunRepository for BadgerDB.
type RunRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.RunRepository = (*RunRepository)(nil)

// NewRunRepository creates a new RunRepository.
func NewRunRepository(backend *Backend) (*RunRepository, error) {
	idSeq, err := backend.GetSequence(runRecordIDSeq)
	if err != nil {
		return nil, err
	}
	return &RunRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the run sequence.
func (r *RunRepository) Close() error {
	return r.idSeq.Release()
}

// PinParams records params for collection, refusing a silent change.
func (r *RunRepository) PinParams(ctx context.Context, collection string, params core.ChunkParams, allowChange bool) (*core.ChunkParams, error) {
	var previous *core.ChunkParams
	err := r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		key := makeParamsKey(collection)
		var pin *core.ParamsPin
		item, err := tx.Get(key)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			err = item.Value(func(val []byte) error {
				var unmarshalErr error
				pin, unmarshalErr = storage.UnmarshalParamsPin(val)
				return unmarshalErr
			})
			if err != nil {
				return err
			}
			previous = &pin.Params
		}

		if pin != nil && pin.Matches(params) {
			return nil
		}
		if previous != nil && !allowChange {
			return fmt.Errorf("%w: collection %q pinned to %s, requested %s",
				storage.ErrParamsChanged, collection, previous, params)
		}
		if previous != nil {
			r.backend.logger.Warn("replacing pinned chunking parameters",
				"collection", collection, "previous", previous.String(), "params", params.String())
		}
		return tx.Set(key, storage.MarshalParamsPin(core.NewParamsPin(params, time.Now())))
	})
	if err != nil {
		return nil, err
	}
	return previous, nil
}

// PinnedParams returns the pin recorded for every collection.
func (r *RunRepository) PinnedParams(ctx context.Context) (map[string]core.ParamsPin, error) {
	pinned := make(map[string]core.ParamsPin)
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(paramsPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			item := iter.Item()
			collection := strings.TrimPrefix(string(item.Key()), paramsPrefix+":")
			err := item.Value(func(val []byte) error {
				pin, err := storage.UnmarshalParamsPin(val)
				if err != nil {
					return err
				}
				pinned[collection] = *pin
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return pinned, err
}

// SaveRun appends a run to the ledger.
func (r *RunRepository) SaveRun(ctx context.Context, run *core.RunRecord) error {
	seq, err := r.idSeq.Next()
	if err != nil {
		return err
	}
	return r.backend.WithWriteTx(ctx, func(tx *badger.Txn) error {
		return tx.Set(makeRunRecordKey(seq), storage.MarshalRunRecord(run))
	})
}

// ListRuns returns all recorded runs, oldest first.
func (r *RunRepository) ListRuns(ctx context.Context) ([]*core.RunRecord, error) {
	var runs []*core.RunRecord
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(runRecordPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			err := iter.Item().Value(func(val []byte) error {
				run, err := storage.UnmarshalRunRecord(val)
				if err != nil {
					return err
				}
				runs = append(runs, run)
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	}, false)
	return runs, err
}
