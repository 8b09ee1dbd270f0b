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

// Package storage provides the vector store abstraction for edgarindex.
//
// This package defines the interfaces that decouple the ingestion pipeline
// from the store that holds index entries, along with the batch writer that
// enforces per-request limits on top of any store.
//
// # Constructor Return Type Pattern
//
// Public constructors in the backend packages return interfaces to keep
// callers from coupling to a particular backend:
//
//	store, err := chromem.NewStore(path, collection)   // returns storage.IndexStore
//	repo := badger.NewRunRepository(backend)           // returns storage.RunRepository
//
// # Architecture
//
//   - IndexStore: upsert-by-ID and count of index entries
//   - RunRepository: pinned chunking parameters and the run ledger
//   - BatchWriter: request-size ceiling and per-call timeout over an IndexStore
//
// Two backends implement IndexStore: storage/badger keeps entries in BadgerDB
// with a per-document secondary index, storage/chromem keeps them in a
// chromem-go collection.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access from
// multiple goroutines.
package storage
