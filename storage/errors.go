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

package storage

import "errors"

var (
	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")

	// ErrStorageClosed indicates that the storage backend is closed.
	ErrStorageClosed = errors.New("storage is closed")

	// ErrSerializationFailed indicates a serialization/deserialization failure.
	ErrSerializationFailed = errors.New("serialization failed")

	// ErrBatchTooLarge indicates an upsert request above the configured maximum.
	ErrBatchTooLarge = errors.New("upsert batch exceeds maximum size")

	// ErrParamsChanged indicates that a collection was built with different
	// chunking parameters than the ones requested.
	ErrParamsChanged = errors.New("chunking parameters differ from those pinned for the collection")

	// ErrInvalidEntry indicates an entry without an ID or vector.
	ErrInvalidEntry = errors.New("invalid index entry")
)
