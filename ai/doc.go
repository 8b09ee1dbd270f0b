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

// Package ai provides the embedding side of the indexing pipeline.
//
// The package defines the Embedder abstraction implemented by the provider
// sub-packages, and the BatchEmbedder adapter that every pipeline worker
// calls through. BatchEmbedder enforces the request-size ceiling of the
// embedding service, retries transient failures according to an explicit
// RetryPolicy, and funnels all requests through a process-wide Gate so that
// the shared request quota is respected no matter how many workers run.
//
// # Implementation Packages
//
//   - ai/openai: OpenAI and OpenAI-compatible embedding APIs via langchaingo
//   - ai/ollama: local Ollama servers via langchaingo
//   - ai/mock: deterministic test doubles
//
// Public constructors in the provider packages return the ai.Embedder
// interface. mock.NewMockEmbedder returns the concrete type so tests can
// inject behaviour and inspect call counts.
//
// # Usage Example
//
//	cfg := ai.NewConfig(ai.WithModel("text-embedding-3-small"), ai.WithAPIKey(key))
//	embedder, err := openai.NewEmbedder(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	batcher := ai.NewBatchEmbedder(embedder, cfg)
//	vectors, err := batcher.Embed(ctx, []string{"first window", "second window"})
package ai
