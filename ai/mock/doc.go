// Package mock provides test double implementations of ai.Embedder.
//
// The mocks let pipeline tests run without an embedding service and give
// them controlled, deterministic behaviour.
//
// # Usage in Tests
//
//	// Basic usage with default behavior
//	embedder := mock.NewMockEmbedder()
//	vectors, err := embedder.EmbedTexts(ctx, []string{"a", "b"})
//
//	// Custom behavior injection
//	embedder := mock.NewMockEmbedder().
//	    WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
//	        return nil, ai.ErrRateLimited
//	    })
//
//	// Check call counts
//	count := embedder.CallCount()
//
// # Default Behavior
//
// MockEmbedder returns a deterministic unit vector per text, derived from
// an FNV hash of the text. It is safe for concurrent use.
package mock
