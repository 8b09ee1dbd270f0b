package ingestion

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/poiesic/edgarindex/ai"
	"github.com/poiesic/edgarindex/ai/mock"
	"github.com/poiesic/edgarindex/core"
	"github.com/poiesic/edgarindex/storage"
	"github.com/poiesic/edgarindex/storage/badger"
	"github.com/stretchr/testify/require"
)

// testPipeline wires the real adapters over an in-memory store and a mock
// embedding service.
type testPipeline struct {
	embedder  *mock.MockEmbedder
	store     *badger.IndexRepository
	processor *FileProcessor
}

func setupTestPipeline(t *testing.T, config Config) *testPipeline {
	t.Helper()

	indexRepo, runRepo, backend, err := badger.NewMemoryRepositories()
	require.NoError(t, err)
	t.Cleanup(func() {
		runRepo.Close()
		indexRepo.Close()
		backend.Close()
	})

	m := mock.NewMockEmbedder()
	aiConfig := ai.NewConfig(
		ai.WithMaxBatch(max(config.EmbedBatchSize, 1)),
		ai.WithTimeout(time.Second),
		ai.WithRequestInterval(0),
		ai.WithRetryPolicy(ai.RetryPolicy{
			MaxAttempts: 2,
			BaseDelay:   time.Millisecond,
			Retryable:   ai.IsTransient,
		}),
	)
	embedder := ai.NewBatchEmbedder(m, aiConfig)
	writer := storage.NewBatchWriter(indexRepo, storage.WithMaxBatch(max(config.UpsertBatchSize, 1)))

	processor, err := NewFileProcessor(embedder, writer, config)
	require.NoError(t, err)

	return &testPipeline{embedder: m, store: indexRepo, processor: processor}
}

func smallConfig() Config {
	return Config{WindowSize: 2, Overlap: 0, EmbedBatchSize: 2, UpsertBatchSize: 3}
}

func testDocument(id string, sections ...core.Section) *core.Document {
	return &core.Document{
		ID:           id,
		Organization: "Acme Corp",
		Type:         "10-K",
		IssueDate:    "2024-02-15",
		Sections:     sections,
	}
}

func words(prefix string, n int) string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("%s%d", prefix, i)
	}
	return strings.Join(out, " ")
}

// panickingSource blows up when loaded.
type panickingSource struct{}

func (panickingSource) Name() string { return "panic.json" }

func (panickingSource) Load(ctx context.Context) (*core.Document, error) {
	panic("corrupt source")
}
