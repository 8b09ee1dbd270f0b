package ingestion

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/poiesic/edgarindex/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{"default", DefaultConfig(), false},
		{"zero window", Config{WindowSize: 0, EmbedBatchSize: 1, UpsertBatchSize: 1}, true},
		{"overlap equals window", Config{WindowSize: 3, Overlap: 3, EmbedBatchSize: 1, UpsertBatchSize: 1}, true},
		{"negative overlap", Config{WindowSize: 3, Overlap: -1, EmbedBatchSize: 1, UpsertBatchSize: 1}, true},
		{"zero embed batch", Config{WindowSize: 3, UpsertBatchSize: 1}, true},
		{"zero upsert batch", Config{WindowSize: 3, EmbedBatchSize: 1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewFileProcessor_BatchSizeAboveEmbedderMaximum(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())

	config := smallConfig()
	config.EmbedBatchSize = 50
	_, err := NewFileProcessor(p.processor.embedder, p.processor.writer, config)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestNewFileProcessor_RequiresDependencies(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())

	_, err := NewFileProcessor(nil, p.processor.writer, smallConfig())
	assert.ErrorIs(t, err, ErrEmbedderRequired)
	_, err = NewFileProcessor(p.processor.embedder, nil, smallConfig())
	assert.ErrorIs(t, err, ErrWriterRequired)
}

func TestProcess_BoundaryExample(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())
	ctx := context.Background()

	doc := testDocument("ACC1", core.Section{Name: "risk", Text: "a b c d"})
	out := p.processor.Process(ctx, DocumentSource{Document: doc})

	require.True(t, out.Success, out.Reason())
	assert.Equal(t, "ACC1", out.DocumentID)
	assert.Equal(t, 2, out.Windows)
	assert.Equal(t, 2, out.EntriesWritten)

	first, err := p.store.Get(ctx, "ACC1#risk#0")
	require.NoError(t, err)
	assert.Equal(t, "a b", first.Metadata[core.MetaText])
	assert.Equal(t, "risk", first.Metadata[core.MetaSection])
	assert.Equal(t, "ACC1", first.Metadata[core.MetaDocumentID])
	assert.Equal(t, "Acme Corp", first.Metadata[core.MetaOrganization])
	assert.Equal(t, "10-K", first.Metadata[core.MetaDocumentType])
	assert.Equal(t, "2024-02-15", first.Metadata[core.MetaIssueDate])

	second, err := p.store.Get(ctx, "ACC1#risk#1")
	require.NoError(t, err)
	assert.Equal(t, "c d", second.Metadata[core.MetaText])
}

func TestProcess_SequenceScopedPerSection(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())
	ctx := context.Background()

	doc := testDocument("ACC2",
		core.Section{Name: "Item 1", Text: "a b c"},
		core.Section{Name: "Item 7", Text: "d e"},
	)
	out := p.processor.Process(ctx, DocumentSource{Document: doc})
	require.True(t, out.Success, out.Reason())
	assert.Equal(t, 2, out.Sections)
	assert.Equal(t, 3, out.EntriesWritten)

	for _, id := range []string{"ACC2#Item 1#0", "ACC2#Item 1#1", "ACC2#Item 7#0"} {
		_, err := p.store.Get(ctx, id)
		assert.NoError(t, err, id)
	}
}

func TestProcess_BatchCounts(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())

	// 14 words -> 7 windows -> 4 embedding batches of 2 and 3 upsert batches of 3
	doc := testDocument("ACC3", core.Section{Name: "s", Text: words("w", 14)})
	out := p.processor.Process(context.Background(), DocumentSource{Document: doc})

	require.True(t, out.Success, out.Reason())
	assert.Equal(t, 7, out.Windows)
	assert.Equal(t, 4, out.EmbeddingBatches)
	assert.Equal(t, 3, out.UpsertBatches)
	assert.Equal(t, 7, out.EntriesWritten)
	assert.Equal(t, 4, p.embedder.CallCount())
}

func TestProcess_EmptySection(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())

	doc := testDocument("ACC4", core.Section{Name: "empty", Text: ""})
	out := p.processor.Process(context.Background(), DocumentSource{Document: doc})

	assert.True(t, out.Success)
	assert.Zero(t, out.EntriesWritten)
	assert.Zero(t, out.Sections)
	assert.Zero(t, p.embedder.CallCount())
}

func TestProcess_NoSections(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())

	out := p.processor.Process(context.Background(), DocumentSource{Document: testDocument("ACC5")})
	assert.True(t, out.Success)
	assert.Zero(t, out.EntriesWritten)
}

func TestProcess_SkipsEmptySectionAmongOthers(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())

	doc := testDocument("ACC6",
		core.Section{Name: "blank", Text: "   \n\t"},
		core.Section{Name: "body", Text: "x y"},
	)
	out := p.processor.Process(context.Background(), DocumentSource{Document: doc})
	require.True(t, out.Success)
	assert.Equal(t, 1, out.Sections)
	assert.Equal(t, 1, out.EntriesWritten)
}

func TestProcess_ParseFailure(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())

	path := writeFile(t, t.TempDir(), "broken.json", `{"document_id": "ACC7", "sections": `)
	out := p.processor.Process(context.Background(), FileSource{Path: path})

	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, ErrParse)
	assert.Equal(t, "broken.json", out.Source)
	assert.NotEmpty(t, out.Reason())
}

func TestProcess_InvalidDocument(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())

	doc := testDocument("ACC8", core.Section{Name: "s", Text: "a b"})
	doc.Organization = ""
	out := p.processor.Process(context.Background(), DocumentSource{Document: doc})

	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, core.ErrInvalidDocument)
	assert.Equal(t, "ACC8", out.DocumentID)
	assert.Zero(t, p.embedder.CallCount())
}

func TestProcess_EmbeddingBatchFailureContinues(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())
	var calls atomic.Int32
	p.embedder.WithEmbedTextsFunc(func(ctx context.Context, texts []string) ([][]float32, error) {
		if calls.Add(1) == 2 {
			return nil, errors.New("API returned unexpected status code: 400: bad request")
		}
		out := make([][]float32, len(texts))
		for i := range texts {
			out[i] = []float32{1, 0, 0}
		}
		return out, nil
	})

	// 6 windows -> 3 embedding batches; the second fails
	doc := testDocument("ACC9", core.Section{Name: "s", Text: words("w", 12)})
	out := p.processor.Process(context.Background(), DocumentSource{Document: doc})

	assert.False(t, out.Success)
	assert.Equal(t, 3, out.EmbeddingBatches)
	assert.Equal(t, 1, out.FailedBatches)
	assert.Equal(t, 4, out.EntriesWritten, "windows of the other batches are still written")
	assert.Contains(t, out.Reason(), "400")

	n, err := p.store.CountDocument(context.Background(), "ACC9")
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

// failingWriter fails every request whose first entry matches failOn.
type failingWriter struct {
	inner  EntryWriter
	failOn string
	calls  atomic.Int32
}

func (w *failingWriter) Write(ctx context.Context, batch []*core.IndexEntry) error {
	w.calls.Add(1)
	if strings.HasSuffix(batch[0].ID, w.failOn) {
		return errors.New("vector store unavailable")
	}
	return w.inner.Write(ctx, batch)
}

func TestProcess_UpsertFailureContinues(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())
	writer := &failingWriter{inner: p.processor.writer, failOn: "#0"}
	processor, err := NewFileProcessor(p.processor.embedder, writer, smallConfig())
	require.NoError(t, err)

	// 5 windows -> upsert batches [0,1,2] and [3,4]; the first fails
	doc := testDocument("ACC10", core.Section{Name: "s", Text: words("w", 10)})
	out := processor.Process(context.Background(), DocumentSource{Document: doc})

	assert.False(t, out.Success)
	assert.Equal(t, int32(2), writer.calls.Load(), "later batches are still attempted")
	assert.Equal(t, 2, out.EntriesWritten)
	assert.Contains(t, out.Reason(), "vector store unavailable")
}

func TestProcess_IdempotentReingestion(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())
	ctx := context.Background()
	doc := testDocument("ACC11", core.Section{Name: "s", Text: words("w", 9)})

	first := p.processor.Process(ctx, DocumentSource{Document: doc})
	require.True(t, first.Success)
	before, err := p.store.CountDocument(ctx, "ACC11")
	require.NoError(t, err)

	second := p.processor.Process(ctx, DocumentSource{Document: doc})
	require.True(t, second.Success)
	after, err := p.store.CountDocument(ctx, "ACC11")
	require.NoError(t, err)

	assert.Equal(t, before, after)
	assert.Equal(t, 5, after)
}

func TestProcess_RecoversFromPanic(t *testing.T) {
	p := setupTestPipeline(t, smallConfig())

	out := p.processor.Process(context.Background(), panickingSource{})
	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, ErrPanic)
	assert.Equal(t, "panic.json", out.Source)
}
