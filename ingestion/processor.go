package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/poiesic/edgarindex/chunk"
	"github.com/poiesic/edgarindex/core"
)

// Embedder turns a batch of texts into vectors, one per text, in order.
// *ai.BatchEmbedder satisfies it.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// EntryWriter persists a batch of index entries as one request.
// *storage.BatchWriter satisfies it.
type EntryWriter interface {
	Write(ctx context.Context, batch []*core.IndexEntry) error
}

// Config holds the parameters of document processing.
type Config struct {
	WindowSize      int // Words per window
	Overlap         int // Words shared by consecutive windows
	EmbedBatchSize  int // Windows per embedding request
	UpsertBatchSize int // Entries per upsert request
}

// DefaultConfig returns 1000-word windows with 100 words of overlap and
// batches of 100 on both sides.
func DefaultConfig() Config {
	return Config{
		WindowSize:      1000,
		Overlap:         100,
		EmbedBatchSize:  100,
		UpsertBatchSize: 100,
	}
}

// Validate checks that the configuration is usable.
func (c Config) Validate() error {
	if c.WindowSize < 1 {
		return fmt.Errorf("%w: window size must be at least 1", ErrInvalidConfig)
	}
	if c.Overlap < 0 || c.Overlap >= c.WindowSize {
		return fmt.Errorf("%w: overlap must be in [0, window size)", ErrInvalidConfig)
	}
	if c.EmbedBatchSize < 1 {
		return fmt.Errorf("%w: embedding batch size must be at least 1", ErrInvalidConfig)
	}
	if c.UpsertBatchSize < 1 {
		return fmt.Errorf("%w: upsert batch size must be at least 1", ErrInvalidConfig)
	}
	return nil
}

// Params returns the chunking parameters that determine entry identifiers.
func (c Config) Params(model string) core.ChunkParams {
	return core.ChunkParams{
		WindowSize:     c.WindowSize,
		Overlap:        c.Overlap,
		EmbeddingModel: model,
	}
}

// FileProcessor produces and persists the index entries of one document.
// It is safe for concurrent use if its embedder and writer are.
type FileProcessor struct {
	config   Config
	embedder Embedder
	writer   EntryWriter
	logger   *slog.Logger
}

// ProcessorOption configures a FileProcessor.
type ProcessorOption func(*FileProcessor)

// WithProcessorLogger sets a custom logger.
func WithProcessorLogger(logger *slog.Logger) ProcessorOption {
	return func(p *FileProcessor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewFileProcessor creates a processor. If the embedder or writer report a
// maximum batch size, the configured batch sizes must fit within it.
func NewFileProcessor(embedder Embedder, writer EntryWriter, config Config, opts ...ProcessorOption) (*FileProcessor, error) {
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if writer == nil {
		return nil, ErrWriterRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	if limit, ok := embedder.(interface{ MaxBatch() int }); ok && config.EmbedBatchSize > limit.MaxBatch() {
		return nil, fmt.Errorf("%w: embedding batch size %d exceeds embedder maximum %d",
			ErrInvalidConfig, config.EmbedBatchSize, limit.MaxBatch())
	}
	if limit, ok := writer.(interface{ MaxBatch() int }); ok && config.UpsertBatchSize > limit.MaxBatch() {
		return nil, fmt.Errorf("%w: upsert batch size %d exceeds writer maximum %d",
			ErrInvalidConfig, config.UpsertBatchSize, limit.MaxBatch())
	}

	p := &FileProcessor{
		config:   config,
		embedder: embedder,
		writer:   writer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "file-processor")
	return p, nil
}

// Config returns the processor's configuration.
func (p *FileProcessor) Config() Config {
	return p.config
}

// Process loads the document from src, then chunks, embeds and upserts it.
// Every failure, including a panic, is captured in the returned outcome.
// Batch failures do not stop the remaining batches; the first error is kept.
func (p *FileProcessor) Process(ctx context.Context, src Source) (out core.Outcome) {
	start := time.Now()
	out.Source = src.Name()
	defer func() {
		if r := recover(); r != nil {
			out.Success = false
			out.Err = fmt.Errorf("%w: %v", ErrPanic, r)
			p.logger.Error("recovered from panic", "source", out.Source, "panic", r)
		}
		out.Elapsed = time.Since(start)
	}()

	doc, err := src.Load(ctx)
	if err == nil {
		err = core.ValidateDocument(doc)
	}
	if err != nil {
		out.Err = err
		if doc != nil {
			out.DocumentID = doc.ID
		}
		p.logger.Warn("skipping unreadable document", "source", out.Source, "err", err)
		return out
	}
	out.DocumentID = doc.ID

	windows, err := p.windows(doc, &out)
	if err != nil {
		out.Err = err
		return out
	}

	entries := p.embed(ctx, doc, windows, &out)
	p.upsert(ctx, entries, &out)

	out.Success = out.Err == nil
	p.logger.Debug("processed document",
		"document", doc.ID,
		"windows", out.Windows,
		"entries", out.EntriesWritten,
		"success", out.Success)
	return out
}

// windows chunks every section in document order. Sequence numbers restart
// at 0 for each section.
func (p *FileProcessor) windows(doc *core.Document, out *core.Outcome) ([]core.Window, error) {
	var windows []core.Window
	for _, section := range doc.Sections {
		texts, err := chunk.Split(section.Text, p.config.WindowSize, p.config.Overlap)
		if err != nil {
			return nil, fmt.Errorf("section %q: %w", section.Name, err)
		}
		if len(texts) == 0 {
			continue
		}
		out.Sections++
		for seq, text := range texts {
			windows = append(windows, core.Window{
				DocumentID: doc.ID,
				Section:    section.Name,
				Seq:        seq,
				Text:       text,
			})
		}
	}
	out.Windows = len(windows)
	return windows, nil
}

// embed sends the windows in order-preserving batches and returns the entries
// of every window whose batch succeeded.
func (p *FileProcessor) embed(ctx context.Context, doc *core.Document, windows []core.Window, out *core.Outcome) []*core.IndexEntry {
	entries := make([]*core.IndexEntry, 0, len(windows))
	for start := 0; start < len(windows); start += p.config.EmbedBatchSize {
		batch := windows[start:min(start+p.config.EmbedBatchSize, len(windows))]
		texts := make([]string, len(batch))
		for i, w := range batch {
			texts[i] = w.Text
		}

		out.EmbeddingBatches++
		vectors, err := p.embedder.Embed(ctx, texts)
		if err == nil && len(vectors) != len(batch) {
			err = fmt.Errorf("embedding result mismatch. expected %d, received %d", len(batch), len(vectors))
		}
		if err != nil {
			out.FailedBatches++
			p.recordError(out, err)
			p.logger.Warn("embedding batch failed",
				"document", doc.ID, "first", batch[0].ID(), "size", len(batch), "err", err)
			continue
		}

		for i, w := range batch {
			entries = append(entries, core.NewIndexEntry(doc, w, vectors[i]))
		}
	}
	return entries
}

// upsert writes the entries in order-preserving batches.
func (p *FileProcessor) upsert(ctx context.Context, entries []*core.IndexEntry, out *core.Outcome) {
	for start := 0; start < len(entries); start += p.config.UpsertBatchSize {
		batch := entries[start:min(start+p.config.UpsertBatchSize, len(entries))]

		out.UpsertBatches++
		if err := p.writer.Write(ctx, batch); err != nil {
			out.FailedBatches++
			p.recordError(out, err)
			p.logger.Warn("upsert batch failed",
				"document", out.DocumentID, "first", batch[0].ID, "size", len(batch), "err", err)
			continue
		}
		out.EntriesWritten += len(batch)
	}
}

func (p *FileProcessor) recordError(out *core.Outcome, err error) {
	if out.Err == nil {
		out.Err = err
	}
}
