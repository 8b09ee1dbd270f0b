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

// Package edgarindex wires the filing indexer together: a vector store, the
// run ledger, an embedding client and the document scheduler.
package edgarindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/poiesic/edgarindex/ai"
	"github.com/poiesic/edgarindex/ai/ollama"
	"github.com/poiesic/edgarindex/ai/openai"
	"github.com/poiesic/edgarindex/config"
	"github.com/poiesic/edgarindex/core"
	"github.com/poiesic/edgarindex/ingestion"
	"github.com/poiesic/edgarindex/storage"
	"github.com/poiesic/edgarindex/storage/badger"
	"github.com/poiesic/edgarindex/storage/chromem"
)

// Subdirectories of the database path.
const (
	badgerDir  = "badger"
	chromemDir = "chromem"
)

// Indexer ties a vector store, the run ledger and the ingestion pipeline
// together for one collection.
type Indexer struct {
	settings  *config.Settings
	backend   *badger.Backend
	store     storage.IndexStore
	runs      storage.RunRepository
	scheduler *ingestion.Scheduler
	params    core.ChunkParams
	previous  *core.ChunkParams
	base      *slog.Logger
	logger    *slog.Logger
}

// Option configures an Indexer.
type Option func(*options)

type options struct {
	embedder ai.Embedder
	progress *ingestion.ProgressTracker
	logger   *slog.Logger
}

// WithEmbedder uses embedder instead of building a client from the settings.
func WithEmbedder(embedder ai.Embedder) Option {
	return func(o *options) {
		o.embedder = embedder
	}
}

// WithProgress reports per-run progress through tracker.
func WithProgress(tracker *ingestion.ProgressTracker) Option {
	return func(o *options) {
		o.progress = tracker
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// NewEmbedder builds the embedding client named by the config's provider.
func NewEmbedder(cfg *ai.Config) (ai.Embedder, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case ai.ProviderOllama:
		return ollama.NewEmbedder(cfg)
	default:
		return openai.NewEmbedder(cfg)
	}
}

// Open validates settings, opens the stores and pins the chunking parameters
// of the collection. It fails if the collection was built with different
// parameters, unless settings.AllowParamChange is set.
func Open(ctx context.Context, settings *config.Settings, opts ...Option) (*Indexer, error) {
	o := &options{logger: slog.Default()}
	for _, opt := range opts {
		opt(o)
	}
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	aiConfig := settings.AI()
	embedder := o.embedder
	if embedder == nil {
		var err error
		embedder, err = NewEmbedder(aiConfig)
		if err != nil {
			return nil, err
		}
	}

	backend, err := badger.OpenBackend(filepath.Join(settings.DB, badgerDir), false)
	if err != nil {
		return nil, err
	}

	runs, err := badger.NewRunRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	store, err := openStore(settings, backend)
	if err != nil {
		runs.Close()
		backend.Close()
		return nil, err
	}

	idx := &Indexer{
		settings: settings,
		backend:  backend,
		store:    store,
		runs:     runs,
		params:   settings.Processing().Params(aiConfig.Model),
		base:     o.logger,
		logger:   o.logger.With("component", "indexer", "collection", settings.Collection),
	}

	idx.previous, err = runs.PinParams(ctx, settings.Collection, idx.params, settings.AllowParamChange)
	if err != nil {
		idx.Close()
		return nil, err
	}
	if idx.previous != nil && *idx.previous != idx.params {
		idx.logger.Warn("chunking parameters changed; existing entries may be orphaned",
			"previous", idx.previous.String(), "current", idx.params.String())
	}

	batchEmbedder := ai.NewBatchEmbedder(embedder, aiConfig, ai.WithBatchLogger(o.logger))
	writer := storage.NewBatchWriter(store,
		storage.WithMaxBatch(settings.Upsert.BatchSize),
		storage.WithTimeout(settings.Upsert.Timeout),
		storage.WithLogger(o.logger),
	)
	processor, err := ingestion.NewFileProcessor(batchEmbedder, writer, settings.Processing(),
		ingestion.WithProcessorLogger(o.logger))
	if err != nil {
		idx.Close()
		return nil, err
	}

	schedulerOpts := []ingestion.Option{
		ingestion.WithConcurrency(settings.Concurrency),
		ingestion.WithParams(idx.params),
		ingestion.WithLogger(o.logger),
	}
	if o.progress != nil {
		schedulerOpts = append(schedulerOpts, ingestion.WithProgress(o.progress))
	}
	idx.scheduler, err = ingestion.NewScheduler(processor, schedulerOpts...)
	if err != nil {
		idx.Close()
		return nil, err
	}

	return idx, nil
}

func openStore(settings *config.Settings, backend *badger.Backend) (storage.IndexStore, error) {
	switch settings.Store {
	case config.StoreChromem:
		return chromem.NewStore(filepath.Join(settings.DB, chromemDir), settings.Collection)
	default:
		return badger.NewIndexRepository(backend, settings.Collection)
	}
}

// Params returns the chunking parameters this indexer writes with.
func (idx *Indexer) Params() core.ChunkParams {
	return idx.params
}

// PreviousParams returns the parameters pinned before Open, or nil if the
// collection was new.
func (idx *Indexer) PreviousParams() *core.ChunkParams {
	return idx.previous
}

// Store returns the vector store entries are upserted into.
func (idx *Indexer) Store() storage.IndexStore {
	return idx.store
}

// RunRepository returns the ledger runs and pinned params are kept in.
func (idx *Indexer) RunRepository() storage.RunRepository {
	return idx.runs
}

// Ingest processes every document file in dir once and records the run.
// A directory without document files yields an empty summary and no record.
func (idx *Indexer) Ingest(ctx context.Context, dir string) (core.Summary, error) {
	sources, err := ingestion.DiscoverSources(dir)
	if err != nil {
		return core.Summary{}, err
	}
	if len(sources) == 0 {
		idx.logger.Info("no documents found", "dir", dir)
		return core.Summary{Params: idx.params}, nil
	}
	return idx.Run(ctx, sources), nil
}

// Run processes sources once and records the run.
func (idx *Indexer) Run(ctx context.Context, sources []ingestion.Source) core.Summary {
	summary := idx.scheduler.Run(ctx, sources)
	idx.record(&summary)
	return summary
}

// Watch ingests the document files already in dir, then the ones that
// appear there, until ctx is cancelled. onRun, if not nil, receives the
// summary of every run.
func (idx *Indexer) Watch(ctx context.Context, dir string, onRun func(core.Summary)) error {
	watcher, err := ingestion.NewWatcher(dir, idx.scheduler,
		ingestion.WithInitialScan(),
		ingestion.WithWatcherLogger(idx.base),
		ingestion.WithRunHandler(func(summary core.Summary) {
			idx.record(&summary)
			if onRun != nil {
				onRun(summary)
			}
		}),
	)
	if err != nil {
		return err
	}
	return watcher.Watch(ctx)
}

// record saves the run even when the run itself was stopped early.
func (idx *Indexer) record(summary *core.Summary) {
	run := core.NewRunRecord(idx.settings.Collection, summary)
	if err := idx.runs.SaveRun(context.Background(), run); err != nil {
		idx.logger.Error("failed to record run", "run", summary.RunID, "err", err)
	}
}

// Close stops the worker pool and closes the store, the ledger and the
// badger backend. Every resource is closed even if an earlier one fails;
// the failures are joined.
func (idx *Indexer) Close() error {
	if idx.scheduler != nil {
		idx.scheduler.Release()
	}

	var errs []error
	if err := idx.store.Close(); err != nil {
		idx.logger.Error("error closing index store", "err", err)
		errs = append(errs, err)
	}
	if err := idx.runs.Close(); err != nil {
		idx.logger.Error("error closing run repository", "err", err)
		errs = append(errs, err)
	}
	if err := idx.backend.Close(); err != nil {
		idx.logger.Error("error closing backend storage", "err", err)
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Ledger gives read access to the recorded runs without opening a store or
// an embedding client.
type Ledger struct {
	backend *badger.Backend
	runs    storage.RunRepository
}

// OpenLedger opens the run ledger under the database path.
func OpenLedger(db string) (*Ledger, error) {
	backend, err := badger.OpenBackend(filepath.Join(db, badgerDir), false)
	if err != nil {
		return nil, fmt.Errorf("cannot open ledger: %w", err)
	}
	runs, err := badger.NewRunRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}
	return &Ledger{backend: backend, runs: runs}, nil
}

// Runs returns every recorded run, oldest first.
func (l *Ledger) Runs(ctx context.Context) ([]*core.RunRecord, error) {
	return l.runs.ListRuns(ctx)
}

// PinnedParams returns the pin recorded for each collection, keyed by
// collection name.
func (l *Ledger) PinnedParams(ctx context.Context) (map[string]core.ParamsPin, error) {
	return l.runs.PinnedParams(ctx)
}

// Close releases the ledger and its badger backend.
func (l *Ledger) Close() error {
	return errors.Join(l.runs.Close(), l.backend.Close())
}
