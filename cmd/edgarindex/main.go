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

package main

import (
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/poiesic/edgarindex"
	"github.com/poiesic/edgarindex/config"
	"github.com/poiesic/edgarindex/core"
	"github.com/poiesic/edgarindex/ingestion"
	"github.com/urfave/cli/v2"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "edgarindex",
		Usage: "Chunk, embed and index regulatory filings into a vector store",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "ingest",
				Usage:  "Index every filing in a directory once",
				Action: ingestCommand,
				Flags:  pipelineFlags(),
			},
			{
				Name:   "watch",
				Usage:  "Index filings as they appear in a directory until interrupted",
				Action: watchCommand,
				Flags:  pipelineFlags(),
			},
			{
				Name:   "runs",
				Usage:  "List recorded runs and pinned chunking parameters",
				Action: runsCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "db",
						Aliases: []string{"d"},
						Usage:   "Path to the index database directory",
						Value:   config.Default().DB,
					},
				},
			},
		},
	}
}

func pipelineFlags() []cli.Flag {
	defaults := config.Default()
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "config",
			Usage: "YAML settings file; explicit flags override its values",
		},
		&cli.StringFlag{
			Name:  "dir",
			Usage: "Directory of filing JSON files",
			Value: defaults.Dir,
		},
		&cli.StringFlag{
			Name:  "store",
			Usage: "Vector store (badger, chromem)",
			Value: defaults.Store,
		},
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to the index database directory",
			Value:   defaults.DB,
		},
		&cli.StringFlag{
			Name:    "collection",
			Usage:   "Vector store collection name",
			Value:   defaults.Collection,
			EnvVars: []string{"EDGAR_INDEX_COLLECTION"},
		},
		&cli.IntFlag{
			Name:  "window",
			Usage: "Words per chunk",
			Value: defaults.Chunking.Window,
		},
		&cli.IntFlag{
			Name:  "overlap",
			Usage: "Words shared by consecutive chunks",
			Value: defaults.Chunking.Overlap,
		},
		&cli.IntFlag{
			Name:  "embed-batch",
			Usage: "Chunks per embedding request",
			Value: defaults.Embedding.BatchSize,
		},
		&cli.IntFlag{
			Name:  "upsert-batch",
			Usage: "Entries per vector store upsert",
			Value: defaults.Upsert.BatchSize,
		},
		&cli.IntFlag{
			Name:  "concurrency",
			Usage: "Documents processed at once",
			Value: defaults.Concurrency,
		},
		&cli.IntFlag{
			Name:  "report-interval",
			Usage: "Report progress every N documents",
			Value: 10,
		},
		&cli.StringFlag{
			Name:  "embedding-provider",
			Usage: "Embedding service (openai, ollama)",
			Value: defaults.Embedding.Provider,
		},
		&cli.StringFlag{
			Name:  "embedding-host",
			Usage: "Embedding service host URL",
			Value: defaults.Embedding.Host,
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: defaults.Embedding.Model,
		},
		&cli.StringFlag{
			Name:    "api-key",
			Usage:   "Embedding service API key",
			EnvVars: []string{"OPENAI_API_KEY"},
		},
		&cli.IntFlag{
			Name:  "max-retries",
			Usage: "Maximum attempts per embedding request",
			Value: defaults.Embedding.MaxRetries,
		},
		&cli.DurationFlag{
			Name:  "retry-delay",
			Usage: "Base delay for exponential backoff",
			Value: defaults.Embedding.RetryDelay,
		},
		&cli.DurationFlag{
			Name:  "rate-limit-cooldown",
			Usage: "Pause for all workers after a rate-limit response",
			Value: defaults.Embedding.RateLimitCooldown,
		},
		&cli.DurationFlag{
			Name:  "request-interval",
			Usage: "Minimum spacing between embedding requests",
			Value: defaults.Embedding.RequestInterval,
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Timeout for each embedding or upsert request",
			Value: defaults.Embedding.Timeout,
		},
		&cli.BoolFlag{
			Name:  "allow-param-change",
			Usage: "Allow chunking parameters to differ from those the collection was built with",
		},
	}
}

// loadSettings layers explicit flags over the settings file over defaults.
func loadSettings(c *cli.Context) (*config.Settings, error) {
	settings := config.Default()
	if path := c.String("config"); path != "" {
		var err error
		if settings, err = config.Load(path); err != nil {
			return nil, err
		}
	}

	setString := func(name string, dst *string) {
		if c.IsSet(name) {
			*dst = c.String(name)
		}
	}
	setInt := func(name string, dst *int) {
		if c.IsSet(name) {
			*dst = c.Int(name)
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if c.IsSet(name) {
			*dst = c.Duration(name)
		}
	}

	setString("dir", &settings.Dir)
	setString("store", &settings.Store)
	setString("db", &settings.DB)
	setString("collection", &settings.Collection)
	setInt("window", &settings.Chunking.Window)
	setInt("overlap", &settings.Chunking.Overlap)
	setInt("embed-batch", &settings.Embedding.BatchSize)
	setInt("upsert-batch", &settings.Upsert.BatchSize)
	setInt("concurrency", &settings.Concurrency)
	setString("embedding-provider", &settings.Embedding.Provider)
	setString("embedding-host", &settings.Embedding.Host)
	setString("embedding-model", &settings.Embedding.Model)
	setString("api-key", &settings.Embedding.APIKey)
	setInt("max-retries", &settings.Embedding.MaxRetries)
	setDuration("retry-delay", &settings.Embedding.RetryDelay)
	setDuration("rate-limit-cooldown", &settings.Embedding.RateLimitCooldown)
	setDuration("request-interval", &settings.Embedding.RequestInterval)
	if c.IsSet("timeout") {
		settings.Embedding.Timeout = c.Duration("timeout")
		settings.Upsert.Timeout = c.Duration("timeout")
	}
	if c.IsSet("allow-param-change") {
		settings.AllowParamChange = c.Bool("allow-param-change")
	}

	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

func openIndexer(c *cli.Context) (*edgarindex.Indexer, *config.Settings, error) {
	settings, err := loadSettings(c)
	if err != nil {
		return nil, nil, err
	}

	fmt.Fprintf(os.Stderr, "Directory: %s\n", settings.Dir)
	fmt.Fprintf(os.Stderr, "Store: %s (%s)\n", settings.Store, settings.DB)
	fmt.Fprintf(os.Stderr, "Collection: %s\n", settings.Collection)
	fmt.Fprintf(os.Stderr, "Embedding: %s %s\n", settings.Embedding.Provider, settings.Embedding.Model)
	fmt.Fprintf(os.Stderr, "Chunking: window=%d overlap=%d\n", settings.Chunking.Window, settings.Chunking.Overlap)
	fmt.Fprintln(os.Stderr)

	var opts []edgarindex.Option
	if interval := c.Int("report-interval"); interval > 0 {
		opts = append(opts, edgarindex.WithProgress(ingestion.NewProgressTracker(os.Stderr, interval)))
	}

	indexer, err := edgarindex.Open(c.Context, settings, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open index: %w", err)
	}
	return indexer, settings, nil
}

func ingestCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	indexer, settings, err := openIndexer(c)
	if err != nil {
		return err
	}
	defer indexer.Close()

	summary, err := indexer.Ingest(ctx, settings.Dir)
	if err != nil {
		return fmt.Errorf("cannot read %s: %w", settings.Dir, err)
	}
	if summary.Documents == 0 && summary.Skipped == 0 {
		fmt.Fprintf(c.App.Writer, "No filings found in %s, nothing to do\n", settings.Dir)
		return nil
	}

	printSummary(c.App.Writer, summary)
	return nil
}

func watchCommand(c *cli.Context) error {
	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

	indexer, settings, err := openIndexer(c)
	if err != nil {
		return err
	}
	defer indexer.Close()

	// Watch indexes the files already present before waiting for new ones.
	return indexer.Watch(ctx, settings.Dir, func(summary core.Summary) {
		printSummary(c.App.Writer, summary)
	})
}

func runsCommand(c *cli.Context) error {
	ledger, err := edgarindex.OpenLedger(c.String("db"))
	if err != nil {
		return err
	}
	defer ledger.Close()

	pinned, err := ledger.PinnedParams(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read pinned parameters: %w", err)
	}
	runs, err := ledger.Runs(c.Context)
	if err != nil {
		return fmt.Errorf("failed to read runs: %w", err)
	}

	w := c.App.Writer
	collections := make([]string, 0, len(pinned))
	for name := range pinned {
		collections = append(collections, name)
	}
	sort.Strings(collections)
	for _, name := range collections {
		pin := pinned[name]
		fmt.Fprintf(w, "collection %s: %s fingerprint=%016x pinned=%s\n",
			name, pin.Params, pin.Fingerprint, pin.PinnedAt.Format(time.RFC3339))
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded")
		return nil
	}
	for _, run := range runs {
		marker := ""
		if pin, ok := pinned[run.Collection]; ok && pin.Fingerprint != run.Fingerprint {
			marker = "  (params since changed)"
		}
		fmt.Fprintf(w, "%s  %s  %s  fingerprint=%016x  docs=%d ok=%d failed=%d skipped=%d entries=%d elapsed=%s%s\n",
			run.StartedAt.Format(time.RFC3339), run.ID, run.Collection, run.Fingerprint,
			run.Documents, run.Succeeded, run.Failed, run.Skipped, run.EntriesWritten,
			run.Elapsed.Round(time.Millisecond), marker)
	}
	return nil
}

func printSummary(w io.Writer, s core.Summary) {
	fmt.Fprintf(w, "Run %s\n", s.RunID)
	fmt.Fprintf(w, "  documents: %d (succeeded %d, failed %d, skipped %d)\n", s.Documents, s.Succeeded, s.Failed, s.Skipped)
	fmt.Fprintf(w, "  windows: %d in %d embedding batches\n", s.Windows, s.EmbeddingBatches)
	fmt.Fprintf(w, "  entries upserted: %d in %d batches\n", s.EntriesWritten, s.UpsertBatches)
	fmt.Fprintf(w, "  elapsed: %s (%.1f docs/s, %.1f entries/s)\n",
		s.Elapsed.Round(time.Millisecond), s.DocsPerSecond(), s.EntriesPerSecond())
	if len(s.Failures) > 0 {
		fmt.Fprintln(w, "Failed documents:")
		for _, f := range s.Failures {
			name := f.DocumentID
			if name == "" {
				name = f.Source
			}
			fmt.Fprintf(w, "  %s: %s\n", name, f.Reason)
		}
	}
}

func setupLogger(c *cli.Context) error {
	levelStr := strings.ToLower(c.String("log-level"))

	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
