package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/poiesic/edgarindex/core"
)

// DefaultDebounce is how long the Watcher waits after the last change before
// starting a run.
const DefaultDebounce = 2 * time.Second

// Watcher runs the Scheduler over *.json files as they are created or
// rewritten in a directory.
type Watcher struct {
	dir       string
	scheduler *Scheduler
	debounce  time.Duration
	onRun     func(core.Summary)
	logger    *slog.Logger

	initialScan bool
}

// WatcherOption configures a Watcher.
type WatcherOption func(*Watcher)

// WithDebounce sets the quiet period before a run starts.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithRunHandler is called with the summary of every run.
func WithRunHandler(fn func(core.Summary)) WatcherOption {
	return func(w *Watcher) {
		w.onRun = fn
	}
}

// WithInitialScan runs the scheduler over the files already in the
// directory once the watch is registered, so nothing written during that
// first run is missed.
func WithInitialScan() WatcherOption {
	return func(w *Watcher) {
		w.initialScan = true
	}
}

// WithWatcherLogger sets a custom logger.
func WithWatcherLogger(logger *slog.Logger) WatcherOption {
	return func(w *Watcher) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWatcher creates a watcher over dir.
func NewWatcher(dir string, scheduler *Scheduler, opts ...WatcherOption) (*Watcher, error) {
	if scheduler == nil {
		return nil, ErrProcessorRequired
	}
	info, err := os.Stat(dir)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	w := &Watcher{
		dir:       dir,
		scheduler: scheduler,
		debounce:  DefaultDebounce,
		onRun:     func(core.Summary) {},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.With("component", "watcher", "dir", dir)
	return w, nil
}

// Watch blocks until ctx is cancelled, running the scheduler over each
// group of changed files once the directory has been quiet for the debounce
// period. Files changed while a run is in progress wait for the next run.
func (w *Watcher) Watch(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fsw.Close()

	if err := fsw.Add(w.dir); err != nil {
		return err
	}

	// Events raised during this run queue up in fsw and are handled below.
	if w.initialScan {
		sources, err := DiscoverSources(w.dir)
		if err != nil {
			return err
		}
		if len(sources) > 0 {
			w.onRun(w.scheduler.Run(ctx, sources))
		}
	}
	w.logger.Info("watching for new documents")

	pending := make(map[string]struct{})
	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			if len(pending) > 0 {
				w.logger.Info("stopping with unprocessed changes", "files", len(pending))
			}
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !isDocumentFile(event.Name) {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			pending[event.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watch error", "err", err)

		case <-timer.C:
			sources := make([]Source, 0, len(pending))
			for path := range pending {
				sources = append(sources, FileSource{Path: path})
			}
			clear(pending)
			sortSources(sources)

			summary := w.scheduler.Run(ctx, sources)
			w.onRun(summary)
		}
	}
}
