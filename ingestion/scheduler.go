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

package ingestion

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/panjf2000/ants/v2"
	"github.com/poiesic/edgarindex/core"
)

// DefaultConcurrency is the default number of documents processed at once.
const DefaultConcurrency = 10

// Processor processes one document source into an outcome. It must not
// panic past its boundary, but the Scheduler recovers if it does.
type Processor interface {
	Process(ctx context.Context, src Source) core.Outcome
}

// Scheduler runs a Processor over many sources on a fixed-size worker pool.
type Scheduler struct {
	processor Processor
	pool      *ants.Pool
	params    core.ChunkParams
	progress  *ProgressTracker
	logger    *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler) error

// WithConcurrency sets the worker pool size.
// Default is DefaultConcurrency, with a minimum of 1.
func WithConcurrency(size int) Option {
	return func(s *Scheduler) error {
		if size < 1 {
			size = 1
		}

		// Release old pool
		if s.pool != nil {
			s.pool.Release()
		}

		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		s.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithProgress reports progress through tracker during each run.
func WithProgress(tracker *ProgressTracker) Option {
	return func(s *Scheduler) error {
		s.progress = tracker
		return nil
	}
}

// WithParams records the chunking parameters in each run's summary.
func WithParams(params core.ChunkParams) Option {
	return func(s *Scheduler) error {
		s.params = params
		return nil
	}
}

// NewScheduler creates a new scheduler.
func NewScheduler(processor Processor, opts ...Option) (*Scheduler, error) {
	if processor == nil {
		return nil, ErrProcessorRequired
	}

	pool, err := ants.NewPool(DefaultConcurrency)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		processor: processor,
		pool:      pool,
		logger:    slog.Default(),
	}

	// Apply options (may override defaults)
	for _, opt := range opts {
		if optErr := opt(s); optErr != nil {
			s.Release()
			return nil, optErr
		}
	}
	s.logger = s.logger.With("component", "scheduler")

	return s, nil
}

// Concurrency returns the worker pool size.
func (s *Scheduler) Concurrency() int {
	return s.pool.Cap()
}

// Run processes every source and returns the aggregated summary. Outcomes
// are folded in completion order by a single aggregator goroutine.
//
// Cancelling ctx stops submission: sources not yet submitted are counted as
// skipped, while documents already in flight run to completion.
func (s *Scheduler) Run(ctx context.Context, sources []Source) core.Summary {
	start := time.Now()
	summary := core.Summary{
		RunID:     uuid.NewString(),
		Params:    s.params,
		StartedAt: start.UTC(),
	}
	logger := s.logger.With("run", summary.RunID)
	logger.Info("starting run", "sources", len(sources), "concurrency", s.Concurrency())

	if s.progress != nil {
		s.progress.Start(len(sources))
	}

	outcomes := make(chan core.Outcome, s.Concurrency())
	aggregated := make(chan struct{})
	go func() {
		defer close(aggregated)
		for o := range outcomes {
			summary.Add(o)
			if s.progress != nil {
				s.progress.Done(o.Success)
			}
		}
	}()

	// In-flight documents finish even after a stop request.
	workCtx := context.WithoutCancel(ctx)

	var wg sync.WaitGroup
	submitted := 0
	for _, src := range sources {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		err := s.pool.Submit(func() {
			defer wg.Done()
			outcomes <- s.processOne(workCtx, src)
		})
		if err != nil {
			wg.Done()
			outcomes <- core.Outcome{
				Source: src.Name(),
				Err:    fmt.Errorf("cannot schedule document: %w", err),
			}
		}
		submitted++
	}

	wg.Wait()
	close(outcomes)
	<-aggregated

	summary.Skipped = len(sources) - submitted
	summary.Elapsed = time.Since(start)
	if s.progress != nil {
		s.progress.Finish()
	}

	if summary.Skipped > 0 {
		logger.Warn("run stopped before all documents were submitted", "skipped", summary.Skipped)
	}
	logger.Info("run finished",
		"documents", summary.Documents,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"entries", summary.EntriesWritten,
		"elapsed", summary.Elapsed)

	return summary
}

// processOne converts a panic escaping the processor into a failed outcome.
func (s *Scheduler) processOne(ctx context.Context, src Source) (out core.Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("recovered from panic", "source", src.Name(), "panic", r)
			out = core.Outcome{
				Source:  src.Name(),
				Err:     fmt.Errorf("%w: %v", ErrPanic, r),
				Elapsed: time.Since(start),
			}
		}
	}()
	return s.processor.Process(ctx, src)
}

// Release releases the worker pool.
// The scheduler should not be used after calling Release.
func (s *Scheduler) Release() {
	if s.pool != nil {
		s.pool.Release()
	}
}
