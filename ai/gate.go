package ai

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate is the process-wide section every embedding request passes through.
// One request runs inside the gate at a time, consecutive requests are spaced
// by a fixed interval, and a rate-limit cool-down recorded by any caller holds
// back all callers. Share one Gate between all workers of a process.
type Gate struct {
	slot    chan struct{}
	limiter *rate.Limiter

	mu      sync.Mutex
	retryAt time.Time
}

// NewGate creates a gate spacing requests by interval. A zero interval
// serializes requests without pacing them.
func NewGate(interval time.Duration) *Gate {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Gate{
		slot:    make(chan struct{}, 1),
		limiter: rate.NewLimiter(limit, 1),
	}
}

// Do runs fn inside the gate. It blocks until the gate is free, any recorded
// cool-down has passed and the pacing interval allows another request.
func (g *Gate) Do(ctx context.Context, fn func() error) error {
	select {
	case g.slot <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-g.slot }()

	g.mu.Lock()
	retryAt := g.retryAt
	g.mu.Unlock()

	if wait := time.Until(retryAt); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if err := g.limiter.Wait(ctx); err != nil {
		return err
	}
	return fn()
}

// Backoff holds back every caller of the gate for d.
func (g *Gate) Backoff(d time.Duration) {
	if d <= 0 {
		return
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	if until := time.Now().Add(d); until.After(g.retryAt) {
		g.retryAt = until
	}
}
