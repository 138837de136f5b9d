// Package worker runs the periodic session-expiry sweep.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/career-sequence-game/internal/config"
	"github.com/career-sequence-game/internal/ratelimit"
	"github.com/career-sequence-game/internal/store"
)

// Sweeper periodically removes sessions idle past their TTL and prunes
// stale rate-limiter state
type Sweeper struct {
	store    store.SessionStore
	limiter  *ratelimit.Limiter
	config   *config.SessionConfig
	logger   *slog.Logger
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
	mu       sync.Mutex
	running  bool
}

// NewSweeper creates a new sweeper
func NewSweeper(
	sessions store.SessionStore,
	limiter *ratelimit.Limiter,
	cfg *config.SessionConfig,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		store:   sessions,
		limiter: limiter,
		config:  cfg,
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the background sweep process
func (w *Sweeper) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.mu.Unlock()

	w.logger.Info("sweeper started", "interval", w.config.SweepInterval, "ttl", w.config.TTL)

	go w.run(ctx)
	return nil
}

// Stop stops the background sweep process. Safe to call more than once,
// including concurrently.
func (w *Sweeper) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.mu.Unlock()

	w.stopOnce.Do(func() { close(w.stopCh) })
	<-w.doneCh

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	w.logger.Info("sweeper stopped")
	return nil
}

// run is the main worker loop
func (w *Sweeper) run(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep runs one expiry cycle
func (w *Sweeper) sweep(ctx context.Context) {
	startTime := time.Now()

	removed, err := w.store.Sweep(ctx, w.config.TTL)
	if err != nil {
		w.logger.Error("sweep cycle failed", "error", err)
		return
	}

	if w.limiter != nil {
		w.limiter.Prune()
	}

	w.logger.Info("sweep cycle completed",
		"duration", time.Since(startTime),
		"removed", removed,
	)
}

// IsRunning returns whether the worker is currently running
func (w *Sweeper) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

// RunOnce runs a single sweep cycle (useful for manual triggers)
func (w *Sweeper) RunOnce(ctx context.Context) {
	w.sweep(ctx)
}
