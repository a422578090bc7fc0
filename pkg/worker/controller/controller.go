// Package controller implements the WorkerController of spec.md §4.8: it
// supervises a fixed pool of in-process worker goroutines (processes in the
// source), respawning on exit and periodically auto-claiming stale pending
// entries. Grounded on
// original_source/backend/scripts/embedding_control.py's run_local loop,
// adapted from subprocess supervision to goroutines per spec.md §9's
// "prefer in-process worker tasks" redesign note, using the Config+zap
// idiom of papercomputeco-tapes/proxy/worker/pool.go.
package controller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/kv"
)

// maintenanceConsumer is the stable name auto-claimed stale entries are
// reassigned to, per spec.md §4.8 step 4.
const maintenanceConsumer = "ctl"

// claimBatch is how many stale entries AutoClaim reassigns per tick,
// matching embedding_control.py's autoclaim_stale count=50.
const claimBatch = 50

// shutdownGrace bounds how long Run waits for workers to finish their
// current entry before returning anyway, per spec.md §4.8 step 5. Unlike
// the source's SIGTERM-then-SIGKILL, a goroutine can't be force-killed;
// this bound only affects when Run returns, not the goroutines themselves.
const shutdownGrace = 5 * time.Second

// Runner is implemented by a worker (embedding.Worker or preference.Worker):
// it processes entries under the given consumer name until ctx is
// cancelled.
type Runner interface {
	Run(ctx context.Context, consumer string) error
}

// Config configures a Controller.
type Config struct {
	KV     kv.Client
	Worker Runner

	Stream string
	Group  string

	// NumWorkers is how many named workers (worker-1..N) to supervise.
	NumWorkers int
	// StaleAfter is the auto-claim idle threshold (default 120s).
	StaleAfter time.Duration
	// ClaimTick is how often auto-claim runs (default 5s).
	ClaimTick time.Duration
}

// Controller is the WorkerController of spec.md §4.8.
type Controller struct {
	cfg    Config
	logger *zap.Logger
}

// New returns a Controller.
func New(cfg Config, logger *zap.Logger) *Controller {
	if cfg.NumWorkers <= 0 {
		cfg.NumWorkers = 3
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 120 * time.Second
	}
	if cfg.ClaimTick <= 0 {
		cfg.ClaimTick = 5 * time.Second
	}
	return &Controller{cfg: cfg, logger: logger}
}

// Run ensures the consumer group exists, spawns NumWorkers named workers
// (worker-1..worker-N), respawns any that exit, and auto-claims stale
// pending entries to "ctl" every ClaimTick, until ctx is cancelled. On
// cancellation it waits up to 5s for workers to finish their current entry.
func (c *Controller) Run(ctx context.Context) error {
	if err := c.cfg.KV.EnsureGroup(ctx, c.cfg.Stream, c.cfg.Group); err != nil {
		c.logger.Error("ensuring consumer group failed", zap.Error(err))
		return err
	}

	var wg sync.WaitGroup
	for i := 1; i <= c.cfg.NumWorkers; i++ {
		name := fmt.Sprintf("worker-%d", i)
		wg.Add(1)
		go c.supervise(ctx, &wg, name)
	}

	ticker := time.NewTicker(c.cfg.ClaimTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return c.waitBounded(&wg)
		case <-ticker.C:
			c.autoClaimStale(ctx)
		}
	}
}

// waitBounded waits for wg up to shutdownGrace, then returns regardless —
// the bounded graceful-shutdown window of spec.md §4.8 step 5.
func (c *Controller) waitBounded(wg *sync.WaitGroup) error {
	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(shutdownGrace):
		c.logger.Warn("shutdown grace period elapsed, stragglers may still be finishing their entry")
	}

	return nil
}

// supervise runs worker name and, if it exits before ctx is cancelled,
// respawns it under the same stable name — the papercomputeco-tapes
// worker-pool idiom's goroutine-per-worker shape, extended with restart.
func (c *Controller) supervise(ctx context.Context, wg *sync.WaitGroup, name string) {
	defer wg.Done()

	for {
		if err := c.cfg.Worker.Run(ctx, name); err != nil {
			c.logger.Warn("worker exited with error", zap.String("consumer", name), zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		default:
			c.logger.Info("respawning worker", zap.String("consumer", name))
		}
	}
}

// autoClaimStale reassigns entries idle longer than StaleAfter to the
// maintenance consumer, without acking them, per spec.md §4.8 step 4.
func (c *Controller) autoClaimStale(ctx context.Context) {
	claimed, err := c.cfg.KV.AutoClaim(ctx, c.cfg.Stream, c.cfg.Group, maintenanceConsumer, c.cfg.StaleAfter, claimBatch)
	if err != nil {
		c.logger.Warn("auto-claim failed", zap.Error(err))
		return
	}
	if len(claimed) > 0 {
		c.logger.Info("auto-claimed stale pending entries", zap.Int("count", len(claimed)), zap.String("consumer", maintenanceConsumer))
	}
}
