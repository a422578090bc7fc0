// Package embedding implements the EmbeddingWorker of spec.md §4.6: a
// stream consumer that materialises vectors for queued conversations.
// Grounded on original_source/backend/scripts/embedding_worker.py's
// ensure-group/read-group/embed/upsert/ack loop, with the goroutine
// worker-pool shape of papercomputeco-tapes/proxy/worker/pool.go.
package embedding

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/embeddings"
	"github.com/Valino123/trip-memory/pkg/kv"
	"github.com/Valino123/trip-memory/pkg/vector"
)

// errSleep is how long the worker sleeps after a backend error before
// restarting its loop, per spec.md §4.6.
const errSleep = time.Second

// Config configures a Worker.
type Config struct {
	KV       kv.Client
	Vector   vector.Client
	Embedder embeddings.Embedder

	Stream     string
	Group      string
	Collection string

	// Batch is the max entries read per iteration (default 10).
	Batch int
	// Block is how long ReadGroup waits for new entries (default 5s).
	Block time.Duration
}

// Worker is the EmbeddingWorker of spec.md §4.6.
type Worker struct {
	cfg    Config
	logger *zap.Logger
}

// New returns a Worker.
func New(cfg Config, logger *zap.Logger) *Worker {
	if cfg.Batch <= 0 {
		cfg.Batch = 10
	}
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	return &Worker{cfg: cfg, logger: logger}
}

// Run joins the consumer group under consumer and processes entries until
// ctx is cancelled. Shutdown is graceful: it finishes the current entry,
// then stops without acking anything it hasn't processed.
func (w *Worker) Run(ctx context.Context, consumer string) error {
	if err := w.cfg.KV.EnsureGroup(ctx, w.cfg.Stream, w.cfg.Group); err != nil {
		w.logger.Error("ensuring consumer group failed", zap.Error(err))
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		entries, err := w.cfg.KV.ReadGroup(ctx, w.cfg.Stream, w.cfg.Group, consumer, int64(w.cfg.Batch), w.cfg.Block)
		if err != nil {
			w.logger.Warn("reading embedding queue failed", zap.String("consumer", consumer), zap.Error(err))
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(errSleep):
			}
			continue
		}

		for _, entry := range entries {
			select {
			case <-ctx.Done():
				return nil
			default:
			}
			w.processEntry(ctx, consumer, entry)
		}
	}
}

// processEntry embeds and upserts one job; on success it acks, on failure it
// leaves the entry pending for redelivery.
func (w *Worker) processEntry(ctx context.Context, consumer string, entry kv.StreamEntry) {
	content := entry.Values["content"]
	userID := entry.Values["user_id"]
	sessionID := entry.Values["session_id"]

	if content == "" {
		if err := w.cfg.KV.Ack(ctx, w.cfg.Stream, w.cfg.Group, entry.ID); err != nil {
			w.logger.Warn("acking empty-content embedding entry failed", zap.String("entry_id", entry.ID), zap.Error(err))
		}
		return
	}

	vec, err := w.cfg.Embedder.Embed(ctx, content)
	if err != nil {
		w.logger.Warn("embedding job failed, leaving pending",
			zap.String("consumer", consumer), zap.String("entry_id", entry.ID), zap.Error(err))
		return
	}

	point := vector.Point{
		ID:     uuid.NewString(),
		Vector: vec,
		Payload: map[string]any{
			"user_id":    userID,
			"session_id": sessionID,
			"content":    content,
			"created_at": time.Now().UTC(),
			"source":     "worker",
		},
	}

	if err := w.cfg.Vector.Upsert(ctx, w.cfg.Collection, []vector.Point{point}); err != nil {
		w.logger.Warn("upserting embedding point failed, leaving pending",
			zap.String("consumer", consumer), zap.String("entry_id", entry.ID), zap.Error(err))
		return
	}

	if err := w.cfg.KV.Ack(ctx, w.cfg.Stream, w.cfg.Group, entry.ID); err != nil {
		w.logger.Warn("acking embedding entry failed", zap.String("entry_id", entry.ID), zap.Error(err))
	}
}
