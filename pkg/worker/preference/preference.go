// Package preference implements the PrefWorker of spec.md §4.7: a stream
// consumer that mines preferences from finalised conversations. Grounded on
// original_source/backend/scripts/pref_worker.py's fetch/regex-extract/
// llm-extract/merge/commit loop.
package preference

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/doc"
	"github.com/Valino123/trip-memory/pkg/extractor"
	"github.com/Valino123/trip-memory/pkg/kv"
	"github.com/Valino123/trip-memory/pkg/memory"
	"github.com/Valino123/trip-memory/pkg/memory/preferences"
)

const errSleep = time.Second

// Config configures a Worker.
type Config struct {
	KV    kv.Client
	Doc   doc.Client
	Prefs *preferences.Store

	// Regex is the always-on heuristic extractor.
	Regex extractor.Extractor
	// LLM is the optional, feature-flag-gated extractor. LLM fields win
	// when merged over the regex result, per spec.md §4.7 step 3.
	LLM extractor.Extractor

	Stream string
	Group  string

	Batch int
	Block time.Duration
}

// Worker is the PrefWorker of spec.md §4.7.
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
// ctx is cancelled, following the same idle/reading/processing/acking
// pattern as the embedding worker (spec.md §4.6, reused by §4.7).
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
			w.logger.Warn("reading preference queue failed", zap.String("consumer", consumer), zap.Error(err))
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
			w.processEntry(ctx, entry)
		}
	}
}

// processEntry implements spec.md §4.7 steps 1-4.
func (w *Worker) processEntry(ctx context.Context, entry kv.StreamEntry) {
	userID := memory.UserID(entry.Values["user_id"])
	sessionID := memory.SessionID(entry.Values["session_id"])

	if userID == "" || sessionID == "" {
		w.ack(ctx, entry.ID)
		return
	}

	convo, ok, err := w.cfg.Doc.GetConversation(ctx, sessionID)
	if err != nil || !ok {
		w.ack(ctx, entry.ID)
		return
	}

	contents := make([]string, 0, len(convo.Messages))
	for _, m := range convo.Messages {
		contents = append(contents, m.Content)
	}

	extracted, err := w.cfg.Regex.Extract(ctx, contents)
	if err != nil {
		w.logger.Warn("regex extraction failed", zap.String("session_id", string(sessionID)), zap.Error(err))
		extracted = map[string]any{}
	}

	if w.cfg.LLM != nil {
		llmPrefs, err := w.cfg.LLM.Extract(ctx, contents)
		if err != nil {
			w.logger.Warn("llm extraction failed", zap.String("session_id", string(sessionID)), zap.Error(err))
		} else {
			for k, v := range llmPrefs {
				extracted[k] = v
			}
		}
	}

	if len(extracted) > 0 {
		current, version, hadPrefs := w.cfg.Prefs.Get(ctx, userID)
		merged := make(map[string]any, len(current)+len(extracted))
		for k, v := range current {
			merged[k] = v
		}
		for k, v := range extracted {
			merged[k] = v
		}

		var expectedVersion *int
		if hadPrefs {
			expectedVersion = &version
		}

		// A lost optimistic race is not a reason to withhold the ack: a
		// different worker's commit already dominates, per spec.md §4.7
		// step 4.
		w.cfg.Prefs.Set(ctx, userID, merged, expectedVersion)
	}

	w.ack(ctx, entry.ID)
}

func (w *Worker) ack(ctx context.Context, id string) {
	if err := w.cfg.KV.Ack(ctx, w.cfg.Stream, w.cfg.Group, id); err != nil {
		w.logger.Warn("acking preference entry failed", zap.String("entry_id", id), zap.Error(err))
	}
}
