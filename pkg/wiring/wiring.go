// Package wiring constructs the backend clients and the memory.Manager from
// a pkg/config.Config, the single place every cmd/memoryd subcommand goes
// to assemble its dependencies. Grounded on
// _examples/papercomputeco-tapes/cmd/tapes/serve/serve.go's
// newStorageDriver/newDagLoader pattern: build once in one place, return
// capability interfaces, let the caller defer Close.
package wiring

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Valino123/trip-memory/pkg/config"
	"github.com/Valino123/trip-memory/pkg/doc"
	"github.com/Valino123/trip-memory/pkg/doc/postgres"
	"github.com/Valino123/trip-memory/pkg/embeddings"
	"github.com/Valino123/trip-memory/pkg/embeddings/ollama"
	"github.com/Valino123/trip-memory/pkg/embeddings/openai"
	"github.com/Valino123/trip-memory/pkg/extractor"
	regextractor "github.com/Valino123/trip-memory/pkg/extractor/regex"
	llmextractor "github.com/Valino123/trip-memory/pkg/extractor/openai"
	"github.com/Valino123/trip-memory/pkg/kv"
	"github.com/Valino123/trip-memory/pkg/kv/redis"
	"github.com/Valino123/trip-memory/pkg/memory"
	"github.com/Valino123/trip-memory/pkg/memory/intersession"
	"github.com/Valino123/trip-memory/pkg/memory/intrasession"
	"github.com/Valino123/trip-memory/pkg/memory/preferences"
	"github.com/Valino123/trip-memory/pkg/vector"
	"github.com/Valino123/trip-memory/pkg/vector/qdrant"
)

// Backends holds every constructed backend client. Any field may be nil if
// that backend couldn't be reached — callers that only need a subset (e.g.
// the embedding worker needs KV+Vector+Embedder, not Doc) can ignore the
// rest. Close releases every non-nil client.
type Backends struct {
	KV       kv.Client
	Doc      doc.Client
	Vector   vector.Client
	Embedder embeddings.Embedder
}

// Close releases all constructed clients, logging (not failing) on error.
func (b *Backends) Close(logger *zap.Logger) {
	if b.KV != nil {
		if err := b.KV.Close(); err != nil {
			logger.Warn("closing kv client failed", zap.Error(err))
		}
	}
	if b.Doc != nil {
		if err := b.Doc.Close(); err != nil {
			logger.Warn("closing doc client failed", zap.Error(err))
		}
	}
	if b.Vector != nil {
		if err := b.Vector.Close(); err != nil {
			logger.Warn("closing vector client failed", zap.Error(err))
		}
	}
	if b.Embedder != nil {
		if err := b.Embedder.Close(); err != nil {
			logger.Warn("closing embedder failed", zap.Error(err))
		}
	}
}

// Connect builds every backend client from cfg. Per spec.md §7's
// BackendUnavailable policy, a single backend failing to construct does not
// abort the others — it logs and leaves that field nil, so store-layer
// degradation takes over. KV and Doc are handled the same way, so the
// returned error is always nil; callers check the fields they need.
func Connect(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backends, error) {
	b := &Backends{}

	kvClient, err := redis.NewClient(redis.Config{
		Host:     cfg.KV.Host,
		Port:     cfg.KV.Port,
		Password: cfg.KV.Password,
		DB:       cfg.KV.DB,
	}, logger)
	if err != nil {
		logger.Warn("connecting to kv backend failed", zap.Error(err))
	} else {
		b.KV = kvClient
	}

	docClient, err := postgres.NewClient(ctx, cfg.Doc.DSN, logger)
	if err != nil {
		logger.Warn("connecting to doc backend failed", zap.Error(err))
	} else {
		b.Doc = docClient
	}

	vecClient, err := qdrant.NewClient(qdrant.Config{
		Host:   cfg.Vector.Host,
		Port:   cfg.Vector.Port,
		APIKey: cfg.Vector.APIKey,
		UseTLS: cfg.Vector.UseTLS,
	}, logger)
	if err != nil {
		logger.Warn("connecting to vector backend failed", zap.Error(err))
	} else {
		b.Vector = vecClient
		if err := vecClient.EnsureCollection(ctx, cfg.Vector.Collection, cfg.Vector.Dimensions); err != nil {
			logger.Warn("ensuring vector collection failed", zap.Error(err))
		}
	}

	embedder, err := NewEmbedder(cfg)
	if err != nil {
		logger.Warn("constructing embedder failed", zap.Error(err))
	} else {
		b.Embedder = embedder
	}

	return b, nil
}

// NewEmbedder constructs the configured embedding provider. Unlike Connect's
// other backends this can fail loudly: an embedding worker with no embedder
// has no reason to run.
func NewEmbedder(cfg *config.Config) (embeddings.Embedder, error) {
	switch cfg.Embedding.Provider {
	case "openai":
		return openai.NewEmbedder(openai.EmbedderConfig{
			APIKey:  cfg.Embedding.APIKey,
			BaseURL: cfg.Embedding.Target,
			Model:   cfg.Embedding.Model,
		})
	case "ollama", "":
		return ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL: cfg.Embedding.Target,
			Model:   cfg.Embedding.Model,
		})
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", cfg.Embedding.Provider)
	}
}

// NewExtractors builds the always-on regex extractor and, if
// enable_pref_llm_extraction is set, the optional LLM extractor.
func NewExtractors(cfg *config.Config) (extractor.Extractor, extractor.Extractor, error) {
	regex := regextractor.New()
	if !cfg.Memory.EnablePrefLLMExtraction {
		return regex, nil, nil
	}

	llm, err := llmextractor.New(llmextractor.Config{
		APIKey:  cfg.PrefLLM.APIKey,
		BaseURL: cfg.PrefLLM.BaseURL,
		Model:   cfg.PrefLLM.Model,
	})
	if err != nil {
		return regex, nil, fmt.Errorf("constructing llm extractor: %w", err)
	}
	return regex, llm, nil
}

// NewManager assembles a *memory.Manager from already-constructed backends
// and cfg's feature flags, wiring the three store types in §7 of
// SPEC_FULL.md behind the Manager façade.
func NewManager(b *Backends, cfg *config.Config, logger *zap.Logger) *memory.Manager {
	intra := intrasession.New(b.KV, time.Duration(cfg.KV.IntraSessionTTL)*time.Second, logger)

	inter := intersession.New(intersession.Config{
		Doc:             b.Doc,
		Vector:          b.Vector,
		KV:              b.KV,
		Embedder:        b.Embedder,
		EmbeddingStream: cfg.KV.EmbeddingQueue,
		Dimensions:      cfg.Vector.Dimensions,
		AsyncEmbedding:  cfg.Memory.EnableAsyncEmbedding,
	}, logger)

	prefs := preferences.New(preferences.Config{
		Doc:    b.Doc,
		KV:     b.KV,
		Cache:  cfg.KV.EnableRedisCache,
		TTL:    time.Duration(cfg.KV.PrefCacheTTL) * time.Second,
		Stream: cfg.KV.PreferenceQueue,
	}, logger)

	return memory.NewManager(memory.Config{
		Intra:            intra,
		Inter:            inter,
		Prefs:            prefs,
		AsyncEmbedding:   cfg.Memory.EnableAsyncEmbedding,
		PrefExtraction:   cfg.Memory.EnablePrefExtraction,
		DefaultRetrieval: cfg.Memory.DefaultRetrievalK,
		MinSimilarity:    float32(cfg.Memory.MinSimilarity),
	}, logger)
}
