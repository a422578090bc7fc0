// Package openai implements embeddings.Embedder against OpenAI's embeddings
// API via sashabaranov/go-openai, following the client-construction and
// error-wrapping shape of scttfrdmn-agenkit-go/adapter/llm/openai.go (the
// pack's only other sashabaranov/go-openai caller).
package openai

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"

	"github.com/Valino123/trip-memory/pkg/embeddings"
)

// DefaultModel is used when EmbedderConfig.Model is empty.
const DefaultModel = "text-embedding-3-small"

// EmbedderConfig holds configuration for the OpenAI embedder.
type EmbedderConfig struct {
	// APIKey is the OpenAI API key. Required.
	APIKey string

	// BaseURL overrides the API base, for OpenAI-compatible proxies.
	// Defaults to OpenAI's own endpoint if empty.
	BaseURL string

	// Model is the embedding model to use (e.g. "text-embedding-3-small").
	// Defaults to DefaultModel if empty.
	Model string
}

// Embedder wraps OpenAI's embeddings API.
type Embedder struct {
	client *openai.Client
	model  string
}

// NewEmbedder creates a new embedder using OpenAI's embeddings API.
func NewEmbedder(cfg EmbedderConfig) (*Embedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: missing API key", embeddings.ErrEmbedding)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Embedder{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}, nil
}

// Embed converts text into a vector embedding.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: []string{text},
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: openai request: %v", embeddings.ErrEmbedding, err)
	}

	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("%w: no embeddings returned", embeddings.ErrEmbedding)
	}

	return resp.Data[0].Embedding, nil
}

// Close releases resources held by the embedder.
func (e *Embedder) Close() error {
	return nil
}

var _ embeddings.Embedder = (*Embedder)(nil)
