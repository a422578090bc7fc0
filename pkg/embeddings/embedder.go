// Package embeddings defines the Embedder capability the memory service
// treats as an external collaborator (spec.md §1): `embed(text) → vector of
// fixed dimension D`.
package embeddings

import (
	"context"
	"errors"
)

// ErrEmbedding is returned when an embedding call fails.
var ErrEmbedding = errors.New("embedding failed")

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}
