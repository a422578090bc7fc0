// Package vector defines the capability interface the memory service uses to
// talk to a vector index, generalized from papercomputeco-tapes/pkg/vector's
// Add/Query/Get/Delete/Close shape to support the mandatory per-user payload
// filter and score threshold spec.md §4.1/§4.3.3 require.
package vector

import "context"

// Point is one vector entry plus its payload metadata.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// ScoredPoint is a Point returned from a similarity query, paired with its
// similarity score.
type ScoredPoint struct {
	Point
	Score float32
}

// Query describes a filtered similarity search.
type Query struct {
	// Vector is the embedded query.
	Vector []float32
	// UserID is the mandatory payload filter key (spec.md §4.3.3).
	UserID string
	// Limit bounds the number of hits returned (spec.md uses limit = 2k).
	Limit int
	// ScoreThreshold discards hits below this similarity score.
	ScoreThreshold float32
}

// Client handles storage and similarity retrieval of vector embeddings.
// Implementations lazily dial on construction and ensure the target
// collection exists before first use, per spec.md §4.1.
type Client interface {
	// EnsureCollection creates the collection with {dim, cosine} if it does
	// not already exist; any other status (including "already exists") is a
	// no-op success.
	EnsureCollection(ctx context.Context, name string, dim uint64) error

	// Upsert stores or replaces points by ID.
	Upsert(ctx context.Context, collection string, points []Point) error

	// Search runs a filtered similarity query, returning hits in the
	// backend's own order (descending score; ties are not re-sorted).
	Search(ctx context.Context, collection string, q Query) ([]ScoredPoint, error)

	// Get retrieves points by ID.
	Get(ctx context.Context, collection string, ids []string) ([]Point, error)

	// Delete removes points by ID.
	Delete(ctx context.Context, collection string, ids []string) error

	// Close releases any resources held by the client.
	Close() error
}
