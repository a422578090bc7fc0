package vector

import "errors"

var (
	// ErrConnection is returned when the vector store connection fails.
	ErrConnection = errors.New("vector store connection failed")

	// ErrEmbeddingDim is returned when a point's vector length does not
	// match the collection's configured dimension.
	ErrEmbeddingDim = errors.New("vector dimension mismatch")
)

// NotFoundError is returned when a collection or point is not found.
type NotFoundError struct {
	What string
}

func (e NotFoundError) Error() string {
	if e.What == "" {
		return "not found"
	}
	return "not found: " + e.What
}
