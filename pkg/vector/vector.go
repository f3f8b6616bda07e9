// Package vector provides pluggable vector stores for the document index.
// Embeddings are computed externally; providers only store and search
// pre-computed vectors.
package vector

import "context"

// Result is a single similarity search hit.
type Result struct {
	ID       string
	Score    float32
	Content  string
	Metadata map[string]any
}

// Provider stores vectors grouped into named collections.
type Provider interface {
	// Upsert adds or replaces a vector with its content and metadata.
	Upsert(ctx context.Context, collection string, id string, vector []float32, content string, metadata map[string]any) error

	// Search returns up to topK results ordered by similarity, best first.
	Search(ctx context.Context, collection string, vector []float32, topK int) ([]Result, error)

	// Count returns the number of vectors in a collection. Unknown
	// collections count as zero.
	Count(ctx context.Context, collection string) (int, error)

	// DeleteCollection removes a collection and all its vectors.
	DeleteCollection(ctx context.Context, collection string) error

	// Name returns the provider name.
	Name() string

	// Close releases provider resources.
	Close() error
}
