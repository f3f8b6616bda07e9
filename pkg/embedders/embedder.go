// Package embedders provides text embedding providers for the document index.
package embedders

import "context"

// Embedder converts text into dense vectors. Implementations must be safe
// for concurrent use.
type Embedder interface {
	// Embed embeds a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch embeds texts in order. The result has one vector per input.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimension returns the vector dimensionality.
	Dimension() int

	// ModelName returns the embedding model identifier.
	ModelName() string

	// Close releases provider resources.
	Close() error
}
