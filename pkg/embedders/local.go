package embedders

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// LocalEmbedder is a deterministic, dependency-free embedder built on hashed
// character n-grams. It exists so the document index works without API keys;
// retrieval quality is well below a real embedding model.
type LocalEmbedder struct {
	dimension int
}

// NewLocalEmbedder creates a local embedder with the given dimensionality.
func NewLocalEmbedder(dimension int) *LocalEmbedder {
	if dimension <= 0 {
		dimension = 256
	}
	return &LocalEmbedder{dimension: dimension}
}

func (e *LocalEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.embed(text), nil
}

func (e *LocalEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		vectors[i] = e.embed(text)
	}
	return vectors, nil
}

// embed hashes word unigrams and character trigrams into a fixed-size
// vector, then L2-normalizes so dot products behave like cosine similarity.
func (e *LocalEmbedder) embed(text string) []float32 {
	vector := make([]float32, e.dimension)

	normalized := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			return unicode.ToLower(r)
		}
		return ' '
	}, text)

	for _, word := range strings.Fields(normalized) {
		e.accumulate(vector, word, 1.0)

		runes := []rune(word)
		for i := 0; i+3 <= len(runes); i++ {
			e.accumulate(vector, string(runes[i:i+3]), 0.5)
		}
	}

	var norm float64
	for _, v := range vector {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		scale := float32(1.0 / math.Sqrt(norm))
		for i := range vector {
			vector[i] *= scale
		}
	}

	return vector
}

func (e *LocalEmbedder) accumulate(vector []float32, token string, weight float32) {
	h := fnv.New64a()
	h.Write([]byte(token))
	sum := h.Sum64()

	index := int(sum % uint64(e.dimension))
	// Use one hash bit as sign so collisions partially cancel instead of
	// always adding up.
	sign := float32(1)
	if sum&(1<<63) != 0 {
		sign = -1
	}
	vector[index] += sign * weight
}

func (e *LocalEmbedder) Dimension() int {
	return e.dimension
}

func (e *LocalEmbedder) ModelName() string {
	return "local-ngram-hash"
}

func (e *LocalEmbedder) Close() error {
	return nil
}
