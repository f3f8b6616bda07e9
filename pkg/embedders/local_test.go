package embedders

import (
	"context"
	"math"
	"testing"
)

func TestLocalEmbedderDeterministic(t *testing.T) {
	e := NewLocalEmbedder(128)

	a, err := e.Embed(context.Background(), "the quick brown fox")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := e.Embed(context.Background(), "the quick brown fox")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(a) != 128 {
		t.Fatalf("expected dimension 128, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("embedding not deterministic at index %d: %v != %v", i, a[i], b[i])
		}
	}
}

func TestLocalEmbedderNormalized(t *testing.T) {
	e := NewLocalEmbedder(256)

	v, err := e.Embed(context.Background(), "vectors should have unit length")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var norm float64
	for _, x := range v {
		norm += float64(x) * float64(x)
	}
	if math.Abs(norm-1.0) > 1e-5 {
		t.Errorf("expected unit norm, got %f", norm)
	}
}

func TestLocalEmbedderSimilarTextsCloser(t *testing.T) {
	e := NewLocalEmbedder(256)
	ctx := context.Background()

	query, _ := e.Embed(ctx, "annual company revenue in dollars")
	similar, _ := e.Embed(ctx, "the company reported annual revenue of ten million dollars")
	unrelated, _ := e.Embed(ctx, "zebra giraffe elephant savanna migration")

	dot := func(a, b []float32) float64 {
		var sum float64
		for i := range a {
			sum += float64(a[i]) * float64(b[i])
		}
		return sum
	}

	if dot(query, similar) <= dot(query, unrelated) {
		t.Errorf("expected similar text to score higher: similar=%f unrelated=%f",
			dot(query, similar), dot(query, unrelated))
	}
}

func TestLocalEmbedderBatchMatchesSingle(t *testing.T) {
	e := NewLocalEmbedder(64)
	ctx := context.Background()

	texts := []string{"first passage", "second passage"}
	batch, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(batch))
	}

	single, _ := e.Embed(ctx, texts[0])
	for i := range single {
		if single[i] != batch[0][i] {
			t.Fatal("batch embedding differs from single embedding")
		}
	}
}
