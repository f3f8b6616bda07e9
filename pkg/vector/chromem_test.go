package vector

import (
	"context"
	"path/filepath"
	"testing"
)

func testVector(seed float32, dim int) []float32 {
	v := make([]float32, dim)
	v[0] = 1
	v[1] = seed
	return v
}

func TestChromemUpsertAndSearch(t *testing.T) {
	p, err := NewChromemProvider(ChromemConfig{})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	if err := p.Upsert(ctx, "passages", "p1", testVector(0.1, 8), "first passage", map[string]any{"index": 0}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := p.Upsert(ctx, "passages", "p2", testVector(0.9, 8), "second passage", map[string]any{"index": 1}); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	results, err := p.Search(ctx, "passages", testVector(0.1, 8), 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
	if results[0].ID != "p1" {
		t.Errorf("expected p1 as nearest, got %s", results[0].ID)
	}
	if results[0].Content != "first passage" {
		t.Errorf("unexpected content: %q", results[0].Content)
	}
}

func TestChromemSearchClampsTopK(t *testing.T) {
	p, err := NewChromemProvider(ChromemConfig{})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	if err := p.Upsert(ctx, "small", "only", testVector(0.5, 4), "lone passage", nil); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}

	// Asking for more results than stored must not error.
	results, err := p.Search(ctx, "small", testVector(0.5, 4), 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected 1 result, got %d", len(results))
	}
}

func TestChromemCount(t *testing.T) {
	p, err := NewChromemProvider(ChromemConfig{})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	defer p.Close()

	ctx := context.Background()
	count, err := p.Count(ctx, "missing")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("expected 0 for unknown collection, got %d", count)
	}

	if err := p.Upsert(ctx, "c", "a", testVector(0.2, 4), "x", nil); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	count, err = p.Count(ctx, "c")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1, got %d", count)
	}
}

func TestChromemPersistence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vectors.gob")
	ctx := context.Background()

	p, err := NewChromemProvider(ChromemConfig{PersistPath: path})
	if err != nil {
		t.Fatalf("failed to create provider: %v", err)
	}
	if err := p.Upsert(ctx, "persisted", "p1", testVector(0.3, 4), "kept across restarts", nil); err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	reloaded, err := NewChromemProvider(ChromemConfig{PersistPath: path})
	if err != nil {
		t.Fatalf("failed to reload provider: %v", err)
	}
	defer reloaded.Close()

	count, err := reloaded.Count(ctx, "persisted")
	if err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected persisted collection to survive reload, count=%d", count)
	}
}
