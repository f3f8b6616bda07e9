package docindex

import (
	"context"
	"fmt"
	"sort"

	"github.com/sift-dev/sift/pkg/embedders"
	"github.com/sift-dev/sift/pkg/vector"
)

// Hit is one passage returned from a document query.
type Hit struct {
	Passage Passage `json:"passage"`
	Score   float32 `json:"score"`
}

// QueryEngine runs similarity queries over cached document indexes.
type QueryEngine struct {
	cache    *Cache
	embedder embedders.Embedder
	vectors  vector.Provider
	topK     int
}

// NewQueryEngine creates a query engine sharing the cache's embedder and
// vector store.
func NewQueryEngine(cache *Cache, topK int) *QueryEngine {
	if topK <= 0 {
		topK = 5
	}
	return &QueryEngine{
		cache:    cache,
		embedder: cache.embedder,
		vectors:  cache.vectors,
		topK:     topK,
	}
}

// Query resolves the document for a URL and returns the passages most
// similar to the query text, best first. Ties break on passage ID so
// results are deterministic.
func (qe *QueryEngine) Query(ctx context.Context, url string, query string) ([]Hit, error) {
	doc, err := qe.cache.Resolve(ctx, url)
	if err != nil {
		return nil, err
	}

	queryVector, err := qe.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	results, err := qe.vectors.Search(ctx, Collection(doc.Manifest.Key), queryVector, qe.topK)
	if err != nil {
		return nil, fmt.Errorf("failed to search document index: %w", err)
	}

	byID := make(map[string]Passage, len(doc.Passages))
	for _, p := range doc.Passages {
		byID[p.ID] = p
	}

	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		passage, ok := byID[r.ID]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Passage: passage, Score: r.Score})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Passage.ID < hits[j].Passage.ID
	})

	return hits, nil
}
