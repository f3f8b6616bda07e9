package docindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/sift-dev/sift/pkg/config"
	"github.com/sift-dev/sift/pkg/embedders"
	"github.com/sift-dev/sift/pkg/vector"
)

// ErrMiss is returned by Get when no complete cache entry exists for a key.
var ErrMiss = errors.New("docindex: cache miss")

const (
	manifestFile = "manifest.json"
	docstoreFile = "docstore.json"
	rawFile      = "raw.bin"
)

// Cache is a content-addressed store of document indexes rooted at a
// directory. Entries are published atomically: a key directory either has a
// complete manifest or does not exist.
type Cache struct {
	root     string
	client   *http.Client
	chunker  *Chunker
	embedder embedders.Embedder
	vectors  vector.Provider

	// group collapses concurrent builds of the same key into one.
	group singleflight.Group
}

// NewCache creates a cache rooted at cfg.Dir.
func NewCache(cfg *config.CacheConfig, embedder embedders.Embedder, vectors vector.Provider) (*Cache, error) {
	cfg.SetDefaults()
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Cache{
		root:     cfg.Dir,
		client:   &http.Client{Timeout: time.Duration(cfg.FetchTimeout) * time.Second},
		chunker:  NewChunker(cfg.ChunkSize, cfg.ChunkOverlap),
		embedder: embedder,
		vectors:  vectors,
	}, nil
}

func (c *Cache) entryDir(key string) string {
	return filepath.Join(c.root, key)
}

// Get loads a complete cache entry, or ErrMiss if none exists.
func (c *Cache) Get(key string) (*Document, error) {
	dir := c.entryDir(key)

	manifestData, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrMiss
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var doc Document
	if err := json.Unmarshal(manifestData, &doc.Manifest); err != nil {
		return nil, fmt.Errorf("corrupt manifest for key %s: %w", key, err)
	}

	passagesData, err := os.ReadFile(filepath.Join(dir, docstoreFile))
	if err != nil {
		return nil, fmt.Errorf("failed to read docstore: %w", err)
	}
	if err := json.Unmarshal(passagesData, &doc.Passages); err != nil {
		return nil, fmt.Errorf("corrupt docstore for key %s: %w", key, err)
	}

	return &doc, nil
}

// Resolve returns the cache entry for a URL, building it on first access.
// Concurrent calls for the same URL share one build.
func (c *Cache) Resolve(ctx context.Context, url string) (*Document, error) {
	key := Key(url)

	result, err, _ := c.group.Do(key, func() (any, error) {
		if doc, err := c.Get(key); err == nil {
			return doc, nil
		} else if !errors.Is(err, ErrMiss) {
			return nil, err
		}
		return c.build(ctx, key, url)
	})
	if err != nil {
		return nil, err
	}
	return result.(*Document), nil
}

// build fetches, parses, chunks, embeds, and publishes one document index.
func (c *Cache) build(ctx context.Context, key, url string) (*Document, error) {
	started := time.Now()

	staging, err := os.MkdirTemp(c.root, ".staging-")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)

	data, contentType, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	rawPath := filepath.Join(staging, rawFile)
	if err := os.WriteFile(rawPath, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write raw document: %w", err)
	}

	format := DetectFormat(data, contentType)
	text, err := ParseFile(ctx, rawPath, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document from %s: %w", url, err)
	}

	chunks := c.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document at %s contains no extractable text", url)
	}

	passages := make([]Passage, len(chunks))
	for i, chunk := range chunks {
		passages[i] = Passage{
			ID:    fmt.Sprintf("%s-%04d", key[:12], i),
			Index: i,
			Text:  chunk,
		}
	}

	vectors, err := c.embedder.EmbedBatch(ctx, chunks)
	if err != nil {
		return nil, fmt.Errorf("failed to embed passages: %w", err)
	}

	collection := Collection(key)
	for i, passage := range passages {
		err := c.vectors.Upsert(ctx, collection, passage.ID, vectors[i], passage.Text, map[string]any{
			"index": passage.Index,
			"url":   url,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to store passage vectors: %w", err)
		}
	}

	doc := &Document{
		Manifest: Manifest{
			Key:           key,
			SourceURL:     url,
			ContentType:   contentType,
			Size:          int64(len(data)),
			PassageCount:  len(passages),
			EmbedderModel: c.embedder.ModelName(),
			Dimension:     c.embedder.Dimension(),
			BuiltAt:       time.Now().UTC(),
		},
		Passages: passages,
	}

	docstoreData, err := json.MarshalIndent(doc.Passages, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal docstore: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, docstoreFile), docstoreData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write docstore: %w", err)
	}

	// The manifest is written last within staging, and the staging dir is
	// renamed into place as the final step. Readers either see a complete
	// entry or none.
	manifestData, err := json.MarshalIndent(doc.Manifest, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(filepath.Join(staging, manifestFile), manifestData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write manifest: %w", err)
	}

	target := c.entryDir(key)
	if err := os.Rename(staging, target); err != nil {
		// Another process published first. Their entry is equivalent.
		if existing, getErr := c.Get(key); getErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("failed to publish cache entry: %w", err)
	}

	slog.Info("indexed document",
		"url", url,
		"key", key[:12],
		"format", format,
		"passages", len(passages),
		"took", time.Since(started).Round(time.Millisecond))

	return doc, nil
}

func (c *Cache) fetch(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create fetch request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("fetching %s returned HTTP %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read %s: %w", url, err)
	}

	return data, resp.Header.Get("Content-Type"), nil
}
