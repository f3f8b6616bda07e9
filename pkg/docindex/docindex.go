// Package docindex builds and caches searchable indexes over remote
// documents. A document is fetched once, parsed to text, chunked into
// passages, embedded, and stored under a content-addressed cache directory.
// Subsequent queries against the same URL hit the cache.
package docindex

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Passage is one chunk of a parsed document.
type Passage struct {
	ID    string `json:"id"`
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// Manifest describes one cached document index. Its presence in a cache
// entry directory marks the entry as complete.
type Manifest struct {
	Key           string    `json:"key"`
	SourceURL     string    `json:"sourceUrl"`
	ContentType   string    `json:"contentType"`
	Size          int64     `json:"size"`
	PassageCount  int       `json:"passageCount"`
	EmbedderModel string    `json:"embedderModel"`
	Dimension     int       `json:"dimension"`
	BuiltAt       time.Time `json:"builtAt"`
}

// Document is a loaded cache entry.
type Document struct {
	Manifest Manifest  `json:"manifest"`
	Passages []Passage `json:"passages"`
}

// Key returns the cache key for a URL: the hex-encoded SHA-256 of the URL
// string. Everything derived from one URL lives under one key.
func Key(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])
}

// Collection returns the vector store collection name for a cache key.
func Collection(key string) string {
	return "doc-" + key
}
