// Package vector provides the document index used for retrieval.
package vector

import (
	"context"
	"time"
)

// DefaultTopK is the number of results returned when a search asks for k <= 0.
const DefaultTopK = 3

// SnapshotVersion identifies the serialized index layout.
const SnapshotVersion = 1

// Document is one indexed file. Documents are replaced wholesale when their
// content hash changes and are never mutated after being stored.
type Document struct {
	// Path is the vault-relative path and the document's identity.
	Path string `json:"path"`

	Text    string `json:"text"`
	Summary string `json:"summary"`

	// Embedding is the vector representation of Text.
	Embedding []float32 `json:"embedding"`

	// Hash is the content fingerprint used for change detection.
	Hash string `json:"hash"`
}

// SearchResult is a document scored against a query.
type SearchResult struct {
	Path    string  `json:"path"`
	Text    string  `json:"text"`
	Summary string  `json:"summary,omitempty"`
	Score   float64 `json:"score"`
}

// Snapshot is the persisted form of a Store.
type Snapshot struct {
	Documents []Document `json:"documents"`
	Version   int        `json:"version"`
	Timestamp time.Time  `json:"timestamp"`
}

// Store maps document paths to embedded documents and answers similarity
// queries against them.
type Store interface {
	// Upsert embeds text and replaces any document stored under path.
	Upsert(ctx context.Context, path, text, summary, hash string) error

	// HasUnchanged reports whether path is stored with exactly this hash.
	HasUnchanged(path, hash string) bool

	// Search embeds query and returns the k most similar documents, best
	// first. k <= 0 means DefaultTopK.
	Search(ctx context.Context, query string, k int) ([]SearchResult, error)

	// Remove drops the document stored under path, if any.
	Remove(path string) bool

	// Paths lists stored document paths in lexical order.
	Paths() []string

	Snapshot() Snapshot
	Restore(s Snapshot)
	Clear()
	Len() int
}
