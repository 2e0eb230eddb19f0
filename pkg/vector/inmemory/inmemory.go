// Package inmemory implements vector.Store with a brute-force scan over a map.
// Search is O(n*d) in the number of documents and embedding dimensions, which
// is adequate for personal vaults of a few thousand notes.
package inmemory

import (
	"cmp"
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/papercomputeco/vellum/pkg/embeddings"
	"github.com/papercomputeco/vellum/pkg/vector"
)

// Store is an in-memory vector.Store.
//
// Writers hold the lock only to swap a map entry. Readers hold it only long
// enough to collect document pointers and score outside it; stored documents
// are never mutated, so a search sees a consistent snapshot.
type Store struct {
	mu       sync.RWMutex
	docs     map[string]*vector.Document
	embedder embeddings.Embedder
}

// NewStore creates an empty store that embeds with embedder.
func NewStore(embedder embeddings.Embedder) *Store {
	return &Store{
		docs:     make(map[string]*vector.Document),
		embedder: embedder,
	}
}

// Upsert embeds text and replaces the document at path.
func (s *Store) Upsert(ctx context.Context, path, text, summary, hash string) error {
	embedding, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", vector.ErrEmbedding, path, err)
	}

	doc := &vector.Document{
		Path:      path,
		Text:      text,
		Summary:   summary,
		Embedding: embedding,
		Hash:      hash,
	}

	s.mu.Lock()
	s.docs[path] = doc
	s.mu.Unlock()
	return nil
}

// HasUnchanged reports whether path is stored with hash.
func (s *Store) HasUnchanged(path, hash string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[path]
	return ok && doc.Hash == hash
}

// Search returns the k documents most similar to query. Ties are broken by
// path so results are deterministic.
func (s *Store) Search(ctx context.Context, query string, k int) ([]vector.SearchResult, error) {
	if k <= 0 {
		k = vector.DefaultTopK
	}

	docs := s.collect()
	if len(docs) == 0 {
		return []vector.SearchResult{}, nil
	}

	q, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %v", vector.ErrEmbedding, err)
	}

	results := make([]vector.SearchResult, 0, len(docs))
	for _, doc := range docs {
		results = append(results, vector.SearchResult{
			Path:    doc.Path,
			Text:    doc.Text,
			Summary: doc.Summary,
			Score:   vector.CosineSimilarity(q, doc.Embedding),
		})
	}

	slices.SortFunc(results, func(a, b vector.SearchResult) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Path, b.Path)
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Get returns a copy of the document at path.
func (s *Store) Get(path string) (vector.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[path]
	if !ok {
		return vector.Document{}, fmt.Errorf("%w: %s", vector.ErrNotFound, path)
	}
	return *doc, nil
}

// Remove deletes path and reports whether it was present.
func (s *Store) Remove(path string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.docs[path]
	delete(s.docs, path)
	return ok
}

// Paths returns stored paths in lexical order.
func (s *Store) Paths() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Sorted(maps.Keys(s.docs))
}

// Snapshot returns every document ordered by path.
func (s *Store) Snapshot() vector.Snapshot {
	docs := s.collect()
	slices.SortFunc(docs, func(a, b *vector.Document) int {
		return cmp.Compare(a.Path, b.Path)
	})

	out := make([]vector.Document, len(docs))
	for i, doc := range docs {
		out[i] = *doc
	}
	return vector.Snapshot{
		Documents: out,
		Version:   vector.SnapshotVersion,
		Timestamp: time.Now().UTC(),
	}
}

// Restore replaces the store contents with snap. Later duplicates of a path
// win.
func (s *Store) Restore(snap vector.Snapshot) {
	docs := make(map[string]*vector.Document, len(snap.Documents))
	for i := range snap.Documents {
		doc := snap.Documents[i]
		docs[doc.Path] = &doc
	}

	s.mu.Lock()
	s.docs = docs
	s.mu.Unlock()
}

// Clear removes every document.
func (s *Store) Clear() {
	s.mu.Lock()
	s.docs = make(map[string]*vector.Document)
	s.mu.Unlock()
}

// Len returns the number of stored documents.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

func (s *Store) collect() []*vector.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Collect(maps.Values(s.docs))
}

var _ vector.Store = (*Store)(nil)
