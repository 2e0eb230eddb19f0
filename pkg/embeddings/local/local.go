// Package local implements a dependency-free bag-of-words embedder. It is
// used when no remote embedding backend is configured and as the fallback
// when the remote backend fails.
package local

import (
	"context"
	"math"
	"strings"

	"github.com/papercomputeco/vellum/pkg/embeddings"
	"github.com/papercomputeco/vellum/pkg/fingerprint"
)

const (
	// Dimensions of every local embedding.
	Dimensions = 300

	// hashesPerToken is how many buckets each token increments.
	hashesPerToken = 5

	// bucketStride spreads the buckets of a single token apart.
	bucketStride = 997
)

// Embedder hashes lowercase whitespace-separated tokens into a fixed-size
// count vector and L2-normalizes it. It never fails.
type Embedder struct{}

// NewEmbedder returns a local Embedder.
func NewEmbedder() *Embedder {
	return &Embedder{}
}

// Embed converts text into a unit-length vector of Dimensions components.
// Text without tokens maps to the zero vector.
func (e *Embedder) Embed(_ context.Context, text string) ([]float32, error) {
	return Vector(text), nil
}

// Close is a no-op.
func (e *Embedder) Close() error {
	return nil
}

// Vector computes the local embedding of text.
func Vector(text string) []float32 {
	acc := make([]float64, Dimensions)
	for _, token := range strings.Fields(strings.ToLower(text)) {
		h := int64(fingerprint.Sum32(token))
		for i := range int64(hashesPerToken) {
			idx := (h + bucketStride*i) % Dimensions
			if idx < 0 {
				idx = -idx
			}
			acc[idx]++
		}
	}

	var sum float64
	for _, v := range acc {
		sum += v * v
	}

	out := make([]float32, Dimensions)
	if sum == 0 {
		return out
	}
	norm := math.Sqrt(sum)
	for i, v := range acc {
		out[i] = float32(v / norm)
	}
	return out
}

var _ embeddings.Embedder = (*Embedder)(nil)
