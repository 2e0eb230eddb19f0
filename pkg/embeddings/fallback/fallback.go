// Package fallback wraps a remote embedder so that embedding never fails:
// when the remote call errors, the local bag-of-words vector is used instead.
package fallback

import (
	"context"
	"log/slog"

	"github.com/papercomputeco/vellum/pkg/embeddings"
	"github.com/papercomputeco/vellum/pkg/embeddings/local"
	"github.com/papercomputeco/vellum/pkg/logger"
)

// Embedder tries Remote first and falls back to the local strategy.
type Embedder struct {
	remote embeddings.Embedder
	logger *slog.Logger
}

// NewEmbedder wraps remote. A nil remote makes every call local.
func NewEmbedder(remote embeddings.Embedder, log *slog.Logger) *Embedder {
	if log == nil {
		log = logger.Nop()
	}
	return &Embedder{remote: remote, logger: log}
}

// Embed never returns an error.
//
// Vectors from the remote and local strategies have different dimensions
// and are never comparable; the vector store scores such pairs as zero.
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if e.remote == nil {
		return local.Vector(text), nil
	}

	vec, err := e.remote.Embed(ctx, text)
	if err == nil && len(vec) > 0 {
		return vec, nil
	}

	e.logger.Warn("remote embedding failed, using local embedding", "error", err)
	return local.Vector(text), nil
}

// Close closes the remote embedder.
func (e *Embedder) Close() error {
	if e.remote == nil {
		return nil
	}
	return e.remote.Close()
}

var _ embeddings.Embedder = (*Embedder)(nil)
