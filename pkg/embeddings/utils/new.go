// Package embeddingutils builds the configured embedder.
package embeddingutils

import (
	"fmt"
	"log/slog"

	"github.com/papercomputeco/vellum/pkg/embeddings"
	"github.com/papercomputeco/vellum/pkg/embeddings/fallback"
	"github.com/papercomputeco/vellum/pkg/embeddings/local"
	"github.com/papercomputeco/vellum/pkg/embeddings/ollama"
)

// Supported embedding provider types.
const (
	Local  = "local"
	Ollama = "ollama"
	OpenAI = "openai"
)

type NewEmbedderOpts struct {
	ProviderType string
	TargetURL    string
	Model        string
	MaxInput     int

	// Remote serves the "openai" type. It is usually the completion
	// provider, which embeds through the same API account.
	Remote embeddings.Embedder

	Logger *slog.Logger
}

// NewEmbedder returns the embedder for o.ProviderType wrapped in the local
// fallback. An empty type selects the local strategy.
func NewEmbedder(o *NewEmbedderOpts) (embeddings.Embedder, error) {
	var remote embeddings.Embedder

	switch o.ProviderType {
	case "", Local:
		return local.NewEmbedder(), nil
	case Ollama:
		e, err := ollama.NewEmbedder(ollama.EmbedderConfig{
			BaseURL:  o.TargetURL,
			Model:    o.Model,
			MaxInput: o.MaxInput,
		})
		if err != nil {
			return nil, err
		}
		remote = e
	case OpenAI:
		if o.Remote == nil {
			// No credentials for the remote API: embed locally.
			if o.Logger != nil {
				o.Logger.Warn("remote embedder unavailable, using local embeddings", "provider", o.ProviderType)
			}
			return fallback.NewEmbedder(nil, o.Logger), nil
		}
		remote = o.Remote
	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", o.ProviderType)
	}

	return fallback.NewEmbedder(remote, o.Logger), nil
}
