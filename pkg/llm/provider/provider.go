// Package provider selects and builds the completion backend. Each backend
// lives in its own sub-package and speaks its own wire format; callers only
// see the Provider interface.
package provider

import (
	"context"

	"github.com/papercomputeco/vellum/pkg/embeddings"
	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/sse"
)

// Provider is a completion backend.
type Provider interface {
	// Embedder embeds text through the backend's embedding endpoint.
	// Backends without one return llm.ErrEmbeddingUnsupported.
	embeddings.Embedder

	// Name returns the canonical provider name (e.g., "anthropic", "openai").
	Name() string

	// Complete runs a non-streaming completion.
	Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error)

	// CompleteStream starts a streaming completion. A non-success status is
	// returned as *llm.BackendError before any fragment is produced.
	CompleteStream(ctx context.Context, req *llm.ChatRequest) (*llm.Stream, error)

	// ParseStreamChunk converts a single streaming event into the internal
	// format. Returns (nil, nil) if the event carries no text.
	ParseStreamChunk(ev *sse.Event) (*llm.StreamChunk, error)
}
