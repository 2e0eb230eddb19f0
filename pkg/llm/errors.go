package llm

import (
	"errors"
	"fmt"
)

// ErrStreamConsumed is returned when a Stream is iterated a second time.
var ErrStreamConsumed = errors.New("stream already consumed")

// ConfigurationError reports a backend that cannot be used because a
// required setting is missing.
type ConfigurationError struct {
	Provider string
	Field    string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("%s: missing %s", e.Provider, e.Field)
}

// BackendError reports a non-success HTTP status from a backend. Body holds
// the response body as returned, for diagnostics.
type BackendError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s returned status %d: %s", e.Provider, e.StatusCode, e.Body)
}

// ErrEmbeddingUnsupported is returned by backends that have no embedding
// endpoint.
var ErrEmbeddingUnsupported = errors.New("embeddings not supported by this provider")
