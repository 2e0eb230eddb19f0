// Package embeddings defines the text embedding strategy used by the vector
// store. Implementations live in sub-packages.
package embeddings

import "context"

// Embedder provides text embedding capabilities.
type Embedder interface {
	// Embed converts text into a vector embedding.
	Embed(ctx context.Context, text string) ([]float32, error)

	// Close releases any resources held by the embedder.
	Close() error
}

// DefaultMaxInput is the number of runes sent to remote embedding backends.
const DefaultMaxInput = 8000

// Truncate returns at most n runes of text. n <= 0 disables truncation.
func Truncate(text string, n int) string {
	if n <= 0 {
		return text
	}
	count := 0
	for i := range text {
		if count == n {
			return text[:i]
		}
		count++
	}
	return text
}
