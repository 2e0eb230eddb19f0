// Package storage persists vellum state as named sections. Each section is an
// opaque JSON document written atomically, so a settings change never
// rewrites the vector index and a thread rename never rewrites settings.
package storage

import "context"

// Well-known sections.
const (
	SectionSettings    = "settings"
	SectionVectorIndex = "vector_index"
	SectionThreads     = "threads"
)

// Driver stores and loads sections.
type Driver interface {
	// Get returns the raw contents of section. It returns ErrNotFound when
	// the section was never written.
	Get(ctx context.Context, section string) ([]byte, error)

	// Set atomically replaces the contents of section.
	Set(ctx context.Context, section string, data []byte) error

	// Sections lists the names of every written section.
	Sections(ctx context.Context) ([]string, error)

	// Close closes the store and releases any resources.
	Close() error
}
