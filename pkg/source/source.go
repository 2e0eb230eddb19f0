// Package source defines the document source the indexer reads from.
package source

import "context"

// Candidate is a document offered for indexing.
type Candidate struct {
	// Path is slash-separated and relative to the source root.
	Path string

	// Extension is the file extension without the leading dot.
	Extension string
}

// Name is the display name of the document: its base name without the
// extension.
func (c Candidate) Name() string {
	return DisplayName(c.Path)
}

// Source enumerates and reads documents.
type Source interface {
	// List returns every document currently available.
	List(ctx context.Context) ([]Candidate, error)

	// Read returns the text of the document at path.
	Read(ctx context.Context, path string) (string, error)
}
