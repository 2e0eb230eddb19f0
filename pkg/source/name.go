package source

import (
	"path"
	"strings"
)

// DisplayName returns the base name of p without its final extension, which
// is how notes link to each other.
func DisplayName(p string) string {
	base := path.Base(p)
	return strings.TrimSuffix(base, path.Ext(base))
}

// NewCandidate builds a Candidate from a slash-separated path.
func NewCandidate(p string) Candidate {
	return Candidate{
		Path:      p,
		Extension: strings.TrimPrefix(path.Ext(p), "."),
	}
}
