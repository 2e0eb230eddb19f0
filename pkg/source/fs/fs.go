// Package fs serves documents from a directory tree on local disk.
package fs

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/papercomputeco/vellum/pkg/source"
)

// Source lists and reads files under Root. Hidden files and directories
// (names starting with ".") are skipped.
type Source struct {
	root string
}

// New returns a Source rooted at root.
func New(root string) (*Source, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving root %s: %w", root, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("opening root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root %s is not a directory", abs)
	}

	return &Source{root: abs}, nil
}

// Root returns the absolute root directory.
func (s *Source) Root() string {
	return s.root
}

// List walks the tree and returns every regular file in lexical order.
func (s *Source) List(ctx context.Context) ([]source.Candidate, error) {
	var out []source.Candidate

	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if p != s.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := s.rel(p)
		if err != nil {
			return err
		}
		out = append(out, source.NewCandidate(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing %s: %w", s.root, err)
	}

	return out, nil
}

// Read returns the file contents at the slash-separated relative path.
func (s *Source) Read(_ context.Context, path string) (string, error) {
	full, err := s.abs(path)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	return string(data), nil
}

func (s *Source) rel(p string) (string, error) {
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// abs resolves a relative path and refuses anything outside the root.
func (s *Source) abs(path string) (string, error) {
	full := filepath.Join(s.root, filepath.FromSlash(path))
	rel, err := filepath.Rel(s.root, full)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path %s escapes the source root", path)
	}
	return full, nil
}

var _ source.Source = (*Source)(nil)
