package testutils

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/papercomputeco/vellum/pkg/source"
)

// MockSource is an in-memory document source.
type MockSource struct {
	mu sync.Mutex

	Files map[string]string

	// FailOn lists paths whose Read returns an error.
	FailOn map[string]bool

	// ReadDelay is slept before every Read.
	ReadDelay time.Duration

	// OnRead, when set, is called at the start of every Read.
	OnRead func(path string)

	reads int
}

func NewMockSource(files map[string]string) *MockSource {
	if files == nil {
		files = make(map[string]string)
	}
	return &MockSource{
		Files:  files,
		FailOn: make(map[string]bool),
	}
}

// Set adds or replaces a file.
func (m *MockSource) Set(path, text string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Files[path] = text
}

// Delete removes a file.
func (m *MockSource) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Files, path)
}

func (m *MockSource) List(_ context.Context) ([]source.Candidate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]source.Candidate, 0, len(m.Files))
	for p := range m.Files {
		out = append(out, source.NewCandidate(p))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (m *MockSource) Read(_ context.Context, path string) (string, error) {
	if m.OnRead != nil {
		m.OnRead(path)
	}
	if m.ReadDelay > 0 {
		time.Sleep(m.ReadDelay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads++

	if m.FailOn[path] {
		return "", fmt.Errorf("mock read failure for: %s", path)
	}
	text, ok := m.Files[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return text, nil
}

// ReadCount returns the number of Read calls.
func (m *MockSource) ReadCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads
}
