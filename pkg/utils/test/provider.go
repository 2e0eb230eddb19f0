package testutils

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"

	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/sse"
)

// MockProvider is a completion backend that replays canned output.
type MockProvider struct {
	*MockEmbedder

	mu sync.Mutex

	// Reply is returned by Complete.
	Reply string

	// Chunks are streamed by CompleteStream, one event each. Chunks must not
	// contain newlines.
	Chunks []string

	// Err is returned by Complete and CompleteStream.
	Err error

	// Gate, when set, holds the stream open until it is closed.
	Gate chan struct{}

	requests []*llm.ChatRequest
}

func NewMockProvider() *MockProvider {
	return &MockProvider{MockEmbedder: NewMockEmbedder()}
}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) record(req *llm.ChatRequest) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
}

// Requests returns every request received so far.
func (m *MockProvider) Requests() []*llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*llm.ChatRequest(nil), m.requests...)
}

// LastRequest returns the most recent request, or nil.
func (m *MockProvider) LastRequest() *llm.ChatRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.requests) == 0 {
		return nil
	}
	return m.requests[len(m.requests)-1]
}

func (m *MockProvider) Complete(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}
	return &llm.ChatResponse{
		Model:   req.Model,
		Message: llm.NewTextMessage(llm.RoleAssistant, m.Reply),
	}, nil
}

func (m *MockProvider) CompleteStream(_ context.Context, req *llm.ChatRequest) (*llm.Stream, error) {
	m.record(req)
	if m.Err != nil {
		return nil, m.Err
	}

	pr, pw := io.Pipe()
	go func() {
		if m.Gate != nil {
			<-m.Gate
		}
		bw := bufio.NewWriter(pw)
		w := sse.NewWriter(bw)
		for _, c := range m.Chunks {
			if err := w.WriteEvent(sse.Event{Data: c}); err != nil {
				pw.CloseWithError(err)
				return
			}
		}
		_ = w.WriteEvent(sse.Event{Data: "[DONE]"})
		pw.Close()
	}()

	return llm.NewStream(pr, m.ParseStreamChunk), nil
}

// ParseStreamChunk treats event data as literal text, with "[DONE]" ending
// the stream.
func (m *MockProvider) ParseStreamChunk(ev *sse.Event) (*llm.StreamChunk, error) {
	if strings.TrimSpace(ev.Data) == "[DONE]" {
		return &llm.StreamChunk{Done: true}, nil
	}
	return &llm.StreamChunk{Text: ev.Data}, nil
}
