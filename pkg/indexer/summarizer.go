package indexer

import (
	"context"
	"fmt"
	"strings"

	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/llm/provider"
	"github.com/papercomputeco/vellum/pkg/utils"
)

// Summarizer names.
const (
	SummarizerExcerpt = "excerpt"
	SummarizerLLM     = "llm"
)

// DefaultSummaryLength is the excerpt length in characters.
const DefaultSummaryLength = 280

// Summarizer produces a short description of a document.
type Summarizer interface {
	Summarize(ctx context.Context, path, text string) (string, error)
}

// Excerpt summarizes a document as its leading characters with whitespace
// collapsed.
type Excerpt struct {
	Length int
}

// Summarize returns the first Length characters of text.
func (e Excerpt) Summarize(_ context.Context, _ string, text string) (string, error) {
	n := e.Length
	if n <= 0 {
		n = DefaultSummaryLength
	}
	return utils.Truncate(strings.Join(strings.Fields(text), " "), n), nil
}

const summaryPrompt = "Summarize the following note in two sentences. Reply with the summary only."

// LLM asks the completion backend for a summary.
type LLM struct {
	Provider provider.Provider
	Model    string

	// MaxInput bounds the characters of the note sent to the backend.
	MaxInput int
}

// Summarize sends the note to the backend and returns the trimmed reply.
func (s LLM) Summarize(ctx context.Context, path, text string) (string, error) {
	if s.MaxInput > 0 {
		text = utils.Truncate(text, s.MaxInput)
	}

	resp, err := s.Provider.Complete(ctx, &llm.ChatRequest{
		Model:  s.Model,
		System: summaryPrompt,
		Messages: []llm.Message{
			llm.NewTextMessage(llm.RoleUser, fmt.Sprintf("# %s\n\n%s", path, text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarizing %s: %w", path, err)
	}
	return strings.TrimSpace(resp.Message.Content), nil
}

// NewSummarizer returns the summarizer registered under name. An empty name
// selects the excerpt summarizer.
func NewSummarizer(name string, length int, p provider.Provider, model string) (Summarizer, error) {
	switch name {
	case "", SummarizerExcerpt:
		return Excerpt{Length: length}, nil
	case SummarizerLLM:
		if p == nil {
			return nil, fmt.Errorf("summarizer %q requires a completion provider", name)
		}
		return LLM{Provider: p, Model: model, MaxInput: 8000}, nil
	default:
		return nil, fmt.Errorf("unknown summarizer %q", name)
	}
}
