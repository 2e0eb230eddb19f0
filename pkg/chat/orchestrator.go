// Package chat answers questions against the vector index and records the
// exchange in a conversation thread.
package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/llm/provider"
	"github.com/papercomputeco/vellum/pkg/logger"
	"github.com/papercomputeco/vellum/pkg/thread"
	"github.com/papercomputeco/vellum/pkg/vector"
)

// Config configures an Orchestrator.
type Config struct {
	Registry *thread.Registry
	Store    vector.Store
	Provider provider.Provider

	// Model overrides the provider's configured model.
	Model string

	// TopK is the number of notes retrieved per question.
	TopK int

	MaxTokens int
	Logger    *slog.Logger
}

// Orchestrator runs the retrieve, prompt, stream and record cycle.
type Orchestrator struct {
	registry  *thread.Registry
	store     vector.Store
	provider  provider.Provider
	model     string
	topK      int
	maxTokens int
	logger    *slog.Logger
}

// New builds an Orchestrator.
func New(c Config) (*Orchestrator, error) {
	if c.Registry == nil || c.Store == nil || c.Provider == nil {
		return nil, errors.New("chat: registry, store and provider are required")
	}

	o := &Orchestrator{
		registry:  c.Registry,
		store:     c.Store,
		provider:  c.Provider,
		model:     c.Model,
		topK:      c.TopK,
		maxTokens: c.MaxTokens,
		logger:    c.Logger,
	}
	if o.topK <= 0 {
		o.topK = vector.DefaultTopK
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}
	return o, nil
}

// SendMessage answers question in the thread. Fragments go to sink as they
// arrive; the final text, with its Sources section, goes to sink.Done, is
// returned, and is appended to the thread together with the question.
//
// It fails with thread.ErrThreadBusy if the thread already has a request in
// flight. On any failure the thread history is left untouched.
func (o *Orchestrator) SendMessage(ctx context.Context, threadID, question string, sink Sink) (string, error) {
	if sink == nil {
		sink = Discard
	}

	answer, err := o.send(ctx, threadID, question, sink)
	if err != nil {
		o.logger.Warn("chat request failed", "thread_id", threadID, "error", err)
		sink.Fail(err)
		return "", err
	}

	sink.Done(answer)
	return answer, nil
}

func (o *Orchestrator) send(ctx context.Context, threadID, question string, sink Sink) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", errors.New("question must not be empty")
	}

	history, err := o.registry.BeginStreaming(threadID)
	if err != nil {
		return "", err
	}
	defer o.registry.EndStreaming(threadID)

	start := time.Now()

	docs, err := o.store.Search(ctx, question, o.topK)
	if err != nil {
		return "", fmt.Errorf("retrieving context: %w", err)
	}
	o.logger.Debug("retrieved context", "thread_id", threadID, "documents", len(docs))

	req := &llm.ChatRequest{
		Model:    o.model,
		System:   SystemPrompt(docs),
		Messages: append(history, llm.NewTextMessage(llm.RoleUser, question)),
	}
	if o.maxTokens > 0 {
		req.MaxTokens = &o.maxTokens
	}

	stream, err := o.provider.CompleteStream(ctx, req)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	for fragment, err := range stream.Text() {
		if err != nil {
			return "", fmt.Errorf("reading %s stream: %w", o.provider.Name(), err)
		}
		b.WriteString(fragment)
		sink.Chunk(fragment)
	}

	answer := b.String() + Sources(docs)

	if err := o.registry.AppendExchange(ctx, threadID, question, answer); err != nil {
		return "", err
	}

	o.logger.Info("chat answered",
		"thread_id", threadID,
		"provider", o.provider.Name(),
		"documents", len(docs),
		"chars", len(answer),
		"duration", time.Since(start),
	)
	return answer, nil
}

// Search exposes retrieval without a completion.
func (o *Orchestrator) Search(ctx context.Context, query string, k int) ([]vector.SearchResult, error) {
	if k <= 0 {
		k = o.topK
	}
	return o.store.Search(ctx, query, k)
}
