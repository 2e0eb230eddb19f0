// Package anthropic implements the Anthropic Messages API backend.
package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/sse"
)

const (
	// DefaultBaseURL is the public Anthropic API.
	DefaultBaseURL = "https://api.anthropic.com"

	// DefaultMaxTokens is sent when neither the request nor Config set one;
	// the API requires the field.
	DefaultMaxTokens = 1024

	// APIVersion is sent as the anthropic-version header.
	APIVersion = "2023-06-01"

	eventContentBlockDelta = "content_block_delta"
)

// Config configures the backend.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int

	HTTPClient *http.Client
}

// provider implements the Provider interface for Anthropic's Messages API.
type provider struct {
	cfg        Config
	httpClient *http.Client
}

// New validates cfg and creates the backend.
func New(cfg Config) (*provider, error) {
	if cfg.APIKey == "" {
		return nil, &llm.ConfigurationError{Provider: "anthropic", Field: "api_key"}
	}
	if cfg.Model == "" {
		return nil, &llm.ConfigurationError{Provider: "anthropic", Field: "model"}
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	return &provider{cfg: cfg, httpClient: httpClient}, nil
}

// Name returns "anthropic".
func (p *provider) Name() string {
	return "anthropic"
}

// Embed is not offered by the Messages API.
func (p *provider) Embed(context.Context, string) ([]float32, error) {
	return nil, llm.ErrEmbeddingUnsupported
}

// Complete runs a non-streaming completion and joins the text blocks of the
// reply.
func (p *provider) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	resp, err := p.post(ctx, p.request(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out anthropicResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("anthropic: decoding response: %w", err)
	}

	var text strings.Builder
	for _, block := range out.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}

	result := &llm.ChatResponse{
		Model:      out.Model,
		Message:    llm.NewTextMessage(llm.RoleAssistant, text.String()),
		StopReason: out.StopReason,
	}
	if out.Usage != nil {
		result.Usage = &llm.Usage{
			PromptTokens:     out.Usage.InputTokens,
			CompletionTokens: out.Usage.OutputTokens,
			TotalTokens:      out.Usage.InputTokens + out.Usage.OutputTokens,
		}
	}
	return result, nil
}

// CompleteStream posts a streaming request. The stream ends when the server
// closes the connection.
func (p *provider) CompleteStream(ctx context.Context, req *llm.ChatRequest) (*llm.Stream, error) {
	resp, err := p.post(ctx, p.request(req, true))
	if err != nil {
		return nil, err
	}
	return llm.NewStream(resp.Body, p.ParseStreamChunk), nil
}

// ParseStreamChunk keeps only content_block_delta payloads. Every other
// event type (message_start, ping, content_block_stop, ...) is skipped.
func (p *provider) ParseStreamChunk(ev *sse.Event) (*llm.StreamChunk, error) {
	var payload streamEvent
	if err := json.Unmarshal([]byte(ev.Data), &payload); err != nil {
		return nil, err
	}
	if payload.Type != eventContentBlockDelta {
		return nil, nil
	}
	return &llm.StreamChunk{Text: payload.Delta.Text}, nil
}

// Close releases resources held by the provider.
func (p *provider) Close() error {
	return nil
}

func (p *provider) request(req *llm.ChatRequest, stream bool) anthropicRequest {
	out := anthropicRequest{
		Model:       p.cfg.Model,
		System:      req.System,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: req.Temperature,
		Stream:      stream,
	}
	if req.Model != "" {
		out.Model = req.Model
	}
	if req.MaxTokens != nil {
		out.MaxTokens = *req.MaxTokens
	}
	for _, m := range req.Messages {
		out.Messages = append(out.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}
	return out
}

// post sends body to /v1/messages. Non-success statuses are returned as
// *llm.BackendError with the body closed.
func (p *provider) post(ctx context.Context, body anthropicRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("anthropic: marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.cfg.BaseURL+"/v1/messages", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("anthropic: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", p.cfg.APIKey)
	req.Header.Set("anthropic-version", APIVersion)
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("anthropic: sending request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, &llm.BackendError{Provider: p.Name(), StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, nil
}
