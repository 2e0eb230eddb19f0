// Package openai implements the OpenAI Chat Completions backend. Any gateway
// speaking the same format (Azure, OpenRouter, vLLM, LM Studio) works by
// pointing BaseURL at it.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	goopenai "github.com/sashabaranov/go-openai"

	"github.com/papercomputeco/vellum/pkg/embeddings"
	"github.com/papercomputeco/vellum/pkg/llm"
	"github.com/papercomputeco/vellum/pkg/sse"
)

const (
	// DefaultBaseURL is the public OpenAI API.
	DefaultBaseURL = "https://api.openai.com/v1"

	// DefaultEmbeddingModel is used when Config.EmbeddingModel is empty.
	DefaultEmbeddingModel = "text-embedding-3-small"

	// doneSentinel is the data payload that terminates a stream.
	doneSentinel = "[DONE]"
)

// Config configures the backend.
type Config struct {
	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string

	// MaxTokens caps generated tokens. Zero leaves it to the backend.
	MaxTokens int

	// MaxInput caps runes sent for embedding. Defaults to
	// embeddings.DefaultMaxInput.
	MaxInput int

	HTTPClient *http.Client
}

// provider implements the Provider interface for OpenAI's Chat Completions API.
type provider struct {
	cfg        Config
	client     *goopenai.Client
	httpClient *http.Client
}

// New validates cfg and creates the backend.
func New(cfg Config) (*provider, error) {
	if cfg.APIKey == "" {
		return nil, &llm.ConfigurationError{Provider: "openai", Field: "api_key"}
	}
	if cfg.Model == "" {
		return nil, &llm.ConfigurationError{Provider: "openai", Field: "model"}
	}

	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.MaxInput == 0 {
		cfg.MaxInput = embeddings.DefaultMaxInput
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}

	clientCfg := goopenai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = cfg.BaseURL
	clientCfg.HTTPClient = httpClient

	return &provider{
		cfg:        cfg,
		client:     goopenai.NewClientWithConfig(clientCfg),
		httpClient: httpClient,
	}, nil
}

func (o *provider) Name() string {
	return "openai"
}

// Embed calls the embeddings endpoint with input truncated to MaxInput runes.
func (o *provider) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := o.client.CreateEmbeddings(ctx, goopenai.EmbeddingRequest{
		Model: goopenai.EmbeddingModel(o.cfg.EmbeddingModel),
		Input: []string{embeddings.Truncate(text, o.cfg.MaxInput)},
	})
	if err != nil {
		return nil, o.backendError(err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("openai: no embedding data returned")
	}

	src := resp.Data[0].Embedding
	v := make([]float32, len(src))
	for i := range src {
		v[i] = float32(src[i])
	}
	return v, nil
}

// Complete runs a non-streaming chat completion.
func (o *provider) Complete(ctx context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	creq := goopenai.ChatCompletionRequest{
		Model:     o.model(req),
		MaxTokens: o.maxTokens(req),
	}
	if req.Temperature != nil {
		creq.Temperature = float32(*req.Temperature)
	}
	for _, m := range o.messages(req) {
		creq.Messages = append(creq.Messages, goopenai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := o.client.CreateChatCompletion(ctx, creq)
	if err != nil {
		return nil, o.backendError(err)
	}

	out := &llm.ChatResponse{
		Model: resp.Model,
		Usage: &llm.Usage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		out.Message = llm.NewTextMessage(llm.RoleAssistant, choice.Message.Content)
		out.StopReason = string(choice.FinishReason)
	}
	return out, nil
}

// CompleteStream posts a streaming request and returns the open stream.
func (o *provider) CompleteStream(ctx context.Context, req *llm.ChatRequest) (*llm.Stream, error) {
	body := streamRequest{
		Model:     o.model(req),
		Messages:  o.messages(req),
		Stream:    true,
		MaxTokens: o.maxTokens(req),
	}
	if req.Temperature != nil {
		body.Temperature = req.Temperature
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("openai: marshaling request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("openai: creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")
	httpReq.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: sending request: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(resp.Body)
		return nil, &llm.BackendError{Provider: o.Name(), StatusCode: resp.StatusCode, Body: string(raw)}
	}

	return llm.NewStream(resp.Body, o.ParseStreamChunk), nil
}

// ParseStreamChunk extracts choices[0].delta.content. The literal payload
// "[DONE]" marks the end of the stream.
func (o *provider) ParseStreamChunk(ev *sse.Event) (*llm.StreamChunk, error) {
	data := strings.TrimSpace(ev.Data)
	if data == doneSentinel {
		return &llm.StreamChunk{Done: true}, nil
	}

	var chunk streamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return nil, err
	}
	if len(chunk.Choices) == 0 {
		return nil, nil
	}
	return &llm.StreamChunk{Text: chunk.Choices[0].Delta.Content}, nil
}

// Close releases resources held by the provider.
func (o *provider) Close() error {
	return nil
}

func (o *provider) model(req *llm.ChatRequest) string {
	if req.Model != "" {
		return req.Model
	}
	return o.cfg.Model
}

func (o *provider) maxTokens(req *llm.ChatRequest) int {
	if req.MaxTokens != nil {
		return *req.MaxTokens
	}
	return o.cfg.MaxTokens
}

// messages prepends the system instruction as a system-role message.
func (o *provider) messages(req *llm.ChatRequest) []message {
	out := make([]message, 0, len(req.Messages)+1)
	if req.System != "" {
		out = append(out, message{Role: goopenai.ChatMessageRoleSystem, Content: req.System})
	}
	for _, m := range req.Messages {
		out = append(out, message{Role: m.Role, Content: m.Content})
	}
	return out
}

func (o *provider) backendError(err error) error {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return &llm.BackendError{Provider: o.Name(), StatusCode: apiErr.HTTPStatusCode, Body: apiErr.Message}
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return &llm.BackendError{Provider: o.Name(), StatusCode: reqErr.HTTPStatusCode, Body: reqErr.Error()}
	}
	return fmt.Errorf("openai: %w", err)
}
