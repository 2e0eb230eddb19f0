package provider

import (
	"fmt"
	"net/http"

	"github.com/papercomputeco/vellum/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/vellum/pkg/llm/provider/openai"
)

// Supported provider type constants
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
)

// SupportedProviders returns the list of all supported provider type names.
func SupportedProviders() []string {
	return []string{Anthropic, OpenAI}
}

// Config selects and configures a backend.
type Config struct {
	// Type is one of SupportedProviders. Empty means DetectType(Model).
	Type string

	BaseURL        string
	APIKey         string
	Model          string
	EmbeddingModel string
	MaxTokens      int

	// MaxInput caps the runes sent for embedding.
	MaxInput int

	HTTPClient *http.Client
}

// New creates the Provider for cfg.Type. A missing API key or model is
// reported as *llm.ConfigurationError.
func New(cfg Config) (Provider, error) {
	providerType := cfg.Type
	if providerType == "" {
		providerType = DetectType(cfg.Model)
	}

	var (
		p   Provider
		err error
	)
	switch providerType {
	case Anthropic:
		p, err = anthropic.New(anthropic.Config{
			BaseURL:    cfg.BaseURL,
			APIKey:     cfg.APIKey,
			Model:      cfg.Model,
			MaxTokens:  cfg.MaxTokens,
			HTTPClient: cfg.HTTPClient,
		})
	case OpenAI:
		p, err = openai.New(openai.Config{
			BaseURL:        cfg.BaseURL,
			APIKey:         cfg.APIKey,
			Model:          cfg.Model,
			EmbeddingModel: cfg.EmbeddingModel,
			MaxTokens:      cfg.MaxTokens,
			MaxInput:       cfg.MaxInput,
			HTTPClient:     cfg.HTTPClient,
		})
	default:
		return nil, fmt.Errorf("unknown provider type: %q (supported: %v)", providerType, SupportedProviders())
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}
