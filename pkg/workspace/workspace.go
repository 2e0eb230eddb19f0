// Package workspace assembles the vellum components from the effective
// configuration: state storage, completion provider, embedder, vector index,
// thread registry and indexing pipeline.
package workspace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"

	"github.com/papercomputeco/vellum/pkg/chat"
	"github.com/papercomputeco/vellum/pkg/config"
	"github.com/papercomputeco/vellum/pkg/embeddings"
	embeddingutils "github.com/papercomputeco/vellum/pkg/embeddings/utils"
	"github.com/papercomputeco/vellum/pkg/filter"
	"github.com/papercomputeco/vellum/pkg/indexer"
	"github.com/papercomputeco/vellum/pkg/llm/provider"
	"github.com/papercomputeco/vellum/pkg/logger"
	"github.com/papercomputeco/vellum/pkg/source/fs"
	"github.com/papercomputeco/vellum/pkg/storage"
	"github.com/papercomputeco/vellum/pkg/storage/inmemory"
	"github.com/papercomputeco/vellum/pkg/storage/sqlite"
	"github.com/papercomputeco/vellum/pkg/thread"
	"github.com/papercomputeco/vellum/pkg/vector"
	vectorinmem "github.com/papercomputeco/vellum/pkg/vector/inmemory"
)

// Environment variables consulted when provider.api_key is empty.
const (
	EnvOpenAIKey    = "OPENAI_API_KEY"
	EnvAnthropicKey = "ANTHROPIC_API_KEY"
)

// Workspace is the set of live components for one vault.
type Workspace struct {
	Config   *config.Config
	State    storage.Driver
	Embedder embeddings.Embedder
	Store    vector.Store
	Threads  *thread.Registry
	Source   *fs.Source
	Pipeline *indexer.Pipeline

	provider    provider.Provider
	providerErr error
	logger      *slog.Logger
}

// LoadEnv reads .env files from the working directory and the vellum
// directory, without overriding variables already set.
func LoadEnv(configDir string) {
	_ = godotenv.Load()
	if configDir != "" {
		_ = godotenv.Load(filepath.Join(configDir, ".env"))
	}
}

// Open builds a Workspace. A completion provider that cannot be configured,
// for example because no API key is set, is not an error here: indexing and
// search still work, and Provider reports the problem when chat needs it.
func Open(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Workspace, error) {
	if log == nil {
		log = logger.Nop()
	}

	ws := &Workspace{Config: cfg, logger: log}

	state, err := openState(ctx, cfg.Storage.StatePath)
	if err != nil {
		return nil, err
	}
	ws.State = state

	if err := ws.build(ctx); err != nil {
		_ = ws.Close()
		return nil, err
	}
	return ws, nil
}

func openState(ctx context.Context, path string) (storage.Driver, error) {
	if path == "" {
		return inmemory.NewDriver(), nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating state directory: %w", err)
	}
	driver, err := sqlite.NewDriver(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("opening state database: %w", err)
	}
	return driver, nil
}

func (ws *Workspace) build(ctx context.Context) error {
	cfg := ws.Config

	ws.provider, ws.providerErr = provider.New(provider.Config{
		Type:           cfg.Provider.Type,
		BaseURL:        cfg.Provider.BaseURL,
		APIKey:         APIKey(cfg.Provider),
		Model:          cfg.Provider.Model,
		EmbeddingModel: cfg.Embedding.Model,
		MaxInput:       cfg.Embedding.MaxInput,
		MaxTokens:      cfg.Provider.MaxTokens,
	})
	if ws.providerErr != nil {
		ws.logger.Debug("completion provider unavailable", "error", ws.providerErr)
	}

	opts := &embeddingutils.NewEmbedderOpts{
		ProviderType: cfg.Embedding.Provider,
		TargetURL:    cfg.Embedding.Target,
		Model:        cfg.Embedding.Model,
		MaxInput:     cfg.Embedding.MaxInput,
		Logger:       ws.logger,
	}
	if ws.provider != nil {
		opts.Remote = ws.provider
	}
	embedder, err := embeddingutils.NewEmbedder(opts)
	if err != nil {
		return fmt.Errorf("creating embedder: %w", err)
	}
	ws.Embedder = embedder

	ws.Store = vectorinmem.NewStore(embedder)
	found, err := indexer.LoadSnapshot(ctx, ws.State, ws.Store)
	if err != nil {
		return err
	}
	ws.logger.Debug("vector index loaded", "found", found, "documents", ws.Store.Len())

	ws.Threads = thread.NewRegistry(ws.State, thread.WithLogger(ws.logger))
	if err := ws.Threads.Load(ctx); err != nil {
		return err
	}

	if err := ws.SaveSettings(ctx); err != nil {
		return err
	}

	return nil
}

// OpenSource attaches the vault at cfg.Indexing.Root and builds the
// indexing pipeline. Commands that only chat or search skip it.
func (ws *Workspace) OpenSource() error {
	src, err := fs.New(ws.Config.Indexing.Root)
	if err != nil {
		return err
	}

	var summaryProvider provider.Provider
	if ws.Config.Indexing.Summarizer == indexer.SummarizerLLM {
		p, err := ws.Provider()
		if err != nil {
			return err
		}
		summaryProvider = p
	}
	summarizer, err := indexer.NewSummarizer(
		ws.Config.Indexing.Summarizer,
		ws.Config.Indexing.SummaryLength,
		summaryProvider,
		ws.Config.Provider.Model,
	)
	if err != nil {
		return err
	}

	pipeline, err := indexer.New(indexer.Config{
		Store:  ws.Store,
		Source: src,
		Filter: filter.New(filter.Options{
			Blacklist:  ws.Config.Filter.Blacklist,
			Extensions: ws.Config.Filter.Extensions,
			Folders:    ws.Config.Filter.Folders,
		}),
		Summarizer: summarizer,
		State:      ws.State,
		BatchSize:  ws.Config.Indexing.BatchSize,
		Logger:     ws.logger,
	})
	if err != nil {
		return err
	}

	ws.Source = src
	ws.Pipeline = pipeline
	return nil
}

// Provider returns the completion provider or the error that prevented it
// from being configured.
func (ws *Workspace) Provider() (provider.Provider, error) {
	if ws.providerErr != nil {
		return nil, ws.providerErr
	}
	return ws.provider, nil
}

// Chat returns an orchestrator over the workspace components.
func (ws *Workspace) Chat() (*chat.Orchestrator, error) {
	p, err := ws.Provider()
	if err != nil {
		return nil, err
	}
	return chat.New(chat.Config{
		Registry:  ws.Threads,
		Store:     ws.Store,
		Provider:  p,
		Model:     ws.Config.Provider.Model,
		TopK:      ws.Config.Retrieval.TopK,
		MaxTokens: ws.Config.Provider.MaxTokens,
		Logger:    ws.logger,
	})
}

// settings is the persisted view of the configuration. Secrets are left
// out.
type settings struct {
	Provider  config.ProviderConfig  `json:"provider"`
	Embedding config.EmbeddingConfig `json:"embedding"`
	Filter    config.FilterConfig    `json:"filter"`
	Indexing  config.IndexingConfig  `json:"indexing"`
	Retrieval config.RetrievalConfig `json:"retrieval"`
}

// SaveSettings records the effective configuration in the settings section.
func (ws *Workspace) SaveSettings(ctx context.Context) error {
	s := settings{
		Provider:  ws.Config.Provider,
		Embedding: ws.Config.Embedding,
		Filter:    ws.Config.Filter,
		Indexing:  ws.Config.Indexing,
		Retrieval: ws.Config.Retrieval,
	}
	s.Provider.APIKey = ""
	return storage.SetJSON(ctx, ws.State, storage.SectionSettings, s)
}

// Close releases the embedder and the state database.
func (ws *Workspace) Close() error {
	var errs []error
	if ws.Embedder != nil {
		errs = append(errs, ws.Embedder.Close())
	}
	if ws.State != nil {
		errs = append(errs, ws.State.Close())
	}
	return errors.Join(errs...)
}

// APIKey returns the configured key, falling back to the backend's
// conventional environment variable.
func APIKey(p config.ProviderConfig) string {
	if p.APIKey != "" {
		return p.APIKey
	}

	providerType := p.Type
	if providerType == "" {
		providerType = provider.DetectType(p.Model)
	}
	switch providerType {
	case provider.Anthropic:
		return os.Getenv(EnvAnthropicKey)
	default:
		return os.Getenv(EnvOpenAIKey)
	}
}
