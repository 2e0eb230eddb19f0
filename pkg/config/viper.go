package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/papercomputeco/vellum/pkg/dotdir"
)

// EnvPrefix prefixes every environment override, e.g. VELLUM_PROVIDER_MODEL.
const EnvPrefix = "VELLUM"

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the VELLUM_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (VELLUM_PROVIDER_MODEL, VELLUM_API_LISTEN, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: VELLUM_PROVIDER_MODEL, VELLUM_STORAGE_STATE_PATH, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// FromViper materializes the effective configuration after flags, env and
// file have been layered.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Version: v.GetInt("version"),
		Provider: ProviderConfig{
			Type:      v.GetString("provider.type"),
			BaseURL:   v.GetString("provider.base_url"),
			Model:     v.GetString("provider.model"),
			APIKey:    v.GetString("provider.api_key"),
			MaxTokens: v.GetInt("provider.max_tokens"),
		},
		Embedding: EmbeddingConfig{
			Provider: v.GetString("embedding.provider"),
			Target:   v.GetString("embedding.target"),
			Model:    v.GetString("embedding.model"),
			MaxInput: v.GetInt("embedding.max_input"),
		},
		Filter: FilterConfig{
			Blacklist:  v.GetStringSlice("filter.blacklist"),
			Extensions: v.GetStringSlice("filter.extensions"),
			Folders:    v.GetStringSlice("filter.folders"),
		},
		Indexing: IndexingConfig{
			Root:          v.GetString("indexing.root"),
			BatchSize:     v.GetInt("indexing.batch_size"),
			Summarizer:    v.GetString("indexing.summarizer"),
			SummaryLength: v.GetInt("indexing.summary_length"),
		},
		Retrieval: RetrievalConfig{
			TopK: v.GetInt("retrieval.top_k"),
		},
		Storage: StorageConfig{
			StatePath: v.GetString("storage.state_path"),
		},
		API: APIConfig{
			Listen: v.GetString("api.listen"),
		},
	}
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Provider
	v.SetDefault("provider.type", d.Provider.Type)
	v.SetDefault("provider.base_url", d.Provider.BaseURL)
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.api_key", d.Provider.APIKey)
	v.SetDefault("provider.max_tokens", d.Provider.MaxTokens)

	// Embedding
	v.SetDefault("embedding.provider", d.Embedding.Provider)
	v.SetDefault("embedding.target", d.Embedding.Target)
	v.SetDefault("embedding.model", d.Embedding.Model)
	v.SetDefault("embedding.max_input", d.Embedding.MaxInput)

	// Filter
	v.SetDefault("filter.blacklist", d.Filter.Blacklist)
	v.SetDefault("filter.extensions", d.Filter.Extensions)
	v.SetDefault("filter.folders", d.Filter.Folders)

	// Indexing
	v.SetDefault("indexing.root", d.Indexing.Root)
	v.SetDefault("indexing.batch_size", d.Indexing.BatchSize)
	v.SetDefault("indexing.summarizer", d.Indexing.Summarizer)
	v.SetDefault("indexing.summary_length", d.Indexing.SummaryLength)

	// Retrieval
	v.SetDefault("retrieval.top_k", d.Retrieval.TopK)

	// Storage
	v.SetDefault("storage.state_path", d.Storage.StatePath)

	// API
	v.SetDefault("api.listen", d.API.Listen)
}
