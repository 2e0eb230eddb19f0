package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Config represents the persistent vellum configuration stored as config.toml
// in the .vellum/ directory. The TOML layout uses sections for logical grouping.
type Config struct {
	Version   int             `toml:"version" json:"version"`
	Provider  ProviderConfig  `toml:"provider" json:"provider"`
	Embedding EmbeddingConfig `toml:"embedding" json:"embedding"`
	Filter    FilterConfig    `toml:"filter" json:"filter"`
	Indexing  IndexingConfig  `toml:"indexing" json:"indexing"`
	Retrieval RetrievalConfig `toml:"retrieval" json:"retrieval"`
	Storage   StorageConfig   `toml:"storage" json:"storage"`
	API       APIConfig       `toml:"api" json:"api"`
}

// ProviderConfig selects the completion backend.
type ProviderConfig struct {
	// Type is "openai" or "anthropic". Empty means detect from Model.
	Type    string `toml:"type,omitempty" json:"type,omitempty"`
	BaseURL string `toml:"base_url,omitempty" json:"base_url,omitempty"`
	Model   string `toml:"model,omitempty" json:"model,omitempty"`

	// APIKey is usually left empty in the file and supplied through
	// VELLUM_PROVIDER_API_KEY, OPENAI_API_KEY or ANTHROPIC_API_KEY.
	APIKey    string `toml:"api_key,omitempty" json:"api_key,omitempty"`
	MaxTokens int    `toml:"max_tokens,omitempty" json:"max_tokens,omitempty"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	// Provider is "local", "openai" or "ollama".
	Provider string `toml:"provider,omitempty" json:"provider,omitempty"`
	Target   string `toml:"target,omitempty" json:"target,omitempty"`
	Model    string `toml:"model,omitempty" json:"model,omitempty"`
	MaxInput int    `toml:"max_input,omitempty" json:"max_input,omitempty"`
}

// FilterConfig decides which vault files are indexed.
type FilterConfig struct {
	Blacklist  []string `toml:"blacklist" json:"blacklist"`
	Extensions []string `toml:"extensions" json:"extensions"`
	Folders    []string `toml:"folders" json:"folders"`
}

// IndexingConfig holds batch indexing settings.
type IndexingConfig struct {
	// Root is the vault directory.
	Root      string `toml:"root,omitempty" json:"root,omitempty"`
	BatchSize int    `toml:"batch_size,omitempty" json:"batch_size,omitempty"`

	// Summarizer is "excerpt" or "llm".
	Summarizer    string `toml:"summarizer,omitempty" json:"summarizer,omitempty"`
	SummaryLength int    `toml:"summary_length,omitempty" json:"summary_length,omitempty"`
}

// RetrievalConfig holds search settings.
type RetrievalConfig struct {
	TopK int `toml:"top_k,omitempty" json:"top_k,omitempty"`
}

// StorageConfig holds state persistence settings.
type StorageConfig struct {
	// StatePath is the SQLite state database. Empty means state.db in the
	// .vellum/ directory.
	StatePath string `toml:"state_path,omitempty" json:"state_path,omitempty"`
}

// APIConfig holds API server settings.
type APIConfig struct {
	Listen string `toml:"listen,omitempty" json:"listen,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return *field(c) },
		set: func(c *Config, v string) error { *field(c) = v; return nil },
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

// listKey stores comma-separated values.
func listKey(field func(c *Config) *[]string) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strings.Join(*field(c), ",") },
		set: func(c *Config, v string) error {
			*field(c) = SplitList(v)
			return nil
		},
	}
}

// SplitList splits a comma-separated value, trimming blanks. The result is
// never nil so that an empty value is saved as an empty list.
func SplitList(v string) []string {
	out := []string{}
	for item := range strings.SplitSeq(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"provider.type":     stringKey(func(c *Config) *string { return &c.Provider.Type }),
	"provider.base_url": stringKey(func(c *Config) *string { return &c.Provider.BaseURL }),
	"provider.model":    stringKey(func(c *Config) *string { return &c.Provider.Model }),
	"provider.api_key": {
		get: func(c *Config) string {
			if c.Provider.APIKey == "" {
				return ""
			}
			return "********"
		},
		set: func(c *Config, v string) error { c.Provider.APIKey = v; return nil },
	},
	"provider.max_tokens": intKey("provider.max_tokens", func(c *Config) *int { return &c.Provider.MaxTokens }),

	"embedding.provider":  stringKey(func(c *Config) *string { return &c.Embedding.Provider }),
	"embedding.target":    stringKey(func(c *Config) *string { return &c.Embedding.Target }),
	"embedding.model":     stringKey(func(c *Config) *string { return &c.Embedding.Model }),
	"embedding.max_input": intKey("embedding.max_input", func(c *Config) *int { return &c.Embedding.MaxInput }),

	"filter.blacklist":  listKey(func(c *Config) *[]string { return &c.Filter.Blacklist }),
	"filter.extensions": listKey(func(c *Config) *[]string { return &c.Filter.Extensions }),
	"filter.folders":    listKey(func(c *Config) *[]string { return &c.Filter.Folders }),

	"indexing.root":           stringKey(func(c *Config) *string { return &c.Indexing.Root }),
	"indexing.batch_size":     intKey("indexing.batch_size", func(c *Config) *int { return &c.Indexing.BatchSize }),
	"indexing.summarizer":     stringKey(func(c *Config) *string { return &c.Indexing.Summarizer }),
	"indexing.summary_length": intKey("indexing.summary_length", func(c *Config) *int { return &c.Indexing.SummaryLength }),

	"retrieval.top_k": intKey("retrieval.top_k", func(c *Config) *int { return &c.Retrieval.TopK }),

	"storage.state_path": stringKey(func(c *Config) *string { return &c.Storage.StatePath }),

	"api.listen": stringKey(func(c *Config) *string { return &c.API.Listen }),
}
