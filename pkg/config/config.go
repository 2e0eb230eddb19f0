// Package config loads, saves and edits config.toml in the .vellum/
// directory and layers environment variables and flags on top of it.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/papercomputeco/vellum/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// stateFile is the default SQLite state database name.
	stateFile = "state.db"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetDir  string
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .vellum/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfger.targetDir = target
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns all supported configuration key names in TOML
// section order.
func ValidConfigKeys() []string {
	sections := []string{"provider", "embedding", "filter", "indexing", "retrieval", "storage", "api"}

	keys := make([]string, 0, len(configKeys))
	for k := range configKeys {
		keys = append(keys, k)
	}

	slices.SortFunc(keys, func(a, b string) int {
		sa, _, _ := strings.Cut(a, ".")
		sb, _, _ := strings.Cut(b, ".")
		if ia, ib := slices.Index(sections, sa), slices.Index(sections, sb); ia != ib {
			return ia - ib
		}
		return strings.Compare(a, b)
	})
	return keys
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// GetTargetDir returns the resolved .vellum/ directory.
func (c *Configer) GetTargetDir() string {
	return c.targetDir
}

// LoadConfig loads the configuration from config.toml in the target .vellum/ directory.
// If the file does not exist, returns NewDefaultConfig() so callers always receive
// a fully-populated Config with sane defaults. Fields explicitly set in the file
// override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		cfg := NewDefaultConfig()
		c.resolvePaths(cfg)
		return cfg, nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := NewDefaultConfig()
			c.resolvePaths(cfg)
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)
	c.resolvePaths(cfg)

	return cfg, nil
}

// StatePath returns where the state database lives for cfg.
func (c *Configer) StatePath(cfg *Config) string {
	if cfg.Storage.StatePath != "" {
		return cfg.Storage.StatePath
	}
	if c.targetDir == "" {
		return ""
	}
	return filepath.Join(c.targetDir, stateFile)
}

func (c *Configer) resolvePaths(cfg *Config) {
	cfg.Storage.StatePath = c.StatePath(cfg)
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
// List fields are left alone when present in the file so that an explicit
// empty list can disable a filter.
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Provider.Type == "" && cfg.Provider.Model == "" {
		cfg.Provider.Type = defaults.Provider.Type
	}
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = defaults.Provider.Model
	}
	if cfg.Provider.MaxTokens == 0 {
		cfg.Provider.MaxTokens = defaults.Provider.MaxTokens
	}

	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = defaults.Embedding.Provider
	}
	if cfg.Embedding.MaxInput == 0 {
		cfg.Embedding.MaxInput = defaults.Embedding.MaxInput
	}

	if cfg.Filter.Blacklist == nil {
		cfg.Filter.Blacklist = defaults.Filter.Blacklist
	}
	if cfg.Filter.Extensions == nil {
		cfg.Filter.Extensions = defaults.Filter.Extensions
	}

	if cfg.Indexing.Root == "" {
		cfg.Indexing.Root = defaults.Indexing.Root
	}
	if cfg.Indexing.BatchSize == 0 {
		cfg.Indexing.BatchSize = defaults.Indexing.BatchSize
	}
	if cfg.Indexing.Summarizer == "" {
		cfg.Indexing.Summarizer = defaults.Indexing.Summarizer
	}
	if cfg.Indexing.SummaryLength == 0 {
		cfg.Indexing.SummaryLength = defaults.Indexing.SummaryLength
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = defaults.Retrieval.TopK
	}

	if cfg.API.Listen == "" {
		cfg.API.Listen = defaults.API.Listen
	}
}

// SaveConfig persists the configuration to config.toml in the target .vellum/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	// The default state path is derived on load and not written back.
	out := *cfg
	if out.Storage.StatePath == filepath.Join(c.targetDir, stateFile) {
		out.Storage.StatePath = ""
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(out); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	cfg := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		cfg.Provider.Type = "openai"
		cfg.Provider.Model = defaultProviderModel
		cfg.Embedding.Provider = "openai"
		cfg.Embedding.Model = "text-embedding-3-small"

	case "anthropic":
		cfg.Provider.Type = "anthropic"
		cfg.Provider.Model = "claude-sonnet-4-5"
		cfg.Embedding.Provider = "local"

	case "ollama":
		// Ollama serves the OpenAI chat format under /v1.
		cfg.Provider.Type = "openai"
		cfg.Provider.BaseURL = "http://localhost:11434/v1"
		cfg.Provider.Model = "llama3.2"
		cfg.Provider.APIKey = "ollama"
		cfg.Embedding.Provider = "ollama"
		cfg.Embedding.Target = "http://localhost:11434"
		cfg.Embedding.Model = "nomic-embed-text"

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: %s)", name, strings.Join(ValidPresetNames(), ", "))
	}

	return cfg, nil
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}
