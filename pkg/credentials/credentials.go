// Package credentials stores completion provider API keys in the .env file
// of the .vellum/ directory, where workspace.LoadEnv picks them up.
package credentials

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"

	"github.com/papercomputeco/vellum/pkg/dotdir"
)

// FileName is the name of the env file inside the .vellum/ directory.
const FileName = ".env"

// providerEnvVars maps provider names to their expected environment variables.
var providerEnvVars = map[string]string{
	"openai":    "OPENAI_API_KEY",
	"anthropic": "ANTHROPIC_API_KEY",
}

// Manager reads and writes the .env file in the .vellum/ directory.
type Manager struct {
	targetPath string
}

// NewManager creates a Manager. If override is non-empty it is used as the
// .vellum/ directory; otherwise the standard dotdir resolution applies.
func NewManager(override string) (*Manager, error) {
	target, err := dotdir.NewManager().Target(override)
	if err != nil {
		return nil, err
	}
	return &Manager{targetPath: filepath.Join(target, FileName)}, nil
}

// Load returns every variable in the env file. A missing file is empty.
func (m *Manager) Load() (map[string]string, error) {
	env, err := godotenv.Read(m.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading credentials: %w", err)
	}
	return env, nil
}

// Save writes env to the file and restricts it to the owner.
func (m *Manager) Save(env map[string]string) error {
	if env == nil {
		return errors.New("cannot save nil credentials")
	}
	if err := godotenv.Write(env, m.targetPath); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	if err := os.Chmod(m.targetPath, 0o600); err != nil {
		return fmt.Errorf("securing credentials: %w", err)
	}
	return nil
}

// SetKey stores an API key for provider.
func (m *Manager) SetKey(provider, key string) error {
	envVar, err := envVarFor(provider)
	if err != nil {
		return err
	}

	env, err := m.Load()
	if err != nil {
		return err
	}
	env[envVar] = key
	return m.Save(env)
}

// GetKey returns the stored key for provider, or "" when none is stored.
func (m *Manager) GetKey(provider string) (string, error) {
	envVar, err := envVarFor(provider)
	if err != nil {
		return "", err
	}

	env, err := m.Load()
	if err != nil {
		return "", err
	}
	return env[envVar], nil
}

// RemoveKey deletes the stored key for provider. Other variables in the
// file are kept.
func (m *Manager) RemoveKey(provider string) error {
	envVar, err := envVarFor(provider)
	if err != nil {
		return err
	}

	env, err := m.Load()
	if err != nil {
		return err
	}
	if _, ok := env[envVar]; !ok {
		return nil
	}
	delete(env, envVar)
	return m.Save(env)
}

// ListProviders returns the providers that have a stored key, sorted.
func (m *Manager) ListProviders() ([]string, error) {
	env, err := m.Load()
	if err != nil {
		return nil, err
	}

	var providers []string
	for name, envVar := range providerEnvVars {
		if strings.TrimSpace(env[envVar]) != "" {
			providers = append(providers, name)
		}
	}
	slices.Sort(providers)
	return providers, nil
}

// GetTarget returns the resolved path to the env file.
func (m *Manager) GetTarget() string {
	return m.targetPath
}

// EnvVarForProvider returns the environment variable name for a given provider.
// Returns an empty string for unknown providers.
func EnvVarForProvider(provider string) string {
	return providerEnvVars[provider]
}

// SupportedProviders returns the list of providers that require API keys.
func SupportedProviders() []string {
	return []string{"anthropic", "openai"}
}

// IsSupportedProvider returns true if the given provider is supported.
func IsSupportedProvider(provider string) bool {
	_, ok := providerEnvVars[provider]
	return ok
}

func envVarFor(provider string) (string, error) {
	envVar, ok := providerEnvVars[provider]
	if !ok {
		return "", fmt.Errorf("unsupported provider: %q (supported: %s)",
			provider, strings.Join(SupportedProviders(), ", "))
	}
	return envVar, nil
}
