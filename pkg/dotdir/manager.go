// Package dotdir locates the .vellum/ directory that holds config.toml, the
// credentials file and the state database.
//
// A vault keeps its .vellum/ at the vault root, so commands run anywhere
// inside the vault find it by walking up from the working directory. Outside
// a vault the home directory is used.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the vellum directory.
const DirName = ".vellum"

// Manager resolves the .vellum/ directory for the current process.
type Manager struct {
	getwd   func() (string, error)
	homeDir func() (string, error)
}

func NewManager() *Manager {
	return &Manager{
		getwd:   os.Getwd,
		homeDir: os.UserHomeDir,
	}
}

// Target returns the absolute path of the .vellum/ directory to use,
// creating it when needed. Order of precedence:
//  1. overrideDir, when non-empty
//  2. the nearest .vellum/ in the working directory or one of its parents,
//     stopping before the home directory
//  3. ~/.vellum/
func (m *Manager) Target(overrideDir string) (string, error) {
	dir := overrideDir
	if dir == "" {
		home, err := m.homeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}

		cwd, err := m.getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}

		dir = Find(cwd, home)
		if dir == "" {
			dir = filepath.Join(home, DirName)
		}
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating vellum directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// Find returns the nearest .vellum/ directory at start or above it, or ""
// when there is none. The search stops at stop (exclusive) or the file system
// root, so a vault never picks up the home directory's settings by accident.
func Find(start, stop string) string {
	dir := filepath.Clean(start)
	stop = filepath.Clean(stop)

	for {
		if stop != "" && dir == stop {
			return ""
		}
		candidate := filepath.Join(dir, DirName)
		if info, err := os.Stat(candidate); err == nil && info.IsDir() {
			return candidate
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// VaultRoot returns the directory containing the .vellum/ directory at dir.
func VaultRoot(dir string) string {
	if filepath.Base(dir) != DirName {
		return ""
	}
	return filepath.Dir(dir)
}
