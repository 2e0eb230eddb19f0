package fs

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	logpkg "github.com/papercomputeco/vellum/pkg/logger"
)

// DefaultDebounce is how long Watch waits for the tree to settle before
// reporting a change.
const DefaultDebounce = 500 * time.Millisecond

// Watch blocks until ctx is done, calling onChange once for every burst of
// file system activity under the root. Directories created while watching
// are added to the watch set.
func (s *Source) Watch(ctx context.Context, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := s.addDirs(watcher, s.root); err != nil {
		return err
	}

	if logger == nil {
		logger = logpkg.Nop()
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	timer := time.NewTimer(debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if s.hidden(event.Name) {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				// Best effort: a new directory might vanish before it is added.
				_ = s.addDirs(watcher, event.Name)
			}
			logger.Debug("vault changed", "path", event.Name, "op", event.Op.String())
			timer.Reset(debounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)

		case <-timer.C:
			onChange()
		}
	}
}

// addDirs watches root and every non-hidden directory below it. Non
// directories are ignored.
func (s *Source) addDirs(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != s.root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

func (s *Source) hidden(p string) bool {
	rel, err := s.rel(p)
	if err != nil {
		return false
	}
	for part := range strings.SplitSeq(rel, "/") {
		if strings.HasPrefix(part, ".") && part != "." {
			return true
		}
	}
	return false
}
