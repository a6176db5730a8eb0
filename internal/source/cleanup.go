package source

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// StaleClones lists clone directories under root last modified at least
// maxAge before now. An empty root means the system temp directory.
func StaleClones(root string, maxAge time.Duration, now time.Time) ([]string, error) {
	if root == "" {
		root = os.TempDir()
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", root, err)
	}

	var dirs []string
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), ClonePrefix) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if now.Sub(info.ModTime()) < maxAge {
			continue
		}
		dirs = append(dirs, filepath.Join(root, e.Name()))
	}
	return dirs, nil
}

// Cleanup removes clone directories under root older than maxAge. Clones
// normally remove themselves; this catches those left by a crashed process.
// It returns the number of directories removed.
func Cleanup(root string, maxAge time.Duration, now time.Time, logger *slog.Logger) (int, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dirs, err := StaleClones(root, maxAge, now)
	if err != nil {
		return 0, err
	}

	removed := 0
	for _, dir := range dirs {
		if err := os.RemoveAll(dir); err != nil {
			logger.Warn("removing stale clone", "dir", dir, "error", err)
			continue
		}
		logger.Info("removed stale clone", "dir", dir)
		removed++
	}
	return removed, nil
}
