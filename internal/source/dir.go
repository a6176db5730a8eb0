package source

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/classify"
	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
)

// LoadDir reads the working tree at root into snapshot files. Content is
// only read for files the classifier will analyze; the rest are recorded
// by path and size so they show up in the file statistics.
func LoadDir(root string) ([]snapshot.File, error) {
	var files []snapshot.File
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if rel != "." && (snapshot.IsExcluded(rel) || classify.Dropped(rel+"/", 0)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		if snapshot.IsExcluded(rel) {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		f := snapshot.File{Path: rel, Size: info.Size()}
		if _, _, ok := classify.Admit(rel, info.Size()); ok {
			data, err := os.ReadFile(p)
			if err != nil {
				return fmt.Errorf("read %s: %w", rel, err)
			}
			f.Content = string(data)
		}
		files = append(files, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", root, err)
	}
	return files, nil
}

// DirFetcher reads a local checkout. Commit history is included when the
// directory is a git repository.
type DirFetcher struct {
	CommitLimit int
}

// Fetch reads the directory at path.
func (d DirFetcher) Fetch(ctx context.Context, path string) (*snapshot.Snapshot, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, apperr.Fetch("could not open directory", err).WithContext("path", path)
	}
	if !info.IsDir() {
		return nil, apperr.Validation(fmt.Sprintf("%s is not a directory", path))
	}
	files, err := LoadDir(path)
	if err != nil {
		return nil, apperr.Fetch("could not read directory", err).WithContext("path", path)
	}

	var commits []snapshot.Commit
	if _, err := os.Stat(filepath.Join(path, ".git")); err == nil {
		limit := d.CommitLimit
		if limit <= 0 {
			limit = DefaultCommitLimit
		}
		commits, _ = GitLog(ctx, path, limit)
	}
	return snapshot.New(files, commits), nil
}
