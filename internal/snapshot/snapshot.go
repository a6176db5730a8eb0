// Package snapshot holds the immutable in-memory view of a fetched repository.
package snapshot

import (
	"path"
	"sort"
	"strings"
	"time"
)

// File is a single repository file.
type File struct {
	Path    string `json:"path"`
	Content string `json:"-"`
	Size    int64  `json:"size"`
}

// Commit is one entry of the repository history.
type Commit struct {
	Hash    string    `json:"hash"`
	Author  string    `json:"author"`
	Subject string    `json:"subject"`
	Body    string    `json:"body,omitempty"`
	When    time.Time `json:"when"`
}

// Snapshot maps repo-relative paths to file contents. It is never mutated
// after construction.
type Snapshot struct {
	files   map[string]File
	paths   []string
	commits []Commit
}

// excludedDirs never appear in a snapshot.
var excludedDirs = []string{".git", "node_modules", ".bundle", "__pycache__", ".venv"}

// New builds a Snapshot, normalizing paths to forward-slash repo-relative form
// and dropping version-control metadata and dependency caches.
func New(files []File, commits []Commit) *Snapshot {
	s := &Snapshot{files: make(map[string]File, len(files))}
	for _, f := range files {
		p := NormalizePath(f.Path)
		if p == "" || IsExcluded(p) {
			continue
		}
		f.Path = p
		if f.Size == 0 {
			f.Size = int64(len(f.Content))
		}
		if _, dup := s.files[p]; !dup {
			s.paths = append(s.paths, p)
		}
		s.files[p] = f
	}
	sort.Strings(s.paths)

	s.commits = make([]Commit, len(commits))
	copy(s.commits, commits)
	return s
}

// NormalizePath converts p into a clean, forward-slash, repo-relative path.
func NormalizePath(p string) string {
	p = strings.ReplaceAll(p, "\\", "/")
	p = path.Clean("/" + p)
	p = strings.TrimPrefix(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// IsExcluded reports whether p lies under a control or dependency-cache directory.
func IsExcluded(p string) bool {
	for _, seg := range strings.Split(p, "/") {
		for _, d := range excludedDirs {
			if seg == d {
				return true
			}
		}
	}
	return false
}

// Len returns the number of files.
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.paths)
}

// Paths returns all paths in sorted order.
func (s *Snapshot) Paths() []string {
	if s == nil {
		return nil
	}
	out := make([]string, len(s.paths))
	copy(out, s.paths)
	return out
}

// File returns the file at path.
func (s *Snapshot) File(p string) (File, bool) {
	if s == nil {
		return File{}, false
	}
	f, ok := s.files[p]
	return f, ok
}

// Files returns all files sorted by path.
func (s *Snapshot) Files() []File {
	if s == nil {
		return nil
	}
	out := make([]File, 0, len(s.paths))
	for _, p := range s.paths {
		out = append(out, s.files[p])
	}
	return out
}

// Commits returns the commit history, newest first.
func (s *Snapshot) Commits() []Commit {
	if s == nil {
		return nil
	}
	out := make([]Commit, len(s.commits))
	copy(out, s.commits)
	return out
}

// TotalSize returns the sum of file sizes.
func (s *Snapshot) TotalSize() int64 {
	var n int64
	for _, f := range s.Files() {
		n += f.Size
	}
	return n
}
