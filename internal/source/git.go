package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
)

// ClonePrefix names the temporary directories clones are made in.
const ClonePrefix = "cpr-clone-"

// DefaultCommitLimit caps the history read from a clone.
const DefaultCommitLimit = 200

// GitFetcher clones repositories with the git CLI.
type GitFetcher struct {
	// Root is the parent of the temporary clone directories; empty means
	// os.TempDir().
	Root        string
	Depth       int
	CommitLimit int
	Logger      *slog.Logger
}

// NewGitFetcher returns a GitFetcher cloning under root.
func NewGitFetcher(root string, depth int) *GitFetcher {
	return &GitFetcher{Root: root, Depth: depth, CommitLimit: DefaultCommitLimit}
}

// Fetch validates rawURL, clones it into a fresh temporary directory, reads
// the snapshot and removes the directory again, on success and failure.
func (f *GitFetcher) Fetch(ctx context.Context, rawURL string) (*snapshot.Snapshot, error) {
	repo, err := ParseGitHubURL(rawURL)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, err.Error(), err)
	}
	return f.fetch(ctx, repo.CloneURL())
}

func (f *GitFetcher) fetch(ctx context.Context, cloneURL string) (*snapshot.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.Fetch("fetch cancelled", err)
	}
	if f.Root != "" {
		if err := os.MkdirAll(f.Root, 0o755); err != nil {
			return nil, apperr.Fetch("could not prepare clone directory", err)
		}
	}
	dir, err := os.MkdirTemp(f.Root, ClonePrefix+"*")
	if err != nil {
		return nil, apperr.Fetch("could not create clone directory", err)
	}
	defer func() {
		if err := os.RemoveAll(dir); err != nil {
			f.logger().Warn("removing clone directory", "dir", dir, "error", err)
		}
	}()

	start := time.Now()
	args := []string{"clone", "--quiet", "--single-branch"}
	if f.Depth > 0 {
		args = append(args, "--depth", strconv.Itoa(f.Depth))
	}
	args = append(args, "--", cloneURL, dir)
	if _, err := gitCmd(ctx, "", args...); err != nil {
		return nil, apperr.Fetch("could not clone repository", err).WithContext("url", cloneURL)
	}

	files, err := LoadDir(dir)
	if err != nil {
		return nil, apperr.Fetch("could not read repository files", err)
	}
	commits, err := GitLog(ctx, dir, f.commitLimit())
	if err != nil {
		// An empty repository has no HEAD; analysis proceeds without history.
		f.logger().Warn("reading commit history", "url", cloneURL, "error", err)
	}

	f.logger().Debug("repository cloned", "url", cloneURL, "files", len(files), "commits", len(commits), "duration", time.Since(start))
	return snapshot.New(files, commits), nil
}

func (f *GitFetcher) commitLimit() int {
	if f.CommitLimit <= 0 {
		return DefaultCommitLimit
	}
	return f.CommitLimit
}

func (f *GitFetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

func gitCmd(ctx context.Context, dir string, args ...string) (string, error) {
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Env = append(os.Environ(), "GIT_TERMINAL_PROMPT=0")
	out, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("git %s: %w", args[0], ctxErr)
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return "", fmt.Errorf("git %s: %s", strings.Join(args, " "), strings.TrimSpace(string(exitErr.Stderr)))
		}
		return "", fmt.Errorf("git %s: %w", strings.Join(args, " "), err)
	}
	return string(out), nil
}

const (
	fieldSep  = "\x1f"
	recordSep = "\x1e"
)

// GitLog reads up to limit commits of the repository at dir, newest first.
func GitLog(ctx context.Context, dir string, limit int) ([]snapshot.Commit, error) {
	out, err := gitCmd(ctx, dir, "log", "-n", strconv.Itoa(limit),
		"--format=%H%x1f%an%x1f%aI%x1f%s%x1f%b%x1e")
	if err != nil {
		return nil, err
	}
	return ParseLog(out), nil
}

// ParseLog parses `git log` output in the record format GitLog requests.
func ParseLog(out string) []snapshot.Commit {
	var commits []snapshot.Commit
	for _, rec := range strings.Split(out, recordSep) {
		rec = strings.TrimLeft(rec, "\n")
		if strings.TrimSpace(rec) == "" {
			continue
		}
		fields := strings.SplitN(rec, fieldSep, 5)
		if len(fields) < 4 {
			continue
		}
		c := snapshot.Commit{Hash: fields[0], Author: fields[1], Subject: fields[3]}
		if t, err := time.Parse(time.RFC3339, fields[2]); err == nil {
			c.When = t
		}
		if len(fields) == 5 {
			c.Body = strings.TrimSpace(fields[4])
		}
		commits = append(commits, c)
	}
	return commits
}
