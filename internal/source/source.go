// Package source fetches repositories into immutable snapshots.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
)

// ErrInvalidURL is returned for repository URLs that are not GitHub
// repositories.
var ErrInvalidURL = errors.New("invalid repository URL")

// Fetcher produces a snapshot of the repository at rawURL.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*snapshot.Snapshot, error)
}

// Repo identifies a GitHub repository.
type Repo struct {
	Owner string
	Name  string
}

func (r Repo) String() string { return r.Owner + "/" + r.Name }

// CloneURL returns the HTTPS clone URL of r.
func (r Repo) CloneURL() string {
	return fmt.Sprintf("https://github.com/%s/%s.git", r.Owner, r.Name)
}

// URL returns the canonical web URL of r.
func (r Repo) URL() string {
	return fmt.Sprintf("https://github.com/%s/%s", r.Owner, r.Name)
}

var segmentRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ParseGitHubURL extracts owner and repository from an HTTPS or SSH GitHub
// URL. Trailing ".git", slashes and deeper paths (tree/main/...) are ignored.
func ParseGitHubURL(raw string) (Repo, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Repo{}, fmt.Errorf("%w: empty", ErrInvalidURL)
	}

	var path string
	if rest, ok := strings.CutPrefix(raw, "git@github.com:"); ok {
		path = rest
	} else {
		u, err := url.Parse(raw)
		if err != nil {
			return Repo{}, fmt.Errorf("%w: %s", ErrInvalidURL, raw)
		}
		if u.Scheme != "https" && u.Scheme != "http" {
			return Repo{}, fmt.Errorf("%w: unsupported scheme in %s", ErrInvalidURL, raw)
		}
		host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")
		if host != "github.com" {
			return Repo{}, fmt.Errorf("%w: only GitHub repositories are supported (got %s)", ErrInvalidURL, u.Host)
		}
		path = u.Path
	}

	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) < 2 {
		return Repo{}, fmt.Errorf("%w: missing owner or repository in %s", ErrInvalidURL, raw)
	}
	r := Repo{Owner: segments[0], Name: strings.TrimSuffix(segments[1], ".git")}
	if !segmentRe.MatchString(r.Owner) || !segmentRe.MatchString(r.Name) {
		return Repo{}, fmt.Errorf("%w: malformed owner or repository in %s", ErrInvalidURL, raw)
	}
	return r, nil
}

// Fetch methods.
const (
	MethodGit    = "git"
	MethodGitHub = "github"
)

// Config selects and configures the repository fetcher.
type Config struct {
	Method   string
	Root     string
	Depth    int
	Token    string
	MaxFiles int
}

// New returns the fetcher for cfg.Method.
func New(cfg Config) (Fetcher, error) {
	switch cfg.Method {
	case "", MethodGit:
		return NewGitFetcher(cfg.Root, cfg.Depth), nil
	case MethodGitHub:
		f := NewGitHubFetcher(cfg.Token)
		if cfg.MaxFiles > 0 {
			f.MaxFiles = cfg.MaxFiles
		}
		return f, nil
	default:
		return nil, fmt.Errorf("unknown fetch method %q (want %s or %s)", cfg.Method, MethodGit, MethodGitHub)
	}
}
