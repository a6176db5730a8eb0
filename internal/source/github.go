package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/google/go-github/v80/github"
	"golang.org/x/oauth2"
	"golang.org/x/sync/errgroup"

	"github.com/sparklepop/Code-Project-Review/internal/apperr"
	"github.com/sparklepop/Code-Project-Review/internal/classify"
	"github.com/sparklepop/Code-Project-Review/internal/snapshot"
)

// GitService is the part of the GitHub git data API the fetcher uses.
type GitService interface {
	GetTree(ctx context.Context, owner, repo, sha string, recursive bool) (*github.Tree, *github.Response, error)
	GetBlobRaw(ctx context.Context, owner, repo, sha string) ([]byte, *github.Response, error)
}

// RepositoriesService is the part of the GitHub repositories API the
// fetcher uses.
type RepositoriesService interface {
	Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error)
	ListCommits(ctx context.Context, owner, repo string, opts *github.CommitsListOptions) ([]*github.RepositoryCommit, *github.Response, error)
}

// GitHubFetcher reads repositories through the GitHub REST API without
// cloning. Only files the classifier will analyze are downloaded, and at
// most MaxFiles each of source and test files.
type GitHubFetcher struct {
	git         GitService
	repos       RepositoriesService
	MaxFiles    int
	CommitLimit int
	Parallel    int
	Logger      *slog.Logger
}

// NewGitHubFetcher returns a fetcher authenticated with token when set.
func NewGitHubFetcher(token string) *GitHubFetcher {
	var httpClient *http.Client
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	client := github.NewClient(httpClient)
	return NewGitHubFetcherWithServices(client.Git, client.Repositories)
}

// NewGitHubFetcherWithServices returns a fetcher backed by the given API
// services.
func NewGitHubFetcherWithServices(git GitService, repos RepositoriesService) *GitHubFetcher {
	return &GitHubFetcher{
		git:         git,
		repos:       repos,
		MaxFiles:    20,
		CommitLimit: 100,
		Parallel:    4,
	}
}

func (f *GitHubFetcher) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// Fetch reads the default branch of the repository at rawURL.
func (f *GitHubFetcher) Fetch(ctx context.Context, rawURL string) (*snapshot.Snapshot, error) {
	repo, err := ParseGitHubURL(rawURL)
	if err != nil {
		return nil, apperr.New(apperr.KindValidation, err.Error(), err)
	}

	info, _, err := f.repos.Get(ctx, repo.Owner, repo.Name)
	if err != nil {
		return nil, apperr.Fetch("could not read repository", err).WithContext("repo", repo.String())
	}
	branch := info.GetDefaultBranch()
	if branch == "" {
		branch = "HEAD"
	}

	tree, _, err := f.git.GetTree(ctx, repo.Owner, repo.Name, branch, true)
	if err != nil {
		return nil, apperr.Fetch("could not list repository files", err).WithContext("repo", repo.String())
	}
	if tree.GetTruncated() {
		f.logger().Warn("repository tree truncated by the API", "repo", repo.String())
	}

	files, wanted := f.plan(tree.Entries)
	if err := f.download(ctx, repo, files, wanted); err != nil {
		return nil, err
	}

	commits, err := f.commits(ctx, repo, branch)
	if err != nil {
		f.logger().Warn("reading commit history", "repo", repo.String(), "error", err)
	}
	return snapshot.New(files, commits), nil
}

// plan lists every blob and returns the indexes whose content is needed.
// Source and test files beyond MaxFiles per bucket are recorded without
// content since the classifier would cap them anyway.
func (f *GitHubFetcher) plan(entries []*github.TreeEntry) ([]snapshot.File, map[int]string) {
	sorted := make([]*github.TreeEntry, 0, len(entries))
	for _, e := range entries {
		if e.GetType() == "blob" {
			sorted = append(sorted, e)
		}
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].GetPath() < sorted[j].GetPath() })

	files := make([]snapshot.File, 0, len(sorted))
	wanted := map[int]string{}
	perBucket := map[classify.Bucket]int{}
	for _, e := range sorted {
		p := e.GetPath()
		if snapshot.IsExcluded(p) {
			continue
		}
		size := int64(e.GetSize())
		files = append(files, snapshot.File{Path: p, Size: size})

		bucket, _, ok := classify.Admit(p, size)
		if !ok {
			continue
		}
		if f.MaxFiles > 0 && (bucket == classify.BucketSource || bucket == classify.BucketTest) {
			if perBucket[bucket] >= f.MaxFiles {
				continue
			}
			perBucket[bucket]++
		}
		wanted[len(files)-1] = e.GetSHA()
	}
	return files, wanted
}

func (f *GitHubFetcher) download(ctx context.Context, repo Repo, files []snapshot.File, wanted map[int]string) error {
	g, gctx := errgroup.WithContext(ctx)
	if f.Parallel > 0 {
		g.SetLimit(f.Parallel)
	}
	for i, sha := range wanted {
		g.Go(func() error {
			data, _, err := f.git.GetBlobRaw(gctx, repo.Owner, repo.Name, sha)
			if err != nil {
				return fmt.Errorf("blob %s: %w", files[i].Path, err)
			}
			files[i].Content = string(data)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return apperr.Fetch("could not download repository files", err).WithContext("repo", repo.String())
	}
	return nil
}

func (f *GitHubFetcher) commits(ctx context.Context, repo Repo, branch string) ([]snapshot.Commit, error) {
	limit := f.CommitLimit
	if limit <= 0 {
		limit = 100
	}
	opts := &github.CommitsListOptions{SHA: branch, ListOptions: github.ListOptions{PerPage: min(limit, 100)}}

	var out []snapshot.Commit
	for len(out) < limit {
		page, resp, err := f.repos.ListCommits(ctx, repo.Owner, repo.Name, opts)
		if err != nil {
			return out, err
		}
		for _, rc := range page {
			if len(out) == limit {
				break
			}
			out = append(out, commitOf(rc))
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}
	return out, nil
}

func commitOf(rc *github.RepositoryCommit) snapshot.Commit {
	c := rc.GetCommit()
	subject, body := splitMessage(c.GetMessage())
	return snapshot.Commit{
		Hash:    rc.GetSHA(),
		Author:  c.GetAuthor().GetName(),
		Subject: subject,
		Body:    body,
		When:    c.GetAuthor().GetDate().Time,
	}
}

func splitMessage(msg string) (subject, body string) {
	subject, body, _ = strings.Cut(strings.TrimSpace(msg), "\n")
	return strings.TrimSpace(subject), strings.TrimSpace(body)
}
