package source

import (
	"context"

	"github.com/google/go-github/v80/github"
	"github.com/stretchr/testify/mock"
)

type MockGitService struct {
	mock.Mock
}

func (m *MockGitService) GetTree(ctx context.Context, owner, repo, sha string, recursive bool) (*github.Tree, *github.Response, error) {
	args := m.Called(ctx, owner, repo, sha, recursive)
	var tree *github.Tree
	if v := args.Get(0); v != nil {
		tree = v.(*github.Tree)
	}
	return tree, nil, args.Error(1)
}

func (m *MockGitService) GetBlobRaw(ctx context.Context, owner, repo, sha string) ([]byte, *github.Response, error) {
	args := m.Called(ctx, owner, repo, sha)
	var data []byte
	if v := args.Get(0); v != nil {
		data = v.([]byte)
	}
	return data, nil, args.Error(1)
}

type MockRepositoriesService struct {
	mock.Mock
}

func (m *MockRepositoriesService) Get(ctx context.Context, owner, repo string) (*github.Repository, *github.Response, error) {
	args := m.Called(ctx, owner, repo)
	var r *github.Repository
	if v := args.Get(0); v != nil {
		r = v.(*github.Repository)
	}
	return r, nil, args.Error(1)
}

func (m *MockRepositoriesService) ListCommits(ctx context.Context, owner, repo string, opts *github.CommitsListOptions) ([]*github.RepositoryCommit, *github.Response, error) {
	args := m.Called(ctx, owner, repo, opts)
	var commits []*github.RepositoryCommit
	if v := args.Get(0); v != nil {
		commits = v.([]*github.RepositoryCommit)
	}
	var resp *github.Response
	if v := args.Get(1); v != nil {
		resp = v.(*github.Response)
	}
	return commits, resp, args.Error(2)
}
