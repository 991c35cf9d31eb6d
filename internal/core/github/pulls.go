package github

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/mygh/mygh/internal/core"
	"github.com/mygh/mygh/internal/core/engine"
)

// DiffMediaType asks GitHub for a unified diff instead of JSON.
const DiffMediaType = "application/vnd.github.diff"

// PullOptions filters a pull request listing.
type PullOptions struct {
	State     string
	Base      string
	Head      string
	Sort      string
	Direction string
	Limit     int
}

// PullRequests lists ref's pull requests.
func (s *Service) PullRequests(ctx context.Context, ref RepoRef, opts PullOptions) ([]core.PullRequest, error) {
	spec := engine.Get(ref.path("pulls"), query(
		"state", opts.State,
		"base", opts.Base,
		"head", opts.Head,
		"sort", opts.Sort,
		"direction", opts.Direction,
	))
	return list[core.PullRequest](ctx, s, spec, opts.Limit, "")
}

// PullRequest fetches pull request number of ref.
func (s *Service) PullRequest(ctx context.Context, ref RepoRef, number int) (core.PullRequest, error) {
	var pr core.PullRequest
	err := s.client.GetJSON(ctx, ref.path("pulls", itoa(number)), nil, &pr)
	return pr, err
}

// PullRequestDiff returns the unified diff of a pull request.
func (s *Service) PullRequestDiff(ctx context.Context, ref RepoRef, number int) (string, error) {
	resp, err := s.client.Do(ctx, engine.RequestSpec{
		Method: http.MethodGet,
		Path:   ref.path("pulls", itoa(number)),
		Accept: DiffMediaType,
	})
	if err != nil {
		return "", err
	}
	return string(resp.Body), nil
}

// NewPullRequest is the payload for opening a pull request.
type NewPullRequest struct {
	Title string `json:"title"`
	Head  string `json:"head"`
	Base  string `json:"base"`
	Body  string `json:"body,omitempty"`
	Draft bool   `json:"draft,omitempty"`

	// MaintainerCanModify is sent only when set.
	MaintainerCanModify *bool `json:"maintainer_can_modify,omitempty"`
}

// CreatePullRequest opens a pull request on ref.
func (s *Service) CreatePullRequest(ctx context.Context, ref RepoRef, input NewPullRequest) (core.PullRequest, error) {
	var pr core.PullRequest
	if strings.TrimSpace(input.Title) == "" || strings.TrimSpace(input.Head) == "" || strings.TrimSpace(input.Base) == "" {
		return pr, fmt.Errorf("title, head and base are required")
	}
	resp, err := s.client.Post(ctx, ref.path("pulls"), input)
	if err != nil {
		return pr, err
	}
	err = resp.Decode(&pr)
	return pr, err
}

// PullRequestUpdate changes the fields that are non-nil.
type PullRequestUpdate struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
	State *string `json:"state,omitempty"`
	Base  *string `json:"base,omitempty"`
}

// UpdatePullRequest patches pull request number of ref.
func (s *Service) UpdatePullRequest(ctx context.Context, ref RepoRef, number int, update PullRequestUpdate) (core.PullRequest, error) {
	var pr core.PullRequest
	if update == (PullRequestUpdate{}) {
		return pr, fmt.Errorf("nothing to update")
	}
	resp, err := s.client.Patch(ctx, ref.path("pulls", itoa(number)), update)
	if err != nil {
		return pr, err
	}
	err = resp.Decode(&pr)
	return pr, err
}

// ClosePullRequest closes a pull request without merging.
func (s *Service) ClosePullRequest(ctx context.Context, ref RepoRef, number int) (core.PullRequest, error) {
	closed := "closed"
	return s.UpdatePullRequest(ctx, ref, number, PullRequestUpdate{State: &closed})
}

// MergeOptions controls a merge.
type MergeOptions struct {
	// Method is merge, squash or rebase.
	Method        string `json:"merge_method,omitempty"`
	CommitTitle   string `json:"commit_title,omitempty"`
	CommitMessage string `json:"commit_message,omitempty"`
}

// MergePullRequest merges pull request number of ref.
func (s *Service) MergePullRequest(ctx context.Context, ref RepoRef, number int, opts MergeOptions) (core.MergeResult, error) {
	var result core.MergeResult
	switch opts.Method {
	case "", "merge", "squash", "rebase":
	default:
		return result, fmt.Errorf("merge method must be merge, squash or rebase, got %q", opts.Method)
	}
	resp, err := s.client.Put(ctx, ref.path("pulls", itoa(number), "merge"), opts)
	if err != nil {
		return result, err
	}
	err = resp.Decode(&result)
	return result, err
}

// DeleteBranch deletes a branch of ref.
func (s *Service) DeleteBranch(ctx context.Context, ref RepoRef, branch string) error {
	if strings.TrimSpace(branch) == "" {
		return fmt.Errorf("branch is required")
	}
	// branch names may contain slashes; they stay path separators
	_, err := s.client.Delete(ctx, ref.path("git", "refs", "heads")+"/"+strings.Trim(branch, "/"))
	return err
}
