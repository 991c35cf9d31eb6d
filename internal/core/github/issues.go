package github

import (
	"context"

	"github.com/mygh/mygh/internal/core"
	"github.com/mygh/mygh/internal/core/engine"
)

// IssueOptions filters an issue listing.
type IssueOptions struct {
	// State is open, closed or all.
	State    string
	Assignee string
	// Labels is a comma-separated label list.
	Labels string
	Limit  int
}

// Issues lists ref's issues. The issues endpoint also returns pull
// requests; those are dropped and Limit counts issues only.
func (s *Service) Issues(ctx context.Context, ref RepoRef, opts IssueOptions) ([]core.Issue, error) {
	spec := engine.Get(ref.path("issues"), query(
		"state", opts.State,
		"assignee", opts.Assignee,
		"labels", opts.Labels,
	))
	return collectFiltered(ctx, s, spec, opts.Limit, func(issue core.Issue) bool {
		return issue.PullRequest == nil
	})
}
