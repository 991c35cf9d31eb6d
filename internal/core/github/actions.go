package github

import (
	"context"

	"github.com/mygh/mygh/internal/core"
	"github.com/mygh/mygh/internal/core/engine"
)

// Workflows lists ref's Actions workflows.
func (s *Service) Workflows(ctx context.Context, ref RepoRef, limit int) ([]core.Workflow, error) {
	return list[core.Workflow](ctx, s, engine.Get(ref.path("actions", "workflows"), nil), limit, "workflows")
}

// RunOptions filters workflow runs.
type RunOptions struct {
	// Workflow is a workflow ID or file name; empty lists runs of every
	// workflow.
	Workflow string
	Status   string
	Branch   string
	Limit    int
}

// WorkflowRuns lists ref's workflow runs, newest first.
func (s *Service) WorkflowRuns(ctx context.Context, ref RepoRef, opts RunOptions) ([]core.WorkflowRun, error) {
	path := ref.path("actions", "runs")
	if opts.Workflow != "" {
		path = ref.path("actions", "workflows", opts.Workflow, "runs")
	}
	spec := engine.Get(path, query("status", opts.Status, "branch", opts.Branch))
	return list[core.WorkflowRun](ctx, s, spec, opts.Limit, "workflow_runs")
}
