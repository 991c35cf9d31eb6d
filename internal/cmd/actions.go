package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mygh/mygh/internal/core/github"
	"github.com/mygh/mygh/internal/output"
)

var actionsCmd = &cobra.Command{
	Use:   "actions",
	Short: "GitHub Actions commands",
}

var actionsWorkflowsCmd = &cobra.Command{
	Use:   "workflows <owner/repo>",
	Short: "List a repository's workflows",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := github.ParseRepo(args[0])
		if err != nil {
			return err
		}
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		workflows, err := svc.Workflows(cmd.Context(), ref, limit)
		if err != nil {
			return err
		}
		ds := output.Workflows(workflows)
		ds.Title = ref.String()
		return render(cmd, ds)
	},
}

var actionsRunsCmd = &cobra.Command{
	Use:   "runs <owner/repo>",
	Short: "List workflow runs, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := github.ParseRepo(args[0])
		if err != nil {
			return err
		}
		opts := github.RunOptions{}
		opts.Workflow, _ = cmd.Flags().GetString("workflow")
		opts.Status, _ = cmd.Flags().GetString("status")
		opts.Branch, _ = cmd.Flags().GetString("branch")
		opts.Limit, _ = cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		runs, err := svc.WorkflowRuns(cmd.Context(), ref, opts)
		if err != nil {
			return err
		}
		ds := output.WorkflowRuns(runs)
		ds.Title = ref.String()
		return render(cmd, ds)
	},
}

func init() {
	addLimitFlag(actionsWorkflowsCmd, 0)

	actionsRunsCmd.Flags().String("workflow", "", "workflow ID or file name, e.g. ci.yml")
	actionsRunsCmd.Flags().String("status", "", "status or conclusion, e.g. in_progress or failure")
	actionsRunsCmd.Flags().String("branch", "", "only runs for this branch")
	addLimitFlag(actionsRunsCmd, 20)

	actionsCmd.AddCommand(actionsWorkflowsCmd, actionsRunsCmd)
	rootCmd.AddCommand(actionsCmd)
}
