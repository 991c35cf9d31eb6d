package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/mygh/mygh/internal/core/github"
	"github.com/mygh/mygh/internal/output"
)

var pullsCmd = &cobra.Command{
	Use:     "pulls",
	Aliases: []string{"pr"},
	Short:   "Pull request commands",
}

var pullsListCmd = &cobra.Command{
	Use:   "list <owner/repo>",
	Short: "List pull requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := github.ParseRepo(args[0])
		if err != nil {
			return err
		}
		state, _ := cmd.Flags().GetString("state")
		base, _ := cmd.Flags().GetString("base")
		head, _ := cmd.Flags().GetString("head")
		sort, _ := cmd.Flags().GetString("sort")
		direction, _ := cmd.Flags().GetString("direction")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		pulls, err := svc.PullRequests(cmd.Context(), ref, github.PullOptions{
			State:     state,
			Base:      base,
			Head:      head,
			Sort:      sort,
			Direction: direction,
			Limit:     limit,
		})
		if err != nil {
			return err
		}
		ds := output.PullRequests(pulls)
		ds.Title = ref.String()
		return render(cmd, ds)
	},
}

var pullsShowCmd = &cobra.Command{
	Use:   "show <owner/repo> <number>",
	Short: "Show a pull request, or its diff with --diff",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, number, err := pullArgs(args)
		if err != nil {
			return err
		}
		diff, _ := cmd.Flags().GetBool("diff")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if diff {
			text, err := svc.PullRequestDiff(cmd.Context(), ref, number)
			if err != nil {
				return err
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		}

		pr, err := svc.PullRequest(cmd.Context(), ref, number)
		if err != nil {
			return err
		}
		return render(cmd, output.PullRequestDetails(pr))
	},
}

var pullsCreateCmd = &cobra.Command{
	Use:   "create <owner/repo>",
	Short: "Open a pull request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := github.ParseRepo(args[0])
		if err != nil {
			return err
		}
		input := github.NewPullRequest{}
		input.Title, _ = cmd.Flags().GetString("title")
		input.Head, _ = cmd.Flags().GetString("head")
		input.Base, _ = cmd.Flags().GetString("base")
		input.Body, _ = cmd.Flags().GetString("body")
		input.Draft, _ = cmd.Flags().GetBool("draft")
		if cmd.Flags().Changed("maintainer-modify") {
			modify, _ := cmd.Flags().GetBool("maintainer-modify")
			input.MaintainerCanModify = &modify
		}

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		pr, err := svc.CreatePullRequest(cmd.Context(), ref, input)
		if err != nil {
			return err
		}
		printf(cmd, "Created pull request #%d: %s", pr.Number, pr.HTMLURL)
		return nil
	},
}

var pullsUpdateCmd = &cobra.Command{
	Use:   "update <owner/repo> <number>",
	Short: "Change a pull request's title, body, state or base",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, number, err := pullArgs(args)
		if err != nil {
			return err
		}
		update := github.PullRequestUpdate{
			Title: changedString(cmd, "title"),
			Body:  changedString(cmd, "body"),
			State: changedString(cmd, "state"),
			Base:  changedString(cmd, "base"),
		}

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		pr, err := svc.UpdatePullRequest(cmd.Context(), ref, number, update)
		if err != nil {
			return err
		}
		printf(cmd, "Updated pull request #%d", pr.Number)
		return nil
	},
}

var pullsMergeCmd = &cobra.Command{
	Use:   "merge <owner/repo> <number>",
	Short: "Merge a pull request",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, number, err := pullArgs(args)
		if err != nil {
			return err
		}
		opts := github.MergeOptions{}
		opts.Method, _ = cmd.Flags().GetString("method")
		opts.CommitTitle, _ = cmd.Flags().GetString("title")
		opts.CommitMessage, _ = cmd.Flags().GetString("message")
		deleteBranch, _ := cmd.Flags().GetBool("delete-branch")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		// Read the head branch before merging; it is needed for deletion.
		var headRef string
		if deleteBranch {
			pr, err := svc.PullRequest(cmd.Context(), ref, number)
			if err != nil {
				return err
			}
			headRef = pr.Head.Ref
			if pr.Head.Repo != nil && pr.Head.Repo.FullName != "" && pr.Head.Repo.FullName != ref.String() {
				return fmt.Errorf("head branch %s lives in %s; --delete-branch only deletes branches of %s",
					headRef, pr.Head.Repo.FullName, ref)
			}
		}

		result, err := svc.MergePullRequest(cmd.Context(), ref, number, opts)
		if err != nil {
			return err
		}
		printf(cmd, "Merged pull request #%d (%s)", number, result.SHA)

		if deleteBranch {
			if err := svc.DeleteBranch(cmd.Context(), ref, headRef); err != nil {
				return fmt.Errorf("delete branch %s: %w", headRef, err)
			}
			printf(cmd, "Deleted branch %s", headRef)
		}
		return nil
	},
}

var pullsCloseCmd = &cobra.Command{
	Use:   "close <owner/repo> <number>",
	Short: "Close a pull request without merging",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, number, err := pullArgs(args)
		if err != nil {
			return err
		}

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if _, err := svc.ClosePullRequest(cmd.Context(), ref, number); err != nil {
			return err
		}
		printf(cmd, "Closed pull request #%d", number)
		return nil
	},
}

func init() {
	pullsListCmd.Flags().StringP("state", "s", "open", "state: open, closed or all")
	pullsListCmd.Flags().String("base", "", "filter by base branch")
	pullsListCmd.Flags().String("head", "", "filter by head, as user:branch")
	pullsListCmd.Flags().String("sort", "created", "sort by created, updated, popularity or long-running")
	pullsListCmd.Flags().String("direction", "desc", "sort direction: asc or desc")
	addLimitFlag(pullsListCmd, 30)

	pullsShowCmd.Flags().Bool("diff", false, "print the unified diff")

	pullsCreateCmd.Flags().StringP("title", "t", "", "title (required)")
	pullsCreateCmd.Flags().String("head", "", "branch with the changes (required)")
	pullsCreateCmd.Flags().String("base", "main", "branch to merge into")
	pullsCreateCmd.Flags().StringP("body", "b", "", "description")
	pullsCreateCmd.Flags().Bool("draft", false, "open as a draft")
	pullsCreateCmd.Flags().Bool("maintainer-modify", true, "allow maintainers to push to the head branch")
	_ = pullsCreateCmd.MarkFlagRequired("title")
	_ = pullsCreateCmd.MarkFlagRequired("head")

	pullsUpdateCmd.Flags().StringP("title", "t", "", "new title")
	pullsUpdateCmd.Flags().StringP("body", "b", "", "new description")
	pullsUpdateCmd.Flags().String("state", "", "open or closed")
	pullsUpdateCmd.Flags().String("base", "", "new base branch")

	pullsMergeCmd.Flags().String("method", "merge", "merge, squash or rebase")
	pullsMergeCmd.Flags().String("title", "", "merge commit title")
	pullsMergeCmd.Flags().String("message", "", "merge commit message")
	pullsMergeCmd.Flags().Bool("delete-branch", false, "delete the head branch after merging")

	pullsCmd.AddCommand(pullsListCmd, pullsShowCmd, pullsCreateCmd, pullsUpdateCmd, pullsMergeCmd, pullsCloseCmd)
	rootCmd.AddCommand(pullsCmd)
}

func pullArgs(args []string) (github.RepoRef, int, error) {
	ref, err := github.ParseRepo(args[0])
	if err != nil {
		return github.RepoRef{}, 0, err
	}
	number, err := strconv.Atoi(args[1])
	if err != nil || number <= 0 {
		return github.RepoRef{}, 0, fmt.Errorf("pull request number must be a positive integer, got %q", args[1])
	}
	return ref, number, nil
}

// changedString returns the flag's value only when it was set.
func changedString(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	value, _ := cmd.Flags().GetString(name)
	return &value
}
