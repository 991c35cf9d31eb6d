package cmd

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/mygh/mygh/internal/core"
	"github.com/mygh/mygh/internal/core/github"
	"github.com/mygh/mygh/internal/output"
)

var reposCmd = &cobra.Command{
	Use:   "repos",
	Short: "Repository commands",
}

var reposListCmd = &cobra.Command{
	Use:   "list [login]",
	Short: "List repositories (defaults to the authenticated user's)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repoType, _ := cmd.Flags().GetString("type")
		sort, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		repos, err := svc.Repositories(cmd.Context(), optionalArg(args), github.RepoListOptions{
			Type:  repoType,
			Sort:  sort,
			Limit: limit,
		})
		if err != nil {
			return err
		}
		return render(cmd, output.Repositories(repos))
	},
}

var reposInfoCmd = &cobra.Command{
	Use:   "info <owner/repo>...",
	Short: "Show repository details; several repositories are fetched concurrently",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runReposInfo,
}

func runReposInfo(cmd *cobra.Command, args []string) error {
	refs, err := parseRepos(args)
	if err != nil {
		return err
	}

	svc, cleanup, err := newService(cmd.Context())
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := svc.RepositoryDetails(cmd.Context(), refs)
	if err != nil {
		return err
	}

	if len(results) == 1 {
		if results[0].Err != nil {
			return results[0].Err
		}
		return render(cmd, output.RepositoryDetails(*results[0].Repository))
	}

	repos := make([]core.Repository, 0, len(results))
	var failed []error
	for _, result := range results {
		if result.Err != nil {
			failed = append(failed, fmt.Errorf("%s: %w", result.Ref, result.Err))
			continue
		}
		repos = append(repos, *result.Repository)
	}
	if err := render(cmd, output.Repositories(repos)); err != nil {
		return err
	}
	return errors.Join(failed...)
}

var reposIssuesCmd = &cobra.Command{
	Use:   "issues <owner/repo>",
	Short: "List a repository's issues (pull requests excluded)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := github.ParseRepo(args[0])
		if err != nil {
			return err
		}
		state, _ := cmd.Flags().GetString("state")
		assignee, _ := cmd.Flags().GetString("assignee")
		labels, _ := cmd.Flags().GetString("labels")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		issues, err := svc.Issues(cmd.Context(), ref, github.IssueOptions{
			State:    state,
			Assignee: assignee,
			Labels:   labels,
			Limit:    limit,
		})
		if err != nil {
			return err
		}
		ds := output.Issues(issues)
		ds.Title = ref.String()
		return render(cmd, ds)
	},
}

// repoAction builds a command that runs action on one repository and
// prints a confirmation.
func repoAction(use, short string, action func(cmd *cobra.Command, svc *github.Service, ref github.RepoRef) (string, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <owner/repo>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := github.ParseRepo(args[0])
			if err != nil {
				return err
			}
			svc, cleanup, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			message, err := action(cmd, svc, ref)
			if err != nil {
				return err
			}
			printf(cmd, "%s", message)
			return nil
		},
	}
}

var reposStarCmd = repoAction("star", "Star a repository", func(cmd *cobra.Command, svc *github.Service, ref github.RepoRef) (string, error) {
	return "Starred " + ref.String(), svc.Star(cmd.Context(), ref)
})

var reposUnstarCmd = repoAction("unstar", "Remove a star", func(cmd *cobra.Command, svc *github.Service, ref github.RepoRef) (string, error) {
	return "Unstarred " + ref.String(), svc.Unstar(cmd.Context(), ref)
})

var reposWatchCmd = repoAction("watch", "Watch a repository", func(cmd *cobra.Command, svc *github.Service, ref github.RepoRef) (string, error) {
	_, err := svc.Watch(cmd.Context(), ref)
	return "Watching " + ref.String(), err
})

var reposUnwatchCmd = repoAction("unwatch", "Stop watching a repository", func(cmd *cobra.Command, svc *github.Service, ref github.RepoRef) (string, error) {
	return "Stopped watching " + ref.String(), svc.Unwatch(cmd.Context(), ref)
})

var reposForkCmd = repoAction("fork", "Fork a repository to the authenticated account", func(cmd *cobra.Command, svc *github.Service, ref github.RepoRef) (string, error) {
	fork, err := svc.Fork(cmd.Context(), ref)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("Forking %s to %s (%s)", ref, fork.FullName, fork.HTMLURL), nil
})

var reposStatusCmd = &cobra.Command{
	Use:     "status <owner/repo>...",
	Aliases: []string{"starred"},
	Short:   "Show whether the authenticated user stars and watches repositories",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		refs, err := parseRepos(args)
		if err != nil {
			return err
		}
		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		type status struct {
			Repository string `json:"repository"`
			Starred    bool   `json:"starred"`
			Watching   bool   `json:"watching"`
		}
		statuses := make([]status, 0, len(refs))
		ds := output.Dataset{Header: table.Row{"Repository", "Starred", "Watching"}}
		for _, ref := range refs {
			starred, err := svc.IsStarred(cmd.Context(), ref)
			if err != nil {
				return err
			}
			watching, err := svc.IsWatching(cmd.Context(), ref)
			if err != nil {
				return err
			}
			statuses = append(statuses, status{Repository: ref.String(), Starred: starred, Watching: watching})
			ds.Rows = append(ds.Rows, table.Row{ref.String(), yesNo(starred), yesNo(watching)})
		}
		ds.Data = statuses
		return render(cmd, ds)
	},
}

func init() {
	reposListCmd.Flags().String("type", "", "repository type: all, owner, public, private or member")
	reposListCmd.Flags().String("sort", "", "sort by created, updated, pushed or full_name")
	addLimitFlag(reposListCmd, 30)

	reposIssuesCmd.Flags().StringP("state", "s", "open", "issue state: open, closed or all")
	reposIssuesCmd.Flags().StringP("assignee", "a", "", "filter by assignee login, \"none\" or \"*\"")
	reposIssuesCmd.Flags().StringP("labels", "l", "", "comma-separated labels")
	addLimitFlag(reposIssuesCmd, 30)

	reposCmd.AddCommand(
		reposListCmd,
		reposInfoCmd,
		reposIssuesCmd,
		reposStarCmd,
		reposUnstarCmd,
		reposWatchCmd,
		reposUnwatchCmd,
		reposForkCmd,
		reposStatusCmd,
	)
	rootCmd.AddCommand(reposCmd)
}

func parseRepos(args []string) ([]github.RepoRef, error) {
	refs := make([]github.RepoRef, 0, len(args))
	for _, arg := range args {
		ref, err := github.ParseRepo(arg)
		if err != nil {
			return nil, err
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
