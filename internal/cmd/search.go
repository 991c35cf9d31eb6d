package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mygh/mygh/internal/core/github"
	"github.com/mygh/mygh/internal/output"
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Search GitHub",
	Long: `Search GitHub using the search API's query syntax, e.g.
  mygh search repos "cli language:go stars:>100"

Search requests use a separate, smaller rate limit quota, and GitHub serves
at most 1000 results per query.`,
}

var searchReposCmd = &cobra.Command{
	Use:   "repos <query>...",
	Short: "Search repositories",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := searchOptions(cmd)

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		repos, err := svc.SearchRepositories(cmd.Context(), strings.Join(args, " "), opts)
		if err != nil {
			return err
		}
		return render(cmd, output.Repositories(repos))
	},
}

var searchUsersCmd = &cobra.Command{
	Use:   "users <query>...",
	Short: "Search users",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := searchOptions(cmd)

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		users, err := svc.SearchUsers(cmd.Context(), strings.Join(args, " "), opts)
		if err != nil {
			return err
		}
		return render(cmd, output.Users(users))
	},
}

func init() {
	searchReposCmd.Flags().String("sort", "stars", "sort by stars, forks, help-wanted-issues or updated")
	searchUsersCmd.Flags().String("sort", "followers", "sort by followers, repositories or joined")
	for _, c := range []*cobra.Command{searchReposCmd, searchUsersCmd} {
		c.Flags().String("order", "desc", "asc or desc")
		addLimitFlag(c, 20)
	}

	searchCmd.AddCommand(searchReposCmd, searchUsersCmd)
	rootCmd.AddCommand(searchCmd)
}

func searchOptions(cmd *cobra.Command) github.SearchOptions {
	sort, _ := cmd.Flags().GetString("sort")
	order, _ := cmd.Flags().GetString("order")
	limit, _ := cmd.Flags().GetInt("limit")
	return github.SearchOptions{Sort: sort, Order: order, Limit: limit}
}
