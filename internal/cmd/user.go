package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mygh/mygh/internal/core/github"
	"github.com/mygh/mygh/internal/output"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "User-related commands",
}

var userInfoCmd = &cobra.Command{
	Use:   "info [login]",
	Short: "Show a user's profile (defaults to the authenticated user)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		user, err := svc.User(cmd.Context(), optionalArg(args))
		if err != nil {
			return err
		}
		return render(cmd, output.User(user))
	},
}

var userStarredCmd = &cobra.Command{
	Use:   "starred [login]",
	Short: "List starred repositories",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		language, _ := cmd.Flags().GetString("language")
		sort, _ := cmd.Flags().GetString("sort")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		repos, err := svc.Starred(cmd.Context(), optionalArg(args), github.StarredOptions{
			Language: language,
			Sort:     sort,
			Limit:    limit,
		})
		if err != nil {
			return err
		}
		ds := output.Repositories(repos)
		ds.Title = "Starred repositories"
		return render(cmd, ds)
	},
}

var userGistsCmd = &cobra.Command{
	Use:   "gists [login]",
	Short: "List gists",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		public, _ := cmd.Flags().GetBool("public")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		gists, err := svc.Gists(cmd.Context(), optionalArg(args), github.GistOptions{PublicOnly: public, Limit: limit})
		if err != nil {
			return err
		}
		return render(cmd, output.Gists(gists))
	},
}

func init() {
	userStarredCmd.Flags().StringP("language", "l", "", "only repositories in this language")
	userStarredCmd.Flags().String("sort", "", "sort by created or updated")
	addLimitFlag(userStarredCmd, 30)

	userGistsCmd.Flags().Bool("public", false, "only public gists")
	addLimitFlag(userGistsCmd, 30)

	userCmd.AddCommand(userInfoCmd, userStarredCmd, userGistsCmd)
	rootCmd.AddCommand(userCmd)
}

// optionalArg returns the first argument or "".
func optionalArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

func addLimitFlag(cmd *cobra.Command, def int) {
	cmd.Flags().IntP("limit", "L", def, "maximum number of items to fetch (0 fetches all)")
}
