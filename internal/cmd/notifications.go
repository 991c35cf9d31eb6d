package cmd

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/mygh/mygh/internal/core/github"
	"github.com/mygh/mygh/internal/output"
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Notification inbox commands",
}

var notificationsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List notifications",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")
		participating, _ := cmd.Flags().GetBool("participating")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		items, err := svc.Notifications(cmd.Context(), github.NotificationOptions{
			All:           all,
			Participating: participating,
			Limit:         limit,
		})
		if err != nil {
			return err
		}
		return render(cmd, output.Notifications(items))
	},
}

var notificationsMarkReadCmd = &cobra.Command{
	Use:   "mark-read",
	Short: "Mark notifications as read",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, _ := cmd.Flags().GetString("repo")

		var ref *github.RepoRef
		if strings.TrimSpace(repo) != "" {
			parsed, err := github.ParseRepo(repo)
			if err != nil {
				return err
			}
			ref = &parsed
		}

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		if err := svc.MarkNotificationsRead(cmd.Context(), ref); err != nil {
			return err
		}
		if ref != nil {
			printf(cmd, "Marked notifications in %s as read", ref)
		} else {
			printf(cmd, "Marked all notifications as read")
		}
		return nil
	},
}

func init() {
	notificationsListCmd.Flags().Bool("all", false, "include notifications already read")
	notificationsListCmd.Flags().Bool("participating", false, "only threads you participate in or are mentioned in")
	addLimitFlag(notificationsListCmd, 20)

	notificationsMarkReadCmd.Flags().String("repo", "", "only this repository (owner/repo)")

	notificationsCmd.AddCommand(notificationsListCmd, notificationsMarkReadCmd)
	rootCmd.AddCommand(notificationsCmd)
}
