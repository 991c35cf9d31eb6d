package cmd

import (
	"github.com/spf13/cobra"

	"github.com/mygh/mygh/internal/output"
)

var orgsCmd = &cobra.Command{
	Use:   "orgs",
	Short: "Organization commands",
}

var orgsListCmd = &cobra.Command{
	Use:   "list [login]",
	Short: "List organizations (defaults to the authenticated user's)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		orgs, err := svc.Organizations(cmd.Context(), optionalArg(args), limit)
		if err != nil {
			return err
		}
		return render(cmd, output.Organizations(orgs))
	},
}

var orgsMembersCmd = &cobra.Command{
	Use:   "members <org>",
	Short: "List organization members",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		role, _ := cmd.Flags().GetString("role")
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		members, err := svc.Members(cmd.Context(), args[0], role, limit)
		if err != nil {
			return err
		}
		ds := output.Users(members)
		ds.Title = args[0] + " members"
		return render(cmd, ds)
	},
}

var teamsCmd = &cobra.Command{
	Use:   "teams",
	Short: "Team commands",
}

// newTeamsListCmd builds the team listing; it is mounted as "teams list"
// and as "orgs teams".
func newTeamsListCmd(use string) *cobra.Command {
	c := &cobra.Command{
		Use:   use,
		Short: "List an organization's teams",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")

			svc, cleanup, err := newService(cmd.Context())
			if err != nil {
				return err
			}
			defer cleanup()

			teams, err := svc.Teams(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			ds := output.Teams(teams)
			ds.Title = args[0]
			return render(cmd, ds)
		},
	}
	addLimitFlag(c, 30)
	return c
}

var teamsMembersCmd = &cobra.Command{
	Use:   "members <org> <team-slug>",
	Short: "List a team's members",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		svc, cleanup, err := newService(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		members, err := svc.TeamMembers(cmd.Context(), args[0], args[1], limit)
		if err != nil {
			return err
		}
		ds := output.Users(members)
		ds.Title = args[0] + "/" + args[1]
		return render(cmd, ds)
	},
}

func init() {
	addLimitFlag(orgsListCmd, 30)
	orgsMembersCmd.Flags().String("role", "", "filter by role: all, admin or member")
	addLimitFlag(orgsMembersCmd, 30)

	orgsCmd.AddCommand(orgsListCmd, orgsMembersCmd, newTeamsListCmd("teams <org>"))

	addLimitFlag(teamsMembersCmd, 30)
	teamsCmd.AddCommand(newTeamsListCmd("list <org>"), teamsMembersCmd)

	rootCmd.AddCommand(orgsCmd, teamsCmd)
}
