package cli

import (
	"net/url"
	"strings"

	"github.com/spf13/cobra"
)

func newTeamCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "team",
		Short: "Team commands",
	}

	cmd.AddCommand(newTeamCreateCmd())
	cmd.AddCommand(newTeamJoinCmd())
	cmd.AddCommand(newTeamGetCmd())

	return cmd
}

func newTeamCreateCmd() *cobra.Command {
	var name, pass string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a team and get its invite link",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": name, "password": pass}
			var result Team

			if err := client.Post("/api/v1/teams", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Team name (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Team password (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newTeamJoinCmd() *cobra.Command {
	var pass string

	cmd := &cobra.Command{
		Use:   "join <token|invite-link>",
		Short: "Join a team with its invite token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"token": inviteToken(args[0]), "password": pass}
			var result Team

			if err := client.Post("/api/v1/teams/join", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&pass, "pass", "", "Team password (required)")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newTeamGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get team details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Team

			if err := client.Get("/api/v1/teams/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

// inviteToken accepts either a bare token or a full invite link
func inviteToken(arg string) string {
	if !strings.Contains(arg, "token=") {
		return arg
	}
	u, err := url.Parse(arg)
	if err != nil {
		return arg
	}
	return u.Query().Get("token")
}
