package cli

import (
	"net/url"

	"github.com/spf13/cobra"
)

func newAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Admin commands (requires an admin session)",
	}

	cmd.AddCommand(newAdminListCmd())
	cmd.AddCommand(newAdminRosterActionCmd("suspend", "Suspend an account and end its sessions"))
	cmd.AddCommand(newAdminRosterActionCmd("reinstate", "Reinstate a suspended account"))
	cmd.AddCommand(newAdminDeleteCmd())
	cmd.AddCommand(newAdminContactCmd())

	return cmd
}

func newAdminListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"accounts"},
		Short:   "List every account",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Roster

			if err := client.Get("/api/v1/admin/accounts", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newAdminRosterActionCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action + " <account-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Roster

			path := "/api/v1/admin/accounts/" + url.PathEscape(args[0]) + "/" + action
			if err := client.Post(path, nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newAdminDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <account-id>",
		Aliases: []string{"remove"},
		Short:   "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Roster

			if err := client.Delete("/api/v1/admin/accounts/"+url.PathEscape(args[0]), &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newAdminContactCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "contact",
		Short: "List contact form messages",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result []ContactMessage

			if err := client.Get("/api/v1/admin/contact", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
