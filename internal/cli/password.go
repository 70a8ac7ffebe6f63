package cli

import (
	"github.com/spf13/cobra"

	"github.com/isepctf/ctfportal/internal/services/policy"
)

func newPasswordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "password",
		Short: "Password strength commands",
	}

	cmd.AddCommand(newPasswordCheckCmd())

	return cmd
}

func newPasswordCheckCmd() *cobra.Command {
	var confirm string
	var remote bool

	cmd := &cobra.Command{
		Use:   "check <password>",
		Short: "Show how strong a password is",
		Long: `Evaluate a password against the portal's policy: at least 12 characters,
an uppercase letter, a number and a special character.

By default the check runs locally. With --remote the server evaluates it.`,
		Args: cobra.ExactArgs(1),
		// No server needed for the local check
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			client = NewClient(cfg.ServerURL, "")
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			password := args[0]

			var result Projection
			if remote {
				req := map[string]string{"password": password, "confirmation": confirm}
				if err := client.Post("/api/v1/password/evaluate", req, &result); err != nil {
					return err
				}
			} else {
				p := policy.Project(password, confirm)
				result = Projection{
					Policy:       PolicyFromResult(p.Policy),
					SecretsMatch: p.SecretsMatch,
					ShowMismatch: p.ShowMismatch(confirm),
				}
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&confirm, "confirm", "", "Confirmation to compare against")
	cmd.Flags().BoolVar(&remote, "remote", false, "Ask the server instead of evaluating locally")

	return cmd
}
