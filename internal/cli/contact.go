package cli

import (
	"github.com/spf13/cobra"
)

func newContactCmd() *cobra.Command {
	var name, email, message string

	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Send a message to the organisers",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{"name": name, "email": email, "message": message}
			var result ContactReceipt

			if err := client.Post("/api/v1/contact", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Your name (required)")
	cmd.Flags().StringVar(&email, "email", "", "Reply address (required)")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Message text (required)")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("message")

	return cmd
}
