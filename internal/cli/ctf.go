package cli

import (
	"github.com/spf13/cobra"
)

func newCTFCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ctf",
		Short: "Competition clock commands",
	}

	cmd.AddCommand(newCTFStatusCmd())
	cmd.AddCommand(newCTFControlCmd("start", "Start the countdown (admin)"))
	cmd.AddCommand(newCTFControlCmd("stop", "Pause the countdown (admin)"))
	cmd.AddCommand(newEventsCmd())

	return cmd
}

func newCTFStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the countdown",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Countdown

			if err := client.Get("/api/v1/ctf", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newCTFControlCmd(action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   action,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Countdown

			if err := client.Post("/api/v1/ctf/"+action, nil, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
