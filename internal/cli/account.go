package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/spf13/cobra"

	"github.com/isepctf/ctfportal/internal/dependencies/clock"
	"github.com/isepctf/ctfportal/internal/model"
	"github.com/isepctf/ctfportal/internal/services/credential"
)

func newAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account",
		Short: "Account management commands",
	}

	cmd.AddCommand(newAccountRegisterCmd())
	cmd.AddCommand(newAccountLoginCmd())
	cmd.AddCommand(newAccountLogoutCmd())
	cmd.AddCommand(newAccountMeCmd())
	cmd.AddCommand(newAccountPasswdCmd())

	return cmd
}

func newAccountRegisterCmd() *cobra.Command {
	var user, email, pass, confirm string

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new account",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("confirm") {
				confirm = pass
			}

			req := map[string]string{
				"username":         user,
				"email":            email,
				"password":         pass,
				"password_confirm": confirm,
			}
			var result AuthResult

			out := output(cmd)
			if err := client.Post("/api/v1/accounts/register", req, &result); err != nil {
				return reportRejection(out, err)
			}

			// Save token
			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			out.Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&user, "user", "", "Username (required)")
	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "Password confirmation (defaults to --pass)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAccountLoginCmd() *cobra.Command {
	var email, pass string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login with existing account",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]string{
				"email":    email,
				"password": pass,
			}
			var result AuthResult

			if err := client.Post("/api/v1/accounts/login", req, &result); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(result.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "Email address (required)")
	cmd.Flags().StringVar(&pass, "pass", "", "Password (required)")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("pass")

	return cmd
}

func newAccountLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/accounts/logout", nil, nil); err != nil {
				return err
			}
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			output(cmd).PrintMessage("Logged out")
			return nil
		},
	}
}

func newAccountMeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show current account info",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result Account

			if err := client.Get("/api/v1/accounts/me", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newAccountPasswdCmd() *cobra.Command {
	var target, pass, confirm string

	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change a password",
		Long: `Change your own password, or any account's password as an admin.

The new password is checked locally first; only a strong password with a
matching confirmation is sent to the server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if target == "" {
				var me Account
				if err := client.Get("/api/v1/accounts/me", &me); err != nil {
					return err
				}
				target = me.ID
			}
			return changePassword(cmd.Context(), output(cmd), model.AccountID(target), pass, confirm)
		},
	}

	cmd.Flags().StringVar(&target, "account", "", "Account ID (defaults to your own)")
	cmd.Flags().StringVar(&pass, "pass", "", "New password (required)")
	cmd.Flags().StringVar(&confirm, "confirm", "", "New password again (required)")
	_ = cmd.MarkFlagRequired("pass")
	_ = cmd.MarkFlagRequired("confirm")

	return cmd
}

// changePassword drives a credential form whose persister is the API.
// The server re-checks authorization and strength on its side.
func changePassword(ctx context.Context, out *Output, target model.AccountID, pass, confirm string) error {
	persister := credential.PersisterFunc(func(ctx context.Context, id model.AccountID, secret string) error {
		req := map[string]string{"password": secret, "password_confirm": secret}
		return client.Put("/api/v1/accounts/"+url.PathEscape(string(id))+"/password", req, nil)
	})

	form := credential.NewForm(credential.FormConfig{
		Target:         target,
		Authorization:  credential.Allow,
		Workflow:       credential.NewWorkflow(persister),
		Clock:          clock.New(),
		SuccessMessage: "Password updated",
	})
	defer form.Close()

	form.Edit(credential.FieldPassword, pass)
	form.Edit(credential.FieldConfirmation, confirm)

	result, err := form.Submit(ctx).Wait(ctx)
	if err != nil {
		return reportRejection(out, err)
	}

	switch result.Reason {
	case credential.ReasonNone:
		out.PrintMessage(form.View().Notice)
		return nil
	case credential.ReasonWeakSecret:
		out.Print(PolicyFromResult(result.Policy))
		return errors.New("password is too weak")
	case credential.ReasonMismatch:
		return errors.New("passwords do not match")
	default:
		return fmt.Errorf("password rejected: %s", result.Reason)
	}
}

// reportRejection prints the strength breakdown carried by a WEAK_SECRET
// API error before returning it
func reportRejection(out *Output, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if p, ok := apiErr.Policy(); ok {
			out.Print(p)
		}
		return apiErr
	}
	return err
}
