package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/adminconsole/internal/api"
)

func newTwoFactorCmd() *cobra.Command {
	tfaCmd := &cobra.Command{
		Use:   "2fa",
		Short: "Second-factor verification",
		Long: `Inspect 2FA enrollment and answer a login challenge.

Examples:
  adminctl auth 2fa status
  adminctl auth 2fa send --id 7f9c
  adminctl auth 2fa verify --id 7f9c --code 123456`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show 2FA enrollment for the signed-in user",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
			if _, err := app.signedIn(ctx); err != nil {
				return err
			}
			status, err := app.Session.TwoFactorStatus(ctx)
			if err != nil {
				return err
			}
			return app.Output.Format(twoFactorView(*status))
		}),
	}

	sendCmd := &cobra.Command{
		Use:   "send",
		Short: "Email a new verification code",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString("id")
			return app.Session.ResendTwoFactorCode(ctx, id)
		}),
	}
	sendCmd.Flags().String("id", "", "verification id from the login challenge")

	verifyCmd := &cobra.Command{
		Use:   "verify",
		Short: "Answer a login challenge and sign in",
		Long: `Send the emailed code for a pending login. On success the session is
stored exactly as after a password login. With --check-only the code is
verified without signing in.`,
		Args: cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
			id, _ := cmd.Flags().GetString("id")
			code, _ := cmd.Flags().GetString("code")
			checkOnly, _ := cmd.Flags().GetBool("check-only")

			if checkOnly {
				if err := app.Session.VerifyTwoFactorCode(ctx, id, code); err != nil {
					return err
				}
				return app.Output.Format("Code accepted.")
			}

			user, err := app.Session.CompleteTwoFactorLogin(ctx, id, code)
			if err != nil {
				return err
			}
			return app.Output.Format(newUserView(user))
		}),
	}
	verifyCmd.Flags().String("id", "", "verification id from the login challenge")
	verifyCmd.Flags().String("code", "", "code from the verification email")
	verifyCmd.Flags().Bool("check-only", false, "verify the code without completing the login")

	tfaCmd.AddCommand(statusCmd, sendCmd, verifyCmd)
	return tfaCmd
}

type twoFactorView api.TwoFactorStatus

func (v twoFactorView) Text() string {
	if !v.Enabled {
		return "2FA: disabled"
	}
	s := "2FA: enabled"
	if v.Method != "" {
		s += fmt.Sprintf(" (%s)", v.Method)
	}
	if v.Email != "" {
		s += "\nsent to: " + v.Email
	}
	return s
}
