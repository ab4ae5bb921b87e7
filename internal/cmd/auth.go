package cmd

import (
	"bufio"
	"context"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/session"
	"github.com/felixgeelhaar/adminconsole/internal/tui"
)

func newAuthCmd() *cobra.Command {
	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Manage the admin console session",
		Long: `Sign in, sign out and inspect the current session.

The session token, a snapshot of the signed-in user and the time the
server last confirmed the session are kept in the state directory
(~/.adminconsole by default). Set ADMINCONSOLE_PASSPHRASE to encrypt
that file at rest.

Examples:
  adminctl auth login --email admin@example.com
  adminctl auth google --credential "$ID_TOKEN"
  adminctl auth status
  adminctl auth logout`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	authCmd.AddCommand(newAuthLoginCmd(), newAuthGoogleCmd(), newAuthLogoutCmd(), newAuthStatusCmd(), newTwoFactorCmd())
	return authCmd
}

func newAuthLoginCmd() *cobra.Command {
	loginCmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in with email and password",
		Long: `Sign in with email and password. Missing values are prompted for when
stdin is a terminal. If the server asks for a second factor the code is
prompted for as well; otherwise the verification id is printed for
'adminctl auth 2fa verify'.`,
		Args: cobra.NoArgs,
		RunE: runWithApp(runAuthLogin),
	}
	loginCmd.Flags().String("email", "", "account email")
	loginCmd.Flags().String("password", "", "account password (prefer --password-stdin)")
	loginCmd.Flags().Bool("password-stdin", false, "read the password from stdin")
	loginCmd.Flags().String("code", "", "second-factor code, if the server asks for one")
	return loginCmd
}

func runAuthLogin(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
	email, _ := cmd.Flags().GetString("email")
	password, _ := cmd.Flags().GetString("password")
	fromStdin, _ := cmd.Flags().GetBool("password-stdin")
	code, _ := cmd.Flags().GetString("code")

	if fromStdin {
		p, err := readSecret(cmd.InOrStdin())
		if err != nil {
			return err
		}
		password = p
	}

	creds := tui.Credentials{Email: strings.TrimSpace(email), Password: password}
	if (creds.Email == "" || creds.Password == "") && tui.ShouldPrompt() {
		var err error
		if creds, err = tui.PromptForCredentials(creds); err != nil {
			return err
		}
	}
	if creds.Email == "" || creds.Password == "" {
		return missingFields("email and password are required", "email", "password")
	}

	result, err := app.Session.Login(ctx, creds.Email, creds.Password)
	if err != nil {
		return err
	}
	if result.RequiresTwoFactor() {
		return finishChallenge(ctx, app, result, code)
	}
	return app.Output.Format(newUserView(result.User))
}

func newAuthGoogleCmd() *cobra.Command {
	googleCmd := &cobra.Command{
		Use:   "google",
		Short: "Sign in with a Google ID token",
		Long: `Exchange a Google Identity Services credential (an ID token) for an
admin console session. Pass "-" to read the credential from stdin.`,
		Args: cobra.NoArgs,
		RunE: runWithApp(runAuthGoogle),
	}
	googleCmd.Flags().String("credential", "", "Google ID token, or - for stdin")
	googleCmd.Flags().String("code", "", "second-factor code, if the server asks for one")
	return googleCmd
}

func runAuthGoogle(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
	credential, _ := cmd.Flags().GetString("credential")
	code, _ := cmd.Flags().GetString("code")

	if credential == "-" {
		c, err := readSecret(cmd.InOrStdin())
		if err != nil {
			return err
		}
		credential = c
	}
	if strings.TrimSpace(credential) == "" {
		return missingFields("--credential is required", "credential")
	}

	result, err := app.Session.LoginWithFederatedToken(ctx, strings.TrimSpace(credential))
	if err != nil {
		return err
	}
	if result.RequiresTwoFactor() {
		return finishChallenge(ctx, app, result, code)
	}
	return app.Output.Format(newUserView(result.User))
}

// finishChallenge answers a second-factor challenge with code, or with a
// prompted code on a terminal. Without either it prints the challenge.
func finishChallenge(ctx context.Context, app *App, result session.LoginResult, code string) error {
	challenge := result.Challenge
	if code == "" && tui.ShouldPrompt() {
		var err error
		if code, err = tui.PromptForCode(challenge.Email); err != nil {
			return err
		}
	}
	if code == "" {
		app.Notifier.Warning("Second factor required")
		return app.Output.Format(newChallengeView(challenge))
	}

	user, err := app.Session.CompleteTwoFactorLogin(ctx, challenge.VerificationID, code)
	if err != nil {
		return err
	}
	return app.Output.Format(newUserView(user))
}

func newAuthLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and remove the stored session",
		Long: `Tell the server the session is over and remove the local credentials.
The local state is cleared even if the server cannot be reached.`,
		Args: cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
			wasSignedIn := app.Store.Token(ctx) != ""
			if err := app.Session.Logout(ctx); err != nil {
				return err
			}
			if !wasSignedIn {
				return app.Output.Format("Not logged in.")
			}
			return app.Output.Format("Logged out.")
		}),
	}
}

func newAuthStatusCmd() *cobra.Command {
	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show the current session",
		Long: `Restore the session from the state directory and report it. The server
is only asked when the last confirmation is older than the freshness
window, unless --refresh is given.`,
		Args: cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
			refresh, _ := cmd.Flags().GetBool("refresh")

			st, err := app.Session.Bootstrap(ctx)
			if err != nil {
				return err
			}
			if refresh && st.Token != "" {
				if st, err = app.Session.Revalidate(ctx); err != nil {
					return err
				}
			}
			return app.Output.Format(newStatusView(st))
		}),
	}
	statusCmd.Flags().Bool("refresh", false, "confirm the session with the server even if it is fresh")
	return statusCmd
}

func readSecret(r io.Reader) (string, error) {
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

func missingFields(message string, names ...string) error {
	fields := make(map[string][]string, len(names))
	for _, name := range names {
		fields[name] = []string{"required"}
	}
	return errors.New(errors.ErrCodeBadRequest, errors.KindValidation, message).WithFields(fields)
}
