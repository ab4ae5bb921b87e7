package cmd

import (
	"context"

	"github.com/spf13/cobra"
)

// NewRootCmd builds the adminctl command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "adminctl",
		Short: "Command-line admin console",
		Long: `adminctl signs in to the admin API, keeps the session in a local state
directory and answers authorization questions for the signed-in user.

The session is re-validated with the server only when the last
confirmation is older than the freshness window (default 5m).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.StringP("format", "o", "text", "output format: text, json or yaml")
	flags.String("config", "", "config file (default is $HOME/.adminconsole/config.yaml)")
	flags.String("log-level", "", "log level: debug, info, warn or error")
	flags.String("log-format", "", "log format: text or json")
	flags.Bool("no-color", false, "disable colored output")

	root.AddCommand(
		newAuthCmd(),
		newWhoamiCmd(),
		newCanCmd(),
		newRolesCmd(),
		newPermissionsCmd(),
		newSubmitCmd(),
		newConfigCmd(),
		newMetricsCmd(),
		newDoctorCmd(),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}
