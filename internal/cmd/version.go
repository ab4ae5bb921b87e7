package cmd

import (
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/adminconsole/internal/version"
)

type versionView version.Info

func (v versionView) Text() string { return version.Info(v).String() }

func newVersionCmd() *cobra.Command {
	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long: `Print version information including version number, git commit,
build date, Go version, and platform.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			short, _ := cmd.Flags().GetBool("short")
			info := version.GetInfo()
			if short {
				return formatter(cmd).Format(info.Short())
			}
			return formatter(cmd).Format(versionView(info))
		},
	}
	versionCmd.Flags().Bool("short", false, "print only the version number")
	return versionCmd
}
