package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/adminconsole/internal/config"
	"github.com/felixgeelhaar/adminconsole/internal/ux"
)

func newConfigCmd() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "View or edit adminctl configuration",
		Long: `Manage adminctl configuration stored at ~/.adminconsole/config.yaml.

Every key can also be set with an ADMINCONSOLE_<KEY> environment variable
(for example ADMINCONSOLE_API_URL); variables win over the file. A .env
file in the working directory is loaded first.

Examples:
  adminctl config view
  adminctl config set api_url https://admin.example.com/api
  adminctl config set freshness_window 2m
  adminctl config path`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	viewCmd := &cobra.Command{
		Use:   "view",
		Short: "Display the effective configuration",
		Args:  cobra.NoArgs,
		RunE:  runConfigView,
	}

	pathCmd := &cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), cc.ConfigPath)
			return err
		},
	}

	setCmd := &cobra.Command{
		Use:       "set <key> <value>",
		Short:     "Set a configuration value",
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		RunE:      runConfigSet,
	}

	keysCmd := &cobra.Command{
		Use:   "keys",
		Short: "List settable keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return formatter(cmd).Format(config.Keys())
		},
	}

	configCmd.AddCommand(viewCmd, pathCmd, setCmd, keysCmd)
	return configCmd
}

func runConfigView(cmd *cobra.Command, _ []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}
	cfg, err := config.Load(cc.ConfigPath)
	if err != nil {
		return err
	}
	return formatter(cmd).Format(configValues(cfg))
}

// runConfigSet edits the file only, so environment overrides in effect
// now are not written back.
func runConfigSet(cmd *cobra.Command, args []string) error {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return err
	}

	cfg, err := config.LoadFile(cc.ConfigPath)
	if err != nil {
		return err
	}
	if err := cfg.Set(args[0], args[1]); err != nil {
		return err
	}
	if err := cfg.Save(cc.ConfigPath); err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", args[0], args[1])
	return err
}

func configValues(cfg *config.Config) map[string]string {
	return map[string]string{
		"api_url":            cfg.APIURL,
		"system_code":        cfg.SystemCode,
		"client_code":        cfg.ClientCode,
		"timeout":            cfg.Timeout.Std().String(),
		"freshness_window":   cfg.FreshnessWindow.Std().String(),
		"demo_login":         strconv.FormatBool(cfg.DemoLogin),
		"state_dir":          cfg.StateDir,
		"log_level":          cfg.LogLevel,
		"log_format":         cfg.LogFormat,
		"telemetry.enabled":  strconv.FormatBool(cfg.Telemetry.Enabled),
		"telemetry.endpoint": cfg.Telemetry.Endpoint,
	}
}

// formatter builds the output formatter for commands that run without an App.
func formatter(cmd *cobra.Command) ux.Formatter {
	format, _ := cmd.Flags().GetString("format")
	f, err := ux.NewFormatter(format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		f, _ = ux.NewFormatter("text", &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	}
	return f
}
