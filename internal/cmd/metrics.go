package cmd

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/adminconsole/internal/metrics"
)

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Restore the session and print the collected metrics",
		Long: `Restore the session as any command would, then print the counters this
process collected (session bootstrap outcome, API requests and their
latency) in the Prometheus text exposition format. Useful to see whether
the cache was used or the server was asked.`,
		Args: cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
			if _, err := app.Session.Bootstrap(ctx); err != nil {
				return err
			}
			return metrics.WriteText(cmd.OutOrStdout(), app.Registry)
		}),
	}
}
