package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/adminconsole/internal/clock"
	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/health"
)

// doctorView is the full diagnostic report.
type doctorView struct {
	Status health.Status   `json:"status" yaml:"status"`
	Checks []health.Report `json:"checks" yaml:"checks"`
}

func (v doctorView) Text() string {
	lines := make([]string, 0, len(v.Checks)+1)
	for _, r := range v.Checks {
		line := fmt.Sprintf("%-12s %-9s %s", r.Name, r.Status, r.Message)
		if extra := detailText(r.Details); extra != "" {
			line += " (" + extra + ")"
		}
		lines = append(lines, line)
	}
	lines = append(lines, "overall: "+string(v.Status))
	return strings.Join(lines, "\n")
}

func detailText(details map[string]any) string {
	keys := make([]string, 0, len(details))
	for k := range details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, details[k]))
	}
	return strings.Join(parts, ", ")
}

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Diagnose the API connection and the local session",
		Long: `Run local diagnostics without changing any state:

  api          the admin API answers at the configured URL
  credentials  the credential file can be read (and decrypted)
  token        the stored token is present and not expired

The command exits non-zero when any check is unhealthy.`,
		Args: cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, app *App, _ *cobra.Command, _ []string) error {
			manager := health.NewManager(app.Config.Timeout.Std(),
				health.APIChecker(app.Client, app.Config.APIURL),
				health.StorageChecker(app.Storage, app.Storage.Path()),
				health.TokenChecker(app.Store, clock.Real()),
			)
			reports := manager.Check(ctx)
			view := doctorView{Status: health.OverallStatus(reports), Checks: reports}
			if err := app.Output.Format(view); err != nil {
				return err
			}
			if view.Status == health.StatusUnhealthy {
				return errors.New(errors.ErrCodeUnexpectedStatus, errors.KindUnknown, "one or more checks are unhealthy")
			}
			return nil
		}),
	}
}
