package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/adminconsole/internal/authz"
	"github.com/felixgeelhaar/adminconsole/internal/exitcode"
)

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
			st, err := app.signedIn(ctx)
			if err != nil {
				return err
			}
			return app.Output.Format(newUserView(st.CurrentUser))
		}),
	}
}

// checkView reports the answer for each requested permission or role.
type checkView struct {
	Allowed bool            `json:"allowed" yaml:"allowed"`
	Checks  map[string]bool `json:"checks" yaml:"checks"`
	order   []string
}

func (v checkView) Text() string {
	lines := make([]string, 0, len(v.order))
	for _, name := range v.order {
		mark := "no"
		if v.Checks[name] {
			mark = "yes"
		}
		lines = append(lines, fmt.Sprintf("%s: %s", name, mark))
	}
	return strings.Join(lines, "\n")
}

func newCanCmd() *cobra.Command {
	canCmd := &cobra.Command{
		Use:   "can <permission>...",
		Short: "Check permissions of the signed-in user",
		Long: `Check whether the signed-in user holds every listed permission (or, with
--any, at least one). The command exits with status 4 when the answer is no.

With --role the arguments are role names instead of permission codes.

Examples:
  adminctl can users.manage
  adminctl can --any audit.view sessions.view
  adminctl can --role admin super_admin --any`,
		Args: cobra.MinimumNArgs(1),
		RunE: runWithApp(runCan),
	}
	canCmd.Flags().Bool("any", false, "succeed if any one of the arguments is granted")
	canCmd.Flags().Bool("role", false, "treat arguments as role names")
	return canCmd
}

func runCan(ctx context.Context, app *App, cmd *cobra.Command, args []string) error {
	anyOf, _ := cmd.Flags().GetBool("any")
	byRole, _ := cmd.Flags().GetBool("role")

	if _, err := app.signedIn(ctx); err != nil {
		return err
	}

	view := checkView{Checks: make(map[string]bool, len(args)), order: args}
	granted := 0
	for _, arg := range args {
		var ok bool
		if byRole {
			ok = app.Session.HasRole(arg)
		} else {
			ok = app.Session.HasPermission(arg)
		}
		view.Checks[arg] = ok
		if ok {
			granted++
		}
	}
	view.Allowed = granted == len(args) || (anyOf && granted > 0)

	if err := app.Output.Format(view); err != nil {
		return err
	}
	if !view.Allowed {
		return &exitcode.DenyError{Message: "not permitted: " + strings.Join(denied(view), ", ")}
	}
	return nil
}

func denied(v checkView) []string {
	var out []string
	for _, name := range v.order {
		if !v.Checks[name] {
			out = append(out, name)
		}
	}
	return out
}

// roleView is the printable form of one role.
type roleView struct {
	Name        string   `json:"name" yaml:"name"`
	Kind        string   `json:"kind" yaml:"kind"`
	ID          string   `json:"id,omitempty" yaml:"id,omitempty"`
	Permissions []string `json:"permissions" yaml:"permissions"`
}

type rolesView []roleView

func (v rolesView) Text() string {
	lines := make([]string, 0, len(v))
	for _, r := range v {
		lines = append(lines, fmt.Sprintf("%s (%s): %s", r.Name, r.Kind, strings.Join(r.Permissions, ", ")))
	}
	return strings.Join(lines, "\n")
}

func newRolesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "roles",
		Short: "List the signed-in user's roles",
		Args:  cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
			st, err := app.signedIn(ctx)
			if err != nil {
				return err
			}
			out := make(rolesView, 0, len(st.CurrentUser.Roles))
			for _, role := range st.CurrentUser.Roles {
				single := &authz.User{Roles: authz.Roles{role}}
				v := roleView{Name: role.RoleName(), Permissions: authz.PermissionList(single)}
				switch r := role.(type) {
				case authz.StructuredRole:
					v.Kind = "structured"
					v.ID = r.ID.String()
				case authz.LegacyRole:
					v.Kind = "legacy"
				}
				out = append(out, v)
			}
			return app.Output.Format(out)
		}),
	}
}

func newPermissionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "permissions",
		Short: "List every permission the signed-in user holds",
		Long: `List the union of the permissions granted by all of the user's roles.
A role that grants everything is shown as "*" followed by the known codes.`,
		Args: cobra.NoArgs,
		RunE: runWithApp(func(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
			if _, err := app.signedIn(ctx); err != nil {
				return err
			}
			return app.Output.Format(app.Session.Permissions())
		}),
	}
}
