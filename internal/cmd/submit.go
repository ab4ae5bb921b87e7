package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/form"
	"github.com/felixgeelhaar/adminconsole/internal/log"
	"github.com/felixgeelhaar/adminconsole/internal/notify"
)

func newSubmitCmd() *cobra.Command {
	submitCmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit an entity form to the admin API",
		Long: `Build a form from flags and submit it the way the console's entity forms
do: JSON unless a file is attached, multipart/form-data otherwise.

Without --id the form creates (POST <endpoint>); with --id it edits
(PUT <endpoint>/<id>). Field names ending in [] are collected into arrays.

Examples:
  adminctl submit --endpoint /users --field name=Ada --field email=ada@example.com \
    --check active --check 'roles[]=admin'
  adminctl submit --endpoint /users --id 42 --uncheck active
  adminctl submit --endpoint /users/42/avatar --file avatar=./ada.png --method POST`,
		Args: cobra.NoArgs,
		RunE: runWithApp(runSubmit),
	}
	flags := submitCmd.Flags()
	flags.String("endpoint", "", "API endpoint, e.g. /users (required)")
	flags.String("id", "", "entity id; switches the form to edit mode")
	flags.String("method", "", "override the HTTP method")
	flags.StringArray("field", nil, "text field as name=value (repeatable)")
	flags.StringArray("hidden", nil, "hidden field as name=value (repeatable)")
	flags.StringArray("check", nil, "checked checkbox as name or name=value (repeatable)")
	flags.StringArray("uncheck", nil, "unchecked checkbox as name or name=value (repeatable)")
	flags.StringArray("file", nil, "file field as name=path (repeatable)")
	flags.Bool("dry-run", false, "print the payload instead of sending it")
	_ = submitCmd.MarkFlagRequired("endpoint")
	return submitCmd
}

func runSubmit(ctx context.Context, app *App, cmd *cobra.Command, _ []string) error {
	f, err := formFromFlags(cmd)
	if err != nil {
		return err
	}

	dryRun, _ := cmd.Flags().GetBool("dry-run")
	if dryRun {
		payload, err := form.Encode(f.Fields)
		if err != nil {
			return err
		}
		if payload.Multipart {
			return app.Output.Format(fmt.Sprintf("multipart payload, %d bytes (%s)", len(payload.Body), payload.ContentType))
		}
		return app.Output.Format(payloadView(form.Values(f.Fields)))
	}

	view := &cliView{notifier: app.Notifier, logger: app.Logger}
	nav := &cliNavigator{notifier: app.Notifier}
	submitter := form.NewSubmitter(app.Client, app.Store, form.Config{
		Navigator: nav,
		Notifier:  app.Notifier,
		Metrics:   app.Metrics,
		Logger:    app.Logger,
	})

	result, err := submitter.Submit(ctx, f, form.Options{View: view})
	view.flush()
	if err != nil {
		return err
	}
	return app.Output.Format(newSubmitView(result, f))
}

func formFromFlags(cmd *cobra.Command) (*form.Form, error) {
	flags := cmd.Flags()
	endpoint, _ := flags.GetString("endpoint")
	id, _ := flags.GetString("id")
	method, _ := flags.GetString("method")

	f := &form.Form{Endpoint: endpoint, Method: method, Mode: form.ModeCreate}
	if id != "" {
		f.Mode = form.ModeEdit
		f.EntityID = id
	}

	for _, spec := range []struct {
		flag string
		kind form.FieldKind
	}{{"field", form.FieldText}, {"hidden", form.FieldHidden}} {
		values, _ := flags.GetStringArray(spec.flag)
		for _, raw := range values {
			name, value, ok := strings.Cut(raw, "=")
			if !ok || name == "" {
				return nil, badFieldFlag(spec.flag, raw, "expected name=value")
			}
			f.Fields = append(f.Fields, form.Field{Name: name, Kind: spec.kind, Value: value})
		}
	}

	for _, spec := range []struct {
		flag    string
		checked bool
	}{{"check", true}, {"uncheck", false}} {
		values, _ := flags.GetStringArray(spec.flag)
		for _, raw := range values {
			name, value, _ := strings.Cut(raw, "=")
			if name == "" {
				return nil, badFieldFlag(spec.flag, raw, "expected name or name=value")
			}
			if value == "" {
				value = "1"
			}
			f.Fields = append(f.Fields, form.Field{Name: name, Kind: form.FieldCheckbox, Value: value, Checked: spec.checked})
		}
	}

	files, _ := flags.GetStringArray("file")
	for _, raw := range files {
		name, path, ok := strings.Cut(raw, "=")
		if !ok || name == "" || path == "" {
			return nil, badFieldFlag("file", raw, "expected name=path")
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeBadRequest, errors.KindValidation, "cannot read "+path, err).
				WithFields(map[string][]string{name: {"unreadable file"}})
		}
		f.Fields = append(f.Fields, form.Field{
			Name: name,
			Kind: form.FieldFile,
			File: &form.FileInput{
				Filename:    filepath.Base(path),
				ContentType: contentType(path, data),
				Data:        data,
			},
		})
	}
	return f, nil
}

func contentType(path string, data []byte) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return http.DetectContentType(data)
}

func badFieldFlag(flag, raw, hint string) error {
	return errors.New(errors.ErrCodeBadRequest, errors.KindValidation,
		fmt.Sprintf("invalid --%s %q: %s", flag, raw, hint))
}

// cliView collects field errors and prints them once the submission ends.
type cliView struct {
	notifier notify.Notifier
	logger   *log.Logger

	errors  []string
	editing string
}

func (v *cliView) SetSubmitting(busy bool) {
	v.logger.Debug("form busy", "busy", busy)
}

func (v *cliView) ClearFieldErrors() { v.errors = nil }

func (v *cliView) SetFieldError(name string, messages []string) {
	v.errors = append(v.errors, fmt.Sprintf("%s: %s", name, strings.Join(messages, "; ")))
}

func (v *cliView) SwitchToEdit(id string) { v.editing = id }

func (v *cliView) flush() {
	for _, line := range v.errors {
		v.notifier.Error(line)
	}
	if v.editing != "" {
		v.notifier.Info("Created; further changes go to id " + v.editing)
	}
}

// cliNavigator has no login screen to show, so it tells the user how to
// get there.
type cliNavigator struct {
	notifier   notify.Notifier
	redirected bool
}

func (n *cliNavigator) RedirectToLogin() {
	n.redirected = true
	n.notifier.Warning("Session expired; run 'adminctl auth login'")
}

// payloadView prints a JSON payload as indented JSON in text mode.
type payloadView map[string]any

func (v payloadView) Text() string {
	data, err := json.MarshalIndent(map[string]any(v), "", "  ")
	if err != nil {
		return err.Error()
	}
	return string(data)
}

// submitView is what a finished submission prints.
type submitView struct {
	State    string `json:"state" yaml:"state"`
	Status   int    `json:"status" yaml:"status"`
	Mode     string `json:"mode" yaml:"mode"`
	EntityID string `json:"entity_id,omitempty" yaml:"entity_id,omitempty"`
	Data     any    `json:"data,omitempty" yaml:"data,omitempty"`
}

func newSubmitView(r form.Result, f *form.Form) submitView {
	v := submitView{State: r.State.String(), Status: r.Status, Mode: f.Mode.String(), EntityID: f.EntityID}
	if len(r.Data) > 0 {
		_ = json.Unmarshal(r.Data, &v.Data)
	}
	return v
}

func (v submitView) Text() string {
	s := fmt.Sprintf("%s (%d)", v.State, v.Status)
	if v.EntityID != "" {
		s += ", id " + v.EntityID
	}
	return s
}
