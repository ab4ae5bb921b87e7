package cmd

import (
	"context"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"

	"github.com/felixgeelhaar/adminconsole/internal/api"
	"github.com/felixgeelhaar/adminconsole/internal/config"
	"github.com/felixgeelhaar/adminconsole/internal/credential"
	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/log"
	"github.com/felixgeelhaar/adminconsole/internal/metrics"
	"github.com/felixgeelhaar/adminconsole/internal/notify"
	"github.com/felixgeelhaar/adminconsole/internal/session"
	"github.com/felixgeelhaar/adminconsole/internal/telemetry"
	"github.com/felixgeelhaar/adminconsole/internal/ux"
	"github.com/felixgeelhaar/adminconsole/internal/version"
)

// CommandContext holds the persistent flags of one invocation.
type CommandContext struct {
	Format     string
	ConfigPath string
	LogLevel   string
	LogFormat  string
	NoColor    bool
}

// NewCommandContext extracts command context from cobra.Command flags.
func NewCommandContext(cmd *cobra.Command) (*CommandContext, error) {
	format, err := cmd.Flags().GetString("format")
	if err != nil {
		return nil, err
	}
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	logLevel, err := cmd.Flags().GetString("log-level")
	if err != nil {
		return nil, err
	}
	logFormat, err := cmd.Flags().GetString("log-format")
	if err != nil {
		return nil, err
	}
	noColor, err := cmd.Flags().GetBool("no-color")
	if err != nil {
		return nil, err
	}

	if configPath == "" {
		if configPath, err = config.Path(); err != nil {
			return nil, err
		}
	}

	return &CommandContext{
		Format:     format,
		ConfigPath: configPath,
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		NoColor:    noColor || os.Getenv("NO_COLOR") != "",
	}, nil
}

// App is everything a command needs, wired from the config file.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Registry *prometheus.Registry
	Metrics  *metrics.Metrics
	Client   *api.Client
	Storage  *credential.FileStorage
	Store    *credential.Store
	Session  *session.Manager
	Notifier notify.Notifier
	Output   ux.Formatter

	span     trace.Span
	shutdown func(context.Context) error
}

// openApp loads configuration and wires the client, the credential store
// and the session manager. The returned context carries the command span.
func openApp(cmd *cobra.Command) (context.Context, *App, error) {
	cc, err := NewCommandContext(cmd)
	if err != nil {
		return nil, nil, err
	}

	output, err := ux.NewFormatter(cc.Format, &ux.FormatterOptions{Writer: cmd.OutOrStdout()})
	if err != nil {
		return nil, nil, errors.New(errors.ErrCodeBadRequest, errors.KindValidation, err.Error())
	}

	cfg, err := config.Load(cc.ConfigPath)
	if err != nil {
		return nil, nil, err
	}

	logCfg := log.FromStrings(firstNonEmpty(cc.LogLevel, cfg.LogLevel), firstNonEmpty(cc.LogFormat, cfg.LogFormat))
	logCfg.Writer = cmd.ErrOrStderr()
	logger := log.New(logCfg)
	log.SetDefaultLogger(logger)

	tcfg := telemetry.DefaultConfig()
	tcfg.Version = version.Version
	tcfg.Enabled = cfg.Telemetry.Enabled
	tcfg.Endpoint = cfg.Telemetry.Endpoint
	shutdown, err := telemetry.InitProvider(cmd.Context(), tcfg)
	if err != nil {
		return nil, nil, err
	}

	registry, m := metrics.NewRegistry()
	client := api.NewClient(api.Options{
		BaseURL:    cfg.APIURL,
		SystemCode: cfg.SystemCode,
		ClientCode: cfg.ClientCode,
		Timeout:    cfg.Timeout.Std(),
		Metrics:    m,
		Logger:     logger,
	})

	storageOpts := []credential.FileOption{credential.WithLogger(logger)}
	if cfg.Passphrase != "" {
		storageOpts = append(storageOpts, credential.WithPassphrase(cfg.Passphrase))
	}
	storage := credential.NewFileStorage(cfg.StateDir, storageOpts...)
	store := credential.NewStore(storage, logger)
	notifier := notify.NewTerminal(cmd.ErrOrStderr(), cc.NoColor)

	manager := session.NewManager(client, store, session.Options{
		FreshnessWindow: cfg.FreshnessWindow.Std(),
		DemoLogin:       cfg.DemoLogin,
		Notifier:        notifier,
		Metrics:         m,
		Logger:          logger,
	})

	ctx, span := telemetry.StartCommandSpan(cmd.Context(), cmd.CommandPath())
	return ctx, &App{
		Config:   cfg,
		Logger:   logger,
		Registry: registry,
		Metrics:  m,
		Client:   client,
		Storage:  storage,
		Store:    store,
		Session:  manager,
		Notifier: notifier,
		Output:   output,
		span:     span,
		shutdown: shutdown,
	}, nil
}

// Close ends the command span and flushes traces.
func (a *App) Close(ctx context.Context, err error) {
	telemetry.End(a.span, err)
	if a.shutdown != nil {
		if serr := a.shutdown(context.WithoutCancel(ctx)); serr != nil {
			a.Logger.WithError(serr).Warn("failed to flush traces")
		}
	}
}

// runWithApp adapts a command body to cobra's RunE, opening and closing
// the App around it.
func runWithApp(run func(ctx context.Context, app *App, cmd *cobra.Command, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		ctx, app, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() { app.Close(ctx, err) }()
		return run(ctx, app, cmd, args)
	}
}

// signedIn bootstraps the session and fails when nobody is signed in.
func (a *App) signedIn(ctx context.Context) (session.State, error) {
	st, err := a.Session.Bootstrap(ctx)
	if err != nil {
		return st, err
	}
	if st.Cause != nil {
		return st, st.Cause
	}
	if !st.IsAuthenticated() {
		return st, errors.NewNotAuthenticatedError()
	}
	return st, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
