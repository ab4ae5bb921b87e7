// Package log is the console's structured logger: log/slog with a
// service tag, per-component loggers, ConsoleError unpacking and
// redaction of secret attributes.
package log

import (
	"log/slog"
	"os"

	"github.com/felixgeelhaar/adminconsole/internal/errors"
)

// Logger is a *slog.Logger whose With helpers keep the wrapper type.
type Logger struct {
	*slog.Logger
}

// New creates a Logger from config.
func New(config Config) *Logger {
	w := config.Writer
	if w == nil {
		w = os.Stderr
	}
	opts := &slog.HandlerOptions{
		Level:       config.Level,
		AddSource:   config.AddSource,
		ReplaceAttr: redact,
	}

	var handler slog.Handler
	if config.Format == FormatJSON {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	logger := slog.New(handler)
	if config.Service != "" {
		logger = logger.With("service", config.Service)
	}
	return &Logger{Logger: logger}
}

// Default creates a logger with DefaultConfig.
func Default() *Logger {
	return New(DefaultConfig())
}

// Discard returns a logger that drops every record.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.DiscardHandler)}
}

// With returns a Logger that adds args to every entry.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...)}
}

// WithComponent tags every entry with the emitting component.
func (l *Logger) WithComponent(name string) *Logger {
	return l.With("component", name)
}

// WithError adds err to every entry. A ConsoleError contributes its code,
// kind, HTTP status and the number of rejected fields.
func (l *Logger) WithError(err error) *Logger {
	if err == nil {
		return l
	}
	return l.With(errorAttrs(err)...)
}

func errorAttrs(err error) []any {
	ce, ok := errors.As(err)
	if !ok {
		return []any{slog.String("error", err.Error())}
	}

	attrs := []any{
		slog.String("error", ce.Message),
		slog.String("error_code", string(ce.Code)),
		slog.String("error_kind", ce.Kind.String()),
	}
	if ce.Status > 0 {
		attrs = append(attrs, slog.Int("status", ce.Status))
	}
	if len(ce.Fields) > 0 {
		attrs = append(attrs, slog.Int("field_errors", len(ce.Fields)))
	}
	if ce.Cause != nil {
		attrs = append(attrs, slog.String("cause", ce.Cause.Error()))
	}
	return attrs
}
