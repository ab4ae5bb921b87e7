package log

import (
	"io"
	"log/slog"
	"strings"
)

// Format selects the slog handler.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat maps a flag value to a Format. Anything but "json" is text.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}

// Levels accepted by Config.Level.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// ParseLevel accepts slog level names in any case, plus "warning".
// Unknown values fall back to info.
func ParseLevel(s string) slog.Level {
	s = strings.TrimSpace(s)
	if strings.EqualFold(s, "warning") {
		return LevelWarn
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return LevelInfo
	}
	return level
}

// Config configures a Logger.
type Config struct {
	Level  slog.Level
	Format Format

	// Writer defaults to stderr; stdout carries command output.
	Writer io.Writer

	AddSource bool

	// Service is attached to every entry when set.
	Service string
}

// DefaultConfig is the CLI default: warnings and above as text on stderr.
func DefaultConfig() Config {
	return Config{
		Level:   LevelWarn,
		Format:  FormatText,
		Service: "adminctl",
	}
}

// FromStrings builds a Config from flag or config-file values. Empty
// values keep the defaults.
func FromStrings(level, format string) Config {
	cfg := DefaultConfig()
	if strings.TrimSpace(level) != "" {
		cfg.Level = ParseLevel(level)
	}
	if strings.TrimSpace(format) != "" {
		cfg.Format = ParseFormat(format)
	}
	return cfg
}
