package log

import (
	"log/slog"
	"strings"
)

const redacted = "[redacted]"

// secretKeys are attribute keys whose values never reach a log line.
var secretKeys = map[string]struct{}{
	"token":         {},
	"password":      {},
	"passphrase":    {},
	"credential":    {},
	"authorization": {},
	"code":          {},
}

func redact(_ []string, a slog.Attr) slog.Attr {
	if _, ok := secretKeys[strings.ToLower(a.Key)]; ok {
		return slog.String(a.Key, redacted)
	}
	return a
}
