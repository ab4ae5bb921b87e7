package errors

import (
	stderrors "errors"
	"fmt"
)

// As finds the first ConsoleError in err's chain.
func As(err error) (*ConsoleError, bool) {
	var ce *ConsoleError
	if stderrors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// KindOf returns the kind of the first ConsoleError in err's chain, or
// KindUnknown when there is none.
func KindOf(err error) Kind {
	if ce, ok := As(err); ok {
		return ce.Kind
	}
	return KindUnknown
}

// StatusOf returns the HTTP status recorded on err, or 0.
func StatusOf(err error) int {
	if ce, ok := As(err); ok {
		return ce.Status
	}
	return 0
}

// IsAuthentication reports whether err is an authentication failure.
func IsAuthentication(err error) bool {
	return err != nil && KindOf(err) == KindAuthentication
}

// IsValidation reports whether err carries field validation failures.
func IsValidation(err error) bool {
	return err != nil && KindOf(err) == KindValidation
}

// IsNetwork reports whether err is a transport, timeout or server failure.
func IsNetwork(err error) bool {
	return err != nil && KindOf(err) == KindNetwork
}

// NormalizeFieldMessages converts a decoded `errors` payload whose values
// are either a string or a list of strings.
func NormalizeFieldMessages(raw map[string]any) map[string][]string {
	if len(raw) == 0 {
		return nil
	}
	out := make(map[string][]string, len(raw))
	for name, value := range raw {
		switch v := value.(type) {
		case string:
			out[name] = []string{v}
		case []any:
			msgs := make([]string, 0, len(v))
			for _, item := range v {
				msgs = append(msgs, fmt.Sprint(item))
			}
			out[name] = msgs
		case []string:
			out[name] = append([]string(nil), v...)
		case nil:
			continue
		default:
			out[name] = []string{fmt.Sprint(v)}
		}
	}
	return out
}
