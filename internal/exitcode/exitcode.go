// Package exitcode maps errors to process exit codes.
package exitcode

import (
	stderrors "errors"
	"os"
	"strings"

	"github.com/felixgeelhaar/adminconsole/internal/errors"
)

// Exit codes for consistent error handling across the CLI
const (
	// Success indicates successful execution
	Success = 0

	// GeneralError indicates a general error condition
	GeneralError = 1

	// UsageError indicates invalid command usage (bad flags, missing args, etc.)
	UsageError = 2

	// ValidationError indicates the server rejected submitted fields
	ValidationError = 3

	// PermissionDenied indicates a permission check answered "no"
	PermissionDenied = 4

	// AuthError indicates an authentication failure or missing session
	AuthError = 5

	// NetworkError indicates the server could not be reached or failed
	NetworkError = 6

	// Interrupted indicates the command was cancelled by a signal
	Interrupted = 130
)

// Exit terminates the program with the given exit code
func Exit(code int) {
	os.Exit(code)
}

// ExitWithError exits with an appropriate code based on error type
func ExitWithError(err error) {
	Exit(DetermineExitCode(err))
}

// DenyError is returned by commands whose answer is a refusal rather than
// a failure.
type DenyError struct {
	Message string
}

func (e *DenyError) Error() string { return e.Message }

// DetermineExitCode classifies err by its error kind. Errors without a
// kind fall back to cobra's usage messages.
func DetermineExitCode(err error) int {
	if err == nil {
		return Success
	}

	var deny *DenyError
	if stderrors.As(err, &deny) {
		return PermissionDenied
	}

	if _, ok := errors.As(err); ok {
		switch errors.KindOf(err) {
		case errors.KindAuthentication:
			return AuthError
		case errors.KindNetwork:
			return NetworkError
		case errors.KindValidation:
			return ValidationError
		default:
			return GeneralError
		}
	}

	errMsg := strings.ToLower(err.Error())
	for _, usage := range []string{"unknown command", "unknown flag", "invalid argument", "required flag", "accepts ", "requires at least"} {
		if strings.Contains(errMsg, usage) {
			return UsageError
		}
	}
	return GeneralError
}

// GetExitCodeDescription returns a human-readable description of an exit code
func GetExitCodeDescription(code int) string {
	switch code {
	case Success:
		return "Success"
	case GeneralError:
		return "General error"
	case UsageError:
		return "Usage error (invalid flags or arguments)"
	case ValidationError:
		return "Validation error"
	case PermissionDenied:
		return "Permission denied"
	case AuthError:
		return "Authentication error"
	case NetworkError:
		return "Network error"
	case Interrupted:
		return "Interrupted"
	default:
		return "Unknown error"
	}
}
