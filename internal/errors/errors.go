package errors

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

// Error categories
const (
	// Authentication errors (AUTH-001 to AUTH-099)
	ErrCodeInvalidCredentials ErrorCode = "AUTH-001"
	ErrCodeTokenInvalid       ErrorCode = "AUTH-002"
	ErrCodeTokenExpired       ErrorCode = "AUTH-003"
	ErrCodeForbidden          ErrorCode = "AUTH-004"
	ErrCodeSecondFactor       ErrorCode = "AUTH-005"
	ErrCodeNotAuthenticated   ErrorCode = "AUTH-006"

	// Validation errors (VALIDATION-001 to VALIDATION-099)
	ErrCodeValidationFailed ErrorCode = "VALIDATION-001"
	ErrCodeBadRequest       ErrorCode = "VALIDATION-002"
	ErrCodeConflict         ErrorCode = "VALIDATION-003"

	// Network errors (NET-001 to NET-099)
	ErrCodeNetworkUnreachable ErrorCode = "NET-001"
	ErrCodeTimeout            ErrorCode = "NET-002"
	ErrCodeServerError        ErrorCode = "NET-003"
	ErrCodeRateLimited        ErrorCode = "NET-004"

	// Unknown errors (UNKNOWN-001 to UNKNOWN-099)
	ErrCodeUnexpectedStatus   ErrorCode = "UNKNOWN-001"
	ErrCodeUnexpectedResponse ErrorCode = "UNKNOWN-002"

	// Local state errors (STATE-001 to STATE-099)
	ErrCodeStorageRead  ErrorCode = "STATE-001"
	ErrCodeStorageWrite ErrorCode = "STATE-002"
	ErrCodeConfig       ErrorCode = "STATE-003"
)

// Kind is the coarse error class callers branch on.
type Kind int

const (
	// KindUnknown covers unexpected server shapes and parse failures.
	KindUnknown Kind = iota
	// KindAuthentication covers bad credentials and invalid or expired tokens.
	KindAuthentication
	// KindValidation covers field-level rejections (400/422 style).
	KindValidation
	// KindNetwork covers unreachable servers, timeouts and 5xx responses.
	KindNetwork
)

// String returns the string representation of the kind
func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// ConsoleError is the typed error returned by the API client, the session
// manager and the form helper.
type ConsoleError struct {
	Code        ErrorCode
	Kind        Kind
	Status      int
	Message     string
	Fields      map[string][]string
	Suggestions []string
	Cause       error
}

// Error implements the error interface
func (e *ConsoleError) Error() string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if e.Status > 0 {
		b.WriteString(fmt.Sprintf(" (status %d)", e.Status))
	}

	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}

	if len(e.Fields) > 0 {
		names := make([]string, 0, len(e.Fields))
		for name := range e.Fields {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b.WriteString(fmt.Sprintf("\n  %s: %s", name, strings.Join(e.Fields[name], "; ")))
		}
	}

	if len(e.Suggestions) > 0 {
		b.WriteString("\n\nSuggestions:")
		for _, suggestion := range e.Suggestions {
			b.WriteString(fmt.Sprintf("\n  • %s", suggestion))
		}
	}

	return b.String()
}

// Unwrap implements error unwrapping for errors.Is and errors.As
func (e *ConsoleError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether repeating the same call may succeed.
func (e *ConsoleError) Retryable() bool {
	return e.Kind == KindNetwork
}

// New creates a new ConsoleError
func New(code ErrorCode, kind Kind, message string) *ConsoleError {
	return &ConsoleError{
		Code:    code,
		Kind:    kind,
		Message: message,
	}
}

// Wrap creates a new ConsoleError wrapping an existing error
func Wrap(code ErrorCode, kind Kind, message string, cause error) *ConsoleError {
	return &ConsoleError{
		Code:    code,
		Kind:    kind,
		Message: message,
		Cause:   cause,
	}
}

// WithStatus records the HTTP status that produced the error.
func (e *ConsoleError) WithStatus(status int) *ConsoleError {
	e.Status = status
	return e
}

// WithFields attaches field-keyed validation messages.
func (e *ConsoleError) WithFields(fields map[string][]string) *ConsoleError {
	if len(fields) == 0 {
		return e
	}
	if e.Fields == nil {
		e.Fields = make(map[string][]string, len(fields))
	}
	for name, msgs := range fields {
		e.Fields[name] = append(e.Fields[name], msgs...)
	}
	return e
}

// WithSuggestion adds a suggestion to the error
func (e *ConsoleError) WithSuggestion(suggestion string) *ConsoleError {
	e.Suggestions = append(e.Suggestions, suggestion)
	return e
}

// FromStatus classifies an HTTP failure. Status 0 means no response was
// received at all.
func FromStatus(status int, message string, fields map[string][]string) *ConsoleError {
	if strings.TrimSpace(message) == "" {
		message = defaultMessage(status)
	}

	var err *ConsoleError
	switch {
	case status == http.StatusUnauthorized:
		err = New(ErrCodeTokenInvalid, KindAuthentication, message)
	case status == http.StatusForbidden:
		err = New(ErrCodeForbidden, KindAuthentication, message)
	case status == http.StatusBadRequest:
		err = New(ErrCodeBadRequest, KindValidation, message)
	case status == http.StatusConflict:
		err = New(ErrCodeConflict, KindValidation, message)
	case status == http.StatusUnprocessableEntity:
		err = New(ErrCodeValidationFailed, KindValidation, message)
	case status == 0:
		err = New(ErrCodeNetworkUnreachable, KindNetwork, message)
	case status == http.StatusRequestTimeout:
		err = New(ErrCodeTimeout, KindNetwork, message)
	case status == http.StatusTooManyRequests:
		err = New(ErrCodeRateLimited, KindNetwork, message)
	case status >= 500:
		err = New(ErrCodeServerError, KindNetwork, message)
	default:
		err = New(ErrCodeUnexpectedStatus, KindUnknown, message)
	}

	return err.WithStatus(status).WithFields(fields)
}

func defaultMessage(status int) string {
	if status == 0 {
		return "server unreachable"
	}
	if text := http.StatusText(status); text != "" {
		return strings.ToLower(text)
	}
	return fmt.Sprintf("request failed with status %d", status)
}

// Common error constructors for frequently used errors

// NewInvalidCredentialsError is returned when the server rejects a login.
func NewInvalidCredentialsError(message string) *ConsoleError {
	if message == "" {
		message = "invalid email or password"
	}
	return New(ErrCodeInvalidCredentials, KindAuthentication, message).
		WithStatus(http.StatusUnauthorized).
		WithSuggestion("Check the email and password and try again")
}

// NewTokenExpiredError is returned when a stored token is past its expiry.
func NewTokenExpiredError() *ConsoleError {
	return New(ErrCodeTokenExpired, KindAuthentication, "session token has expired").
		WithSuggestion("Run 'adminctl auth login' to start a new session")
}

// NewNotAuthenticatedError is returned by commands that need a session.
func NewNotAuthenticatedError() *ConsoleError {
	return New(ErrCodeNotAuthenticated, KindAuthentication, "not logged in").
		WithSuggestion("Run 'adminctl auth login' to authenticate")
}

// NewNetworkError wraps a transport failure (no HTTP response).
func NewNetworkError(cause error) *ConsoleError {
	return Wrap(ErrCodeNetworkUnreachable, KindNetwork, "server unreachable", cause).
		WithSuggestion("Check your network connection and the configured api_url")
}

// NewTimeoutError wraps a request that exceeded the client timeout.
func NewTimeoutError(cause error) *ConsoleError {
	return Wrap(ErrCodeTimeout, KindNetwork, "request timed out", cause).
		WithSuggestion("Retry the request or raise the 'timeout' setting")
}

// NewUnexpectedResponseError wraps a response body that could not be decoded.
func NewUnexpectedResponseError(status int, cause error) *ConsoleError {
	return Wrap(ErrCodeUnexpectedResponse, KindUnknown, "unexpected response from server", cause).
		WithStatus(status)
}
