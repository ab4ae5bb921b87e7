package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	err := New(ErrCodeTokenInvalid, KindAuthentication, "test error message")

	if err.Code != ErrCodeTokenInvalid {
		t.Errorf("expected code %s, got %s", ErrCodeTokenInvalid, err.Code)
	}

	if err.Kind != KindAuthentication {
		t.Errorf("expected kind authentication, got %s", err.Kind)
	}

	if err.Cause != nil {
		t.Errorf("expected nil cause, got %v", err.Cause)
	}
}

func TestWrap(t *testing.T) {
	cause := fmt.Errorf("dial tcp: connection refused")
	err := Wrap(ErrCodeNetworkUnreachable, KindNetwork, "server unreachable", cause)

	if err.Cause != cause {
		t.Errorf("expected cause to be set")
	}

	if !errors.Is(err, cause) {
		t.Errorf("Wrap should support errors.Is")
	}
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		status   int
		wantKind Kind
		wantCode ErrorCode
	}{
		{http.StatusUnauthorized, KindAuthentication, ErrCodeTokenInvalid},
		{http.StatusForbidden, KindAuthentication, ErrCodeForbidden},
		{http.StatusBadRequest, KindValidation, ErrCodeBadRequest},
		{http.StatusConflict, KindValidation, ErrCodeConflict},
		{http.StatusUnprocessableEntity, KindValidation, ErrCodeValidationFailed},
		{0, KindNetwork, ErrCodeNetworkUnreachable},
		{http.StatusRequestTimeout, KindNetwork, ErrCodeTimeout},
		{http.StatusTooManyRequests, KindNetwork, ErrCodeRateLimited},
		{http.StatusInternalServerError, KindNetwork, ErrCodeServerError},
		{http.StatusBadGateway, KindNetwork, ErrCodeServerError},
		{http.StatusNotFound, KindUnknown, ErrCodeUnexpectedStatus},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			err := FromStatus(tt.status, "", nil)
			if err.Kind != tt.wantKind {
				t.Errorf("kind = %s, want %s", err.Kind, tt.wantKind)
			}
			if err.Code != tt.wantCode {
				t.Errorf("code = %s, want %s", err.Code, tt.wantCode)
			}
			if err.Status != tt.status {
				t.Errorf("status = %d, want %d", err.Status, tt.status)
			}
			if err.Message == "" {
				t.Errorf("expected a default message")
			}
		})
	}
}

func TestFromStatusKeepsFields(t *testing.T) {
	err := FromStatus(http.StatusUnprocessableEntity, "The given data was invalid.", map[string][]string{
		"email": {"The email has already been taken."},
	})

	if err.Message != "The given data was invalid." {
		t.Errorf("unexpected message %q", err.Message)
	}
	if got := err.Fields["email"]; len(got) != 1 {
		t.Fatalf("expected one email message, got %v", got)
	}

	errStr := err.Error()
	if !strings.Contains(errStr, "email: The email has already been taken.") {
		t.Errorf("error string should list field messages, got: %s", errStr)
	}
}

func TestClassificationHelpers(t *testing.T) {
	auth := fmt.Errorf("login: %w", FromStatus(http.StatusUnauthorized, "", nil))
	network := fmt.Errorf("bootstrap: %w", NewNetworkError(errors.New("eof")))
	plain := errors.New("plain")

	if !IsAuthentication(auth) {
		t.Errorf("wrapped 401 should be an authentication error")
	}
	if !IsNetwork(network) {
		t.Errorf("wrapped transport failure should be a network error")
	}
	if IsNetwork(plain) || IsAuthentication(plain) || IsValidation(plain) {
		t.Errorf("plain errors should not be classified")
	}
	if KindOf(plain) != KindUnknown {
		t.Errorf("plain errors should be unknown")
	}
	if StatusOf(auth) != http.StatusUnauthorized {
		t.Errorf("StatusOf should see through wrapping")
	}
	if IsAuthentication(nil) {
		t.Errorf("nil is not an error")
	}
}

func TestRetryable(t *testing.T) {
	if !NewTimeoutError(errors.New("deadline")).Retryable() {
		t.Errorf("timeouts should be retryable")
	}
	if NewInvalidCredentialsError("").Retryable() {
		t.Errorf("bad credentials should not be retryable")
	}
}

func TestWithSuggestion(t *testing.T) {
	err := NewNotAuthenticatedError()

	errStr := err.Error()
	if !strings.Contains(errStr, "Suggestions:") {
		t.Errorf("error string should contain suggestions section")
	}
	if !strings.Contains(errStr, "adminctl auth login") {
		t.Errorf("error string should contain suggestion text")
	}
}

func TestNormalizeFieldMessages(t *testing.T) {
	raw := map[string]any{
		"name":  "required",
		"roles": []any{"too many", "unknown role"},
		"skip":  nil,
		"count": 3,
	}

	got := NormalizeFieldMessages(raw)

	if len(got["name"]) != 1 || got["name"][0] != "required" {
		t.Errorf("string value not normalized: %v", got["name"])
	}
	if len(got["roles"]) != 2 {
		t.Errorf("list value not normalized: %v", got["roles"])
	}
	if _, ok := got["skip"]; ok {
		t.Errorf("nil values should be dropped")
	}
	if got["count"][0] != "3" {
		t.Errorf("scalar values should be stringified: %v", got["count"])
	}
	if NormalizeFieldMessages(nil) != nil {
		t.Errorf("empty input should give nil")
	}
}
