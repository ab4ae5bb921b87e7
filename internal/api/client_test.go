package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/adminconsole/internal/authz"
	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/log"
	"github.com/felixgeelhaar/adminconsole/internal/metrics"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *metrics.Metrics) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	_, m := metrics.NewRegistry()
	return NewClient(Options{
		BaseURL:    srv.URL + "/api/",
		SystemCode: "console",
		ClientCode: "web",
		Timeout:    2 * time.Second,
		HTTPClient: srv.Client(),
		Metrics:    m,
		Logger:     log.Discard(),
	}), m
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestDo_Headers(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/user", r.URL.Path)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		assert.True(t, strings.HasPrefix(r.Header.Get("User-Agent"), "adminctl/"))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"user":{"id":1,"name":"A","email":"a@example.com","roles":["admin"]}}}`)
	})
	client.SetToken("tok")

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, authz.ID("1"), user.ID)
	assert.True(t, authz.IsAdmin(user))
}

func TestDo_NoTokenNoAuthorization(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})
	require.NoError(t, client.Logout(context.Background()))
}

func TestDo_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   errors.Kind
	}{
		{http.StatusUnauthorized, errors.KindAuthentication},
		{http.StatusForbidden, errors.KindAuthentication},
		{http.StatusUnprocessableEntity, errors.KindValidation},
		{http.StatusBadRequest, errors.KindValidation},
		{http.StatusInternalServerError, errors.KindNetwork},
		{http.StatusTeapot, errors.KindUnknown},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, `{"message":"nope","errors":{"email":"taken","name":["too short","invalid"]}}`)
			})

			resp, err := client.Do(context.Background(), Request{Method: http.MethodGet, Path: "/things"})
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, tt.status, resp.Status)

			ce, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, tt.kind, ce.Kind)
			assert.Equal(t, tt.status, ce.Status)
			assert.Equal(t, "nope", ce.Message)
			assert.Equal(t, []string{"taken"}, ce.Fields["email"])
			assert.Equal(t, []string{"too short", "invalid"}, ce.Fields["name"])
		})
	}
}

func TestDo_TimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := NewClient(Options{BaseURL: srv.URL, Timeout: 50 * time.Millisecond, HTTPClient: srv.Client(), Logger: log.Discard()})
	_, err := client.CurrentUser(context.Background())
	require.Error(t, err)

	ce, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.KindNetwork, ce.Kind)
	assert.Equal(t, errors.ErrCodeTimeout, ce.Code)
	assert.Equal(t, 0, ce.Status)
}

func TestDo_UnreachableIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: url, Timeout: time.Second, Logger: log.Discard()})
	_, err := client.CurrentUser(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsNetwork(err))
	assert.Equal(t, 0, errors.StatusOf(err))
}

func TestDo_RecordsMetrics(t *testing.T) {
	client, m := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true}`)
	})

	_, err := client.Do(context.Background(), Request{Method: http.MethodPut, Path: "/users/7", Endpoint: "/users", JSON: map[string]any{"a": 1}})
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("/users", "2xx")))
}

func TestLogin_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body LoginRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, LoginRequest{Email: "a@example.com", Password: "pw", SystemCode: "console", ClientCode: "web"}, body)
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"token":"abc","user":{"id":2,"name":"A","email":"a@example.com"}}}`)
	})

	resp, err := client.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	assert.Nil(t, resp.Challenge)
	assert.Equal(t, "abc", resp.Token)
	assert.Equal(t, []string{authz.DefaultRoleName}, resp.User.RoleNames())
}

func TestLogin_Challenge(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"requires_2fa":true,"data":{"verification_id":"v-1","email":"a@example.com","expires_at":"2026-01-01T00:00:00Z","reasons":["new_device"]}}`)
	})

	resp, err := client.Login(context.Background(), "a@example.com", "pw")
	require.NoError(t, err)
	require.NotNil(t, resp.Challenge)
	assert.Nil(t, resp.User)
	assert.Equal(t, "v-1", resp.Challenge.VerificationID)
	assert.Equal(t, []string{"new_device"}, resp.Challenge.Reasons)
}

func TestLogin_BadCredentials(t *testing.T) {
	for name, handler := range map[string]http.HandlerFunc{
		"401": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusUnauthorized, `{"message":"Invalid credentials"}`)
		},
		"success false": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, `{"success":false,"message":"Invalid credentials"}`)
		},
	} {
		t.Run(name, func(t *testing.T) {
			client, _ := newTestClient(t, handler)
			_, err := client.Login(context.Background(), "a@example.com", "wrong")
			require.Error(t, err)

			ce, ok := errors.As(err)
			require.True(t, ok)
			assert.Equal(t, errors.ErrCodeInvalidCredentials, ce.Code)
			assert.Equal(t, errors.KindAuthentication, ce.Kind)
			assert.Equal(t, "Invalid credentials", ce.Message)
		})
	}
}

func TestLogin_MissingToken(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"user":{"id":2}}}`)
	})

	_, err := client.Login(context.Background(), "a@example.com", "pw")
	require.Error(t, err)
	assert.Equal(t, errors.KindUnknown, errors.KindOf(err))
}

func TestGoogleLogin(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/auth/google", r.URL.Path)
		raw, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"credential":"google-jwt"}`, string(raw))
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"token":"t","user":{"id":"u","name":"G","email":"g@example.com","roles":[{"id":1,"name":"ops","permissions":["devices.view"]}]}}}`)
	})

	resp, err := client.GoogleLogin(context.Background(), "google-jwt")
	require.NoError(t, err)
	assert.True(t, authz.HasPermission(resp.User, authz.PermDevicesView))
}

func TestCurrentUser_FlatData(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"success":true,"data":{"id":5,"name":"Flat","email":"f@example.com","roles":["inspector"]}}`)
	})

	user, err := client.CurrentUser(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Flat", user.Name)
}

func TestTwoFactorEndpoints(t *testing.T) {
	var calls atomic.Int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/api/2fa/status":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"enabled":true,"method":"email"}}`)
		case "/api/2fa/send-code":
			writeJSON(w, http.StatusOK, `{"success":true}`)
		case "/api/2fa/verify-code":
			raw, _ := io.ReadAll(r.Body)
			if strings.Contains(string(raw), `"000000"`) {
				writeJSON(w, http.StatusUnprocessableEntity, `{"message":"Invalid code"}`)
				return
			}
			writeJSON(w, http.StatusOK, `{"success":true}`)
		case "/api/2fa/complete-login":
			writeJSON(w, http.StatusOK, `{"success":true,"data":{"token":"t2","user":{"id":1,"name":"A","email":"a@example.com"}}}`)
		default:
			http.NotFound(w, r)
		}
	})
	ctx := context.Background()

	status, err := client.TwoFactorStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Enabled)

	require.NoError(t, client.SendTwoFactorCode(ctx, "v-1"))
	require.NoError(t, client.VerifyTwoFactorCode(ctx, "v-1", "123456"))

	err = client.VerifyTwoFactorCode(ctx, "v-1", "000000")
	require.Error(t, err)
	ce, ok := errors.As(err)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeSecondFactor, ce.Code)
	assert.Equal(t, errors.KindAuthentication, ce.Kind)

	resp, err := client.CompleteTwoFactorLogin(ctx, "v-1", "123456")
	require.NoError(t, err)
	assert.Equal(t, "t2", resp.Token)
	assert.Equal(t, int32(5), calls.Load())
}
