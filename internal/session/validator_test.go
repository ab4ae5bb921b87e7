package session

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/notify"
)

func TestBootstrap_NoTokenIsAnonymous(t *testing.T) {
	h := newHarness(t)

	st, err := h.manager.Bootstrap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseReady, st.Phase)
	assert.False(t, st.IsLoading)
	assert.Nil(t, st.CurrentUser)
	assert.Equal(t, 0, h.api.total(), "no network call")
	assert.Equal(t, []Phase{PhaseBootstrapping, PhaseReady}, h.phases())
}

func TestBootstrap_FreshCacheSkipsServer(t *testing.T) {
	h := newHarness(t)
	h.seed(t, "tok", cachedUser(), epoch.Add(-2*time.Minute))

	st, err := h.manager.Bootstrap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseReady, st.Phase)
	assert.False(t, st.IsLoading)
	require.NotNil(t, st.CurrentUser)
	assert.Equal(t, "Cached", st.CurrentUser.Name)
	assert.Equal(t, "tok", st.Token)
	assert.Equal(t, 0, h.api.count("/user"))
	assert.Equal(t, []Phase{PhaseBootstrapping, PhaseBootstrapping, PhaseUsingCache, PhaseReady}, h.phases())
	assert.Equal(t, 1.0, testutil.ToFloat64(h.metrics.SessionBootstraps.WithLabelValues(OutcomeCache)))
}

func TestBootstrap_StaleCacheIsVerified(t *testing.T) {
	h := newHarness(t)
	h.api.handle("/user", http.StatusOK, userJSON)
	h.seed(t, "tok", cachedUser(), epoch.Add(-10*time.Minute))

	st, err := h.manager.Bootstrap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, 1, h.api.count("/user"))
	assert.Equal(t, "Bearer tok", h.api.lastAuth("/user"))
	assert.Equal(t, "Fresh", st.CurrentUser.Name)
	assert.True(t, st.IsAdmin(), "roles come from the server response")
	assert.True(t, epoch.Equal(st.LastValidatedAt))

	rec, ok := h.record(t)
	require.True(t, ok)
	assert.Equal(t, "Fresh", rec.User.Name)
	assert.True(t, epoch.Equal(rec.LastValidatedAt), "lastValidatedAt updated to now")
	assert.Equal(t, []Phase{PhaseBootstrapping, PhaseBootstrapping, PhaseVerifying, PhaseReady}, h.phases())
}

func TestBootstrap_FreshTimestampWithoutUserIsVerified(t *testing.T) {
	h := newHarness(t)
	h.api.handle("/user", http.StatusOK, userJSON)
	h.seed(t, "tok", nil, epoch.Add(-time.Minute))

	st, err := h.manager.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, h.api.count("/user"))
	assert.Equal(t, "Fresh", st.CurrentUser.Name)
}

func TestBootstrap_RejectedTokenClearsStore(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			h := newHarness(t)
			h.api.handle("/user", status, `{"message":"Unauthenticated."}`)
			h.seed(t, "tok", cachedUser(), epoch.Add(-time.Hour))

			st, err := h.manager.Bootstrap(context.Background())
			require.NoError(t, err)

			assert.Equal(t, PhaseInvalidated, st.Phase)
			assert.False(t, st.IsLoading)
			assert.Nil(t, st.CurrentUser)
			assert.Empty(t, st.Token)
			assert.True(t, errors.IsAuthentication(st.Cause))
			assert.Equal(t, 0, h.storage.Len(), "credential store cleared")
			assert.Empty(t, h.client.Token())
		})
	}
}

func TestBootstrap_NetworkDownKeepsCachedUser(t *testing.T) {
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	h := newHarness(t, withBaseURL(deadURL))
	validated := epoch.Add(-10 * time.Minute)
	h.seed(t, "tok", cachedUser(), validated)

	st, err := h.manager.Bootstrap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseReady, st.Phase)
	require.NotNil(t, st.CurrentUser)
	assert.Equal(t, "Cached", st.CurrentUser.Name)
	assert.Equal(t, "tok", st.Token)
	assert.Contains(t, h.logs.String(), `"level":"WARN"`)
	assert.Contains(t, h.logs.String(), "continuing with cached user")
	assert.Equal(t, 1, h.notes.Count(notify.LevelWarning))

	rec, ok := h.record(t)
	require.True(t, ok)
	assert.True(t, validated.Equal(rec.LastValidatedAt), "record not re-stamped")
}

func TestBootstrap_ServerErrorWithoutCachedUserInvalidates(t *testing.T) {
	h := newHarness(t)
	h.api.handle("/user", http.StatusServiceUnavailable, `{"message":"maintenance"}`)
	h.seed(t, "tok", nil, time.Time{})

	st, err := h.manager.Bootstrap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseInvalidated, st.Phase)
	assert.True(t, errors.IsNetwork(st.Cause))
	assert.Equal(t, 0, h.storage.Len())
}

func TestBootstrap_CorruptSnapshotIsNotFatal(t *testing.T) {
	h := newHarness(t)
	h.api.handle("/user", http.StatusOK, userJSON)
	ctx := context.Background()
	require.NoError(t, h.storage.Set(ctx, "auth_token", "tok"))
	require.NoError(t, h.storage.Set(ctx, "auth_user", "{not json"))
	require.NoError(t, h.storage.Set(ctx, "auth_last_validated", epoch.Format(time.RFC3339)))

	st, err := h.manager.Bootstrap(ctx)
	require.NoError(t, err)
	assert.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, 1, h.api.count("/user"), "no cached user means the cache cannot be used")
	assert.Contains(t, h.logs.String(), "cached user snapshot is corrupt")
}

func TestBootstrap_ExpiredJWTNeverCallsServer(t *testing.T) {
	h := newHarness(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "7",
		ExpiresAt: jwt.NewNumericDate(epoch.Add(-time.Minute)),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	h.seed(t, token, cachedUser(), epoch.Add(-time.Minute))

	st, err := h.manager.Bootstrap(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PhaseInvalidated, st.Phase)
	assert.Equal(t, 0, h.api.total())
	assert.Equal(t, 0, h.storage.Len())
	ce, ok := errors.As(st.Cause)
	require.True(t, ok)
	assert.Equal(t, errors.ErrCodeTokenExpired, ce.Code)
}

func TestBootstrap_UnexpiredJWTUsesCache(t *testing.T) {
	h := newHarness(t)
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(epoch.Add(time.Hour)),
	}).SignedString([]byte("test-key"))
	require.NoError(t, err)
	h.seed(t, token, cachedUser(), epoch.Add(-time.Minute))

	st, err := h.manager.Bootstrap(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PhaseReady, st.Phase)
	assert.Equal(t, 0, h.api.total())
}

func TestRevalidate(t *testing.T) {
	h := newHarness(t)
	h.api.handle("/user", http.StatusOK, userJSON)
	ctx := context.Background()

	_, err := h.manager.Revalidate(ctx)
	assert.True(t, errors.IsAuthentication(err), "nothing to revalidate")

	h.seed(t, "tok", cachedUser(), epoch.Add(-time.Minute))
	_, err = h.manager.Bootstrap(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, h.api.count("/user"))

	h.clock.Advance(30 * time.Second)
	st, err := h.manager.Revalidate(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, h.api.count("/user"), "revalidate ignores the freshness window")
	assert.True(t, epoch.Add(30*time.Second).Equal(st.LastValidatedAt))
}

func TestTokenExpired(t *testing.T) {
	assert.False(t, tokenExpired("opaque-token", epoch))
	assert.False(t, tokenExpired("", epoch))

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("k"))
	require.NoError(t, err)
	assert.False(t, tokenExpired(noExp, epoch))
}
