package session

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/adminconsole/internal/api"
	"github.com/felixgeelhaar/adminconsole/internal/authz"
	"github.com/felixgeelhaar/adminconsole/internal/credential"
	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/telemetry"
)

// Login methods reported to metrics.
const (
	MethodPassword  = "password"
	MethodFederated = "federated"
	MethodDemo      = "demo"
	MethodTwoFactor = "2fa"
)

// LoginResult is either a signed-in User or a Challenge the caller must
// answer with CompleteTwoFactorLogin. A challenge leaves the session
// untouched.
type LoginResult struct {
	User      *authz.User
	Challenge *api.TwoFactorChallenge
}

// RequiresTwoFactor reports whether the login stopped at a challenge.
func (r LoginResult) RequiresTwoFactor() bool {
	return r.Challenge != nil
}

// Login signs in with email and password.
func (m *Manager) Login(ctx context.Context, email, password string) (result LoginResult, err error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	ctx, span := telemetry.StartSessionSpan(ctx, "login")
	defer func() { telemetry.End(span, err) }()

	if m.demo && isDemoCredentials(email, password) {
		span.SetAttributes(attribute.String("method", MethodDemo))
		m.logger.WarnContext(ctx, "demo account login used; disable demo_login outside development")
		user := DemoUser()
		err = m.completeLocked(ctx, user, DemoToken)
		m.metrics.RecordLogin(MethodDemo, err)
		if err != nil {
			return LoginResult{}, err
		}
		m.notifier.Success("Signed in as " + user.Name + " (demo)")
		return LoginResult{User: m.CurrentUser()}, nil
	}

	span.SetAttributes(attribute.String("method", MethodPassword))
	return m.finishLogin(ctx, MethodPassword, func() (*api.LoginResponse, error) {
		return m.api.Login(ctx, email, password)
	})
}

// LoginWithFederatedToken exchanges a third-party identity token for a
// session. It follows the same rules as Login.
func (m *Manager) LoginWithFederatedToken(ctx context.Context, providerToken string) (result LoginResult, err error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	ctx, span := telemetry.StartSessionSpan(ctx, "login")
	defer func() { telemetry.End(span, err) }()
	span.SetAttributes(attribute.String("method", MethodFederated))

	return m.finishLogin(ctx, MethodFederated, func() (*api.LoginResponse, error) {
		return m.api.GoogleLogin(ctx, providerToken)
	})
}

func (m *Manager) finishLogin(ctx context.Context, method string, call func() (*api.LoginResponse, error)) (LoginResult, error) {
	resp, err := call()
	if err != nil {
		m.metrics.RecordLogin(method, err)
		m.logger.WithError(err).InfoContext(ctx, "login failed", "method", method)
		return LoginResult{}, err
	}
	if resp.Challenge != nil {
		m.logger.InfoContext(ctx, "second factor required", "method", method)
		return LoginResult{Challenge: resp.Challenge}, nil
	}

	err = m.completeLocked(ctx, resp.User, resp.Token)
	m.metrics.RecordLogin(method, err)
	if err != nil {
		return LoginResult{}, err
	}
	user := m.CurrentUser()
	m.notifier.Success("Signed in as " + displayName(user))
	return LoginResult{User: user}, nil
}

// CompleteAuthenticatedSession installs user and token as the session.
// The credential record is persisted first; if that fails the in-memory
// session is unchanged.
func (m *Manager) CompleteAuthenticatedSession(ctx context.Context, user *authz.User, token string) error {
	m.opMu.Lock()
	defer m.opMu.Unlock()
	return m.completeLocked(ctx, user, token)
}

func (m *Manager) completeLocked(ctx context.Context, user *authz.User, token string) error {
	if user == nil || token == "" {
		return errors.New(errors.ErrCodeUnexpectedResponse, errors.KindUnknown, "cannot start a session without both user and token")
	}

	u := user.Normalize()
	now := m.clock.Now()
	if err := m.store.Save(ctx, credential.Record{Token: token, User: &u, LastValidatedAt: now}); err != nil {
		return err
	}

	m.api.SetToken(token)
	m.transition(State{
		Phase:           PhaseReady,
		Token:           token,
		CurrentUser:     &u,
		LastValidatedAt: now,
	})
	m.logger.InfoContext(ctx, "session established", "user_id", u.ID.String(), "roles", u.RoleNames())
	return nil
}

// Logout ends the session. The server is told on a best-effort basis;
// local credentials are always cleared. Calling it again is harmless.
func (m *Manager) Logout(ctx context.Context) (err error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	ctx, span := telemetry.StartSessionSpan(ctx, "logout")
	defer func() { telemetry.End(span, err) }()

	token := m.State().Token
	if token == "" {
		token = m.store.Token(ctx)
	}

	if token != "" && token != DemoToken {
		m.api.SetToken(token)
		if serverErr := m.api.Logout(ctx); serverErr != nil {
			m.logger.WithError(serverErr).WarnContext(ctx, "server logout failed; clearing local session anyway")
		}
	}

	err = m.clearLocal(ctx)
	if classicErr := m.store.SetClassicSession(ctx, false); classicErr != nil && err == nil {
		err = classicErr
	}
	m.transition(State{Phase: PhaseReady})

	if token != "" {
		m.metrics.RecordLogout()
		m.notifier.Info("Signed out")
	}
	return err
}

func displayName(user *authz.User) string {
	if user == nil {
		return ""
	}
	if user.Name != "" {
		return user.Name
	}
	if user.Email != "" {
		return user.Email
	}
	return fmt.Sprintf("user %s", user.ID)
}
