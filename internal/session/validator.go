package session

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/felixgeelhaar/adminconsole/internal/credential"
	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/telemetry"
)

// Bootstrap restores the session from the credential store and, unless
// the record is inside the freshness window, confirms it with the server.
//
// Invalidation is a state, not an error: a rejected or expired token ends
// in PhaseInvalidated with State.Cause set and a nil error.
func (m *Manager) Bootstrap(ctx context.Context) (State, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	ctx, span := telemetry.StartSessionSpan(ctx, "bootstrap")
	defer span.End()

	m.transition(State{Phase: PhaseBootstrapping})

	record, ok, err := m.store.Load(ctx)
	if err != nil {
		m.logger.WithError(err).WarnContext(ctx, "credential store unreadable; starting signed out")
		ok = false
	}
	classic := m.store.ClassicSession(ctx)

	if !ok {
		m.api.SetToken("")
		m.metrics.RecordBootstrap(OutcomeAnonymous)
		span.SetAttributes(attribute.String("outcome", OutcomeAnonymous))
		return m.transition(State{Phase: PhaseReady, ClassicSession: classic}), nil
	}

	m.api.SetToken(record.Token)
	st := m.transition(State{
		Phase:           PhaseBootstrapping,
		Token:           record.Token,
		CurrentUser:     record.User,
		LastValidatedAt: record.LastValidatedAt,
	})

	now := m.clock.Now()
	if tokenExpired(record.Token, now) {
		m.logger.InfoContext(ctx, "stored token has expired")
		_ = m.clearLocal(ctx)
		m.metrics.RecordBootstrap(OutcomeExpired)
		span.SetAttributes(attribute.String("outcome", OutcomeExpired))
		return m.transition(State{Phase: PhaseInvalidated, Cause: errors.NewTokenExpiredError()}), nil
	}

	if m.fresh(record, now) {
		st.Phase = PhaseUsingCache
		m.transition(st)
		st.Phase = PhaseReady
		m.metrics.RecordBootstrap(OutcomeCache)
		span.SetAttributes(attribute.String("outcome", OutcomeCache))
		return m.transition(st), nil
	}

	return m.verify(ctx, st), nil
}

// Revalidate asks the server to confirm the current token regardless of
// the freshness window.
func (m *Manager) Revalidate(ctx context.Context) (State, error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	ctx, span := telemetry.StartSessionSpan(ctx, "revalidate")
	defer span.End()

	st := m.State()
	if st.Token == "" {
		return st, errors.NewNotAuthenticatedError()
	}
	m.api.SetToken(st.Token)
	return m.verify(ctx, st), nil
}

// fresh reports whether the record may be trusted without a server call.
// A cached user is required; a timestamp in the future is not fresh.
func (m *Manager) fresh(record credential.Record, now time.Time) bool {
	if record.User == nil || record.LastValidatedAt.IsZero() {
		return false
	}
	elapsed := now.Sub(record.LastValidatedAt)
	return elapsed >= 0 && elapsed < m.window
}

// verify moves st through PhaseVerifying to a terminal phase.
func (m *Manager) verify(ctx context.Context, st State) State {
	st.Phase = PhaseVerifying
	st.Cause = nil
	m.transition(st)

	user, err := m.api.CurrentUser(ctx)
	switch {
	case err == nil:
		u := user.Normalize()
		now := m.clock.Now()
		if saveErr := m.store.Save(ctx, credential.Record{Token: st.Token, User: &u, LastValidatedAt: now}); saveErr != nil {
			m.logger.WithError(saveErr).WarnContext(ctx, "session verified but could not be persisted")
		}
		m.metrics.RecordBootstrap(OutcomeVerified)
		return m.transition(State{
			Phase:           PhaseReady,
			Token:           st.Token,
			CurrentUser:     &u,
			LastValidatedAt: now,
		})

	case errors.IsAuthentication(err):
		m.logger.WithError(err).InfoContext(ctx, "server rejected stored token")
		_ = m.clearLocal(ctx)
		m.metrics.RecordBootstrap(OutcomeInvalidated)
		return m.transition(State{Phase: PhaseInvalidated, Cause: err})

	case st.CurrentUser != nil:
		m.logger.WithError(err).WarnContext(ctx, "could not verify session; continuing with cached user")
		m.notifier.Warning("Could not reach the server; using your cached session")
		m.metrics.RecordBootstrap(OutcomeDegraded)
		st.Phase = PhaseReady
		return m.transition(st)

	default:
		m.logger.WithError(err).WarnContext(ctx, "could not verify session and no cached user; signing out")
		_ = m.clearLocal(ctx)
		m.metrics.RecordBootstrap(OutcomeInvalidated)
		return m.transition(State{Phase: PhaseInvalidated, Cause: err})
	}
}
