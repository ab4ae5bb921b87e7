package session

import (
	"context"
	"strings"

	"github.com/felixgeelhaar/adminconsole/internal/api"
	"github.com/felixgeelhaar/adminconsole/internal/authz"
	"github.com/felixgeelhaar/adminconsole/internal/errors"
	"github.com/felixgeelhaar/adminconsole/internal/telemetry"
)

// CompleteTwoFactorLogin answers a login challenge with the emailed code
// and, on success, establishes the session.
func (m *Manager) CompleteTwoFactorLogin(ctx context.Context, verificationID, code string) (user *authz.User, err error) {
	m.opMu.Lock()
	defer m.opMu.Unlock()

	ctx, span := telemetry.StartSessionSpan(ctx, "two_factor")
	defer func() { telemetry.End(span, err) }()

	if err := requireVerification(verificationID, code); err != nil {
		return nil, err
	}

	resp, err := m.api.CompleteTwoFactorLogin(ctx, verificationID, strings.TrimSpace(code))
	if err != nil {
		m.metrics.RecordLogin(MethodTwoFactor, err)
		return nil, err
	}
	err = m.completeLocked(ctx, resp.User, resp.Token)
	m.metrics.RecordLogin(MethodTwoFactor, err)
	if err != nil {
		return nil, err
	}
	user = m.CurrentUser()
	m.notifier.Success("Signed in as " + displayName(user))
	return user, nil
}

// ResendTwoFactorCode asks the server to email a fresh code.
func (m *Manager) ResendTwoFactorCode(ctx context.Context, verificationID string) error {
	if strings.TrimSpace(verificationID) == "" {
		return missingVerificationID()
	}
	if err := m.api.SendTwoFactorCode(ctx, verificationID); err != nil {
		return err
	}
	m.notifier.Info("A new verification code has been sent")
	return nil
}

// VerifyTwoFactorCode checks a code without completing the login.
func (m *Manager) VerifyTwoFactorCode(ctx context.Context, verificationID, code string) error {
	if err := requireVerification(verificationID, code); err != nil {
		return err
	}
	return m.api.VerifyTwoFactorCode(ctx, verificationID, strings.TrimSpace(code))
}

// TwoFactorStatus reports the signed-in user's 2FA enrollment.
func (m *Manager) TwoFactorStatus(ctx context.Context) (*api.TwoFactorStatus, error) {
	if m.Token() == "" {
		return nil, errors.NewNotAuthenticatedError()
	}
	return m.api.TwoFactorStatus(ctx)
}

func requireVerification(verificationID, code string) error {
	if strings.TrimSpace(verificationID) == "" {
		return missingVerificationID()
	}
	if strings.TrimSpace(code) == "" {
		return errors.New(errors.ErrCodeValidationFailed, errors.KindValidation, "verification code is required").
			WithFields(map[string][]string{"code": {"required"}})
	}
	return nil
}

func missingVerificationID() error {
	return errors.New(errors.ErrCodeValidationFailed, errors.KindValidation, "verification id is required").
		WithFields(map[string][]string{"verification_id": {"required"}})
}
