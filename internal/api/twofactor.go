package api

import (
	"context"
	"net/http"

	"github.com/felixgeelhaar/adminconsole/internal/errors"
)

// TwoFactorStatus describes the current user's second-factor enrollment.
type TwoFactorStatus struct {
	Enabled bool   `json:"enabled"`
	Method  string `json:"method,omitempty"`
	Email   string `json:"email,omitempty"`
}

type verificationRequest struct {
	VerificationID string `json:"verification_id"`
	Code           string `json:"code,omitempty"`
}

// TwoFactorStatus reports whether 2FA is enabled for the token's user.
func (c *Client) TwoFactorStatus(ctx context.Context) (*TwoFactorStatus, error) {
	resp, err := c.call(ctx, http.MethodGet, "/2fa/status", nil)
	if err != nil {
		return nil, err
	}
	var status TwoFactorStatus
	if err := decodeData(resp, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// SendTwoFactorCode asks the server to (re)send the emailed code.
func (c *Client) SendTwoFactorCode(ctx context.Context, verificationID string) error {
	_, err := c.call(ctx, http.MethodPost, "/2fa/send-code", verificationRequest{VerificationID: verificationID})
	return err
}

// VerifyTwoFactorCode checks code without completing the login.
func (c *Client) VerifyTwoFactorCode(ctx context.Context, verificationID, code string) error {
	resp, err := c.call(ctx, http.MethodPost, "/2fa/verify-code", verificationRequest{VerificationID: verificationID, Code: code})
	if err != nil {
		return secondFactorError(err)
	}
	if !resp.Envelope.Succeeded() {
		return errors.New(errors.ErrCodeSecondFactor, errors.KindAuthentication, messageOr(resp.Envelope.Message, "verification code rejected")).
			WithStatus(resp.Status)
	}
	return nil
}

// CompleteTwoFactorLogin exchanges a verified code for a session.
func (c *Client) CompleteTwoFactorLogin(ctx context.Context, verificationID, code string) (*LoginResponse, error) {
	resp, err := c.call(ctx, http.MethodPost, "/2fa/complete-login", verificationRequest{VerificationID: verificationID, Code: code})
	if err != nil {
		return nil, secondFactorError(err)
	}
	if !resp.Envelope.Succeeded() {
		return nil, errors.New(errors.ErrCodeSecondFactor, errors.KindAuthentication, messageOr(resp.Envelope.Message, "verification code rejected")).
			WithStatus(resp.Status)
	}
	return parseSession(resp)
}

// secondFactorError reclassifies a rejected code (400, 401, 422) as an
// authentication failure.
func secondFactorError(err error) error {
	ce, ok := errors.As(err)
	if !ok {
		return err
	}
	switch ce.Status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusUnprocessableEntity:
		return errors.New(errors.ErrCodeSecondFactor, errors.KindAuthentication, messageOr(ce.Message, "verification code rejected")).
			WithStatus(ce.Status).
			WithFields(ce.Fields).
			WithSuggestion("Request a new code with 'adminctl auth 2fa send'")
	default:
		return err
	}
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
