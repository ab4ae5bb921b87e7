package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/felixgeelhaar/adminconsole/internal/authz"
	"github.com/felixgeelhaar/adminconsole/internal/errors"
)

// LoginRequest is the password login payload.
type LoginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	SystemCode string `json:"system_code,omitempty"`
	ClientCode string `json:"client_code,omitempty"`
}

// TwoFactorChallenge is returned instead of a session when the server
// wants a second factor.
type TwoFactorChallenge struct {
	VerificationID string   `json:"verification_id"`
	Email          string   `json:"email"`
	ExpiresAt      string   `json:"expires_at,omitempty"`
	Reasons        []string `json:"reasons,omitempty"`
}

// LoginResponse holds either an established session (User and Token) or a
// Challenge.
type LoginResponse struct {
	User      *authz.User
	Token     string
	Challenge *TwoFactorChallenge
}

type sessionData struct {
	User  *authz.User `json:"user"`
	Token string      `json:"token"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	resp, err := c.call(ctx, http.MethodPost, "/login", LoginRequest{
		Email:      email,
		Password:   password,
		SystemCode: c.systemCode,
		ClientCode: c.clientCode,
	})
	if err != nil {
		return nil, loginError(err)
	}
	return parseLogin(resp)
}

// GoogleLogin exchanges a Google identity credential for a session.
func (c *Client) GoogleLogin(ctx context.Context, credential string) (*LoginResponse, error) {
	resp, err := c.call(ctx, http.MethodPost, "/auth/google", map[string]string{"credential": credential})
	if err != nil {
		return nil, loginError(err)
	}
	return parseLogin(resp)
}

// CurrentUser fetches the user the token belongs to.
func (c *Client) CurrentUser(ctx context.Context) (*authz.User, error) {
	resp, err := c.call(ctx, http.MethodGet, "/user", nil)
	if err != nil {
		return nil, err
	}
	if !resp.Envelope.Succeeded() {
		return nil, errors.NewUnexpectedResponseError(resp.Status, fmt.Errorf("success=false: %s", resp.Envelope.Message))
	}

	var data sessionData
	if err := decodeData(resp, &data); err != nil {
		return nil, err
	}
	if data.User == nil {
		// Some deployments put the user directly in data.
		var user authz.User
		if err := decodeData(resp, &user); err != nil {
			return nil, err
		}
		if user.ID == "" && user.Email == "" {
			return nil, errors.NewUnexpectedResponseError(resp.Status, fmt.Errorf("response has no user"))
		}
		data.User = &user
	}
	return data.User, nil
}

// Logout invalidates the token on the server.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.call(ctx, http.MethodPost, "/logout", nil)
	return err
}

func parseLogin(resp *Response) (*LoginResponse, error) {
	env := resp.Envelope
	if env.Requires2FA {
		var challenge TwoFactorChallenge
		if err := decodeData(resp, &challenge); err != nil {
			return nil, err
		}
		if challenge.VerificationID == "" {
			return nil, errors.NewUnexpectedResponseError(resp.Status, fmt.Errorf("challenge has no verification_id"))
		}
		return &LoginResponse{Challenge: &challenge}, nil
	}
	if !env.Succeeded() {
		return nil, errors.NewInvalidCredentialsError(env.Message).
			WithFields(errors.NormalizeFieldMessages(env.Errors))
	}
	return parseSession(resp)
}

func parseSession(resp *Response) (*LoginResponse, error) {
	var data sessionData
	if err := decodeData(resp, &data); err != nil {
		return nil, err
	}
	if data.User == nil || data.Token == "" {
		return nil, errors.NewUnexpectedResponseError(resp.Status, fmt.Errorf("response is missing user or token"))
	}
	return &LoginResponse{User: data.User, Token: data.Token}, nil
}

// loginError turns a 401 from a login endpoint into an invalid-credentials
// error; anything else keeps its classification.
func loginError(err error) error {
	ce, ok := errors.As(err)
	if !ok || ce.Status != http.StatusUnauthorized {
		return err
	}
	msg := ce.Message
	if msg == "unauthorized" {
		msg = ""
	}
	return errors.NewInvalidCredentialsError(msg).WithFields(ce.Fields)
}
