package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/adminconsole/internal/api"
	"github.com/felixgeelhaar/adminconsole/internal/authz"
	"github.com/felixgeelhaar/adminconsole/internal/session"
)

// userView is the printable form of a user.
type userView struct {
	ID               string   `json:"id" yaml:"id"`
	Name             string   `json:"name" yaml:"name"`
	Email            string   `json:"email" yaml:"email"`
	Username         string   `json:"username,omitempty" yaml:"username,omitempty"`
	Status           string   `json:"status,omitempty" yaml:"status,omitempty"`
	TwoFactorEnabled bool     `json:"two_factor_enabled" yaml:"two_factor_enabled"`
	Roles            []string `json:"roles" yaml:"roles"`
	Admin            bool     `json:"admin" yaml:"admin"`
}

func newUserView(u *authz.User) *userView {
	if u == nil {
		return nil
	}
	return &userView{
		ID:               u.ID.String(),
		Name:             u.Name,
		Email:            u.Email,
		Username:         u.Username,
		Status:           u.Status,
		TwoFactorEnabled: u.TwoFactorEnabled,
		Roles:            u.RoleNames(),
		Admin:            authz.IsAdmin(u),
	}
}

func (v *userView) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s <%s>\n", v.Name, v.Email)
	fmt.Fprintf(&b, "id: %s\n", v.ID)
	if v.Username != "" {
		fmt.Fprintf(&b, "username: %s\n", v.Username)
	}
	if v.Status != "" {
		fmt.Fprintf(&b, "status: %s\n", v.Status)
	}
	fmt.Fprintf(&b, "roles: %s\n", strings.Join(v.Roles, ", "))
	fmt.Fprintf(&b, "admin: %t\n", v.Admin)
	fmt.Fprintf(&b, "2fa: %t", v.TwoFactorEnabled)
	return b.String()
}

// statusView is what "auth status" prints.
type statusView struct {
	Phase           string    `json:"phase" yaml:"phase"`
	Authenticated   bool      `json:"authenticated" yaml:"authenticated"`
	User            *userView `json:"user,omitempty" yaml:"user,omitempty"`
	LastValidatedAt string    `json:"last_validated_at,omitempty" yaml:"last_validated_at,omitempty"`
	ClassicSession  bool      `json:"classic_session,omitempty" yaml:"classic_session,omitempty"`
	Reason          string    `json:"reason,omitempty" yaml:"reason,omitempty"`
}

func newStatusView(st session.State) statusView {
	v := statusView{
		Phase:          st.Phase.String(),
		Authenticated:  st.IsAuthenticated(),
		User:           newUserView(st.CurrentUser),
		ClassicSession: st.ClassicSession,
	}
	if !st.LastValidatedAt.IsZero() {
		v.LastValidatedAt = st.LastValidatedAt.UTC().Format(time.RFC3339)
	}
	if st.Cause != nil {
		v.Reason = st.Cause.Error()
	}
	return v
}

func (v statusView) Text() string {
	if !v.Authenticated {
		if v.Reason != "" {
			return "Not logged in (" + firstLine(v.Reason) + ")"
		}
		return "Not logged in"
	}
	s := fmt.Sprintf("Logged in as %s <%s>", v.User.Name, v.User.Email)
	if v.LastValidatedAt != "" {
		s += "\nlast validated: " + v.LastValidatedAt
	}
	return s
}

// challengeView is printed when a login stops at a second factor and no
// code could be collected interactively.
type challengeView struct {
	VerificationID string   `json:"verification_id" yaml:"verification_id"`
	Email          string   `json:"email" yaml:"email"`
	ExpiresAt      string   `json:"expires_at,omitempty" yaml:"expires_at,omitempty"`
	Reasons        []string `json:"reasons,omitempty" yaml:"reasons,omitempty"`
}

func newChallengeView(c *api.TwoFactorChallenge) challengeView {
	return challengeView{
		VerificationID: c.VerificationID,
		Email:          c.Email,
		ExpiresAt:      c.ExpiresAt,
		Reasons:        c.Reasons,
	}
}

func (v challengeView) Text() string {
	return fmt.Sprintf("A verification code was sent to %s.\nComplete the login with:\n  adminctl auth 2fa verify --id %s --code <code>",
		v.Email, v.VerificationID)
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
