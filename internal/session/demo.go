package session

import (
	"strings"

	"github.com/felixgeelhaar/adminconsole/internal/authz"
)

// Demo account accepted without contacting the server when
// Options.DemoLogin is set.
const (
	DemoEmail    = "demo@example.com"
	DemoPassword = "demo"
	DemoToken    = "demo-token"
)

// DemoUser returns the fixed user the demo login produces.
func DemoUser() *authz.User {
	return &authz.User{
		ID:    "1",
		Name:  "Demo User",
		Email: DemoEmail,
		Roles: authz.Roles{authz.LegacyRole(authz.RoleAdmin)},
	}
}

func isDemoCredentials(email, password string) bool {
	return strings.EqualFold(strings.TrimSpace(email), DemoEmail) && password == DemoPassword
}
