package authz

import (
	"encoding/json"
)

// User is the authenticated principal as the console sees it.
type User struct {
	ID               ID     `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Username         string `json:"username,omitempty"`
	Status           string `json:"status,omitempty"`
	TwoFactorEnabled bool   `json:"two_factor_enabled,omitempty"`
	Roles            Roles  `json:"roles"`
}

// UnmarshalJSON accepts the `roles` list and, for older payloads, a single
// `role` field. Roles are normalized so the result is never empty.
func (u *User) UnmarshalJSON(data []byte) error {
	type plain User
	var wire struct {
		plain
		Role Roles `json:"role"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	*u = User(wire.plain)
	if len(u.Roles) == 0 && len(wire.Role) > 0 {
		u.Roles = wire.Role
	}
	u.Roles = NormalizeRoles(u.Roles)
	return nil
}

// Normalize returns a copy of u with normalized roles.
func (u User) Normalize() User {
	u.Roles = NormalizeRoles(u.Roles)
	return u
}

// RoleNames lists the names of u's roles in order.
func (u *User) RoleNames() []string {
	if u == nil {
		return nil
	}
	names := make([]string, 0, len(u.Roles))
	for _, role := range u.Roles {
		names = append(names, role.RoleName())
	}
	return names
}
