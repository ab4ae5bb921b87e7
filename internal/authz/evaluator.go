// Package authz answers permission and role questions about a User.
//
// Every function here is pure: no I/O, no logging, no shared state. A user
// holds one or more roles, each either a StructuredRole with an explicit
// permission list or a LegacyRole whose grant comes from a fixed table.
// Roles are evaluated independently and the results are OR-ed.
package authz

import (
	"sort"
	"strings"
)

// HasPermission reports whether any of the user's roles grants code.
func HasPermission(user *User, code string) bool {
	if user == nil {
		return false
	}
	for _, role := range user.Roles {
		if roleGrants(role, code) {
			return true
		}
	}
	return false
}

// HasRole reports whether the user holds a role named name.
func HasRole(user *User, name string) bool {
	if user == nil {
		return false
	}
	for _, role := range user.Roles {
		if role != nil && role.RoleName() == name {
			return true
		}
	}
	return false
}

// HasAnyRole reports whether the user holds at least one of names.
func HasAnyRole(user *User, names ...string) bool {
	for _, name := range names {
		if HasRole(user, name) {
			return true
		}
	}
	return false
}

// IsAdmin is recomputed on every call, so a role change is visible
// immediately.
func IsAdmin(user *User) bool {
	return HasAnyRole(user, RoleSuperAdmin, RoleAdmin)
}

// AllPermissions returns the de-duplicated union of every role's grant.
// Roles that grant everything contribute Wildcard plus the whole Catalogue.
func AllPermissions(user *User) map[string]struct{} {
	out := make(map[string]struct{})
	if user == nil {
		return out
	}
	for _, role := range user.Roles {
		for _, code := range rolePermissions(role) {
			out[code] = struct{}{}
		}
	}
	return out
}

// PermissionList is AllPermissions as a sorted slice.
func PermissionList(user *User) []string {
	set := AllPermissions(user)
	out := make([]string, 0, len(set))
	for code := range set {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// roleGrants is the single derivation rule for one role.
func roleGrants(role Role, code string) bool {
	switch r := role.(type) {
	case StructuredRole:
		for _, p := range r.Permissions {
			if p == code {
				return true
			}
		}
		return false
	case LegacyRole:
		switch string(r) {
		case RoleSuperAdmin:
			return true
		case RoleAdmin:
			_, ok := adminPermissions[code]
			return ok
		case RoleInspector:
			return strings.HasSuffix(code, ViewSuffix)
		default:
			return false
		}
	default:
		return false
	}
}

// rolePermissions enumerates a role's grant. For rule-based legacy roles
// the enumeration is bounded by the Catalogue.
func rolePermissions(role Role) []string {
	switch r := role.(type) {
	case StructuredRole:
		return r.Permissions
	case LegacyRole:
		switch string(r) {
		case RoleSuperAdmin:
			return append([]string{Wildcard}, Catalogue...)
		case RoleAdmin:
			return AdminPermissions()
		case RoleInspector:
			var out []string
			for _, code := range Catalogue {
				if roleGrants(r, code) {
					out = append(out, code)
				}
			}
			return out
		default:
			return nil
		}
	default:
		return nil
	}
}
