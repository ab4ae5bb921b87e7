package authz

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func userWith(roles ...Role) *User {
	return &User{ID: "1", Name: "Test", Email: "test@example.com", Roles: roles}
}

func TestHasPermission_Structured(t *testing.T) {
	user := userWith(StructuredRole{ID: "7", Name: "support", Permissions: []string{PermUsersView, PermDevicesView}})

	assert.True(t, HasPermission(user, PermUsersView))
	assert.True(t, HasPermission(user, PermDevicesView))
	assert.False(t, HasPermission(user, PermUsersManage))
}

func TestHasPermission_Legacy(t *testing.T) {
	tests := []struct {
		name string
		role LegacyRole
		code string
		want bool
	}{
		{"super admin grants catalogue code", RoleSuperAdmin, PermRolesManage, true},
		{"super admin grants unknown code", RoleSuperAdmin, "billing.refund", true},
		{"admin grants management", RoleAdmin, PermUsersManage, true},
		{"admin grants client registry", RoleAdmin, PermClientsManage, true},
		{"admin cannot manage roles", RoleAdmin, PermRolesManage, false},
		{"admin cannot grant unknown", RoleAdmin, "billing.refund", false},
		{"inspector grants view", RoleInspector, PermAuditView, true},
		{"inspector grants any view suffix", RoleInspector, "x.view", true},
		{"inspector denies manage", RoleInspector, "x.manage", false},
		{"unknown legacy grants nothing", "operator", PermUsersView, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasPermission(userWith(tt.role), tt.code))
		})
	}
}

func TestHasPermission_RolesEvaluatedIndependently(t *testing.T) {
	user := userWith(
		StructuredRole{Name: "auditor", Permissions: []string{PermAuditView}},
		LegacyRole(RoleInspector),
	)

	assert.False(t, HasPermission(user, PermRolesManage))
	assert.True(t, HasPermission(user, PermUsersView), "inspector rule still applies to its own role")

	withAdmin := userWith(
		StructuredRole{Name: "auditor", Permissions: []string{PermAuditView}},
		LegacyRole(RoleSuperAdmin),
	)
	assert.True(t, HasPermission(withAdmin, PermRolesManage), "OR across roles")
}

func TestHasPermission_NilUser(t *testing.T) {
	assert.False(t, HasPermission(nil, PermUsersView))
	assert.False(t, HasRole(nil, RoleAdmin))
	assert.False(t, IsAdmin(nil))
	assert.Empty(t, AllPermissions(nil))
}

func TestHasRole(t *testing.T) {
	user := userWith(
		StructuredRole{ID: "3", Name: "auditor"},
		LegacyRole(RoleInspector),
	)

	assert.True(t, HasRole(user, "auditor"))
	assert.True(t, HasRole(user, RoleInspector))
	assert.False(t, HasRole(user, RoleAdmin))

	assert.True(t, HasAnyRole(user, RoleAdmin, "auditor"))
	assert.False(t, HasAnyRole(user, RoleAdmin, RoleSuperAdmin))
	assert.False(t, HasAnyRole(user))
}

func TestIsAdminIsDerived(t *testing.T) {
	user := userWith(LegacyRole(RoleInspector))
	assert.False(t, IsAdmin(user))

	user.Roles = append(user.Roles, StructuredRole{Name: RoleAdmin})
	assert.True(t, IsAdmin(user), "role changes are visible without rebuilding the session")

	user.Roles = Roles{LegacyRole(RoleSuperAdmin)}
	assert.True(t, IsAdmin(user))
}

func TestAllPermissions(t *testing.T) {
	user := userWith(
		StructuredRole{Name: "ops", Permissions: []string{PermDevicesManage, PermUsersView}},
		LegacyRole(RoleInspector),
	)

	got := PermissionList(user)

	assert.Contains(t, got, PermDevicesManage)
	assert.Contains(t, got, PermUsersView)
	assert.Contains(t, got, PermAuditView)
	assert.NotContains(t, got, PermUsersManage)

	seen := map[string]int{}
	for _, code := range got {
		seen[code]++
	}
	assert.Equal(t, 1, seen[PermUsersView], "union is de-duplicated")
}

func TestAllPermissions_SuperAdmin(t *testing.T) {
	got := AllPermissions(userWith(LegacyRole(RoleSuperAdmin)))

	assert.Contains(t, got, Wildcard)
	for _, code := range Catalogue {
		assert.Contains(t, got, code)
	}
}

func TestAllPermissions_AdminMatchesHasPermission(t *testing.T) {
	user := userWith(LegacyRole(RoleAdmin))
	set := AllPermissions(user)

	for _, code := range Catalogue {
		_, listed := set[code]
		assert.Equal(t, HasPermission(user, code), listed, code)
	}
}
