package authz

// Permission codes known to the console. Codes follow `<area>.<action>`;
// `.view` codes are read-only.
const (
	PermUsersView         = "users.view"
	PermUsersManage       = "users.manage"
	PermRolesView         = "roles.view"
	PermRolesManage       = "roles.manage"
	PermPermissionsView   = "permissions.view"
	PermPermissionsManage = "permissions.manage"
	PermClientsView       = "clients.view"
	PermClientsManage     = "clients.manage"
	PermDevicesView       = "devices.view"
	PermDevicesManage     = "devices.manage"
	PermSessionsView      = "sessions.view"
	PermSessionsManage    = "sessions.manage"
	PermAuditView         = "audit.view"
)

// Wildcard is reported by AllPermissions for roles that grant everything.
const Wildcard = "*"

// ViewSuffix marks read-only permission codes.
const ViewSuffix = ".view"

// Legacy role names with hard-coded permission sets.
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
	RoleInspector  = "inspector"
)

// DefaultRoleName names the synthetic role given to users the server
// returned without any role.
const DefaultRoleName = "user"

// Catalogue lists every permission code the console knows about.
var Catalogue = []string{
	PermUsersView,
	PermUsersManage,
	PermRolesView,
	PermRolesManage,
	PermPermissionsView,
	PermPermissionsManage,
	PermClientsView,
	PermClientsManage,
	PermDevicesView,
	PermDevicesManage,
	PermSessionsView,
	PermSessionsManage,
	PermAuditView,
}

// adminPermissions is the fixed grant of the legacy "admin" role. Role and
// permission management stay with super admins.
var adminPermissions = map[string]struct{}{
	PermUsersView:       {},
	PermUsersManage:     {},
	PermRolesView:       {},
	PermPermissionsView: {},
	PermClientsView:     {},
	PermClientsManage:   {},
	PermDevicesView:     {},
	PermDevicesManage:   {},
	PermSessionsView:    {},
	PermSessionsManage:  {},
	PermAuditView:       {},
}

// AdminPermissions returns a copy of the legacy admin grant.
func AdminPermissions() []string {
	out := make([]string, 0, len(adminPermissions))
	for _, code := range Catalogue {
		if _, ok := adminPermissions[code]; ok {
			out = append(out, code)
		}
	}
	return out
}
