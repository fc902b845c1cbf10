package auth

import "slices"

// Permission is a named capability of a consumer role.
type Permission string

const (
	// PermDashboardRead covers point connectivity, pushed or polled.
	PermDashboardRead Permission = "dashboard:read"
	// PermEventsRead covers the access log, which carries presented codes.
	PermEventsRead Permission = "events:read"
)

var rolePermissions = map[string][]Permission{
	RoleViewer: {PermDashboardRead},
	RoleOwner:  {PermDashboardRead, PermEventsRead},
}

// KnownRole reports whether role is one this server grants permissions to.
func KnownRole(role string) bool {
	_, ok := rolePermissions[role]
	return ok
}

// HasPermission reports whether role grants perm.  Unknown roles grant
// nothing.
func HasPermission(role string, perm Permission) bool {
	return slices.Contains(rolePermissions[role], perm)
}

// Can is HasPermission for the principal's role.
func (p Principal) Can(perm Permission) bool {
	return HasPermission(p.Role, perm)
}
