package models

import "fmt"

// Role is one of a closed set of account roles. Adding a role means adding a
// constant here and a migration extending the user_roles check constraint.
type Role string

const (
	RoleDeveloper     Role = "Developer"
	RoleAdmin         Role = "Admin"
	RoleRegionalAdmin Role = "RegionalAdmin"
	RoleUser          Role = "User"
	RoleVerified      Role = "Verified"
	RoleTester        Role = "Tester"
)

// AllRoles lists every known role.
var AllRoles = []Role{RoleDeveloper, RoleAdmin, RoleRegionalAdmin, RoleUser, RoleVerified, RoleTester}

// ParseRole maps a role name to a Role, rejecting unknown names.
func ParseRole(s string) (Role, error) {
	for _, r := range AllRoles {
		if string(r) == s {
			return r, nil
		}
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// HasRole reports whether roles contains want.
func HasRole(roles []Role, want Role) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}
