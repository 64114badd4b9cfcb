package models

import "fmt"

// Role is the closed set of account roles.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole converts user input into a Role. An empty string yields RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "":
		return RoleUser, nil
	case RoleUser, RoleAdmin:
		return Role(s), nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

// IsAdmin reports whether the role grants access to admin-only operations.
func (r Role) IsAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleUser:
		return false
	}
	return false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	}
	return false
}
