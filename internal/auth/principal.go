package auth

import "fmt"

// Role identifies which account collection a principal belongs to
type Role string

const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
	RoleRider Role = "rider"
)

// ParseRole validates a role claim against the known roles
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleUser, RoleRider:
		return Role(s), nil
	default:
		return "", fmt.Errorf("invalid role '%s'. Allowed roles: admin, user, rider", s)
	}
}

// Principal is the authenticated caller extracted from a verified token
type Principal struct {
	ID    string
	Email string
	Role  Role
}

// Is reports whether the principal acts in the given role
func (p Principal) Is(role Role) bool {
	return p.Role == role
}
