package domain

import "time"

// Role enumerates caller roles.
type Role string

const (
	RoleRequester  Role = "requester"
	RoleSupport    Role = "support"
	RoleSupervisor Role = "supervisor"
	RoleAdmin      Role = "admin"
)

// IsStaff reports whether the role may act on tickets.
func (r Role) IsStaff() bool {
	return r == RoleSupport || r == RoleSupervisor || r == RoleAdmin
}

// Elevated reports whether the role bypasses the ownership check.
func (r Role) Elevated() bool {
	return r == RoleSupervisor || r == RoleAdmin
}

// ValidRole reports whether r is a known role.
func ValidRole(r Role) bool {
	switch r {
	case RoleRequester, RoleSupport, RoleSupervisor, RoleAdmin:
		return true
	}
	return false
}

// Identity is the authenticated caller, passed explicitly into every core
// operation. IsOnline comes from the presence provider at request time.
type Identity struct {
	UserID   string
	Role     Role
	IsOnline bool
}

// User is the stored account backing an Identity.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Branch       string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
