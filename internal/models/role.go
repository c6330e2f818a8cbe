package models

// UserRole is the marketplace role of the acting user.
type UserRole string

const (
	UserRoleWorker     UserRole = "worker"
	UserRoleEmployer   UserRole = "employer"
	UserRoleAccountant UserRole = "accountant"
	UserRoleAdmin      UserRole = "admin"
)

// Valid reports whether r is a known role.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleWorker, UserRoleEmployer, UserRoleAccountant, UserRoleAdmin:
		return true
	}
	return false
}
