package enums

// UserRole scopes what a caller may do against the wallet API.
type UserRole string

const (
	RoleUser    UserRole = "user"
	RoleAdmin   UserRole = "admin"
	RoleService UserRole = "service"
)

func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleService:
		return true
	}
	return false
}

func (r UserRole) String() string { return string(r) }
