package models

type Role string

const (
	RoleSupervisor Role = "Orthopedagoog"
	RoleTeen       Role = "Tiener"
	RoleChild      Role = "Kind"
)

func (r Role) IsSupervisor() bool {
	return r == RoleSupervisor
}

func (r Role) IsTeenOrChild() bool {
	return r == RoleTeen || r == RoleChild
}

type AppUser struct {
	ID       string `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Email    string `json:"email" db:"email"`
	Subject  string `json:"subject" db:"subject"`
	Role     Role   `json:"role" db:"role"`
}

// Caller is the authenticated user a request is made on behalf of.
type Caller struct {
	ID       string `validate:"required"`
	Username string `validate:"required"`
	Subject  string
	Role     Role
}
