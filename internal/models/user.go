package models

// UserRole represents the roles an actor can carry on a capstone project.
type UserRole string

const (
	RoleStudent     UserRole = "STUDENT"
	RoleAdviser     UserRole = "ADVISER"
	RolePanelist    UserRole = "PANELIST"
	RoleCoordinator UserRole = "COORDINATOR"
)

// Valid reports whether the role belongs to the closed role set.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleAdviser, RolePanelist, RoleCoordinator:
		return true
	}
	return false
}

// UserContact is the slice of the users table needed to address email.
type UserContact struct {
	ID       string   `db:"id" json:"id"`
	Email    string   `db:"email" json:"email"`
	FullName string   `db:"full_name" json:"fullName"`
	Role     UserRole `db:"role" json:"role"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
