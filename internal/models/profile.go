package models

import "time"

// Role represents the reviewing roles in the approval chain plus the
// supporting back-office roles.
type Role string

const (
	RoleStudent   Role = "student"
	RoleTutor     Role = "tutor"
	RoleHOD       Role = "hod"
	RoleAdmin     Role = "admin"
	RolePrincipal Role = "principal"
	RoleOffice    Role = "office"
)

// ValidRole reports whether the string is a known role literal.
func ValidRole(r Role) bool {
	switch r {
	case RoleStudent, RoleTutor, RoleHOD, RoleAdmin, RolePrincipal, RoleOffice:
		return true
	}
	return false
}

// Profile represents an application account stored in the profiles table.
type Profile struct {
	ID           string     `db:"id" json:"id"`
	Email        string     `db:"email" json:"email"`
	PasswordHash string     `db:"password_hash" json:"-"`
	FirstName    string     `db:"first_name" json:"first_name"`
	LastName     string     `db:"last_name" json:"last_name"`
	Phone        string     `db:"phone" json:"phone"`
	Role         Role       `db:"role" json:"role"`
	DepartmentID *string    `db:"department_id" json:"department_id,omitempty"`
	Active       bool       `db:"active" json:"active"`
	LastLogin    *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
