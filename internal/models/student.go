package models

import (
	"strings"
	"time"
)

// Student holds the student-only fields layered on top of a profile.
type Student struct {
	ID             string    `db:"id" json:"id"`
	ProfileID      string    `db:"profile_id" json:"profile_id"`
	RegisterNumber string    `db:"register_number" json:"register_number"`
	ParentName     string    `db:"parent_name" json:"parent_name"`
	Gender         string    `db:"gender" json:"gender"`
	BatchID        *string   `db:"batch_id" json:"batch_id,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// StudentDetails composes profile, student and resolved batch/department
// references. This is the record the certificate renderer consumes; the
// CurrentSemester field is recomputed whenever the row is read, never stored.
type StudentDetails struct {
	Student
	FirstName        string  `db:"first_name" json:"first_name"`
	LastName         string  `db:"last_name" json:"last_name"`
	Email            string  `db:"email" json:"email"`
	Phone            string  `db:"phone" json:"phone"`
	BatchName        *string `db:"batch_name" json:"batch_name,omitempty"`
	Section          *string `db:"section" json:"section,omitempty"`
	SemesterOverride *int    `db:"semester_override" json:"semester_override,omitempty"`
	DepartmentID     *string `db:"department_id" json:"department_id,omitempty"`
	DepartmentName   *string `db:"department_name" json:"department_name,omitempty"`
	TutorID          *string `db:"tutor_id" json:"tutor_id,omitempty"`
	HODID            *string `db:"hod_id" json:"hod_id,omitempty"`
	CurrentSemester  int     `db:"-" json:"current_semester"`
}

// FullName joins first and last name, trimming the gap when one is empty.
func (s StudentDetails) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentFilter encapsulates allowed search parameters for listing students.
type StudentFilter struct {
	Search       string
	BatchID      string
	DepartmentID string
	Page         int
	PageSize     int
}
