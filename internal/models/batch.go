package models

import "time"

// BatchStatus marks whether a batch is still enrolled.
type BatchStatus string

const (
	BatchStatusActive   BatchStatus = "Active"
	BatchStatusInactive BatchStatus = "Inactive"
)

// Batch is a cohort of students sharing an academic-year range, e.g.
// "2023-2027 A". The semester fields are derived from the name and the
// current date on every read; SemesterOverride pins them when an operator
// explicitly corrects the calendar.
type Batch struct {
	ID               string      `db:"id" json:"id"`
	Name             string      `db:"name" json:"name"`
	Section          *string     `db:"section" json:"section,omitempty"`
	DepartmentID     string      `db:"department_id" json:"department_id"`
	TutorID          *string     `db:"tutor_id" json:"tutor_id,omitempty"`
	Status           BatchStatus `db:"status" json:"status"`
	SemesterOverride *int        `db:"semester_override" json:"semester_override,omitempty"`
	CreatedAt        time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time   `db:"updated_at" json:"updated_at"`

	// Derived, populated by the service layer.
	CurrentSemester int       `db:"-" json:"current_semester"`
	SemesterStart   time.Time `db:"-" json:"semester_start"`
	SemesterEnd     time.Time `db:"-" json:"semester_end"`
}

// BatchFilter constrains batch listing queries.
type BatchFilter struct {
	DepartmentID string
	TutorID      string
	Status       BatchStatus
	Page         int
	PageSize     int
}
