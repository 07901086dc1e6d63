package dto

// CreateBatchPayload registers a new batch. Name must follow the
// "<start>-<end>" academic-year format, optionally with a section suffix.
type CreateBatchPayload struct {
	Name         string  `json:"name" validate:"required"`
	Section      *string `json:"section"`
	DepartmentID string  `json:"department_id" validate:"required"`
	TutorID      *string `json:"tutor_id"`
}

// UpdateBatchPayload edits a batch. SemesterOverride pins the derived
// semester when the calendar derivation is wrong for this cohort; clearing
// it resumes derivation.
type UpdateBatchPayload struct {
	Name             string  `json:"name" validate:"required"`
	Section          *string `json:"section"`
	DepartmentID     string  `json:"department_id" validate:"required"`
	TutorID          *string `json:"tutor_id"`
	Status           string  `json:"status" validate:"required,oneof=Active Inactive"`
	SemesterOverride *int    `json:"semester_override" validate:"omitempty,min=1,max=8"`
}

// CreateStudentPayload registers a student under an existing profile.
type CreateStudentPayload struct {
	ProfileID      string  `json:"profile_id" validate:"required"`
	RegisterNumber string  `json:"register_number" validate:"required"`
	ParentName     string  `json:"parent_name"`
	Gender         string  `json:"gender" validate:"required,oneof=Male Female Other"`
	BatchID        *string `json:"batch_id"`
}

// DashboardSummary aggregates request counts for a role's scope.
type DashboardSummary struct {
	Scope    string         `json:"scope"`
	Counts   map[string]int `json:"counts"`
	Total    int            `json:"total"`
	Pending  int            `json:"pending"`
	Approved int            `json:"approved"`
	Returned int            `json:"returned"`
}
