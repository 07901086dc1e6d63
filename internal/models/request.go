package models

import "time"

// RequestStatus is the workflow state of a certificate request. The literal
// strings are part of the external contract and are matched case-sensitively.
type RequestStatus string

const (
	StatusPendingTutor      RequestStatus = "Pending Tutor Approval"
	StatusPendingHOD        RequestStatus = "Pending HOD Approval"
	StatusPendingAdmin      RequestStatus = "Pending Admin Approval"
	StatusPendingPrincipal  RequestStatus = "Pending Principal Approval"
	StatusApproved          RequestStatus = "Approved"
	StatusReturnedTutor     RequestStatus = "Returned by Tutor"
	StatusReturnedHOD       RequestStatus = "Returned by HOD"
	StatusReturnedAdmin     RequestStatus = "Returned by Admin"
	StatusReturnedPrincipal RequestStatus = "Returned by Principal"
)

// Terminal reports whether no further transition is allowed from the status.
// A returned request stays as history; resubmission creates a new request.
func (s RequestStatus) Terminal() bool {
	switch s {
	case StatusApproved, StatusReturnedTutor, StatusReturnedHOD, StatusReturnedAdmin, StatusReturnedPrincipal:
		return true
	}
	return false
}

// Request is a single bonafide certificate application.
type Request struct {
	ID             string        `db:"id" json:"id"`
	StudentID      string        `db:"student_id" json:"student_id"`
	SubmissionDate time.Time     `db:"submission_date" json:"submission_date"`
	Type           string        `db:"type" json:"type"`
	SubType        *string       `db:"sub_type" json:"sub_type,omitempty"`
	Reason         string        `db:"reason" json:"reason"`
	Status         RequestStatus `db:"status" json:"status"`
	TemplateID     *string       `db:"template_id" json:"template_id,omitempty"`
	ReturnReason   *string       `db:"return_reason" json:"return_reason,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// RequestDetail joins the request with display fields used by dashboards.
type RequestDetail struct {
	Request
	StudentName    string  `db:"student_name" json:"student_name"`
	RegisterNumber string  `db:"register_number" json:"register_number"`
	BatchName      *string `db:"batch_name" json:"batch_name,omitempty"`
	DepartmentName *string `db:"department_name" json:"department_name,omitempty"`

	// NextStatuses lists the transitions the viewing actor may take on
	// this row. Derived per viewer, never stored.
	NextStatuses []RequestStatus `db:"-" json:"next_statuses,omitempty"`
}

// RequestFilter constrains request listing queries.
type RequestFilter struct {
	StudentID    string
	BatchID      string
	TutorID      string
	DepartmentID string
	Status       []RequestStatus
	Page         int
	PageSize     int
}
