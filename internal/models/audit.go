package models

import "time"

// Audit actions recorded by the request workflow.
const (
	AuditActionRequestCreate = "request.create"
	AuditActionRequestReview = "request.review"
	AuditActionCertificate   = "certificate.export"
	AuditActionLogin         = "auth.login"
)

// AuditLog captures who did what to which resource.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	ProfileID  *string   `db:"profile_id" json:"profile_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"-"`
	UserAgent  string    `db:"user_agent" json:"-"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
