package dto

import "github.com/zoro24a/bonafide-api/internal/models"

// ReviewAction selects what a reviewer does with a pending request.
type ReviewAction string

const (
	ReviewActionForward ReviewAction = "forward"
	ReviewActionReturn  ReviewAction = "return"
)

// CreateRequestPayload is the student's certificate application.
type CreateRequestPayload struct {
	Type    string  `json:"type" validate:"required"`
	SubType *string `json:"sub_type"`
	Reason  string  `json:"reason" validate:"required"`
}

// ReviewRequestPayload carries a reviewer decision. TemplateID is required
// on the tutor forward; ReturnReason on any return.
type ReviewRequestPayload struct {
	Action       ReviewAction `json:"action" validate:"required,oneof=forward return"`
	TemplateID   string       `json:"template_id"`
	ReturnReason string       `json:"return_reason"`
}

// RequestQuery captures list filters from query parameters.
type RequestQuery struct {
	Status   []models.RequestStatus
	Page     int
	PageSize int
}

// ReviewResult is returned from a review decision. CertificateURL is set
// only when the decision approved the request and the certificate export
// produced a signed download link.
type ReviewResult struct {
	Request        *models.Request `json:"request"`
	CertificateURL string          `json:"certificate_url,omitempty"`
}

// CertificatePayload is the rendered certificate returned to callers. For
// html templates Body carries the text; for file-backed templates FileURL
// points at the stored document instead.
type CertificatePayload struct {
	RequestID   string `json:"request_id"`
	Body        string `json:"body,omitempty"`
	FileURL     string `json:"file_url,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}
