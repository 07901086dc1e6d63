package dto

// CreateTemplatePayload creates or replaces a certificate template. Content
// is required for html templates, FileURL for pdf and word templates; the
// service enforces the mutual exclusivity.
type CreateTemplatePayload struct {
	Name         string  `json:"name" validate:"required"`
	TemplateType string  `json:"template_type" validate:"required,oneof=html pdf word"`
	Content      *string `json:"content"`
	FileURL      *string `json:"file_url"`
}

// UpdateTemplatePayload mirrors the create payload for updates.
type UpdateTemplatePayload = CreateTemplatePayload
