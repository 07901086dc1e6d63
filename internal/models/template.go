package models

import "time"

// TemplateType selects how a certificate template is stored and rendered.
type TemplateType string

const (
	TemplateTypeHTML TemplateType = "html"
	TemplateTypePDF  TemplateType = "pdf"
	TemplateTypeWord TemplateType = "word"
)

// CertificateTemplate is a named document pattern. Exactly one of Content and
// FileURL is populated: html templates carry placeholder text inline, pdf and
// word templates reference an uploaded file.
type CertificateTemplate struct {
	ID           string       `db:"id" json:"id"`
	Name         string       `db:"name" json:"name"`
	TemplateType TemplateType `db:"template_type" json:"template_type"`
	Content      *string      `db:"content" json:"content,omitempty"`
	FileURL      *string      `db:"file_url" json:"file_url,omitempty"`
	CreatedAt    time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at" json:"updated_at"`
}

// Renderable reports whether the template body is produced by the text
// renderer. Non-html templates are served from their stored file instead.
func (t CertificateTemplate) Renderable() bool {
	return t.TemplateType == TemplateTypeHTML
}
