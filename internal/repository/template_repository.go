package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/zoro24a/bonafide-api/internal/models"
)

const templateColumns = `id, name, template_type, content, file_url, created_at, updated_at`

// TemplateRepository persists certificate templates.
type TemplateRepository struct {
	db *sqlx.DB
}

// NewTemplateRepository constructs the repository.
func NewTemplateRepository(db *sqlx.DB) *TemplateRepository {
	return &TemplateRepository{db: db}
}

// Create inserts a template row.
func (r *TemplateRepository) Create(ctx context.Context, template *models.CertificateTemplate) error {
	if template.ID == "" {
		template.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if template.CreatedAt.IsZero() {
		template.CreatedAt = now
	}
	template.UpdatedAt = now
	const query = `INSERT INTO templates
	(id, name, template_type, content, file_url, created_at, updated_at)
	VALUES (:id, :name, :template_type, :content, :file_url, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("create template: %w", err)
	}
	return nil
}

// Update rewrites the template.
func (r *TemplateRepository) Update(ctx context.Context, template *models.CertificateTemplate) error {
	template.UpdatedAt = time.Now().UTC()
	const query = `UPDATE templates SET
	name = :name,
	template_type = :template_type,
	content = :content,
	file_url = :file_url,
	updated_at = :updated_at
	WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, template); err != nil {
		return fmt.Errorf("update template: %w", err)
	}
	return nil
}

// Delete removes a template row.
func (r *TemplateRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM templates WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// GetByID fetches a template.
func (r *TemplateRepository) GetByID(ctx context.Context, id string) (*models.CertificateTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM templates WHERE id = $1`, templateColumns)
	var template models.CertificateTemplate
	if err := r.db.GetContext(ctx, &template, query, id); err != nil {
		return nil, err
	}
	return &template, nil
}

// List returns all templates ordered by name.
func (r *TemplateRepository) List(ctx context.Context) ([]models.CertificateTemplate, error) {
	query := fmt.Sprintf(`SELECT %s FROM templates ORDER BY name`, templateColumns)
	var templates []models.CertificateTemplate
	if err := r.db.SelectContext(ctx, &templates, query); err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	return templates, nil
}
