package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zoro24a/bonafide-api/internal/dto"
	"github.com/zoro24a/bonafide-api/internal/models"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
)

type templateRepository interface {
	Create(ctx context.Context, template *models.CertificateTemplate) error
	Update(ctx context.Context, template *models.CertificateTemplate) error
	Delete(ctx context.Context, id string) error
	GetByID(ctx context.Context, id string) (*models.CertificateTemplate, error)
	List(ctx context.Context) ([]models.CertificateTemplate, error)
}

// TemplateService manages certificate templates.
type TemplateService struct {
	repo      templateRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTemplateService constructs a TemplateService.
func NewTemplateService(repo templateRepository, validate *validator.Validate, logger *zap.Logger) *TemplateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &TemplateService{repo: repo, validator: validate, logger: logger}
}

// Create validates and stores a new template.
func (s *TemplateService) Create(ctx context.Context, payload dto.CreateTemplatePayload) (*models.CertificateTemplate, error) {
	template, err := s.buildTemplate(payload)
	if err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create template")
	}
	s.logger.Info("template created",
		zap.String("template_id", template.ID),
		zap.String("template_type", string(template.TemplateType)))
	return template, nil
}

// Update replaces an existing template's fields.
func (s *TemplateService) Update(ctx context.Context, id string, payload dto.UpdateTemplatePayload) (*models.CertificateTemplate, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	template, err := s.buildTemplate(payload)
	if err != nil {
		return nil, err
	}
	template.ID = existing.ID
	template.CreatedAt = existing.CreatedAt
	if err := s.repo.Update(ctx, template); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update template")
	}
	return template, nil
}

// Delete removes a template.
func (s *TemplateService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete template")
	}
	return nil
}

// Get fetches one template by id.
func (s *TemplateService) Get(ctx context.Context, id string) (*models.CertificateTemplate, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "template id is required")
	}
	template, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrMissingTemplate, "template not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch template")
	}
	return template, nil
}

// List returns all templates.
func (s *TemplateService) List(ctx context.Context) ([]models.CertificateTemplate, error) {
	templates, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list templates")
	}
	return templates, nil
}

// buildTemplate validates the payload and enforces that html templates carry
// inline content while pdf and word templates reference a stored file.
func (s *TemplateService) buildTemplate(payload dto.CreateTemplatePayload) (*models.CertificateTemplate, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}
	templateType := models.TemplateType(payload.TemplateType)
	content := trimPtr(payload.Content)
	fileURL := trimPtr(payload.FileURL)
	switch templateType {
	case models.TemplateTypeHTML:
		if content == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "html templates require content")
		}
		fileURL = nil
	case models.TemplateTypePDF, models.TemplateTypeWord:
		if fileURL == nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "file templates require a file_url")
		}
		content = nil
	}
	return &models.CertificateTemplate{
		Name:         strings.TrimSpace(payload.Name),
		TemplateType: templateType,
		Content:      content,
		FileURL:      fileURL,
	}, nil
}

func trimPtr(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
