package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zoro24a/bonafide-api/internal/academic"
	"github.com/zoro24a/bonafide-api/internal/dto"
	"github.com/zoro24a/bonafide-api/internal/models"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
)

type batchRepository interface {
	Create(ctx context.Context, batch *models.Batch) error
	Update(ctx context.Context, batch *models.Batch) error
	GetByID(ctx context.Context, id string) (*models.Batch, error)
	List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error)
}

// BatchService manages batches and decorates them with calendar-derived
// semester fields on every read.
type BatchService struct {
	repo      batchRepository
	calendar  *academic.Calculator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewBatchService constructs a BatchService.
func NewBatchService(repo batchRepository, calendar *academic.Calculator, validate *validator.Validate, logger *zap.Logger) *BatchService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if calendar == nil {
		calendar = academic.NewCalculator(logger)
	}
	return &BatchService{repo: repo, calendar: calendar, validator: validate, logger: logger}
}

// Create registers a new batch. The name must encode an academic-year range
// so the calendar derivation can work from it.
func (s *BatchService) Create(ctx context.Context, payload dto.CreateBatchPayload) (*models.Batch, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	name := strings.TrimSpace(payload.Name)
	if _, ok := academic.StartYear(name); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch name must follow the <start>-<end> academic year format")
	}

	batch := &models.Batch{
		Name:         name,
		Section:      trimPtr(payload.Section),
		DepartmentID: payload.DepartmentID,
		TutorID:      trimPtr(payload.TutorID),
		Status:       models.BatchStatusActive,
	}
	if err := s.repo.Create(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create batch")
	}
	s.decorate(batch)
	s.logger.Info("batch created", zap.String("batch_id", batch.ID), zap.String("name", batch.Name))
	return batch, nil
}

// Update edits a batch, including setting or clearing the semester
// override escape hatch.
func (s *BatchService) Update(ctx context.Context, id string, payload dto.UpdateBatchPayload) (*models.Batch, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch payload")
	}
	batch, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(payload.Name)
	if _, ok := academic.StartYear(name); !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch name must follow the <start>-<end> academic year format")
	}

	batch.Name = name
	batch.Section = trimPtr(payload.Section)
	batch.DepartmentID = payload.DepartmentID
	batch.TutorID = trimPtr(payload.TutorID)
	batch.Status = models.BatchStatus(payload.Status)
	batch.SemesterOverride = payload.SemesterOverride
	if err := s.repo.Update(ctx, batch); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update batch")
	}
	s.decorate(batch)
	return batch, nil
}

// Get fetches one batch with derived calendar fields.
func (s *BatchService) Get(ctx context.Context, id string) (*models.Batch, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "batch id is required")
	}
	batch, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "batch not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch batch")
	}
	s.decorate(batch)
	return batch, nil
}

// List returns batches matching the filter, each with derived fields.
func (s *BatchService) List(ctx context.Context, filter models.BatchFilter) ([]models.Batch, error) {
	batches, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list batches")
	}
	for i := range batches {
		s.decorate(&batches[i])
	}
	return batches, nil
}

// decorate fills the calendar-derived fields. An operator override pins
// the semester but the date window still follows the name-derived calendar.
func (s *BatchService) decorate(batch *models.Batch) {
	semester := s.calendar.CurrentSemesterNow(batch.Name)
	if batch.SemesterOverride != nil {
		semester = *batch.SemesterOverride
	}
	batch.CurrentSemester = semester
	batch.SemesterStart, batch.SemesterEnd = s.calendar.SemesterDateRange(batch.Name, semester)
}
