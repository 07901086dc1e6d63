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

type studentRepository interface {
	Create(ctx context.Context, student *models.Student) error
	Update(ctx context.Context, student *models.Student) error
	GetDetails(ctx context.Context, id string) (*models.StudentDetails, error)
	GetDetailsByProfile(ctx context.Context, profileID string) (*models.StudentDetails, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetails, error)
}

// StudentService manages student records and decorates reads with the
// derived current semester.
type StudentService struct {
	repo      studentRepository
	calendar  *academic.Calculator
	validator *validator.Validate
	logger    *zap.Logger
}

// NewStudentService constructs a StudentService.
func NewStudentService(repo studentRepository, calendar *academic.Calculator, validate *validator.Validate, logger *zap.Logger) *StudentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if calendar == nil {
		calendar = academic.NewCalculator(logger)
	}
	return &StudentService{repo: repo, calendar: calendar, validator: validate, logger: logger}
}

// Create registers a student under an existing profile.
func (s *StudentService) Create(ctx context.Context, payload dto.CreateStudentPayload) (*models.StudentDetails, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid student payload")
	}
	student := &models.Student{
		ProfileID:      payload.ProfileID,
		RegisterNumber: strings.TrimSpace(payload.RegisterNumber),
		ParentName:     strings.TrimSpace(payload.ParentName),
		Gender:         payload.Gender,
		BatchID:        trimPtr(payload.BatchID),
	}
	if err := s.repo.Create(ctx, student); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
	}
	s.logger.Info("student created",
		zap.String("student_id", student.ID),
		zap.String("register_number", student.RegisterNumber))
	return s.Get(ctx, student.ID)
}

// Get fetches a student with joined profile, batch and department fields.
func (s *StudentService) Get(ctx context.Context, id string) (*models.StudentDetails, error) {
	if strings.TrimSpace(id) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "student id is required")
	}
	details, err := s.repo.GetDetails(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrMissingStudent, "student not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	s.decorate(details)
	return details, nil
}

// GetByProfile resolves the student record belonging to an authenticated
// profile.
func (s *StudentService) GetByProfile(ctx context.Context, profileID string) (*models.StudentDetails, error) {
	details, err := s.repo.GetDetailsByProfile(ctx, profileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrMissingStudent, "no student record for this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch student")
	}
	s.decorate(details)
	return details, nil
}

// List returns students matching the filter.
func (s *StudentService) List(ctx context.Context, filter models.StudentFilter) ([]models.StudentDetails, error) {
	students, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}
	for i := range students {
		s.decorate(&students[i])
	}
	return students, nil
}

func (s *StudentService) decorate(details *models.StudentDetails) {
	if details.SemesterOverride != nil {
		details.CurrentSemester = *details.SemesterOverride
		return
	}
	if details.BatchName != nil {
		details.CurrentSemester = s.calendar.CurrentSemesterNow(*details.BatchName)
	}
}
