package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/zoro24a/bonafide-api/internal/dto"
	"github.com/zoro24a/bonafide-api/internal/lifecycle"
	"github.com/zoro24a/bonafide-api/internal/models"
	"github.com/zoro24a/bonafide-api/internal/repository"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
	"github.com/zoro24a/bonafide-api/pkg/export"
)

type requestStore interface {
	Create(ctx context.Context, request *models.Request) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error)
	ApplyTransition(ctx context.Context, params repository.TransitionParams) error
}

type studentResolver interface {
	GetDetailsByProfile(ctx context.Context, profileID string) (*models.StudentDetails, error)
}

type certificateProducer interface {
	Materialize(ctx context.Context, request *models.Request) (*dto.CertificatePayload, error)
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type transitionObserver interface {
	ObserveTransition(from, to models.RequestStatus)
}

type summaryInvalidator interface {
	Invalidate(ctx context.Context, scope string)
}

// RequestService orchestrates the certificate request lifecycle: it creates
// requests, scopes listings per role, and applies reviewer transitions with
// a compare-and-swap write so two concurrent reviewers cannot both win.
type RequestService struct {
	repo         requestStore
	students     studentResolver
	certificates certificateProducer
	audit        auditLogger
	metrics      transitionObserver
	summaries    summaryInvalidator
	validator    *validator.Validate
	logger       *zap.Logger
}

// RequestServiceOption configures the service.
type RequestServiceOption func(*RequestService)

// WithTransitionObserver attaches metrics instrumentation.
func WithTransitionObserver(observer transitionObserver) RequestServiceOption {
	return func(s *RequestService) {
		if observer != nil {
			s.metrics = observer
		}
	}
}

// WithSummaryInvalidation drops cached dashboard summaries when a request
// changes state. Scopes that cannot be derived here (tutor, department) age
// out via the cache TTL instead.
func WithSummaryInvalidation(invalidator summaryInvalidator) RequestServiceOption {
	return func(s *RequestService) {
		if invalidator != nil {
			s.summaries = invalidator
		}
	}
}

// NewRequestService constructs the service with defaults.
func NewRequestService(
	repo requestStore,
	students studentResolver,
	certificates certificateProducer,
	audit auditLogger,
	validate *validator.Validate,
	logger *zap.Logger,
	opts ...RequestServiceOption,
) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &RequestService{
		repo:         repo,
		students:     students,
		certificates: certificates,
		audit:        audit,
		validator:    validate,
		logger:       logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Create files a new certificate request for the acting student. Every
// request starts its life pending tutor approval.
func (s *RequestService) Create(ctx context.Context, payload dto.CreateRequestPayload, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleStudent {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only students submit certificate requests")
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	student, err := s.students.GetDetailsByProfile(ctx, actor.ProfileID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrMissingStudent
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
	}

	request := &models.Request{
		StudentID: student.ID,
		Type:      payload.Type,
		SubType:   payload.SubType,
		Reason:    payload.Reason,
		Status:    models.StatusPendingTutor,
	}
	if err := s.repo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.emitAudit(ctx, actor, models.AuditActionRequestCreate, request.ID, map[string]interface{}{
		"type":   request.Type,
		"status": request.Status,
	})
	s.invalidateSummaries(ctx, request.StudentID)
	return request, nil
}

// List returns the requests the actor may act on or follow. Reviewing roles
// default to their own pending queue when no status filter is given.
func (s *RequestService) List(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims) ([]models.RequestDetail, *models.Pagination, error) {
	if actor == nil {
		return nil, nil, appErrors.ErrUnauthorized
	}

	filter := models.RequestFilter{
		Status:   query.Status,
		Page:     query.Page,
		PageSize: query.PageSize,
	}

	switch actor.Role {
	case models.RoleStudent:
		student, err := s.students.GetDetailsByProfile(ctx, actor.ProfileID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, nil, appErrors.ErrMissingStudent
			}
			return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve student")
		}
		filter.StudentID = student.ID
	case models.RoleTutor:
		filter.TutorID = actor.ProfileID
		s.defaultPendingQueue(&filter, actor.Role)
	case models.RoleHOD:
		if actor.DepartmentID != nil {
			filter.DepartmentID = *actor.DepartmentID
		}
		s.defaultPendingQueue(&filter, actor.Role)
	case models.RolePrincipal:
		s.defaultPendingQueue(&filter, actor.Role)
	case models.RoleAdmin, models.RoleOffice:
		// full register access, no implicit scope
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	for i := range requests {
		requests[i].NextStatuses = lifecycle.Targets(requests[i].Status, actor.Role)
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	pageSize := filter.PageSize
	if pageSize <= 0 || pageSize > 200 {
		pageSize = 50
	}
	return requests, &models.Pagination{Page: page, PageSize: pageSize, TotalCount: total}, nil
}

// Get returns a request. Students see only their own.
func (s *RequestService) Get(ctx context.Context, id string, actor *models.JWTClaims) (*models.Request, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if actor.Role == models.RoleStudent {
		student, err := s.students.GetDetailsByProfile(ctx, actor.ProfileID)
		if err != nil || student.ID != request.StudentID {
			return nil, appErrors.ErrForbidden
		}
	}
	return request, nil
}

// Review applies a reviewer decision. The flow is read, validate against
// the state machine, then write conditioned on the status still being the
// one validated; a lost race surfaces as a conflict for the caller to
// re-read and retry, never a silent overwrite. Certificate generation on
// approval is a side effect of the transition, not a precondition: its
// failure is logged and the approval stands.
func (s *RequestService) Review(ctx context.Context, id string, payload dto.ReviewRequestPayload, actor *models.JWTClaims) (*dto.ReviewResult, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}

	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	target, err := targetStatus(actor.Role, payload.Action)
	if err != nil {
		return nil, err
	}

	outcome, err := lifecycle.Validate(request, actor.Role, target, lifecycle.SideData{
		TemplateID:   payload.TemplateID,
		ReturnReason: payload.ReturnReason,
	})
	if err != nil {
		return nil, err
	}

	err = s.repo.ApplyTransition(ctx, repository.TransitionParams{
		ID:           request.ID,
		FromStatus:   outcome.From,
		ToStatus:     outcome.To,
		TemplateID:   outcome.TemplateID,
		ReturnReason: outcome.ReturnReason,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "request status changed; reload and retry")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update request status")
	}

	request.Status = outcome.To
	if outcome.TemplateID != nil {
		request.TemplateID = outcome.TemplateID
	}
	if outcome.ReturnReason != nil {
		request.ReturnReason = outcome.ReturnReason
	}
	if s.metrics != nil {
		s.metrics.ObserveTransition(outcome.From, outcome.To)
	}
	s.emitAudit(ctx, actor, models.AuditActionRequestReview, request.ID, map[string]interface{}{
		"from":   outcome.From,
		"to":     outcome.To,
		"action": payload.Action,
	})
	s.invalidateSummaries(ctx, request.StudentID)

	result := &dto.ReviewResult{Request: request}
	if outcome.Approved && s.certificates != nil {
		certificate, certErr := s.certificates.Materialize(ctx, request)
		if certErr != nil {
			s.logger.Warn("certificate generation failed after approval",
				zap.String("request_id", request.ID), zap.Error(certErr))
		} else {
			result.CertificateURL = certificate.DownloadURL
			if certificate.FileURL != "" {
				result.CertificateURL = certificate.FileURL
			}
			s.emitAudit(ctx, actor, models.AuditActionCertificate, request.ID, map[string]interface{}{
				"template_id": request.TemplateID,
			})
		}
	}
	return result, nil
}

// ExportRegister renders the request register as CSV for back-office use.
func (s *RequestService) ExportRegister(ctx context.Context, query dto.RequestQuery, actor *models.JWTClaims, csv *export.CSVExporter) ([]byte, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if actor.Role != models.RoleAdmin && actor.Role != models.RoleOffice {
		return nil, appErrors.ErrForbidden
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}

	requests, _, err := s.repo.List(ctx, models.RequestFilter{
		Status:   query.Status,
		Page:     1,
		PageSize: 200,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}

	dataset := export.Dataset{
		Headers: []string{"Request ID", "Register Number", "Student", "Type", "Status", "Submitted"},
	}
	for _, request := range requests {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Request ID":      request.ID,
			"Register Number": request.RegisterNumber,
			"Student":         request.StudentName,
			"Type":            request.Type,
			"Status":          string(request.Status),
			"Submitted":       request.SubmissionDate.Format(time.DateOnly),
		})
	}
	payload, err := csv.Render(dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render register export")
	}
	return payload, nil
}

// defaultPendingQueue narrows a reviewer's listing to their own pending
// queue when the caller gave no explicit status filter.
func (s *RequestService) defaultPendingQueue(filter *models.RequestFilter, role models.Role) {
	if len(filter.Status) > 0 {
		return
	}
	if pending, ok := lifecycle.PendingStatusFor(role); ok {
		filter.Status = []models.RequestStatus{pending}
	}
}

func targetStatus(role models.Role, action dto.ReviewAction) (models.RequestStatus, error) {
	switch action {
	case dto.ReviewActionForward:
		switch role {
		case models.RoleTutor:
			return models.StatusPendingHOD, nil
		case models.RoleHOD:
			return models.StatusPendingPrincipal, nil
		case models.RolePrincipal:
			return models.StatusApproved, nil
		}
	case dto.ReviewActionReturn:
		switch role {
		case models.RoleTutor:
			return models.StatusReturnedTutor, nil
		case models.RoleHOD:
			return models.StatusReturnedHOD, nil
		case models.RolePrincipal:
			return models.StatusReturnedPrincipal, nil
		}
	}
	return "", appErrors.Clone(appErrors.ErrIllegalTransition, "role has no reviewing action on this request")
}

func (s *RequestService) invalidateSummaries(ctx context.Context, studentID string) {
	if s.summaries == nil {
		return
	}
	s.summaries.Invalidate(ctx, "institution")
	if studentID != "" {
		s.summaries.Invalidate(ctx, "student:"+studentID)
	}
}

func (s *RequestService) emitAudit(ctx context.Context, actor *models.JWTClaims, action, resourceID string, values map[string]interface{}) {
	if s.audit == nil {
		return
	}
	body, _ := json.Marshal(values)
	log := &models.AuditLog{
		ProfileID:  &actor.ProfileID,
		Action:     action,
		Resource:   "request",
		ResourceID: &resourceID,
		NewValues:  body,
		IPAddress:  "system",
		UserAgent:  "request-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to persist audit log", zap.Error(err))
	}
}
