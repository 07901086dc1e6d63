package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoro24a/bonafide-api/internal/dto"
	"github.com/zoro24a/bonafide-api/internal/models"
	"github.com/zoro24a/bonafide-api/internal/repository"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
)

type requestStoreStub struct {
	requests map[string]*models.Request
	// conflict forces ApplyTransition to report a lost compare-and-swap.
	conflict bool
	applied  []repository.TransitionParams
}

func newRequestStoreStub() *requestStoreStub {
	return &requestStoreStub{requests: make(map[string]*models.Request)}
}

func (s *requestStoreStub) Create(ctx context.Context, request *models.Request) error {
	if request.ID == "" {
		request.ID = "req-1"
	}
	clone := *request
	s.requests[request.ID] = &clone
	return nil
}

func (s *requestStoreStub) GetByID(ctx context.Context, id string) (*models.Request, error) {
	request, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	clone := *request
	return &clone, nil
}

func (s *requestStoreStub) List(ctx context.Context, filter models.RequestFilter) ([]models.RequestDetail, int, error) {
	var result []models.RequestDetail
	for _, request := range s.requests {
		if filter.StudentID != "" && request.StudentID != filter.StudentID {
			continue
		}
		if len(filter.Status) > 0 {
			match := false
			for _, status := range filter.Status {
				if request.Status == status {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		result = append(result, models.RequestDetail{Request: *request, StudentName: "Priya Raman", RegisterNumber: "CS2023001"})
	}
	return result, len(result), nil
}

func (s *requestStoreStub) ApplyTransition(ctx context.Context, params repository.TransitionParams) error {
	if s.conflict {
		return sql.ErrNoRows
	}
	request, ok := s.requests[params.ID]
	if !ok || request.Status != params.FromStatus {
		return sql.ErrNoRows
	}
	request.Status = params.ToStatus
	if params.TemplateID != nil {
		request.TemplateID = params.TemplateID
	}
	if params.ReturnReason != nil {
		request.ReturnReason = params.ReturnReason
	}
	s.applied = append(s.applied, params)
	return nil
}

type studentResolverStub struct {
	student *models.StudentDetails
	err     error
}

func (s *studentResolverStub) GetDetailsByProfile(ctx context.Context, profileID string) (*models.StudentDetails, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.student, nil
}

type certProducerStub struct {
	payload *dto.CertificatePayload
	err     error
	calls   int
}

func (s *certProducerStub) Materialize(ctx context.Context, request *models.Request) (*dto.CertificatePayload, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.payload, nil
}

type auditSinkStub struct {
	logs []*models.AuditLog
}

func (s *auditSinkStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

type transitionRecorderStub struct {
	edges [][2]models.RequestStatus
}

func (s *transitionRecorderStub) ObserveTransition(from, to models.RequestStatus) {
	s.edges = append(s.edges, [2]models.RequestStatus{from, to})
}

type summaryInvalidatorStub struct {
	scopes []string
}

func (s *summaryInvalidatorStub) Invalidate(ctx context.Context, scope string) {
	s.scopes = append(s.scopes, scope)
}

func actor(role models.Role) *models.JWTClaims {
	return &models.JWTClaims{ProfileID: "profile-" + string(role), Role: role}
}

func testStudentDetails() *models.StudentDetails {
	details := &models.StudentDetails{FirstName: "Priya", LastName: "Raman"}
	details.ID = "stu-1"
	return details
}

func newTestRequestService(store *requestStoreStub, certs *certProducerStub) (*RequestService, *auditSinkStub, *transitionRecorderStub) {
	audit := &auditSinkStub{}
	recorder := &transitionRecorderStub{}
	svc := NewRequestService(
		store,
		&studentResolverStub{student: testStudentDetails()},
		certs,
		audit,
		validator.New(),
		nil,
		WithTransitionObserver(recorder),
	)
	return svc, audit, recorder
}

func TestRequestCreateStartsPendingTutor(t *testing.T) {
	store := newRequestStoreStub()
	svc, audit, _ := newTestRequestService(store, &certProducerStub{})

	request, err := svc.Create(context.Background(), dto.CreateRequestPayload{
		Type:   "Bank Loan",
		Reason: "Education loan application",
	}, actor(models.RoleStudent))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingTutor, request.Status)
	assert.Equal(t, "stu-1", request.StudentID)
	require.Len(t, audit.logs, 1)
	assert.Equal(t, models.AuditActionRequestCreate, audit.logs[0].Action)
}

func TestRequestCreateRejectsNonStudents(t *testing.T) {
	svc, _, _ := newTestRequestService(newRequestStoreStub(), &certProducerStub{})

	_, err := svc.Create(context.Background(), dto.CreateRequestPayload{Type: "Bank Loan", Reason: "loan"}, actor(models.RoleTutor))
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
}

// Full approval chain: tutor selects a template and forwards, HOD forwards,
// principal approves and the certificate is produced as a side effect.
func TestRequestReviewApprovalChain(t *testing.T) {
	store := newRequestStoreStub()
	certs := &certProducerStub{payload: &dto.CertificatePayload{RequestID: "req-1", DownloadURL: "/api/v1/certificates/download?token=abc"}}
	svc, _, recorder := newTestRequestService(store, certs)

	request, err := svc.Create(context.Background(), dto.CreateRequestPayload{Type: "Bank Loan", Reason: "loan"}, actor(models.RoleStudent))
	require.NoError(t, err)

	result, err := svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{
		Action:     dto.ReviewActionForward,
		TemplateID: "tmpl-1",
	}, actor(models.RoleTutor))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingHOD, result.Request.Status)
	require.NotNil(t, result.Request.TemplateID)
	assert.Equal(t, "tmpl-1", *result.Request.TemplateID)
	assert.Zero(t, certs.calls)

	result, err = svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{Action: dto.ReviewActionForward}, actor(models.RoleHOD))
	require.NoError(t, err)
	assert.Equal(t, models.StatusPendingPrincipal, result.Request.Status)

	result, err = svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{Action: dto.ReviewActionForward}, actor(models.RolePrincipal))
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, result.Request.Status)
	assert.Equal(t, 1, certs.calls)
	assert.Equal(t, "/api/v1/certificates/download?token=abc", result.CertificateURL)

	require.Len(t, recorder.edges, 3)
	assert.Equal(t, models.StatusPendingTutor, recorder.edges[0][0])
	assert.Equal(t, models.StatusApproved, recorder.edges[2][1])
}

func TestRequestReviewTutorForwardWithoutTemplate(t *testing.T) {
	store := newRequestStoreStub()
	svc, _, _ := newTestRequestService(store, &certProducerStub{})

	request, err := svc.Create(context.Background(), dto.CreateRequestPayload{Type: "Bank Loan", Reason: "loan"}, actor(models.RoleStudent))
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{Action: dto.ReviewActionForward}, actor(models.RoleTutor))
	assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
}

func TestRequestReviewReturnIsTerminal(t *testing.T) {
	store := newRequestStoreStub()
	svc, _, _ := newTestRequestService(store, &certProducerStub{})

	request, err := svc.Create(context.Background(), dto.CreateRequestPayload{Type: "Bank Loan", Reason: "loan"}, actor(models.RoleStudent))
	require.NoError(t, err)

	result, err := svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{
		Action:       dto.ReviewActionReturn,
		ReturnReason: "missing details",
	}, actor(models.RoleTutor))
	require.NoError(t, err)
	assert.Equal(t, models.StatusReturnedTutor, result.Request.Status)
	require.NotNil(t, result.Request.ReturnReason)
	assert.Equal(t, "missing details", *result.Request.ReturnReason)

	_, err = svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{
		Action:     dto.ReviewActionForward,
		TemplateID: "tmpl-1",
	}, actor(models.RoleTutor))
	assert.True(t, appErrors.Is(err, appErrors.ErrIllegalTransition))
}

// A reviewer who validated against a stale status must see a conflict, not
// silently overwrite the concurrent decision.
func TestRequestReviewLostRaceSurfacesConflict(t *testing.T) {
	store := newRequestStoreStub()
	svc, _, _ := newTestRequestService(store, &certProducerStub{})

	request, err := svc.Create(context.Background(), dto.CreateRequestPayload{Type: "Bank Loan", Reason: "loan"}, actor(models.RoleStudent))
	require.NoError(t, err)

	store.conflict = true
	_, err = svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{
		Action:     dto.ReviewActionForward,
		TemplateID: "tmpl-1",
	}, actor(models.RoleTutor))
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

// Certificate generation failing after the status write must not undo the
// approval.
func TestRequestReviewApprovalSurvivesRenderFailure(t *testing.T) {
	store := newRequestStoreStub()
	certs := &certProducerStub{err: appErrors.ErrMissingStudent}
	svc, _, _ := newTestRequestService(store, certs)

	request, err := svc.Create(context.Background(), dto.CreateRequestPayload{Type: "Bank Loan", Reason: "loan"}, actor(models.RoleStudent))
	require.NoError(t, err)

	_, err = svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{Action: dto.ReviewActionForward, TemplateID: "tmpl-1"}, actor(models.RoleTutor))
	require.NoError(t, err)
	_, err = svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{Action: dto.ReviewActionForward}, actor(models.RoleHOD))
	require.NoError(t, err)

	result, err := svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{Action: dto.ReviewActionForward}, actor(models.RolePrincipal))
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, result.Request.Status)
	assert.Empty(t, result.CertificateURL)

	stored, err := store.GetByID(context.Background(), request.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusApproved, stored.Status)
}

func TestRequestListDefaultsToReviewerQueue(t *testing.T) {
	store := newRequestStoreStub()
	store.requests["a"] = &models.Request{ID: "a", StudentID: "stu-1", Status: models.StatusPendingTutor}
	store.requests["b"] = &models.Request{ID: "b", StudentID: "stu-2", Status: models.StatusPendingHOD}
	svc, _, _ := newTestRequestService(store, &certProducerStub{})

	requests, _, err := svc.List(context.Background(), dto.RequestQuery{}, actor(models.RoleTutor))
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.StatusPendingTutor, requests[0].Status)

	requests, _, err = svc.List(context.Background(), dto.RequestQuery{}, actor(models.RoleHOD))
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.StatusPendingHOD, requests[0].Status)
}

func TestRequestListAnnotatesAvailableTransitions(t *testing.T) {
	store := newRequestStoreStub()
	store.requests["a"] = &models.Request{ID: "a", StudentID: "stu-1", Status: models.StatusPendingTutor}
	svc, _, _ := newTestRequestService(store, &certProducerStub{})

	requests, _, err := svc.List(context.Background(), dto.RequestQuery{}, actor(models.RoleTutor))
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.ElementsMatch(t,
		[]models.RequestStatus{models.StatusPendingHOD, models.StatusReturnedTutor},
		requests[0].NextStatuses)

	// Students view the same row but hold no transitions on it.
	requests, _, err = svc.List(context.Background(), dto.RequestQuery{}, actor(models.RoleStudent))
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Empty(t, requests[0].NextStatuses)
}

func TestRequestListScopesStudentsToOwnRequests(t *testing.T) {
	store := newRequestStoreStub()
	store.requests["a"] = &models.Request{ID: "a", StudentID: "stu-1", Status: models.StatusPendingTutor}
	store.requests["b"] = &models.Request{ID: "b", StudentID: "stu-2", Status: models.StatusPendingTutor}
	svc, _, _ := newTestRequestService(store, &certProducerStub{})

	requests, _, err := svc.List(context.Background(), dto.RequestQuery{}, actor(models.RoleStudent))
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "stu-1", requests[0].StudentID)
}

func TestRequestGetEnforcesOwnership(t *testing.T) {
	store := newRequestStoreStub()
	store.requests["a"] = &models.Request{ID: "a", StudentID: "stu-2", Status: models.StatusPendingTutor}
	svc, _, _ := newTestRequestService(store, &certProducerStub{})

	_, err := svc.Get(context.Background(), "a", actor(models.RoleStudent))
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	request, err := svc.Get(context.Background(), "a", actor(models.RoleTutor))
	require.NoError(t, err)
	assert.Equal(t, "a", request.ID)
}

func TestRequestExportRegisterRestrictedToBackOffice(t *testing.T) {
	store := newRequestStoreStub()
	store.requests["a"] = &models.Request{ID: "a", StudentID: "stu-1", Type: "Bank Loan", Status: models.StatusApproved}
	svc, _, _ := newTestRequestService(store, &certProducerStub{})

	_, err := svc.ExportRegister(context.Background(), dto.RequestQuery{}, actor(models.RoleTutor), nil)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))

	payload, err := svc.ExportRegister(context.Background(), dto.RequestQuery{}, actor(models.RoleOffice), nil)
	require.NoError(t, err)
	assert.Contains(t, string(payload), "Request ID")
	assert.Contains(t, string(payload), "Bank Loan")
}

func TestRequestReviewInvalidatesDashboardSummaries(t *testing.T) {
	store := newRequestStoreStub()
	invalidator := &summaryInvalidatorStub{}
	svc := NewRequestService(
		store,
		&studentResolverStub{student: testStudentDetails()},
		&certProducerStub{},
		&auditSinkStub{},
		validator.New(),
		nil,
		WithSummaryInvalidation(invalidator),
	)

	request, err := svc.Create(context.Background(), dto.CreateRequestPayload{Type: "Bank Loan", Reason: "loan"}, actor(models.RoleStudent))
	require.NoError(t, err)
	assert.Contains(t, invalidator.scopes, "institution")
	assert.Contains(t, invalidator.scopes, "student:stu-1")

	invalidator.scopes = nil
	_, err = svc.Review(context.Background(), request.ID, dto.ReviewRequestPayload{
		Action:     dto.ReviewActionForward,
		TemplateID: "tmpl-1",
	}, actor(models.RoleTutor))
	require.NoError(t, err)
	assert.Contains(t, invalidator.scopes, "institution")
	assert.Contains(t, invalidator.scopes, "student:stu-1")
}
