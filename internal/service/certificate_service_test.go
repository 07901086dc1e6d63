package service

import (
	"context"
	"database/sql"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zoro24a/bonafide-api/internal/models"
	"github.com/zoro24a/bonafide-api/internal/render"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
	"github.com/zoro24a/bonafide-api/pkg/storage"
)

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

type templateStoreStub struct {
	templates map[string]*models.CertificateTemplate
}

func (s *templateStoreStub) GetByID(ctx context.Context, id string) (*models.CertificateTemplate, error) {
	tmpl, ok := s.templates[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return tmpl, nil
}

type studentDetailsStub struct {
	student *models.StudentDetails
}

func (s *studentDetailsStub) GetDetails(ctx context.Context, id string) (*models.StudentDetails, error) {
	if s.student == nil {
		return nil, sql.ErrNoRows
	}
	return s.student, nil
}

type calcStub struct {
	semester int
}

func (s calcStub) CurrentSemesterNow(batchName string) int { return s.semester }

type pdfStub struct {
	rendered int
}

func (s *pdfStub) Render(body, heading string) ([]byte, error) {
	s.rendered++
	return []byte("%PDF " + body), nil
}

type storageStub struct {
	saved   map[string][]byte
	deleted []string
}

func (s *storageStub) Save(filename string, data []byte) (string, error) {
	if s.saved == nil {
		s.saved = make(map[string][]byte)
	}
	s.saved[filename] = data
	return filename, nil
}

func (s *storageStub) Open(filename string) (*os.File, error) {
	if _, ok := s.saved[filename]; !ok {
		return nil, os.ErrNotExist
	}
	return nil, nil
}

func (s *storageStub) Delete(filename string) error {
	if _, ok := s.saved[filename]; !ok {
		return os.ErrNotExist
	}
	delete(s.saved, filename)
	s.deleted = append(s.deleted, filename)
	return nil
}

func (s *storageStub) CleanupOlderThan(ttl time.Duration) ([]string, error) {
	return nil, nil
}

type renderObserverStub struct {
	durations []time.Duration
	failures  int
}

func (s *renderObserverStub) ObserveRender(duration time.Duration, err error) {
	s.durations = append(s.durations, duration)
	if err != nil {
		s.failures++
	}
}

func certTestStudent() *models.StudentDetails {
	student := &models.StudentDetails{
		FirstName: "Priya",
		LastName:  "Raman",
		BatchName: strPtr("2023-2027"),
	}
	student.ID = "stu-1"
	student.RegisterNumber = "CS2023001"
	student.Gender = "Female"
	return student
}

func approvedRequest(templateID string) *models.Request {
	req := &models.Request{
		ID:        "req-1",
		StudentID: "stu-1",
		Type:      "Bank Loan",
		Reason:    "loan application",
		Status:    models.StatusApproved,
	}
	if templateID != "" {
		req.TemplateID = &templateID
	}
	return req
}

func newTestCertificateService(templates *templateStoreStub, students *studentDetailsStub, calc calcStub, pdf *pdfStub, store *storageStub, opts ...CertificateServiceOption) *CertificateService {
	return NewCertificateService(
		templates,
		students,
		calc,
		render.NewRenderer(),
		pdf,
		store,
		storage.NewSignedURLSigner("test-secret", time.Hour),
		CertificateConfig{APIPrefix: "/api/v1", FileTTL: time.Hour},
		nil,
		opts...,
	)
}

func TestCertificatePreviewRendersHTMLTemplate(t *testing.T) {
	templates := &templateStoreStub{templates: map[string]*models.CertificateTemplate{
		"tmpl-1": {ID: "tmpl-1", TemplateType: models.TemplateTypeHTML, Content: strPtr("Mr/Ms {studentName} is in semester {currentSemester}.")},
	}}
	svc := newTestCertificateService(templates, &studentDetailsStub{student: certTestStudent()}, calcStub{semester: 4}, &pdfStub{}, &storageStub{})

	payload, err := svc.Preview(context.Background(), approvedRequest("tmpl-1"))
	require.NoError(t, err)
	assert.Contains(t, payload.Body, "Ms. Priya Raman is in semester 4.")
	assert.Empty(t, payload.FileURL)
}

// File-backed templates resolve to their stored file; the text renderer must
// never run for them.
func TestCertificatePreviewFileBackedTemplate(t *testing.T) {
	templates := &templateStoreStub{templates: map[string]*models.CertificateTemplate{
		"tmpl-pdf": {ID: "tmpl-pdf", TemplateType: models.TemplateTypePDF, FileURL: strPtr("https://files.example/cert.pdf")},
	}}
	svc := newTestCertificateService(templates, &studentDetailsStub{student: certTestStudent()}, calcStub{semester: 4}, &pdfStub{}, &storageStub{})

	payload, err := svc.Preview(context.Background(), approvedRequest("tmpl-pdf"))
	require.NoError(t, err)
	assert.Empty(t, payload.Body)
	assert.Equal(t, "https://files.example/cert.pdf", payload.FileURL)
}

func TestCertificatePreviewMissingTemplate(t *testing.T) {
	svc := newTestCertificateService(&templateStoreStub{}, &studentDetailsStub{student: certTestStudent()}, calcStub{}, &pdfStub{}, &storageStub{})

	_, err := svc.Preview(context.Background(), approvedRequest(""))
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingTemplate))

	_, err = svc.Preview(context.Background(), approvedRequest("missing"))
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingTemplate))
}

func TestCertificatePreviewMissingStudent(t *testing.T) {
	templates := &templateStoreStub{templates: map[string]*models.CertificateTemplate{
		"tmpl-1": {ID: "tmpl-1", TemplateType: models.TemplateTypeHTML, Content: strPtr("Body")},
	}}
	svc := newTestCertificateService(templates, &studentDetailsStub{}, calcStub{}, &pdfStub{}, &storageStub{})

	_, err := svc.Preview(context.Background(), approvedRequest("tmpl-1"))
	assert.True(t, appErrors.Is(err, appErrors.ErrMissingStudent))
}

func TestCertificateSemesterOverrideWins(t *testing.T) {
	student := certTestStudent()
	student.SemesterOverride = intPtr(6)
	templates := &templateStoreStub{templates: map[string]*models.CertificateTemplate{
		"tmpl-1": {ID: "tmpl-1", TemplateType: models.TemplateTypeHTML, Content: strPtr("Semester {currentSemester}")},
	}}
	svc := newTestCertificateService(templates, &studentDetailsStub{student: student}, calcStub{semester: 4}, &pdfStub{}, &storageStub{})

	payload, err := svc.Preview(context.Background(), approvedRequest("tmpl-1"))
	require.NoError(t, err)
	assert.Contains(t, payload.Body, "Semester 6")
}

func TestCertificateMaterializeStoresPDFAndSignsLink(t *testing.T) {
	templates := &templateStoreStub{templates: map[string]*models.CertificateTemplate{
		"tmpl-1": {ID: "tmpl-1", TemplateType: models.TemplateTypeHTML, Content: strPtr("Certificate for {studentName}")},
	}}
	pdf := &pdfStub{}
	store := &storageStub{}
	svc := newTestCertificateService(templates, &studentDetailsStub{student: certTestStudent()}, calcStub{semester: 4}, pdf, store)

	payload, err := svc.Materialize(context.Background(), approvedRequest("tmpl-1"))
	require.NoError(t, err)
	assert.Equal(t, 1, pdf.rendered)
	require.Len(t, store.saved, 1)
	assert.True(t, strings.HasPrefix(payload.DownloadURL, "/api/v1/certificates/download?token="))
}

func TestCertificateMaterializeFileBackedSkipsExport(t *testing.T) {
	templates := &templateStoreStub{templates: map[string]*models.CertificateTemplate{
		"tmpl-pdf": {ID: "tmpl-pdf", TemplateType: models.TemplateTypePDF, FileURL: strPtr("https://files.example/cert.pdf")},
	}}
	pdf := &pdfStub{}
	store := &storageStub{}
	svc := newTestCertificateService(templates, &studentDetailsStub{student: certTestStudent()}, calcStub{}, pdf, store)

	payload, err := svc.Materialize(context.Background(), approvedRequest("tmpl-pdf"))
	require.NoError(t, err)
	assert.Zero(t, pdf.rendered)
	assert.Empty(t, store.saved)
	assert.Equal(t, "https://files.example/cert.pdf", payload.FileURL)
}

func TestCertificateRenderMetricsObserved(t *testing.T) {
	templates := &templateStoreStub{templates: map[string]*models.CertificateTemplate{
		"tmpl-1": {ID: "tmpl-1", TemplateType: models.TemplateTypeHTML, Content: strPtr("Certificate for {studentName}")},
		"tmpl-2": {ID: "tmpl-2", TemplateType: models.TemplateTypeHTML},
	}}
	observer := &renderObserverStub{}
	svc := newTestCertificateService(templates, &studentDetailsStub{student: certTestStudent()}, calcStub{semester: 4}, &pdfStub{}, &storageStub{}, WithRenderMetrics(observer))

	_, err := svc.Preview(context.Background(), approvedRequest("tmpl-1"))
	require.NoError(t, err)
	assert.Len(t, observer.durations, 1)
	assert.Zero(t, observer.failures)

	_, err = svc.Materialize(context.Background(), approvedRequest("tmpl-1"))
	require.NoError(t, err)
	assert.Len(t, observer.durations, 2)

	// tmpl-2 has no content body, so the render fails and the failure
	// counter moves with it.
	_, err = svc.Preview(context.Background(), approvedRequest("tmpl-2"))
	require.Error(t, err)
	assert.Len(t, observer.durations, 3)
	assert.Equal(t, 1, observer.failures)
}

func TestCertificateMaterializeCleansUpWhenSigningFails(t *testing.T) {
	templates := &templateStoreStub{templates: map[string]*models.CertificateTemplate{
		"tmpl-1": {ID: "tmpl-1", TemplateType: models.TemplateTypeHTML, Content: strPtr("Certificate for {studentName}")},
	}}
	store := &storageStub{}
	svc := NewCertificateService(
		templates,
		&studentDetailsStub{student: certTestStudent()},
		calcStub{semester: 4},
		render.NewRenderer(),
		&pdfStub{},
		store,
		storage.NewSignedURLSigner("", time.Hour),
		CertificateConfig{APIPrefix: "/api/v1", FileTTL: time.Hour},
		nil,
	)

	_, err := svc.Materialize(context.Background(), approvedRequest("tmpl-1"))
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInternal))
	assert.Empty(t, store.saved)
	require.Len(t, store.deleted, 1)
}
