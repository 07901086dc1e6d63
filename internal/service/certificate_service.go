package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/zoro24a/bonafide-api/internal/dto"
	"github.com/zoro24a/bonafide-api/internal/models"
	"github.com/zoro24a/bonafide-api/internal/render"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
	"github.com/zoro24a/bonafide-api/pkg/storage"
)

type templateStore interface {
	GetByID(ctx context.Context, id string) (*models.CertificateTemplate, error)
}

type studentDetailsStore interface {
	GetDetails(ctx context.Context, id string) (*models.StudentDetails, error)
}

type semesterCalculator interface {
	CurrentSemesterNow(batchName string) int
}

type certificateRenderer interface {
	Render(req *models.Request, student *models.StudentDetails, tmpl *models.CertificateTemplate, includeSignature bool) (string, error)
}

type pdfRenderer interface {
	Render(body, heading string) ([]byte, error)
}

type certificateStorage interface {
	Save(filename string, data []byte) (string, error)
	Open(filename string) (*os.File, error)
	Delete(filename string) error
	CleanupOlderThan(ttl time.Duration) ([]string, error)
}

type renderObserver interface {
	ObserveRender(duration time.Duration, err error)
}

// CertificateConfig tunes certificate generation.
type CertificateConfig struct {
	APIPrefix       string
	InstitutionName string
	FileTTL         time.Duration
}

// CertificateService produces the distributable certificate for a request:
// it renders the template text, lays it onto a PDF, stores the file and
// issues a signed download link. Non-html templates skip the renderer and
// resolve to their stored file.
type CertificateService struct {
	templates templateStore
	students  studentDetailsStore
	calc      semesterCalculator
	renderer  certificateRenderer
	pdf       pdfRenderer
	storage   certificateStorage
	signer    *storage.SignedURLSigner
	logger    *zap.Logger
	cfg       CertificateConfig
	metrics   renderObserver
}

// CertificateServiceOption customises optional collaborators.
type CertificateServiceOption func(*CertificateService)

// WithRenderMetrics records render duration and failures for every
// renderer invocation.
func WithRenderMetrics(observer renderObserver) CertificateServiceOption {
	return func(s *CertificateService) {
		s.metrics = observer
	}
}

// NewCertificateService constructs the service.
func NewCertificateService(
	templates templateStore,
	students studentDetailsStore,
	calc semesterCalculator,
	renderer certificateRenderer,
	pdf pdfRenderer,
	store certificateStorage,
	signer *storage.SignedURLSigner,
	cfg CertificateConfig,
	logger *zap.Logger,
	opts ...CertificateServiceOption,
) *CertificateService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if renderer == nil {
		renderer = render.NewRenderer()
	}
	if cfg.FileTTL <= 0 {
		cfg.FileTTL = 24 * time.Hour
	}
	svc := &CertificateService{
		templates: templates,
		students:  students,
		calc:      calc,
		renderer:  renderer,
		pdf:       pdf,
		storage:   store,
		signer:    signer,
		logger:    logger,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

func (s *CertificateService) render(request *models.Request, student *models.StudentDetails, tmpl *models.CertificateTemplate) (string, error) {
	start := time.Now()
	body, err := s.renderer.Render(request, student, tmpl, true)
	if s.metrics != nil {
		s.metrics.ObserveRender(time.Since(start), err)
	}
	return body, err
}

// Preview renders the certificate body without persisting anything. For
// file-backed templates it returns the stored file reference instead; the
// renderer is never invoked on that path.
func (s *CertificateService) Preview(ctx context.Context, request *models.Request) (*dto.CertificatePayload, error) {
	tmpl, student, err := s.resolve(ctx, request)
	if err != nil {
		return nil, err
	}

	payload := &dto.CertificatePayload{RequestID: request.ID}
	if !tmpl.Renderable() {
		if tmpl.FileURL == nil {
			return nil, appErrors.Clone(appErrors.ErrMissingTemplate, "file-backed template has no file reference")
		}
		payload.FileURL = *tmpl.FileURL
		return payload, nil
	}

	body, err := s.render(request, student, tmpl)
	if err != nil {
		return nil, err
	}
	payload.Body = body
	return payload, nil
}

// Materialize renders, exports and stores the certificate PDF for an
// approved request, returning a signed download URL. For file-backed
// templates it returns the stored file reference without exporting.
func (s *CertificateService) Materialize(ctx context.Context, request *models.Request) (*dto.CertificatePayload, error) {
	tmpl, student, err := s.resolve(ctx, request)
	if err != nil {
		return nil, err
	}

	payload := &dto.CertificatePayload{RequestID: request.ID}
	if !tmpl.Renderable() {
		if tmpl.FileURL == nil {
			return nil, appErrors.Clone(appErrors.ErrMissingTemplate, "file-backed template has no file reference")
		}
		payload.FileURL = *tmpl.FileURL
		return payload, nil
	}

	body, err := s.render(request, student, tmpl)
	if err != nil {
		return nil, err
	}
	payload.Body = body

	document, err := s.pdf.Render(body, s.cfg.InstitutionName)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to export certificate pdf")
	}

	filename := fmt.Sprintf("%s/%s.pdf", time.Now().UTC().Format("2006-01"), request.ID)
	relPath, err := s.storage.Save(filename, document)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store certificate")
	}

	token, _, err := s.signer.Generate(request.ID, relPath)
	if err != nil {
		// A file nobody can download is just disk noise.
		if delErr := s.storage.Delete(filename); delErr != nil {
			s.logger.Warn("could not remove unsignable certificate file",
				zap.String("file", filename), zap.Error(delErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}
	payload.DownloadURL = fmt.Sprintf("%s/certificates/download?token=%s", s.cfg.APIPrefix, token)
	return payload, nil
}

// OpenDownload validates a signed token and returns the stored file.
func (s *CertificateService) OpenDownload(token string) (*os.File, error) {
	_, relPath, _, err := s.signer.Parse(token, false)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "invalid or expired download link")
	}
	file, err := s.storage.Open(relPath)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "certificate file no longer available")
	}
	return file, nil
}

// Cleanup ages stored certificate files out; they can always be regenerated.
func (s *CertificateService) Cleanup(ctx context.Context) {
	deleted, err := s.storage.CleanupOlderThan(s.cfg.FileTTL)
	if err != nil {
		s.logger.Warn("certificate cleanup failed", zap.Error(err))
		return
	}
	if len(deleted) > 0 {
		s.logger.Info("certificate files cleaned up", zap.Int("count", len(deleted)))
	}
}

func (s *CertificateService) resolve(ctx context.Context, request *models.Request) (*models.CertificateTemplate, *models.StudentDetails, error) {
	if request == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "request is required")
	}
	if request.TemplateID == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrMissingTemplate, "request has no template selected")
	}

	tmpl, err := s.templates.GetByID(ctx, *request.TemplateID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrMissingTemplate
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load template")
	}

	student, err := s.students.GetDetails(ctx, request.StudentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.ErrMissingStudent
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}
	// Operator override wins over derivation, mirroring the batch views.
	if student.SemesterOverride != nil {
		student.CurrentSemester = *student.SemesterOverride
	} else if student.BatchName != nil {
		student.CurrentSemester = s.calc.CurrentSemesterNow(*student.BatchName)
	}

	return tmpl, student, nil
}
