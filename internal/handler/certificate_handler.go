package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/zoro24a/bonafide-api/internal/service"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
	"github.com/zoro24a/bonafide-api/pkg/response"
)

// CertificateHandler serves stored certificate files from signed links.
type CertificateHandler struct {
	certificates *service.CertificateService
}

// NewCertificateHandler creates a new handler.
func NewCertificateHandler(certificates *service.CertificateService) *CertificateHandler {
	return &CertificateHandler{certificates: certificates}
}

// Download godoc
// @Summary Download a generated certificate
// @Description Serve the stored certificate PDF referenced by a signed token
// @Tags Certificates
// @Produce application/pdf
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /certificates/download [get]
func (h *CertificateHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "download token is required"))
		return
	}

	file, err := h.certificates.OpenDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "certificate file no longer available"))
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filepath.Base(info.Name())+`"`)
	c.Header("Content-Type", "application/pdf")
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), file)
}
