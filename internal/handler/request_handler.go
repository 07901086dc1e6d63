package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zoro24a/bonafide-api/internal/dto"
	"github.com/zoro24a/bonafide-api/internal/models"
	"github.com/zoro24a/bonafide-api/internal/service"
	appErrors "github.com/zoro24a/bonafide-api/pkg/errors"
	"github.com/zoro24a/bonafide-api/pkg/export"
	"github.com/zoro24a/bonafide-api/pkg/response"
)

// RequestHandler wires HTTP endpoints to the request lifecycle service.
type RequestHandler struct {
	requests     *service.RequestService
	certificates *service.CertificateService
	csv          *export.CSVExporter
}

// NewRequestHandler creates a new handler.
func NewRequestHandler(requests *service.RequestService, certificates *service.CertificateService, csv *export.CSVExporter) *RequestHandler {
	return &RequestHandler{requests: requests, certificates: certificates, csv: csv}
}

// Create godoc
// @Summary Submit certificate request
// @Description File a new bonafide certificate request for the acting student
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.CreateRequestPayload true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Create(c *gin.Context) {
	var payload dto.CreateRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	request, err := h.requests.Create(c.Request.Context(), payload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, request)
}

// List godoc
// @Summary List certificate requests
// @Description List requests scoped to the caller's role
// @Tags Requests
// @Produce json
// @Param status query []string false "Status filter"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	query := parseRequestQuery(c)
	requests, pagination, err := h.requests.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// Get godoc
// @Summary Fetch one request
// @Tags Requests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id} [get]
func (h *RequestHandler) Get(c *gin.Context) {
	request, err := h.requests.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, request, nil)
}

// Review godoc
// @Summary Review a pending request
// @Description Forward or return a request; approval renders the certificate
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ReviewRequestPayload true "Review decision"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /requests/{id}/review [post]
func (h *RequestHandler) Review(c *gin.Context) {
	var payload dto.ReviewRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid review payload"))
		return
	}

	result, err := h.requests.Review(c.Request.Context(), c.Param("id"), payload, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Certificate godoc
// @Summary Preview the certificate body
// @Description Render the certificate for a request without persisting it
// @Tags Certificates
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /requests/{id}/certificate [get]
func (h *RequestHandler) Certificate(c *gin.Context) {
	request, err := h.requests.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, err := h.certificates.Preview(c.Request.Context(), request)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, payload, nil)
}

// ExportRegister godoc
// @Summary Export the request register
// @Description Download the request register as CSV
// @Tags Requests
// @Produce text/csv
// @Param status query []string false "Status filter"
// @Success 200 {string} string "CSV payload"
// @Failure 403 {object} response.Envelope
// @Router /requests/export [get]
func (h *RequestHandler) ExportRegister(c *gin.Context) {
	payload, err := h.requests.ExportRegister(c.Request.Context(), parseRequestQuery(c), claimsFromContext(c), h.csv)
	if err != nil {
		response.Error(c, err)
		return
	}

	filename := "request-register-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "text/csv", payload)
}

func parseRequestQuery(c *gin.Context) dto.RequestQuery {
	query := dto.RequestQuery{}
	for _, status := range c.QueryArray("status") {
		if status != "" {
			query.Status = append(query.Status, models.RequestStatus(status))
		}
	}
	if page, err := strconv.Atoi(c.Query("page")); err == nil {
		query.Page = page
	}
	if pageSize, err := strconv.Atoi(c.Query("page_size")); err == nil {
		query.PageSize = pageSize
	}
	return query
}
