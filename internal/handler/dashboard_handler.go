package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zoro24a/bonafide-api/internal/dto"
	"github.com/zoro24a/bonafide-api/internal/models"
	"github.com/zoro24a/bonafide-api/pkg/response"
)

type dashboardService interface {
	Summary(ctx context.Context, actor *models.JWTClaims) (*dto.DashboardSummary, error)
}

// DashboardHandler wires HTTP endpoints to the dashboard service.
type DashboardHandler struct {
	service dashboardService
}

// NewDashboardHandler creates a new handler.
func NewDashboardHandler(svc dashboardService) *DashboardHandler {
	return &DashboardHandler{service: svc}
}

// Summary godoc
// @Summary Request counts for the caller's scope
// @Description Aggregate request counts by status, cached per scope
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /dashboard/summary [get]
func (h *DashboardHandler) Summary(c *gin.Context) {
	summary, err := h.service.Summary(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}
