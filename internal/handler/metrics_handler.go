package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/zoro24a/bonafide-api/internal/service"
)

// MetricsHandler serves the Prometheus scrape endpoint from the metrics
// service's own registry.
type MetricsHandler struct {
	scrape http.Handler
}

// NewMetricsHandler creates a new handler.
func NewMetricsHandler(metrics *service.MetricsService) *MetricsHandler {
	return &MetricsHandler{scrape: metrics.Handler()}
}

// Prometheus serves metrics in the Prometheus exposition format.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	h.scrape.ServeHTTP(c.Writer, c.Request)
}
