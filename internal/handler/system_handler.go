package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crs-api/internal/service"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
	"github.com/noah-isme/crs-api/pkg/response"
)

type adminService interface {
	ResetData(ctx context.Context, actorID string) error
	Ping(ctx context.Context) error
}

// SystemHandler exposes health, readiness, metrics and maintenance endpoints.
type SystemHandler struct {
	admin   adminService
	metrics *service.MetricsService
}

// NewSystemHandler constructs SystemHandler. metrics may be nil.
func NewSystemHandler(admin adminService, metrics *service.MetricsService) *SystemHandler {
	return &SystemHandler{admin: admin, metrics: metrics}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *SystemHandler) Prometheus(c *gin.Context) {
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health godoc
// @Summary Liveness
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	response.OK(c, gin.H{"status": "ok", "metrics": h.metrics.Snapshot()})
}

// Ready godoc
// @Summary Readiness
// @Description Succeeds once the record store can be read
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	if err := h.admin.Ping(c.Request.Context()); err != nil {
		appErr := appErrors.FromError(err)
		response.Error(c, appErrors.Wrap(err, appErr.Code, http.StatusServiceUnavailable, "record store unavailable"))
		return
	}
	response.OK(c, gin.H{"status": "ready"})
}

// Reset godoc
// @Summary Reset all data
// @Description Delete every record and reseed from the configured source
// @Tags System
// @Security BearerAuth
// @Success 204
// @Failure 403 {object} response.Envelope
// @Router /admin/reset [post]
func (h *SystemHandler) Reset(c *gin.Context) {
	if err := h.admin.ResetData(c.Request.Context(), userID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
