package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/pkg/response"
)

type recoveryService interface {
	ListPlans(ctx context.Context, studentID string) ([]models.RecoveryPlan, error)
	GetPlan(ctx context.Context, studentID, courseID string) (*models.RecoveryPlan, error)
	AddTask(ctx context.Context, studentID, courseID string, req models.RecoveryTaskRequest) (*models.RecoveryPlan, error)
	UpdateTask(ctx context.Context, studentID, courseID string, index int, req models.RecoveryTaskRequest) (*models.RecoveryPlan, error)
	DeleteTask(ctx context.Context, studentID, courseID string, index int) (*models.RecoveryPlan, error)
	SendPlan(ctx context.Context, studentID, courseID string) error
}

// RecoveryHandler manages course recovery plans.
type RecoveryHandler struct {
	service recoveryService
}

// NewRecoveryHandler constructs RecoveryHandler.
func NewRecoveryHandler(svc recoveryService) *RecoveryHandler {
	return &RecoveryHandler{service: svc}
}

// ListPlans godoc
// @Summary List recovery plans
// @Tags Recovery
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/recovery-plans [get]
func (h *RecoveryHandler) ListPlans(c *gin.Context) {
	plans, err := h.service.ListPlans(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, plans, len(plans))
}

// GetPlan godoc
// @Summary Get recovery plan
// @Tags Recovery
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/recovery-plans/{courseId}/tasks [get]
func (h *RecoveryHandler) GetPlan(c *gin.Context) {
	plan, err := h.service.GetPlan(c.Request.Context(), c.Param("id"), c.Param("courseId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, plan)
}

// AddTask godoc
// @Summary Add recovery task
// @Tags Recovery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Param payload body models.RecoveryTaskRequest true "Task"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/recovery-plans/{courseId}/tasks [post]
func (h *RecoveryHandler) AddTask(c *gin.Context) {
	var req models.RecoveryTaskRequest
	if err := bindJSON(c, &req, "invalid recovery task"); err != nil {
		response.Error(c, err)
		return
	}
	plan, err := h.service.AddTask(c.Request.Context(), c.Param("id"), c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, plan)
}

// UpdateTask godoc
// @Summary Update recovery task
// @Tags Recovery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Param index path int true "Task index"
// @Param payload body models.RecoveryTaskRequest true "Task"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/recovery-plans/{courseId}/tasks/{index} [put]
func (h *RecoveryHandler) UpdateTask(c *gin.Context) {
	index, err := indexParam(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req models.RecoveryTaskRequest
	if err := bindJSON(c, &req, "invalid recovery task"); err != nil {
		response.Error(c, err)
		return
	}
	plan, err := h.service.UpdateTask(c.Request.Context(), c.Param("id"), c.Param("courseId"), index, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, plan)
}

// DeleteTask godoc
// @Summary Delete recovery task
// @Tags Recovery
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Param index path int true "Task index"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/recovery-plans/{courseId}/tasks/{index} [delete]
func (h *RecoveryHandler) DeleteTask(c *gin.Context) {
	index, err := indexParam(c, "index")
	if err != nil {
		response.Error(c, err)
		return
	}
	plan, err := h.service.DeleteTask(c.Request.Context(), c.Param("id"), c.Param("courseId"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, plan)
}

// SendPlan godoc
// @Summary Send recovery plan
// @Description Queue a notification carrying the plan to the student
// @Tags Recovery
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Success 202 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/recovery-plans/{courseId}/notify [post]
func (h *RecoveryHandler) SendPlan(c *gin.Context) {
	if err := h.service.SendPlan(c.Request.Context(), c.Param("id"), c.Param("courseId")); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, map[string]string{"status": "queued"})
}
