package handler

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crs-api/internal/dto"
	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/pkg/response"
)

type enrollmentService interface {
	ProcessEnrollment(ctx context.Context, req models.EnrollmentRequest) (*models.Enrollment, error)
	ResetStatus(ctx context.Context, studentID string) error
	MarkPending(ctx context.Context, studentID string) error
}

// EnrollmentHandler exposes the re-enrollment workflow.
type EnrollmentHandler struct {
	service enrollmentService
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(svc enrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc}
}

// Create godoc
// @Summary Enroll student
// @Description Enroll an eligible student for the next level. The caller is recorded as the processor.
// @Tags Enrollments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.EnrollmentRequest true "Enrollment"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Create(c *gin.Context) {
	var body dto.EnrollmentRequest
	if err := bindJSON(c, &body, "invalid enrollment payload"); err != nil {
		response.Error(c, err)
		return
	}
	req := models.EnrollmentRequest{
		StudentID:  strings.TrimSpace(body.StudentID),
		Semester:   strings.TrimSpace(body.Semester),
		TargetYear: strings.TrimSpace(body.TargetYear),
		Actor:      actorID(c),
		Remarks:    strings.TrimSpace(body.Remarks),
	}
	if year, ok := models.ParseStudyYear(req.TargetYear); ok {
		req.TargetYear = string(year)
	}

	enrollment, err := h.service.ProcessEnrollment(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, enrollment)
}

// Reset godoc
// @Summary Reset enrollment status
// @Description Return a student to Not Enrolled. Ledger entries are kept.
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/enrollment/reset [post]
func (h *EnrollmentHandler) Reset(c *gin.Context) {
	if err := h.service.ResetStatus(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// MarkPending godoc
// @Summary Mark enrollment pending
// @Description Flag an eligible student for enrollment review
// @Tags Enrollments
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 204
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /students/{id}/enrollment/pending [post]
func (h *EnrollmentHandler) MarkPending(c *gin.Context) {
	if err := h.service.MarkPending(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
