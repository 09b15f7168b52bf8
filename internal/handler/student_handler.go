package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crs-api/internal/dto"
	"github.com/noah-isme/crs-api/internal/models"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
	"github.com/noah-isme/crs-api/pkg/response"
)

type eligibilityService interface {
	ListStudents(ctx context.Context, filter models.StudentFilter) ([]dto.StudentView, error)
	StudentByID(ctx context.Context, id string) (*dto.StudentView, error)
	CheckStudent(ctx context.Context, id string) (*dto.EligibilityResult, error)
	Statistics(ctx context.Context) (*dto.EligibilityStatistics, error)
	StudentEnrollments(ctx context.Context, id string) ([]models.Enrollment, error)
}

type gradeService interface {
	RecordScores(ctx context.Context, studentID, courseID string, req dto.RecordScoresRequest) (*dto.StudentView, error)
}

// StudentHandler serves student records and eligibility views.
type StudentHandler struct {
	eligibility eligibilityService
	grades      gradeService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(eligibility eligibilityService, grades gradeService) *StudentHandler {
	return &StudentHandler{eligibility: eligibility, grades: grades}
}

// List godoc
// @Summary List students
// @Description List students with their current eligibility
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param eligible query bool false "Eligibility filter"
// @Param major query string false "Major"
// @Param year query string false "Study year"
// @Param search query string false "Matches id, name or email"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	filter := models.StudentFilter{
		Major:  c.Query("major"),
		Search: c.Query("search"),
	}
	if raw := c.Query("eligible"); raw != "" {
		val, err := strconv.ParseBool(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "eligible must be true or false"))
			return
		}
		filter.Eligible = &val
	}
	if raw := c.Query("year"); raw != "" {
		year, ok := models.ParseStudyYear(raw)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown study year "+raw))
			return
		}
		filter.Year = year
	}

	views, err := h.eligibility.ListStudents(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, views, len(views))
}

// Get godoc
// @Summary Get student
// @Description Student record with derived grades and eligibility
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	view, err := h.eligibility.StudentByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Eligibility godoc
// @Summary Check eligibility
// @Description Detailed progression check including failed courses
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/eligibility [get]
func (h *StudentHandler) Eligibility(c *gin.Context) {
	result, err := h.eligibility.CheckStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Enrollments godoc
// @Summary Enrollment history
// @Description Ledger entries of one student
// @Tags Students
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/enrollments [get]
func (h *StudentHandler) Enrollments(c *gin.Context) {
	ledger, err := h.eligibility.StudentEnrollments(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, ledger, len(ledger))
}

// RecordScores godoc
// @Summary Record course scores
// @Description Set exam and assignment scores for one course
// @Tags Students
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param courseId path string true "Course ID"
// @Param payload body dto.RecordScoresRequest true "Scores"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/courses/{courseId} [put]
func (h *StudentHandler) RecordScores(c *gin.Context) {
	var req dto.RecordScoresRequest
	if err := bindJSON(c, &req, "invalid score payload"); err != nil {
		response.Error(c, err)
		return
	}
	view, err := h.grades.RecordScores(c.Request.Context(), c.Param("id"), c.Param("courseId"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, view)
}

// Statistics godoc
// @Summary Eligibility statistics
// @Description Eligible and ineligible counts with the eligibility rate
// @Tags Eligibility
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /eligibility/statistics [get]
func (h *StudentHandler) Statistics(c *gin.Context) {
	stats, err := h.eligibility.Statistics(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}
