package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/crs-api/internal/dto"
	"github.com/noah-isme/crs-api/pkg/response"
)

type reportService interface {
	ContentType() string
	EligibilityCSV(ctx context.Context) ([]byte, error)
	SendAcademicReport(ctx context.Context, studentID, semester string) error
}

// ReportHandler serves exports and report notifications.
type ReportHandler struct {
	service reportService
	now     func() time.Time
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(svc reportService) *ReportHandler {
	return &ReportHandler{service: svc, now: time.Now}
}

// EligibilityCSV godoc
// @Summary Export eligibility
// @Description CSV of every student with the current verdict
// @Tags Reports
// @Produce text/csv
// @Security BearerAuth
// @Success 200 {file} file
// @Router /reports/eligibility.csv [get]
func (h *ReportHandler) EligibilityCSV(c *gin.Context) {
	body, err := h.service.EligibilityCSV(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("eligibility-%s.csv", h.now().UTC().Format("20060102"))
	response.Attachment(c, filename, h.service.ContentType(), body)
}

// SendAcademicReport godoc
// @Summary Send academic report
// @Description Queue an academic report notification for the student
// @Tags Reports
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Student ID"
// @Param payload body dto.AcademicReportRequest false "Semester"
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id}/report [post]
func (h *ReportHandler) SendAcademicReport(c *gin.Context) {
	var req dto.AcademicReportRequest
	if c.Request.ContentLength > 0 {
		if err := bindJSON(c, &req, "invalid report payload"); err != nil {
			response.Error(c, err)
			return
		}
	}
	if err := h.service.SendAcademicReport(c.Request.Context(), c.Param("id"), req.Semester); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, map[string]string{"status": "queued"})
}
