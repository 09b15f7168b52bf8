package service

import (
	"context"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/dto"
	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/repository"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
	"github.com/noah-isme/crs-api/pkg/export"
)

// EligibilityCSVHeaders are the columns of the eligibility export.
var EligibilityCSVHeaders = []string{
	"StudentID", "Name", "Major", "Year", "Credits", "CGPA", "FailedCourses", "Eligible", "EnrollmentStatus", "Reason",
}

// ReportService produces reports for collaborators outside the engine.
type ReportService struct {
	store    recordStore
	policy   academic.Policy
	notifier notifier
	exporter *export.CSVExporter
	logger   *zap.Logger
}

// NewReportService constructs ReportService.
func NewReportService(store recordStore, policy academic.Policy, notifier notifier, exporter *export.CSVExporter, logger *zap.Logger) *ReportService {
	if exporter == nil {
		exporter = export.NewCSVExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{store: store, policy: policy.Normalize(), notifier: notifier, exporter: exporter, logger: logger}
}

// ContentType of EligibilityCSV output.
func (s *ReportService) ContentType() string {
	return s.exporter.ContentType()
}

// EligibilityCSV renders every student with the current verdict.
func (s *ReportService) EligibilityCSV(ctx context.Context) ([]byte, error) {
	data := export.Dataset{Headers: EligibilityCSVHeaders}
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		for _, st := range tx.Students {
			v := dto.NewStudentView(st, s.policy)
			data.Append(
				v.StudentID,
				v.FullName,
				v.Major,
				string(v.Year),
				strconv.Itoa(v.Credits),
				strconv.FormatFloat(v.CGPA, 'f', 2, 64),
				strconv.Itoa(v.FailedCount),
				strconv.FormatBool(v.Eligible),
				string(v.EnrollmentStatus),
				v.Reason,
			)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	body, err := s.exporter.Render(data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render eligibility report")
	}
	return body, nil
}

// SendAcademicReport hands the student's academic summary to the notifier.
func (s *ReportService) SendAcademicReport(ctx context.Context, studentID, semester string) error {
	var view dto.StudentView
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		st, ok := tx.Student(studentID)
		if !ok {
			return studentNotFound(studentID)
		}
		view = dto.NewStudentView(*st, s.policy)
		return nil
	})
	if err != nil {
		return err
	}
	if s.notifier == nil {
		return nil
	}

	courses := make([]map[string]interface{}, 0, len(view.Courses))
	var failed []string
	for _, c := range view.Courses {
		courses = append(courses, map[string]interface{}{
			"course_id":   c.CourseID,
			"course_name": c.CourseName,
			"credits":     c.Credits,
			"total":       c.TotalScore,
			"grade":       string(c.Letter),
			"grade_point": c.GradePoint,
		})
		if c.Failed {
			failed = append(failed, c.CourseID)
		}
	}
	if semester = strings.TrimSpace(semester); semester == "" {
		semester = "current"
	}

	err = s.notifier.Notify(ctx, models.Notification{
		Recipient: view.Email,
		Kind:      models.NotifyAcademicReport,
		Fields: map[string]interface{}{
			"student_id":     view.StudentID,
			"student_name":   view.FullName,
			"semester":       semester,
			"cgpa":           view.CGPA,
			"failed_courses": failed,
			"eligible":       view.Eligible,
			"reason":         view.Reason,
			"courses":        courses,
		},
	})
	if err != nil {
		return err
	}
	s.logger.Info("academic report queued", zap.String("student_id", studentID), zap.String("semester", semester))
	return nil
}
