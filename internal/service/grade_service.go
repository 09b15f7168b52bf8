package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/dto"
	"github.com/noah-isme/crs-api/internal/repository"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

// GradeService records course scores.
type GradeService struct {
	store     recordStore
	policy    academic.Policy
	validator *validator.Validate
	logger    *zap.Logger
}

// NewGradeService constructs GradeService.
func NewGradeService(store recordStore, policy academic.Policy, validate *validator.Validate, logger *zap.Logger) *GradeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GradeService{store: store, policy: policy.Normalize(), validator: validate, logger: logger}
}

// RecordScores sets the exam and assignment scores of one course, creating
// the course record when the student has none for it yet. The updated
// student view is returned.
func (s *GradeService) RecordScores(ctx context.Context, studentID, courseID string, req dto.RecordScoresRequest) (*dto.StudentView, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid score payload")
	}

	var view dto.StudentView
	err := s.store.Transact(ctx, func(tx *repository.Tx) error {
		st, ok := tx.Student(studentID)
		if !ok {
			return studentNotFound(studentID)
		}
		course, ok := tx.Catalog.Lookup(courseID)
		if !ok {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", courseID))
		}
		if err := st.Record.SetScores(course, *req.ExamScore, *req.AssignmentScore); err != nil {
			return err
		}
		view = dto.NewStudentView(*st, s.policy)
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("scores recorded",
		zap.String("student_id", studentID),
		zap.String("course_id", courseID),
		zap.Float64("cgpa", view.CGPA))
	return &view, nil
}
