package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/repository"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

// DefaultEnrollmentRemarks is recorded when the caller gives none.
const DefaultEnrollmentRemarks = "Enrolled for progression to next level"

// Enrollment outcomes reported to the metrics recorder.
const (
	OutcomeConfirmed       = "confirmed"
	OutcomeNotFound        = "not_found"
	OutcomeNotEligible     = "not_eligible"
	OutcomeAlreadyEnrolled = "already_enrolled"
	OutcomeInvalid         = "invalid"
	OutcomeError           = "error"
)

type enrollmentRecorder interface {
	RecordEnrollment(outcome string)
}

// EnrollmentService runs the re-enrollment workflow.
type EnrollmentService struct {
	store     recordStore
	policy    academic.Policy
	notifier  notifier
	metrics   enrollmentRecorder
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewEnrollmentService constructs EnrollmentService. notifier and metrics may be nil.
func NewEnrollmentService(store recordStore, policy academic.Policy, notifier notifier, metrics enrollmentRecorder, validate *validator.Validate, logger *zap.Logger) *EnrollmentService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EnrollmentService{
		store:     store,
		policy:    policy.Normalize(),
		notifier:  notifier,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// ProcessEnrollment enrols an eligible student. Checks run in order: the
// student exists, is eligible, is not already enrolled, and the request is
// valid. The ledger entry and the status change are committed together.
func (s *EnrollmentService) ProcessEnrollment(ctx context.Context, req models.EnrollmentRequest) (*models.Enrollment, error) {
	var created models.Enrollment
	var recipient string

	err := s.store.Transact(ctx, func(tx *repository.Tx) error {
		st, ok := tx.Student(req.StudentID)
		if !ok {
			return studentNotFound(req.StudentID)
		}
		verdict := s.policy.Evaluate(st.Record)
		if !verdict.Eligible {
			return appErrors.Clone(appErrors.ErrNotEligible, verdict.Reason)
		}
		if st.EnrollmentStatus == models.StatusEnrolled {
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("student %s is already enrolled", st.ID))
		}
		if err := s.validator.Struct(req); err != nil {
			return validationError(err, "invalid enrollment request")
		}

		remarks := req.Remarks
		if remarks == "" {
			remarks = DefaultEnrollmentRemarks
		}
		created = models.Enrollment{
			ID:          nextEnrollmentID(st.ID, tx.EnrollmentsFor(st.ID)),
			StudentID:   st.ID,
			Semester:    req.Semester,
			TargetYear:  models.StudyYear(req.TargetYear),
			ProcessedBy: req.Actor,
			EnrolledAt:  s.now().UTC(),
			Status:      models.EnrollmentConfirmed,
			Remarks:     remarks,
		}
		tx.Enrollments = append(tx.Enrollments, created)
		st.EnrollmentStatus = models.StatusEnrolled
		recipient = st.Email
		return nil
	})
	s.record(err)
	if err != nil {
		return nil, err
	}

	s.logger.Info("enrollment confirmed",
		zap.String("enrollment_id", created.ID),
		zap.String("student_id", created.StudentID),
		zap.String("processed_by", created.ProcessedBy))
	s.notify(ctx, recipient, created)
	return &created, nil
}

// nextEnrollmentID numbers entries per student starting at 001. Entries
// are never removed, so the count only grows.
func nextEnrollmentID(studentID string, existing []models.Enrollment) string {
	return fmt.Sprintf("ENR-%s-%03d", studentID, len(existing)+1)
}

// ResetStatus returns a student to Not Enrolled. Ledger entries are kept.
func (s *EnrollmentService) ResetStatus(ctx context.Context, studentID string) error {
	return s.setStatus(ctx, studentID, models.StatusNotEnrolled)
}

// MarkPending flags an eligible, not yet enrolled student for review.
func (s *EnrollmentService) MarkPending(ctx context.Context, studentID string) error {
	return s.store.Transact(ctx, func(tx *repository.Tx) error {
		st, ok := tx.Student(studentID)
		if !ok {
			return studentNotFound(studentID)
		}
		if verdict := s.policy.Evaluate(st.Record); !verdict.Eligible {
			return appErrors.Clone(appErrors.ErrNotEligible, verdict.Reason)
		}
		if st.EnrollmentStatus == models.StatusEnrolled {
			return appErrors.Clone(appErrors.ErrAlreadyEnrolled, fmt.Sprintf("student %s is already enrolled", st.ID))
		}
		st.EnrollmentStatus = models.StatusPending
		return nil
	})
}

func (s *EnrollmentService) setStatus(ctx context.Context, studentID string, status models.EnrollmentStatus) error {
	err := s.store.Transact(ctx, func(tx *repository.Tx) error {
		st, ok := tx.Student(studentID)
		if !ok {
			return studentNotFound(studentID)
		}
		st.EnrollmentStatus = status
		return nil
	})
	if err == nil {
		s.logger.Info("enrollment status changed", zap.String("student_id", studentID), zap.String("status", string(status)))
	}
	return err
}

func (s *EnrollmentService) notify(ctx context.Context, recipient string, e models.Enrollment) {
	if s.notifier == nil || recipient == "" {
		return
	}
	err := s.notifier.Notify(ctx, models.Notification{
		Recipient: recipient,
		Kind:      models.NotifyEnrollmentConfirmed,
		Fields: map[string]interface{}{
			"enrollment_id": e.ID,
			"student_id":    e.StudentID,
			"semester":      e.Semester,
			"target_year":   string(e.TargetYear),
			"enrolled_at":   e.EnrolledAt,
		},
	})
	if err != nil {
		s.logger.Warn("failed to queue enrollment notification", zap.String("enrollment_id", e.ID), zap.Error(err))
	}
}

func (s *EnrollmentService) record(err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.RecordEnrollment(enrollmentOutcome(err))
}

func enrollmentOutcome(err error) string {
	if err == nil {
		return OutcomeConfirmed
	}
	switch appErrors.FromError(err).Code {
	case appErrors.ErrNotFound.Code:
		return OutcomeNotFound
	case appErrors.ErrNotEligible.Code:
		return OutcomeNotEligible
	case appErrors.ErrAlreadyEnrolled.Code:
		return OutcomeAlreadyEnrolled
	case appErrors.ErrValidation.Code:
		return OutcomeInvalid
	}
	return OutcomeError
}
