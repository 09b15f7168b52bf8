package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/dto"
	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/repository"
)

// EligibilityService answers read-only questions about progression. Every
// answer is computed from the current records; nothing is cached.
type EligibilityService struct {
	store  recordStore
	policy academic.Policy
	logger *zap.Logger
}

// NewEligibilityService constructs an EligibilityService.
func NewEligibilityService(store recordStore, policy academic.Policy, logger *zap.Logger) *EligibilityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EligibilityService{store: store, policy: policy.Normalize(), logger: logger}
}

// Policy returns the thresholds in force.
func (s *EligibilityService) Policy() academic.Policy {
	return s.policy
}

// ListStudents returns student views matching the filter, ordered as stored.
func (s *EligibilityService) ListStudents(ctx context.Context, filter models.StudentFilter) ([]dto.StudentView, error) {
	views := []dto.StudentView{}
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		for _, st := range tx.Students {
			if filter.Major != "" && !strings.EqualFold(st.Major, filter.Major) {
				continue
			}
			if filter.Year != "" && st.Year != filter.Year {
				continue
			}
			if search != "" && !matchesSearch(st, search) {
				continue
			}
			view := dto.NewStudentView(st, s.policy)
			if filter.Eligible != nil && view.Eligible != *filter.Eligible {
				continue
			}
			views = append(views, view)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return views, nil
}

func matchesSearch(st models.Student, needle string) bool {
	return strings.Contains(strings.ToLower(st.ID), needle) ||
		strings.Contains(strings.ToLower(st.FullName()), needle) ||
		strings.Contains(strings.ToLower(st.Email), needle)
}

// IneligibleStudents lists students who may not progress.
func (s *EligibilityService) IneligibleStudents(ctx context.Context) ([]dto.StudentView, error) {
	eligible := false
	return s.ListStudents(ctx, models.StudentFilter{Eligible: &eligible})
}

// EligibleStudents lists students who may progress.
func (s *EligibilityService) EligibleStudents(ctx context.Context) ([]dto.StudentView, error) {
	eligible := true
	return s.ListStudents(ctx, models.StudentFilter{Eligible: &eligible})
}

// StudentByID returns one student view.
func (s *EligibilityService) StudentByID(ctx context.Context, id string) (*dto.StudentView, error) {
	var view dto.StudentView
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		st, ok := tx.Student(id)
		if !ok {
			return studentNotFound(id)
		}
		view = dto.NewStudentView(*st, s.policy)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &view, nil
}

// CheckStudent returns the detailed eligibility result including failed courses.
func (s *EligibilityService) CheckStudent(ctx context.Context, id string) (*dto.EligibilityResult, error) {
	var result dto.EligibilityResult
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		st, ok := tx.Student(id)
		if !ok {
			return studentNotFound(id)
		}
		result = dto.NewEligibilityResult(*st, s.policy)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Statistics counts eligible and ineligible students. The rate is a
// percentage rounded to two decimals, 0 for an empty cohort.
func (s *EligibilityService) Statistics(ctx context.Context) (*dto.EligibilityStatistics, error) {
	stats := &dto.EligibilityStatistics{}
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		for _, st := range tx.Students {
			stats.Total++
			if s.policy.IsEligible(st.Record) {
				stats.Eligible++
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	stats.Ineligible = stats.Total - stats.Eligible
	if stats.Total > 0 {
		stats.EligibilityRatePercent = academic.Round2(float64(stats.Eligible) * 100 / float64(stats.Total))
	}
	return stats, nil
}

// StudentEnrollments returns the ledger entries of one student.
func (s *EligibilityService) StudentEnrollments(ctx context.Context, id string) ([]models.Enrollment, error) {
	out := []models.Enrollment{}
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		if _, ok := tx.Student(id); !ok {
			return studentNotFound(id)
		}
		out = append(out, tx.EnrollmentsFor(id)...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
