package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/repository"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

// RecoveryService manages the recovery plans of students who failed courses.
type RecoveryService struct {
	store     recordStore
	notifier  notifier
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRecoveryService constructs RecoveryService.
func NewRecoveryService(store recordStore, notifier notifier, validate *validator.Validate, logger *zap.Logger) *RecoveryService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecoveryService{store: store, notifier: notifier, validator: validate, logger: logger, now: time.Now}
}

// ListPlans returns the plans of one student ordered by course.
func (s *RecoveryService) ListPlans(ctx context.Context, studentID string) ([]models.RecoveryPlan, error) {
	plans := []models.RecoveryPlan{}
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		if _, ok := tx.Student(studentID); !ok {
			return studentNotFound(studentID)
		}
		for _, p := range tx.RecoveryPlans {
			if p.StudentID == studentID {
				plans = append(plans, p)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(plans, func(i, j int) bool { return plans[i].CourseID < plans[j].CourseID })
	return plans, nil
}

// GetPlan returns the plan for a course. A course without a plan yields an empty one.
func (s *RecoveryService) GetPlan(ctx context.Context, studentID, courseID string) (*models.RecoveryPlan, error) {
	var plan models.RecoveryPlan
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		p, err := s.planFor(tx, studentID, courseID, false)
		if err != nil {
			return err
		}
		plan = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &plan, nil
}

// AddTask appends a task. A task with the same week and description is a duplicate.
func (s *RecoveryService) AddTask(ctx context.Context, studentID, courseID string, req models.RecoveryTaskRequest) (*models.RecoveryPlan, error) {
	task, err := s.taskFrom(req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, studentID, courseID, func(p *models.RecoveryPlan) error {
		if i := duplicateTask(p.Tasks, task, -1); i >= 0 {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("task for %s already exists", task.Week))
		}
		p.Tasks = append(p.Tasks, task)
		return nil
	})
}

// UpdateTask replaces the task at index.
func (s *RecoveryService) UpdateTask(ctx context.Context, studentID, courseID string, index int, req models.RecoveryTaskRequest) (*models.RecoveryPlan, error) {
	task, err := s.taskFrom(req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, studentID, courseID, func(p *models.RecoveryPlan) error {
		if err := checkTaskIndex(p, index); err != nil {
			return err
		}
		if i := duplicateTask(p.Tasks, task, index); i >= 0 {
			return appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("task for %s already exists", task.Week))
		}
		p.Tasks[index] = task
		return nil
	})
}

// DeleteTask removes the task at index.
func (s *RecoveryService) DeleteTask(ctx context.Context, studentID, courseID string, index int) (*models.RecoveryPlan, error) {
	return s.mutate(ctx, studentID, courseID, func(p *models.RecoveryPlan) error {
		if err := checkTaskIndex(p, index); err != nil {
			return err
		}
		p.Tasks = append(p.Tasks[:index], p.Tasks[index+1:]...)
		return nil
	})
}

// SendPlan hands the plan to the notifier for delivery to the student.
func (s *RecoveryService) SendPlan(ctx context.Context, studentID, courseID string) error {
	var plan models.RecoveryPlan
	var student models.Student
	err := s.store.View(ctx, func(tx *repository.Tx) error {
		p, err := s.planFor(tx, studentID, courseID, false)
		if err != nil {
			return err
		}
		plan = *p
		st, _ := tx.Student(studentID)
		student = *st
		return nil
	})
	if err != nil {
		return err
	}
	if len(plan.Tasks) == 0 {
		return appErrors.Clone(appErrors.ErrValidation, "recovery plan has no tasks")
	}
	if s.notifier == nil {
		return nil
	}

	tasks := make([]map[string]string, 0, len(plan.Tasks))
	for _, t := range plan.Tasks {
		tasks = append(tasks, map[string]string{"week": t.Week, "description": t.Description, "status": t.Status})
	}
	return s.notifier.Notify(ctx, models.Notification{
		Recipient: student.Email,
		Kind:      models.NotifyRecoveryPlan,
		Fields: map[string]interface{}{
			"student_id":   student.ID,
			"student_name": student.FullName(),
			"course_id":    plan.CourseID,
			"tasks":        tasks,
		},
	})
}

func (s *RecoveryService) taskFrom(req models.RecoveryTaskRequest) (models.RecoveryTask, error) {
	task := models.RecoveryTask{Week: req.Week, Description: req.Description, Status: req.Status}.Normalize()
	req = models.RecoveryTaskRequest{Week: task.Week, Description: task.Description, Status: task.Status}
	if err := s.validator.Struct(req); err != nil {
		return models.RecoveryTask{}, validationError(err, "invalid recovery task")
	}
	return task, nil
}

func (s *RecoveryService) mutate(ctx context.Context, studentID, courseID string, fn func(*models.RecoveryPlan) error) (*models.RecoveryPlan, error) {
	var plan models.RecoveryPlan
	err := s.store.Transact(ctx, func(tx *repository.Tx) error {
		p, err := s.planFor(tx, studentID, courseID, true)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		p.UpdatedAt = s.now().UTC()
		plan = *p
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("recovery plan updated",
		zap.String("student_id", studentID), zap.String("course_id", courseID), zap.Int("tasks", len(plan.Tasks)))
	return &plan, nil
}

// planFor resolves the plan of a course the student has a record for,
// attaching a new plan to tx when create is set.
func (s *RecoveryService) planFor(tx *repository.Tx, studentID, courseID string, create bool) (*models.RecoveryPlan, error) {
	st, ok := tx.Student(studentID)
	if !ok {
		return nil, studentNotFound(studentID)
	}
	if _, ok := st.Record.Find(courseID); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s has no result for course %s", studentID, courseID))
	}
	if p, ok := tx.Plan(studentID, courseID); ok {
		return p, nil
	}
	empty := models.RecoveryPlan{StudentID: studentID, CourseID: courseID, Tasks: []models.RecoveryTask{}}
	if !create {
		return &empty, nil
	}
	tx.RecoveryPlans = append(tx.RecoveryPlans, empty)
	p, _ := tx.Plan(studentID, courseID)
	return p, nil
}

func duplicateTask(tasks []models.RecoveryTask, task models.RecoveryTask, skip int) int {
	for i, t := range tasks {
		if i != skip && t.SameAs(task) {
			return i
		}
	}
	return -1
}

func checkTaskIndex(p *models.RecoveryPlan, index int) error {
	if index < 0 || index >= len(p.Tasks) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("task %d not found", index))
	}
	return nil
}
