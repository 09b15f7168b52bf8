package models

import (
	"strings"
	"time"
)

// Recovery task statuses.
const (
	TaskNotStarted = "Not Started"
	TaskInProgress = "In Progress"
	TaskCompleted  = "Completed"
)

// RecoveryTask is one weekly milestone of a recovery plan.
type RecoveryTask struct {
	Week        string `json:"week"`
	Description string `json:"description"`
	Status      string `json:"status"`
}

// Normalize trims the fields and defaults the status.
func (t RecoveryTask) Normalize() RecoveryTask {
	t.Week = strings.TrimSpace(t.Week)
	t.Description = strings.TrimSpace(t.Description)
	t.Status = strings.TrimSpace(t.Status)
	if t.Status == "" {
		t.Status = TaskNotStarted
	}
	return t
}

// SameAs reports whether two tasks share week and description, ignoring case.
func (t RecoveryTask) SameAs(other RecoveryTask) bool {
	a, b := t.Normalize(), other.Normalize()
	return strings.EqualFold(a.Week, b.Week) && strings.EqualFold(a.Description, b.Description)
}

// RecoveryPlan groups the tasks a student follows to recover a failed course.
type RecoveryPlan struct {
	StudentID string         `json:"student_id"`
	CourseID  string         `json:"course_id"`
	Tasks     []RecoveryTask `json:"tasks"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// RecoveryTaskRequest carries task input from the API.
type RecoveryTaskRequest struct {
	Week        string `json:"week" validate:"required,max=50"`
	Description string `json:"description" validate:"required,max=500"`
	Status      string `json:"status" validate:"omitempty,oneof='Not Started' 'In Progress' Completed"`
}
