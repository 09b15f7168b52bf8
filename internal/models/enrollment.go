package models

import "time"

// EnrollmentRecordStatus is the state of a ledger entry.
type EnrollmentRecordStatus string

// Ledger entries are written once as Confirmed.
const (
	EnrollmentConfirmed EnrollmentRecordStatus = "Confirmed"
)

// Semesters accepted for re-enrollment.
const (
	SemesterSpring = "Spring"
	SemesterSummer = "Summer"
	SemesterFall   = "Fall"
)

// Enrollment is an append-only ledger entry recording one progression.
type Enrollment struct {
	ID          string                 `json:"enrollment_id"`
	StudentID   string                 `json:"student_id"`
	Semester    string                 `json:"semester"`
	TargetYear  StudyYear              `json:"target_year"`
	ProcessedBy string                 `json:"processed_by"`
	EnrolledAt  time.Time              `json:"enrolled_at"`
	Status      EnrollmentRecordStatus `json:"status"`
	Remarks     string                 `json:"remarks,omitempty"`
}

// EnrollmentRequest is the input of the enrollment workflow.
type EnrollmentRequest struct {
	StudentID  string `json:"student_id" validate:"required"`
	Semester   string `json:"semester" validate:"required,oneof=Spring Summer Fall"`
	TargetYear string `json:"target_year" validate:"required,oneof=Freshman Sophomore Junior Senior"`
	Actor      string `json:"-" validate:"required"`
	Remarks    string `json:"remarks" validate:"omitempty,max=255"`
}
