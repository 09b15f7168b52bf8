package dto

import (
	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/models"
)

// CourseResultView is one course row with its derived grade.
type CourseResultView struct {
	CourseID        string          `json:"courseId"`
	CourseName      string          `json:"courseName"`
	Credits         int             `json:"credits"`
	ExamScore       float64         `json:"examScore"`
	AssignmentScore float64         `json:"assignmentScore"`
	TotalScore      float64         `json:"totalScore"`
	Letter          academic.Letter `json:"letter"`
	GradePoint      float64         `json:"gradePoint"`
	QualityPoints   float64         `json:"qualityPoints"`
	Failed          bool            `json:"failed"`
}

// StudentView is a student with eligibility evaluated at read time.
type StudentView struct {
	StudentID        string                  `json:"studentId"`
	FirstName        string                  `json:"firstName"`
	LastName         string                  `json:"lastName"`
	FullName         string                  `json:"fullName"`
	Major            string                  `json:"major"`
	Year             models.StudyYear        `json:"year"`
	Email            string                  `json:"email"`
	EnrollmentStatus models.EnrollmentStatus `json:"enrollmentStatus"`
	Credits          int                     `json:"credits"`
	CGPA             float64                 `json:"cgpa"`
	FailedCount      int                     `json:"failedCount"`
	Eligible         bool                    `json:"eligible"`
	Reason           string                  `json:"reason"`
	Courses          []CourseResultView      `json:"courses"`
}

// EligibilityResult is the detailed check for one student.
type EligibilityResult struct {
	StudentID     string             `json:"studentId"`
	FullName      string             `json:"fullName"`
	CGPA          float64            `json:"cgpa"`
	FailedCount   int                `json:"failedCount"`
	Eligible      bool               `json:"eligible"`
	Reason        string             `json:"reason"`
	MinCGPA       float64            `json:"minCgpa"`
	MaxFailed     int                `json:"maxFailedCourses"`
	FailedCourses []CourseResultView `json:"failedCourses"`
}

// EligibilityStatistics summarises the cohort.
type EligibilityStatistics struct {
	Total                  int     `json:"total"`
	Eligible               int     `json:"eligible"`
	Ineligible             int     `json:"ineligible"`
	EligibilityRatePercent float64 `json:"eligibilityRatePercent"`
}

// RecordScoresRequest carries a grade entry. Pointers distinguish a zero score from a missing one.
type RecordScoresRequest struct {
	ExamScore       *float64 `json:"examScore" validate:"required,gte=0"`
	AssignmentScore *float64 `json:"assignmentScore" validate:"required,gte=0"`
}

// AcademicReportRequest selects the semester named in a report.
type AcademicReportRequest struct {
	Semester string `json:"semester" validate:"omitempty,max=50"`
}

// EnrollmentRequest is the API body for POST /enrollments.
type EnrollmentRequest struct {
	StudentID  string `json:"studentId"`
	Semester   string `json:"semester"`
	TargetYear string `json:"targetYear"`
	Remarks    string `json:"remarks"`
}
