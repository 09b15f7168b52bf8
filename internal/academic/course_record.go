package academic

import (
	"fmt"
	"math"

	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

// CourseRecord is one student's result in one course. Only the raw scores
// are stored; total, grade and quality points are derived on every call.
type CourseRecord struct {
	course          Course
	examScore       float64
	assignmentScore float64
}

// NewCourseRecord validates the scores against the course bounds.
func NewCourseRecord(course Course, examScore, assignmentScore float64) (CourseRecord, error) {
	r := CourseRecord{course: course}
	if err := r.SetExamScore(examScore); err != nil {
		return CourseRecord{}, err
	}
	if err := r.SetAssignmentScore(assignmentScore); err != nil {
		return CourseRecord{}, err
	}
	return r, nil
}

// SetExamScore replaces the exam component.
func (r *CourseRecord) SetExamScore(score float64) error {
	if err := r.checkScore("exam", score); err != nil {
		return err
	}
	r.examScore = score
	return nil
}

// SetAssignmentScore replaces the assignment component.
func (r *CourseRecord) SetAssignmentScore(score float64) error {
	if err := r.checkScore("assignment", score); err != nil {
		return err
	}
	r.assignmentScore = score
	return nil
}

func (r CourseRecord) checkScore(component string, score float64) error {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s score must be a finite number", component))
	}
	if score < 0 || score > r.course.ScoreLimit() {
		return appErrors.Clone(appErrors.ErrValidation,
			fmt.Sprintf("%s score %.2f outside [0, %.0f] for course %s", component, score, r.course.ScoreLimit(), r.course.ID))
	}
	return nil
}

// Course returns the course metadata the record was built with.
func (r CourseRecord) Course() Course { return r.course }

// CourseID returns the foreign key into the catalog.
func (r CourseRecord) CourseID() string { return r.course.ID }

// ExamScore returns the weight-adjusted exam score.
func (r CourseRecord) ExamScore() float64 { return r.examScore }

// AssignmentScore returns the weight-adjusted assignment score.
func (r CourseRecord) AssignmentScore() float64 { return r.assignmentScore }

// TotalScore sums the two components. The course weights are not applied
// here; both scores arrive already weight-adjusted.
func (r CourseRecord) TotalScore() float64 {
	return r.examScore + r.assignmentScore
}

// Grade converts the total score.
func (r CourseRecord) Grade() Grade {
	return ScoreToGrade(r.TotalScore())
}

// QualityPoints is grade point times credits.
func (r CourseRecord) QualityPoints() float64 {
	return r.Grade().Point * float64(r.course.Credits)
}

// Failed reports whether the course result counts as a failure.
func (r CourseRecord) Failed() bool {
	return r.Grade().Failed()
}
