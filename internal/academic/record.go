package academic

import (
	"fmt"
	"math"

	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

// Record is the ordered set of course results for one student. CGPA and the
// failed count are recomputed from the course records on every call.
type Record struct {
	courses []CourseRecord
}

// NewRecord builds a record, rejecting repeated course ids.
func NewRecord(courses ...CourseRecord) (Record, error) {
	var r Record
	for _, c := range courses {
		if err := r.Add(c); err != nil {
			return Record{}, err
		}
	}
	return r, nil
}

// Add appends a course record. A second record for the same course is a duplicate.
func (r *Record) Add(c CourseRecord) error {
	if r.index(c.CourseID()) >= 0 {
		return appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("course %s already recorded", c.CourseID()))
	}
	r.courses = append(r.courses, c)
	return nil
}

// SetScores replaces the scores for a course in place, or appends a new
// record when the course has none yet.
func (r *Record) SetScores(course Course, examScore, assignmentScore float64) error {
	updated, err := NewCourseRecord(course, examScore, assignmentScore)
	if err != nil {
		return err
	}
	if i := r.index(course.ID); i >= 0 {
		r.courses[i] = updated
		return nil
	}
	r.courses = append(r.courses, updated)
	return nil
}

// Find returns the record for the given course id.
func (r Record) Find(courseID string) (CourseRecord, bool) {
	if i := r.index(courseID); i >= 0 {
		return r.courses[i], true
	}
	return CourseRecord{}, false
}

func (r Record) index(courseID string) int {
	for i, c := range r.courses {
		if c.CourseID() == courseID {
			return i
		}
	}
	return -1
}

// Courses returns a copy of the course records in stored order.
func (r Record) Courses() []CourseRecord {
	out := make([]CourseRecord, len(r.courses))
	copy(out, r.courses)
	return out
}

// Len returns the number of course records.
func (r Record) Len() int { return len(r.courses) }

// Credits returns the credits attempted.
func (r Record) Credits() int {
	total := 0
	for _, c := range r.courses {
		total += c.Course().Credits
	}
	return total
}

// CGPA is the credit-weighted mean grade point rounded to two decimals.
// An empty record has a CGPA of 0.
func (r Record) CGPA() float64 {
	credits := r.Credits()
	if credits == 0 {
		return 0
	}
	var quality float64
	for _, c := range r.courses {
		quality += c.QualityPoints()
	}
	return Round2(quality / float64(credits))
}

// FailedCount returns the number of courses with a grade point below 2.0.
func (r Record) FailedCount() int {
	n := 0
	for _, c := range r.courses {
		if c.Failed() {
			n++
		}
	}
	return n
}

// FailedCourses returns the failed course records in stored order.
func (r Record) FailedCourses() []CourseRecord {
	var out []CourseRecord
	for _, c := range r.courses {
		if c.Failed() {
			out = append(out, c)
		}
	}
	return out
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
