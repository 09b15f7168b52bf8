package models

import (
	"strings"

	"github.com/noah-isme/crs-api/internal/academic"
)

// StudyYear is the level a student is currently in.
type StudyYear string

// Study years in progression order.
const (
	YearFreshman  StudyYear = "Freshman"
	YearSophomore StudyYear = "Sophomore"
	YearJunior    StudyYear = "Junior"
	YearSenior    StudyYear = "Senior"
)

var studyYears = []StudyYear{YearFreshman, YearSophomore, YearJunior, YearSenior}

// StudyYears returns the valid study years in progression order.
func StudyYears() []StudyYear {
	out := make([]StudyYear, len(studyYears))
	copy(out, studyYears)
	return out
}

// ParseStudyYear matches a study year case-insensitively.
func ParseStudyYear(raw string) (StudyYear, bool) {
	raw = strings.TrimSpace(raw)
	for _, y := range studyYears {
		if strings.EqualFold(string(y), raw) {
			return y, true
		}
	}
	return "", false
}

// EnrollmentStatus tracks where a student is in the re-enrollment cycle.
type EnrollmentStatus string

// Enrollment statuses.
const (
	StatusNotEnrolled EnrollmentStatus = "Not Enrolled"
	StatusPending     EnrollmentStatus = "Pending"
	StatusEnrolled    EnrollmentStatus = "Enrolled"
)

// Valid reports whether s is one of the known statuses.
func (s EnrollmentStatus) Valid() bool {
	switch s {
	case StatusNotEnrolled, StatusPending, StatusEnrolled:
		return true
	}
	return false
}

// Student is a learner with their academic record. Eligibility is never
// stored on the student; it is evaluated from Record when asked.
type Student struct {
	ID               string
	FirstName        string
	LastName         string
	Major            string
	Year             StudyYear
	Email            string
	EnrollmentStatus EnrollmentStatus
	Record           academic.Record
}

// FullName joins first and last name.
func (s Student) FullName() string {
	return strings.TrimSpace(s.FirstName + " " + s.LastName)
}

// StudentFilter narrows student listings.
type StudentFilter struct {
	Eligible *bool
	Major    string
	Year     StudyYear
	Search   string
}
