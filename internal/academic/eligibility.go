package academic

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Default progression thresholds.
const (
	DefaultMinCGPA          = 2.0
	DefaultMaxFailedCourses = 3
)

// Policy holds the progression thresholds.
type Policy struct {
	MinCGPA          float64
	MaxFailedCourses int
}

// DefaultPolicy returns the standard progression rule.
func DefaultPolicy() Policy {
	return Policy{MinCGPA: DefaultMinCGPA, MaxFailedCourses: DefaultMaxFailedCourses}
}

// Validate rejects negative thresholds. Zero is a legal minimum.
func (p Policy) Validate() error {
	if p.MinCGPA < 0 {
		return errors.New("minimum CGPA must not be negative")
	}
	if p.MaxFailedCourses < 0 {
		return errors.New("maximum failed courses must not be negative")
	}
	return nil
}

// Normalize replaces negative thresholds with the defaults.
func (p Policy) Normalize() Policy {
	if p.MinCGPA < 0 {
		p.MinCGPA = DefaultMinCGPA
	}
	if p.MaxFailedCourses < 0 {
		p.MaxFailedCourses = DefaultMaxFailedCourses
	}
	return p
}

// ReasonEligible is the reason reported for an eligible student.
const ReasonEligible = "Eligible for progression"

// Verdict is the outcome of evaluating one record.
type Verdict struct {
	Eligible     bool    `json:"eligible"`
	CGPA         float64 `json:"cgpa"`
	FailedCount  int     `json:"failed_courses"`
	CGPAViolated bool    `json:"cgpa_below_minimum"`
	FailViolated bool    `json:"too_many_failures"`
	Reason       string  `json:"reason"`
}

// Evaluate applies the policy to a record. It never mutates the record.
func (p Policy) Evaluate(r Record) Verdict {
	return p.Decide(r.CGPA(), r.FailedCount())
}

// Decide applies the policy to precomputed aggregates.
func (p Policy) Decide(cgpa float64, failed int) Verdict {
	v := Verdict{
		CGPA:         cgpa,
		FailedCount:  failed,
		CGPAViolated: cgpa < p.MinCGPA,
		FailViolated: failed > p.MaxFailedCourses,
	}
	v.Eligible = !v.CGPAViolated && !v.FailViolated

	switch {
	case v.CGPAViolated && v.FailViolated:
		v.Reason = fmt.Sprintf("CGPA below %s (%.2f) AND more than %d failed courses (%d)",
			threshold(p.MinCGPA), cgpa, p.MaxFailedCourses, failed)
	case v.CGPAViolated:
		v.Reason = fmt.Sprintf("CGPA below %s (Current: %.2f)", threshold(p.MinCGPA), cgpa)
	case v.FailViolated:
		v.Reason = fmt.Sprintf("More than %d failed courses (Failed: %d)", p.MaxFailedCourses, failed)
	default:
		v.Reason = ReasonEligible
	}
	return v
}

// IsEligible is shorthand for Evaluate(r).Eligible.
func (p Policy) IsEligible(r Record) bool {
	return p.Evaluate(r).Eligible
}

// threshold prints a CGPA limit without rounding, keeping one decimal for
// whole numbers so 2 reads as "2.0".
func threshold(v float64) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
