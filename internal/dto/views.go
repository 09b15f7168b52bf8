package dto

import (
	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/models"
)

// NewCourseResultView flattens a course record.
func NewCourseResultView(cr academic.CourseRecord) CourseResultView {
	grade := cr.Grade()
	return CourseResultView{
		CourseID:        cr.CourseID(),
		CourseName:      cr.Course().Name,
		Credits:         cr.Course().Credits,
		ExamScore:       cr.ExamScore(),
		AssignmentScore: cr.AssignmentScore(),
		TotalScore:      cr.TotalScore(),
		Letter:          grade.Letter,
		GradePoint:      grade.Point,
		QualityPoints:   academic.Round2(cr.QualityPoints()),
		Failed:          grade.Failed(),
	}
}

func courseViews(records []academic.CourseRecord) []CourseResultView {
	out := make([]CourseResultView, 0, len(records))
	for _, cr := range records {
		out = append(out, NewCourseResultView(cr))
	}
	return out
}

// NewStudentView evaluates the student under policy.
func NewStudentView(st models.Student, policy academic.Policy) StudentView {
	verdict := policy.Evaluate(st.Record)
	return StudentView{
		StudentID:        st.ID,
		FirstName:        st.FirstName,
		LastName:         st.LastName,
		FullName:         st.FullName(),
		Major:            st.Major,
		Year:             st.Year,
		Email:            st.Email,
		EnrollmentStatus: st.EnrollmentStatus,
		Credits:          st.Record.Credits(),
		CGPA:             verdict.CGPA,
		FailedCount:      verdict.FailedCount,
		Eligible:         verdict.Eligible,
		Reason:           verdict.Reason,
		Courses:          courseViews(st.Record.Courses()),
	}
}

// NewEligibilityResult builds the detailed check.
func NewEligibilityResult(st models.Student, policy academic.Policy) EligibilityResult {
	verdict := policy.Evaluate(st.Record)
	return EligibilityResult{
		StudentID:     st.ID,
		FullName:      st.FullName(),
		CGPA:          verdict.CGPA,
		FailedCount:   verdict.FailedCount,
		Eligible:      verdict.Eligible,
		Reason:        verdict.Reason,
		MinCGPA:       policy.MinCGPA,
		MaxFailed:     policy.MaxFailedCourses,
		FailedCourses: courseViews(st.Record.FailedCourses()),
	}
}
