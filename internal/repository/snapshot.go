package repository

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/models"
)

// SchemaVersion is the layout version written into every snapshot.
const SchemaVersion = 1

// ErrNoSnapshot is returned by a Backend that has nothing stored yet.
var ErrNoSnapshot = errors.New("no snapshot stored")

// errStaleRevision is returned by a Backend when the stored revision moved
// past the one the write was based on.
var errStaleRevision = errors.New("stale snapshot revision")

// Snapshot is the persisted form of the whole data set. Derived academic
// values (totals, grades, CGPA, eligibility) are never part of it.
type Snapshot struct {
	SchemaVersion int                   `json:"schema_version"`
	Revision      int64                 `json:"revision"`
	SavedAt       time.Time             `json:"saved_at"`
	Courses       []academic.Course     `json:"courses"`
	Students      []StudentDocument     `json:"students"`
	Enrollments   []models.Enrollment   `json:"enrollments"`
	RecoveryPlans []models.RecoveryPlan `json:"recovery_plans"`
	Users         []UserDocument        `json:"users"`
}

// StudentDocument is the stored shape of a student.
type StudentDocument struct {
	ID               string                  `json:"student_id"`
	FirstName        string                  `json:"first_name"`
	LastName         string                  `json:"last_name"`
	Major            string                  `json:"major"`
	Year             models.StudyYear        `json:"year"`
	Email            string                  `json:"email"`
	EnrollmentStatus models.EnrollmentStatus `json:"enrollment_status"`
	Results          []ResultDocument        `json:"results"`
}

// ResultDocument holds the raw scores of one course record.
type ResultDocument struct {
	CourseID        string  `json:"course_id"`
	ExamScore       float64 `json:"exam_score"`
	AssignmentScore float64 `json:"assignment_score"`
}

// UserDocument is the stored shape of a user, including the password hash
// that models.User keeps out of API responses.
type UserDocument struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Email        string          `json:"email"`
	PasswordHash string          `json:"password_hash"`
	Role         models.UserRole `json:"role"`
	StudentID    string          `json:"student_id,omitempty"`
	Active       bool            `json:"active"`
	LastLogin    *time.Time      `json:"last_login,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func encodeStudent(s models.Student) StudentDocument {
	doc := StudentDocument{
		ID:               s.ID,
		FirstName:        s.FirstName,
		LastName:         s.LastName,
		Major:            s.Major,
		Year:             s.Year,
		Email:            s.Email,
		EnrollmentStatus: s.EnrollmentStatus,
		Results:          make([]ResultDocument, 0, s.Record.Len()),
	}
	for _, cr := range s.Record.Courses() {
		doc.Results = append(doc.Results, ResultDocument{
			CourseID:        cr.CourseID(),
			ExamScore:       cr.ExamScore(),
			AssignmentScore: cr.AssignmentScore(),
		})
	}
	return doc
}

func decodeStudent(doc StudentDocument, catalog *academic.Catalog) (models.Student, error) {
	s := models.Student{
		ID:               doc.ID,
		FirstName:        doc.FirstName,
		LastName:         doc.LastName,
		Major:            doc.Major,
		Year:             doc.Year,
		Email:            doc.Email,
		EnrollmentStatus: doc.EnrollmentStatus,
	}
	if s.EnrollmentStatus == "" {
		s.EnrollmentStatus = models.StatusNotEnrolled
	}
	for _, res := range doc.Results {
		course, err := catalog.MustLookup(res.CourseID)
		if err != nil {
			return models.Student{}, fmt.Errorf("student %s: %w", doc.ID, err)
		}
		cr, err := academic.NewCourseRecord(course, res.ExamScore, res.AssignmentScore)
		if err != nil {
			return models.Student{}, fmt.Errorf("student %s: %w", doc.ID, err)
		}
		if err := s.Record.Add(cr); err != nil {
			return models.Student{}, fmt.Errorf("student %s: %w", doc.ID, err)
		}
	}
	return s, nil
}

func encodeUser(u models.User) UserDocument {
	return UserDocument{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		Role:         u.Role,
		StudentID:    u.StudentID,
		Active:       u.Active,
		LastLogin:    u.LastLogin,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func decodeUser(d UserDocument) models.User {
	return models.User{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Role:         d.Role,
		StudentID:    d.StudentID,
		Active:       d.Active,
		LastLogin:    d.LastLogin,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
	}
}
