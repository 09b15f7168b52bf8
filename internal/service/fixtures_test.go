package service

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/repository"
)

type fixedSeeder struct {
	data *repository.SeedData
}

func (s fixedSeeder) Seed(context.Context) (*repository.SeedData, error) {
	return s.data, nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []models.Notification
	err  error
}

func (f *fakeNotifier) Notify(_ context.Context, n models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, n)
	return nil
}

func (f *fakeNotifier) kinds() []models.NotificationKind {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.NotificationKind, 0, len(f.sent))
	for _, n := range f.sent {
		out = append(out, n.Kind)
	}
	return out
}

type score struct {
	course           string
	exam, assignment float64
}

func fixtureCourses() []academic.Course {
	return []academic.Course{
		{ID: "CS101", Name: "Programming", Credits: 3, ExamWeight: 60, AssignmentWeight: 40},
		{ID: "MA201", Name: "Calculus", Credits: 3, ExamWeight: 60, AssignmentWeight: 40},
		{ID: "PH101", Name: "Physics", Credits: 3, ExamWeight: 50, AssignmentWeight: 50},
	}
}

func fixtureStudent(t *testing.T, id, last string, status models.EnrollmentStatus, scores ...score) models.Student {
	t.Helper()
	catalog, err := academic.NewCatalog(fixtureCourses())
	require.NoError(t, err)
	st := models.Student{
		ID:               id,
		FirstName:        "Student",
		LastName:         last,
		Major:            "Computer Science",
		Year:             models.YearSophomore,
		Email:            id + "@uni.test",
		EnrollmentStatus: status,
	}
	for _, sc := range scores {
		course, err := catalog.MustLookup(sc.course)
		require.NoError(t, err)
		require.NoError(t, st.Record.SetScores(course, sc.exam, sc.assignment))
	}
	return st
}

// fixtureData holds four students:
//
//	S1 eligible (CGPA 3.50), S2 ineligible (CGPA 0.85, two failures),
//	S3 eligible and already enrolled, S4 without results.
func fixtureData(t *testing.T) *repository.SeedData {
	return &repository.SeedData{
		Courses: fixtureCourses(),
		Students: []models.Student{
			fixtureStudent(t, "S1", "Lovelace", models.StatusNotEnrolled,
				score{"CS101", 50, 40}, score{"MA201", 45, 30}),
			fixtureStudent(t, "S2", "Turing", models.StatusNotEnrolled,
				score{"CS101", 30, 10}, score{"MA201", 35, 20}),
			fixtureStudent(t, "S3", "Hopper", models.StatusEnrolled,
				score{"CS101", 50, 40}),
			fixtureStudent(t, "S4", "Noether", models.StatusNotEnrolled),
		},
		Enrollments: []models.Enrollment{{
			ID:          "ENR-S3-001",
			StudentID:   "S3",
			Semester:    models.SemesterFall,
			TargetYear:  models.YearJunior,
			ProcessedBy: "system",
			EnrolledAt:  time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
			Status:      models.EnrollmentConfirmed,
		}},
	}
}

func newTestStore(t *testing.T, data *repository.SeedData) *repository.RecordStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "records.json")
	store := repository.NewRecordStore(repository.NewFileBackend(path), nil, fixedSeeder{data: data}, zap.NewNop())
	require.NoError(t, store.Open(context.Background()))
	return store
}
