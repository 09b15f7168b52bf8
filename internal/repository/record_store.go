package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/models"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

// SeedData is the initial content written when no snapshot exists.
type SeedData struct {
	Courses     []academic.Course
	Students    []models.Student
	Enrollments []models.Enrollment
	Users       []models.User
}

// Seeder produces the initial data set.
type Seeder interface {
	Seed(ctx context.Context) (*SeedData, error)
}

// Tx is the decoded data set handed to a Transact callback. Mutations made
// to it are written back as one snapshot when the callback returns nil.
type Tx struct {
	Revision      int64
	Catalog       *academic.Catalog
	Students      []models.Student
	Enrollments   []models.Enrollment
	RecoveryPlans []models.RecoveryPlan
	Users         []models.User
}

// Student returns a pointer into Students for in-place edits.
func (tx *Tx) Student(id string) (*models.Student, bool) {
	for i := range tx.Students {
		if tx.Students[i].ID == id {
			return &tx.Students[i], true
		}
	}
	return nil, false
}

// EnrollmentsFor returns the ledger entries of one student in ledger order.
func (tx *Tx) EnrollmentsFor(studentID string) []models.Enrollment {
	var out []models.Enrollment
	for _, e := range tx.Enrollments {
		if e.StudentID == studentID {
			out = append(out, e)
		}
	}
	return out
}

// User returns a pointer into Users.
func (tx *Tx) User(id string) (*models.User, bool) {
	for i := range tx.Users {
		if tx.Users[i].ID == id {
			return &tx.Users[i], true
		}
	}
	return nil, false
}

// UserByEmail matches the email case-insensitively.
func (tx *Tx) UserByEmail(email string) (*models.User, bool) {
	email = strings.TrimSpace(email)
	for i := range tx.Users {
		if strings.EqualFold(tx.Users[i].Email, email) {
			return &tx.Users[i], true
		}
	}
	return nil, false
}

// Plan returns a pointer to the recovery plan for a student and course.
func (tx *Tx) Plan(studentID, courseID string) (*models.RecoveryPlan, bool) {
	for i := range tx.RecoveryPlans {
		p := &tx.RecoveryPlans[i]
		if p.StudentID == studentID && p.CourseID == courseID {
			return p, true
		}
	}
	return nil, false
}

// RecordStore is the single persistence entry point. Every mutation runs as
// lock, load, mutate, save with a revision check on save.
type RecordStore struct {
	backend Backend
	locker  Locker
	seeder  Seeder
	logger  *zap.Logger
	now     func() time.Time

	mu      sync.RWMutex
	catalog *academic.Catalog
}

// NewRecordStore wires a store. A nil locker defaults to an in-process lock.
func NewRecordStore(backend Backend, locker Locker, seeder Seeder, logger *zap.Logger) *RecordStore {
	if locker == nil {
		locker = NewLocalLocker()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RecordStore{
		backend: backend,
		locker:  locker,
		seeder:  seeder,
		logger:  logger,
		now:     time.Now,
	}
}

// Open makes sure a snapshot exists, seeding one when the backend is empty,
// and caches the catalog.
func (s *RecordStore) Open(ctx context.Context) error {
	return s.View(ctx, func(*Tx) error { return nil })
}

// Catalog returns the course catalog of the current data set.
func (s *RecordStore) Catalog(ctx context.Context) (*academic.Catalog, error) {
	s.mu.RLock()
	cat := s.catalog
	s.mu.RUnlock()
	if cat != nil {
		return cat, nil
	}
	if err := s.Open(ctx); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.catalog, nil
}

// View runs fn against a freshly loaded data set without saving it.
func (s *RecordStore) View(ctx context.Context, fn func(*Tx) error) error {
	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	tx, err := s.decode(snap)
	if err != nil {
		return err
	}
	return fn(tx)
}

// Transact runs fn under the store lock and persists every change it made
// as one snapshot. When fn returns an error nothing is written.
func (s *RecordStore) Transact(ctx context.Context, fn func(*Tx) error) error {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return appErrors.Persistence(err, "acquire store lock")
	}
	defer unlock()

	snap, err := s.load(ctx)
	if err != nil {
		return err
	}
	tx, err := s.decode(snap)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		return err
	}
	return s.save(ctx, tx, snap.Revision)
}

// LoadStudents returns every student with their academic record.
func (s *RecordStore) LoadStudents(ctx context.Context) ([]models.Student, error) {
	var out []models.Student
	err := s.View(ctx, func(tx *Tx) error {
		out = tx.Students
		return nil
	})
	return out, err
}

// SaveStudents replaces the student collection.
func (s *RecordStore) SaveStudents(ctx context.Context, students []models.Student) error {
	return s.Transact(ctx, func(tx *Tx) error {
		tx.Students = students
		return nil
	})
}

// LoadEnrollments returns the enrollment ledger.
func (s *RecordStore) LoadEnrollments(ctx context.Context) ([]models.Enrollment, error) {
	var out []models.Enrollment
	err := s.View(ctx, func(tx *Tx) error {
		out = tx.Enrollments
		return nil
	})
	return out, err
}

// SaveEnrollments replaces the enrollment ledger.
func (s *RecordStore) SaveEnrollments(ctx context.Context, enrollments []models.Enrollment) error {
	return s.Transact(ctx, func(tx *Tx) error {
		tx.Enrollments = enrollments
		return nil
	})
}

// FindStudent loads one student by id.
func (s *RecordStore) FindStudent(ctx context.Context, id string) (*models.Student, error) {
	var found *models.Student
	err := s.View(ctx, func(tx *Tx) error {
		st, ok := tx.Student(id)
		if !ok {
			return studentNotFound(id)
		}
		found = st
		return nil
	})
	return found, err
}

// UpdateStudent replaces the stored student with the same id. Unknown ids
// fail with NotFound and leave the store untouched.
func (s *RecordStore) UpdateStudent(ctx context.Context, student models.Student) error {
	return s.Transact(ctx, func(tx *Tx) error {
		current, ok := tx.Student(student.ID)
		if !ok {
			return studentNotFound(student.ID)
		}
		*current = student
		return nil
	})
}

// Reset replaces the stored snapshot with freshly seeded data. The seed is
// built before anything is written, so a failing seeder leaves the current
// snapshot in place.
func (s *RecordStore) Reset(ctx context.Context) error {
	unlock, err := s.locker.Lock(ctx)
	if err != nil {
		return appErrors.Persistence(err, "acquire store lock")
	}
	defer unlock()

	tx, err := s.seed(ctx)
	if err != nil {
		return err
	}

	var base int64
	current, err := s.backend.Read(ctx)
	switch {
	case err == nil:
		base = current.Revision
	case errors.Is(err, ErrNoSnapshot):
	default:
		// Unreadable snapshot: replace it outright.
		s.logger.Warn("discarding unreadable snapshot on reset", zap.Error(err))
		if err := s.backend.Delete(ctx); err != nil {
			return appErrors.Persistence(err, "delete snapshot")
		}
	}

	if err := s.backend.Write(ctx, s.encode(tx, base+1), base); err != nil {
		if errors.Is(err, errStaleRevision) {
			return appErrors.Clone(appErrors.ErrConflict, "snapshot changed during reset")
		}
		return appErrors.Persistence(err, "write seed snapshot")
	}
	s.mu.Lock()
	s.catalog = tx.Catalog
	s.mu.Unlock()

	s.logger.Info("record store reset", zap.Int64("revision", base+1))
	return nil
}

func studentNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("student %s not found", id))
}

func (s *RecordStore) load(ctx context.Context) (*Snapshot, error) {
	snap, err := s.backend.Read(ctx)
	if errors.Is(err, ErrNoSnapshot) {
		return s.bootstrap(ctx)
	}
	if err != nil {
		return nil, appErrors.Persistence(err, "load snapshot")
	}
	return snap, nil
}

// bootstrap seeds the backend. A concurrent process that seeded first wins
// and its snapshot is read back.
func (s *RecordStore) bootstrap(ctx context.Context) (*Snapshot, error) {
	tx, err := s.seed(ctx)
	if err != nil {
		return nil, err
	}
	snap := s.encode(tx, 1)
	if err := s.backend.Write(ctx, snap, 0); err != nil {
		if errors.Is(err, errStaleRevision) {
			existing, readErr := s.backend.Read(ctx)
			if readErr != nil {
				return nil, appErrors.Persistence(readErr, "load snapshot")
			}
			return existing, nil
		}
		return nil, appErrors.Persistence(err, "write seed snapshot")
	}
	s.logger.Info("record store seeded",
		zap.Int("courses", tx.Catalog.Len()),
		zap.Int("students", len(tx.Students)),
		zap.Int("enrollments", len(tx.Enrollments)))
	return snap, nil
}

// seed runs the seeder and validates its catalog without touching the backend.
func (s *RecordStore) seed(ctx context.Context) (*Tx, error) {
	if s.seeder == nil {
		return nil, appErrors.Persistence(ErrNoSnapshot, "no snapshot and no seeder configured")
	}
	data, err := s.seeder.Seed(ctx)
	if err != nil {
		return nil, appErrors.Persistence(err, "seed data")
	}
	catalog, err := academic.NewCatalog(data.Courses)
	if err != nil {
		return nil, appErrors.Persistence(err, "seed catalog")
	}
	return &Tx{
		Catalog:     catalog,
		Students:    data.Students,
		Enrollments: data.Enrollments,
		Users:       data.Users,
	}, nil
}

func (s *RecordStore) decode(snap *Snapshot) (*Tx, error) {
	catalog, err := s.catalogFor(snap)
	if err != nil {
		return nil, err
	}
	tx := &Tx{
		Revision:      snap.Revision,
		Catalog:       catalog,
		Students:      make([]models.Student, 0, len(snap.Students)),
		Enrollments:   append([]models.Enrollment(nil), snap.Enrollments...),
		RecoveryPlans: make([]models.RecoveryPlan, 0, len(snap.RecoveryPlans)),
		Users:         make([]models.User, 0, len(snap.Users)),
	}
	for _, doc := range snap.Students {
		st, err := decodeStudent(doc, catalog)
		if err != nil {
			return nil, appErrors.Persistence(err, "decode snapshot")
		}
		tx.Students = append(tx.Students, st)
	}
	for _, p := range snap.RecoveryPlans {
		p.Tasks = append([]models.RecoveryTask(nil), p.Tasks...)
		tx.RecoveryPlans = append(tx.RecoveryPlans, p)
	}
	for _, u := range snap.Users {
		tx.Users = append(tx.Users, decodeUser(u))
	}
	return tx, nil
}

// catalogFor reuses the cached catalog while the snapshot carries the same
// course list, which holds for every write except a reset.
func (s *RecordStore) catalogFor(snap *Snapshot) (*academic.Catalog, error) {
	s.mu.RLock()
	cached := s.catalog
	s.mu.RUnlock()
	if cached != nil && sameCourses(cached.Courses(), snap.Courses) {
		return cached, nil
	}
	catalog, err := academic.NewCatalog(snap.Courses)
	if err != nil {
		return nil, appErrors.Persistence(err, "decode catalog")
	}
	s.mu.Lock()
	s.catalog = catalog
	s.mu.Unlock()
	return catalog, nil
}

func sameCourses(sorted, stored []academic.Course) bool {
	if len(sorted) != len(stored) {
		return false
	}
	byID := make(map[string]academic.Course, len(sorted))
	for _, c := range sorted {
		byID[c.ID] = c
	}
	for _, c := range stored {
		if byID[strings.TrimSpace(c.ID)] != c {
			return false
		}
	}
	return true
}

func (s *RecordStore) encode(tx *Tx, revision int64) *Snapshot {
	snap := &Snapshot{
		SchemaVersion: SchemaVersion,
		Revision:      revision,
		SavedAt:       s.now().UTC(),
		Courses:       tx.Catalog.Courses(),
		Students:      make([]StudentDocument, 0, len(tx.Students)),
		Enrollments:   tx.Enrollments,
		RecoveryPlans: tx.RecoveryPlans,
		Users:         make([]UserDocument, 0, len(tx.Users)),
	}
	for _, st := range tx.Students {
		snap.Students = append(snap.Students, encodeStudent(st))
	}
	for _, u := range tx.Users {
		snap.Users = append(snap.Users, encodeUser(u))
	}
	return snap
}

func (s *RecordStore) save(ctx context.Context, tx *Tx, baseRevision int64) error {
	snap := s.encode(tx, baseRevision+1)
	if err := s.backend.Write(ctx, snap, baseRevision); err != nil {
		if errors.Is(err, errStaleRevision) {
			return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "store was modified concurrently")
		}
		return appErrors.Persistence(err, "save snapshot")
	}
	s.logger.Debug("snapshot saved", zap.Int64("revision", snap.Revision))
	return nil
}
