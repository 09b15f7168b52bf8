package importer

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/repository"
)

// DefaultSyntheticStudents is the cohort size of the synthetic seeder.
const DefaultSyntheticStudents = 100

// SyntheticSeeder generates a complete cohort from a fixed seed.
type SyntheticSeeder struct {
	Students   int
	RandomSeed int64
	Policy     academic.Policy
	Logger     *zap.Logger
}

// Seed implements repository.Seeder.
func (s *SyntheticSeeder) Seed(ctx context.Context) (*repository.SeedData, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := s.Students
	if n <= 0 {
		n = DefaultSyntheticStudents
	}
	catalog, err := academic.NewCatalog(SyntheticCourses())
	if err != nil {
		return nil, err
	}
	gen := NewGenerator(s.RandomSeed)
	students := gen.SyntheticStudents(n)
	ledger := gen.AssignGrades(students, catalog, seedPolicy(s.Policy))

	logger(s.Logger).Info("generated synthetic cohort",
		zap.Int("students", len(students)), zap.Int("courses", catalog.Len()), zap.Int("pre_enrolled", len(ledger)))
	return &repository.SeedData{Courses: catalog.Courses(), Students: students, Enrollments: ledger}, nil
}

// CSVSeeder reads students and courses from CSV files. Results come from a
// third file when configured, otherwise they are generated from RandomSeed.
type CSVSeeder struct {
	StudentsPath string
	CoursesPath  string
	ResultsPath  string
	RandomSeed   int64
	Policy       academic.Policy
	Logger       *zap.Logger
}

// Seed implements repository.Seeder.
func (s *CSVSeeder) Seed(ctx context.Context) (*repository.SeedData, error) {
	log := logger(s.Logger)

	var courses []academic.Course
	if err := readFile(ctx, s.CoursesPath, func(f *os.File) error {
		var warnings []Warning
		var err error
		courses, warnings, err = ReadCourses(s.CoursesPath, f)
		logWarnings(log, warnings)
		return err
	}); err != nil {
		return nil, err
	}
	catalog, err := academic.NewCatalog(courses)
	if err != nil {
		return nil, err
	}

	data := &repository.SeedData{Courses: catalog.Courses()}
	if err := readFile(ctx, s.StudentsPath, func(f *os.File) error {
		var warnings []Warning
		var err error
		data.Students, warnings, err = ReadStudents(s.StudentsPath, f)
		logWarnings(log, warnings)
		return err
	}); err != nil {
		return nil, err
	}

	if s.ResultsPath != "" {
		if err := readFile(ctx, s.ResultsPath, func(f *os.File) error {
			results, warnings, err := ReadResults(s.ResultsPath, f)
			if err != nil {
				return err
			}
			logWarnings(log, warnings)
			logWarnings(log, ApplyResults(data.Students, catalog, results))
			return nil
		}); err != nil {
			return nil, err
		}
	} else {
		data.Enrollments = NewGenerator(s.RandomSeed).AssignGrades(data.Students, catalog, seedPolicy(s.Policy))
	}

	log.Info("imported records from csv",
		zap.Int("students", len(data.Students)), zap.Int("courses", catalog.Len()), zap.Int("pre_enrolled", len(data.Enrollments)))
	return data, nil
}

func readFile(ctx context.Context, path string, fn func(*os.File) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return fn(f)
}

func logWarnings(log *zap.Logger, warnings []Warning) {
	for _, w := range warnings {
		log.Warn("skipped import row", zap.String("file", w.File), zap.Int("line", w.Line), zap.String("reason", w.Reason))
	}
}

func logger(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}

// seedPolicy falls back to the default rule when no policy was set.
func seedPolicy(p academic.Policy) academic.Policy {
	if p == (academic.Policy{}) {
		return academic.DefaultPolicy()
	}
	return p.Normalize()
}
