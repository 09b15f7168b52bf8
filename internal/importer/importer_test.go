package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/models"
)

const coursesCSV = `CourseID,CourseName,Credits,Semester,Instructor,ExamWeight,AssignmentWeight
CS101,Intro to Programming,3,Fall,Dr. Smith,60,40
MA201,Calculus,,Spring,Dr. Chen,,
BAD1,Broken,three,Fall,Dr. X,60,40
BAD2,Weights,3,Fall,Dr. Y,70,40
CS101,Duplicate,3,Fall,Dr. Z,60,40
`

const studentsCSV = `StudentID,FirstName,LastName,Major,Year,Email
S1,Ada,Lovelace,Computer Science,Freshman,ada@uni.test
S2,Alan,Turing,Mathematics,junior,alan@uni.test
,No,Id,Physics,Senior,none@uni.test
S3,Grace,Hopper,Computer Science,Graduate,grace@uni.test
S1,Ada,Again,Computer Science,Senior,dup@uni.test
`

func TestReadCoursesAppliesDefaultsAndSkipsBadRows(t *testing.T) {
	courses, warnings, err := ReadCourses("courses.csv", strings.NewReader(coursesCSV))
	require.NoError(t, err)
	require.Len(t, courses, 2)

	assert.Equal(t, "CS101", courses[0].ID)
	assert.Equal(t, "Dr. Smith", courses[0].Instructor)
	assert.Equal(t, 3, courses[1].Credits)
	assert.Equal(t, 60, courses[1].ExamWeight)
	assert.Equal(t, 40, courses[1].AssignmentWeight)

	require.Len(t, warnings, 3)
	assert.Equal(t, 4, warnings[0].Line)
	assert.Contains(t, warnings[2].Reason, "duplicate course CS101")
}

func TestReadStudentsSkipsBadRows(t *testing.T) {
	students, warnings, err := ReadStudents("students.csv", strings.NewReader(studentsCSV))
	require.NoError(t, err)
	require.Len(t, students, 2)
	assert.Equal(t, models.YearJunior, students[1].Year)
	assert.Equal(t, models.StatusNotEnrolled, students[0].EnrollmentStatus)
	assert.Len(t, warnings, 3)
}

func TestReadSkipsRowsWithWrongColumnCount(t *testing.T) {
	students, warnings, err := ReadStudents("students.csv", strings.NewReader(`StudentID,FirstName,LastName,Major,Year,Email
S1,Ada,Lovelace,Computer Science,Freshman
S2,Alan,Turing,Mathematics,Junior,alan@uni.test,extra
S3,Grace,Hopper,Computer Science,Senior,grace@uni.test
`))
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, "S3", students[0].ID)
	require.Len(t, warnings, 2)
	assert.Equal(t, 2, warnings[0].Line)
	assert.Equal(t, "expected 6 columns, got 5", warnings[0].Reason)
	assert.Equal(t, "expected 6 columns, got 7", warnings[1].Reason)

	courses, warnings, err := ReadCourses("courses.csv", strings.NewReader(`CourseID,CourseName,Credits,Semester,Instructor,ExamWeight,AssignmentWeight
CS101,Intro
`))
	require.NoError(t, err)
	assert.Empty(t, courses)
	require.Len(t, warnings, 1)
	assert.Equal(t, "expected 7 columns, got 2", warnings[0].Reason)
}

func TestReadRejectsMissingColumns(t *testing.T) {
	_, _, err := ReadStudents("students.csv", strings.NewReader("Id,Name\n1,x\n"))
	assert.Error(t, err)
	_, _, err = ReadCourses("courses.csv", strings.NewReader(""))
	assert.Error(t, err)
}

func TestApplyResults(t *testing.T) {
	courses, _, err := ReadCourses("courses.csv", strings.NewReader(coursesCSV))
	require.NoError(t, err)
	catalog, err := academic.NewCatalog(courses)
	require.NoError(t, err)
	students, _, err := ReadStudents("students.csv", strings.NewReader(studentsCSV))
	require.NoError(t, err)

	results, warnings, err := ReadResults("results.csv", strings.NewReader(`StudentID,CourseID,ExamScore,AssignmentScore
S1,CS101,55,37
S1,MA201,40,22
S2,CS101,abc,10
S9,CS101,50,30
S2,XX100,50,30
S2,CS101,150,10
`))
	require.NoError(t, err)
	assert.Len(t, warnings, 1)

	warnings = ApplyResults(students, catalog, results)
	assert.Len(t, warnings, 3)
	// MA201 falls back to 3 credits: (4.0*3 + 2.0*3) / 6
	assert.Equal(t, 3.0, students[0].Record.CGPA())
	assert.Equal(t, 0, students[1].Record.Len())
}

func TestGeneratorIsDeterministic(t *testing.T) {
	catalog, err := academic.NewCatalog(SyntheticCourses())
	require.NoError(t, err)

	run := func() ([]models.Student, []models.Enrollment) {
		g := NewGenerator(42)
		students := g.SyntheticStudents(40)
		return students, g.AssignGrades(students, catalog, academic.DefaultPolicy())
	}
	a, ledgerA := run()
	b, ledgerB := run()

	require.Len(t, a, 40)
	require.Len(t, ledgerA, len(ledgerB))
	for i := range a {
		assert.Equal(t, a[i].ID, b[i].ID)
		assert.Equal(t, a[i].Record.CGPA(), b[i].Record.CGPA())
	}
}

func TestGeneratorHitsEligibleShare(t *testing.T) {
	catalog, err := academic.NewCatalog(SyntheticCourses())
	require.NoError(t, err)
	g := NewGenerator(42)
	students := g.SyntheticStudents(100)
	ledger := g.AssignGrades(students, catalog, academic.DefaultPolicy())

	eligible := 0
	for _, st := range students {
		if academic.DefaultPolicy().IsEligible(st.Record) {
			eligible++
		}
		for _, cr := range st.Record.Courses() {
			assert.LessOrEqual(t, cr.ExamScore(), float64(cr.Course().ExamWeight))
			assert.LessOrEqual(t, cr.AssignmentScore(), float64(cr.Course().AssignmentWeight))
		}
	}
	assert.Equal(t, 65, eligible)
	for _, e := range ledger {
		st := findStudent(students, e.StudentID)
		require.NotNil(t, st)
		assert.Equal(t, models.StatusEnrolled, st.EnrollmentStatus)
		assert.Equal(t, "ENR-"+st.ID+"-001", e.ID)
	}
}

func findStudent(students []models.Student, id string) *models.Student {
	for i := range students {
		if students[i].ID == id {
			return &students[i]
		}
	}
	return nil
}

func TestCSVSeederGeneratesGradesWithoutResultsFile(t *testing.T) {
	dir := t.TempDir()
	coursesPath := filepath.Join(dir, "courses.csv")
	studentsPath := filepath.Join(dir, "students.csv")
	require.NoError(t, os.WriteFile(coursesPath, []byte(coursesCSV), 0o600))
	require.NoError(t, os.WriteFile(studentsPath, []byte(studentsCSV), 0o600))

	seeder := &CSVSeeder{StudentsPath: studentsPath, CoursesPath: coursesPath, RandomSeed: 42}
	data, err := seeder.Seed(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Courses, 2)
	require.Len(t, data.Students, 2)
	for _, st := range data.Students {
		assert.Equal(t, 2, st.Record.Len())
	}
}

func TestCSVSeederMissingFile(t *testing.T) {
	seeder := &CSVSeeder{StudentsPath: "/nonexistent/s.csv", CoursesPath: "/nonexistent/c.csv"}
	_, err := seeder.Seed(context.Background())
	assert.Error(t, err)
}

func TestSyntheticSeeder(t *testing.T) {
	data, err := (&SyntheticSeeder{RandomSeed: 42}).Seed(context.Background())
	require.NoError(t, err)
	assert.Len(t, data.Students, DefaultSyntheticStudents)
	assert.Len(t, data.Courses, len(SyntheticCourses()))
}
