// Package importer turns external record files into seed data for the store.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/models"
)

// Warning describes a skipped input row.
type Warning struct {
	File   string `json:"file"`
	Line   int    `json:"line"`
	Reason string `json:"reason"`
}

func (w Warning) String() string {
	return fmt.Sprintf("%s:%d: %s", w.File, w.Line, w.Reason)
}

// Result is one imported score pair.
type Result struct {
	StudentID       string
	CourseID        string
	ExamScore       float64
	AssignmentScore float64
}

type table struct {
	name    string
	columns map[string]int
	rows    [][]string
	lines   []int
	skipped []Warning
}

func readTable(name string, r io.Reader) (*table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%s: empty file", name)
	}
	if err != nil {
		return nil, fmt.Errorf("%s: read header: %w", name, err)
	}

	t := &table{name: name, columns: make(map[string]int, len(header))}
	for i, col := range header {
		col = strings.TrimPrefix(col, "\ufeff")
		t.columns[strings.ToLower(strings.TrimSpace(col))] = i
	}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			t.skipped = append(t.skipped, Warning{File: name, Line: parseErr.Line, Reason: parseErr.Err.Error()})
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		line, _ := reader.FieldPos(0)
		if len(record) != len(header) {
			t.skipped = append(t.skipped, Warning{File: name, Line: line,
				Reason: fmt.Sprintf("expected %d columns, got %d", len(header), len(record))})
			continue
		}
		t.rows = append(t.rows, record)
		t.lines = append(t.lines, line)
	}
	return t, nil
}

func (t *table) require(cols ...string) error {
	for _, col := range cols {
		if _, ok := t.columns[strings.ToLower(col)]; !ok {
			return fmt.Errorf("%s: missing column %s", t.name, col)
		}
	}
	return nil
}

func (t *table) get(row []string, col string) string {
	i, ok := t.columns[strings.ToLower(col)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (t *table) warn(i int, format string, args ...interface{}) Warning {
	return Warning{File: t.name, Line: t.lines[i], Reason: fmt.Sprintf(format, args...)}
}

func intOr(raw string, fallback int) (int, error) {
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

// ReadCourses parses CourseID, CourseName, Credits, Semester, Instructor,
// ExamWeight and AssignmentWeight columns. Missing credits default to 3 and
// missing weights to 60/40.
func ReadCourses(name string, r io.Reader) ([]academic.Course, []Warning, error) {
	t, err := readTable(name, r)
	if err != nil {
		return nil, nil, err
	}
	if err := t.require("CourseID", "CourseName"); err != nil {
		return nil, nil, err
	}

	var courses []academic.Course
	warnings := t.skipped
	seen := map[string]bool{}
	for i, row := range t.rows {
		c := academic.Course{
			ID:         t.get(row, "CourseID"),
			Name:       t.get(row, "CourseName"),
			Semester:   t.get(row, "Semester"),
			Instructor: t.get(row, "Instructor"),
		}
		var convErr error
		if c.Credits, convErr = intOr(t.get(row, "Credits"), 3); convErr != nil {
			warnings = append(warnings, t.warn(i, "invalid credits %q", t.get(row, "Credits")))
			continue
		}
		if c.ExamWeight, convErr = intOr(t.get(row, "ExamWeight"), 60); convErr != nil {
			warnings = append(warnings, t.warn(i, "invalid exam weight %q", t.get(row, "ExamWeight")))
			continue
		}
		if c.AssignmentWeight, convErr = intOr(t.get(row, "AssignmentWeight"), 40); convErr != nil {
			warnings = append(warnings, t.warn(i, "invalid assignment weight %q", t.get(row, "AssignmentWeight")))
			continue
		}
		if err := c.Validate(); err != nil {
			warnings = append(warnings, t.warn(i, "%v", err))
			continue
		}
		if seen[c.ID] {
			warnings = append(warnings, t.warn(i, "duplicate course %s", c.ID))
			continue
		}
		seen[c.ID] = true
		courses = append(courses, c)
	}
	return courses, warnings, nil
}

// ReadStudents parses StudentID, FirstName, LastName, Major, Year and Email columns.
func ReadStudents(name string, r io.Reader) ([]models.Student, []Warning, error) {
	t, err := readTable(name, r)
	if err != nil {
		return nil, nil, err
	}
	if err := t.require("StudentID", "FirstName", "LastName"); err != nil {
		return nil, nil, err
	}

	var students []models.Student
	warnings := t.skipped
	seen := map[string]bool{}
	for i, row := range t.rows {
		id := t.get(row, "StudentID")
		if id == "" {
			warnings = append(warnings, t.warn(i, "missing student id"))
			continue
		}
		if seen[id] {
			warnings = append(warnings, t.warn(i, "duplicate student %s", id))
			continue
		}
		year, ok := models.ParseStudyYear(t.get(row, "Year"))
		if !ok {
			warnings = append(warnings, t.warn(i, "student %s: unknown year %q", id, t.get(row, "Year")))
			continue
		}
		seen[id] = true
		students = append(students, models.Student{
			ID:               id,
			FirstName:        t.get(row, "FirstName"),
			LastName:         t.get(row, "LastName"),
			Major:            t.get(row, "Major"),
			Year:             year,
			Email:            t.get(row, "Email"),
			EnrollmentStatus: models.StatusNotEnrolled,
		})
	}
	return students, warnings, nil
}

// ReadResults parses StudentID, CourseID, ExamScore and AssignmentScore columns.
func ReadResults(name string, r io.Reader) ([]Result, []Warning, error) {
	t, err := readTable(name, r)
	if err != nil {
		return nil, nil, err
	}
	if err := t.require("StudentID", "CourseID", "ExamScore", "AssignmentScore"); err != nil {
		return nil, nil, err
	}

	var results []Result
	warnings := t.skipped
	for i, row := range t.rows {
		res := Result{StudentID: t.get(row, "StudentID"), CourseID: t.get(row, "CourseID")}
		if res.StudentID == "" || res.CourseID == "" {
			warnings = append(warnings, t.warn(i, "missing student or course id"))
			continue
		}
		exam, err := strconv.ParseFloat(t.get(row, "ExamScore"), 64)
		if err != nil {
			warnings = append(warnings, t.warn(i, "invalid exam score %q", t.get(row, "ExamScore")))
			continue
		}
		assignment, err := strconv.ParseFloat(t.get(row, "AssignmentScore"), 64)
		if err != nil {
			warnings = append(warnings, t.warn(i, "invalid assignment score %q", t.get(row, "AssignmentScore")))
			continue
		}
		res.ExamScore, res.AssignmentScore = exam, assignment
		results = append(results, res)
	}
	return results, warnings, nil
}

// ApplyResults attaches results to students. Rows naming an unknown student
// or course, or carrying out-of-range scores, are skipped with a warning.
func ApplyResults(students []models.Student, catalog *academic.Catalog, results []Result) []Warning {
	index := make(map[string]int, len(students))
	for i, s := range students {
		index[s.ID] = i
	}
	var warnings []Warning
	for _, res := range results {
		i, ok := index[res.StudentID]
		if !ok {
			warnings = append(warnings, Warning{File: "results", Reason: fmt.Sprintf("unknown student %s", res.StudentID)})
			continue
		}
		course, ok := catalog.Lookup(res.CourseID)
		if !ok {
			warnings = append(warnings, Warning{File: "results", Reason: fmt.Sprintf("unknown course %s", res.CourseID)})
			continue
		}
		if err := students[i].Record.SetScores(course, res.ExamScore, res.AssignmentScore); err != nil {
			warnings = append(warnings, Warning{File: "results", Reason: err.Error()})
		}
	}
	return warnings
}
