package academic

import (
	"fmt"
	"sort"
	"strings"

	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

// DefaultMaxScore bounds each score component when a course does not set one.
const DefaultMaxScore = 100

// Course describes an offering in the catalog.
type Course struct {
	ID               string `json:"course_id"`
	Name             string `json:"course_name"`
	Credits          int    `json:"credits"`
	Semester         string `json:"semester,omitempty"`
	Instructor       string `json:"instructor,omitempty"`
	ExamWeight       int    `json:"exam_weight"`
	AssignmentWeight int    `json:"assignment_weight"`
	MaxScore         int    `json:"max_score,omitempty"`
}

// ScoreLimit is the upper bound accepted for a single score component.
func (c Course) ScoreLimit() float64 {
	if c.MaxScore <= 0 {
		return DefaultMaxScore
	}
	return float64(c.MaxScore)
}

// Validate checks a course definition.
func (c Course) Validate() error {
	switch {
	case strings.TrimSpace(c.ID) == "":
		return appErrors.Clone(appErrors.ErrValidation, "course id is required")
	case c.Credits <= 0:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s: credits must be positive", c.ID))
	case c.ExamWeight < 0 || c.AssignmentWeight < 0:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s: weights must not be negative", c.ID))
	case c.ExamWeight+c.AssignmentWeight != 100:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s: weights must sum to 100", c.ID))
	case c.MaxScore < 0:
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("course %s: max score must not be negative", c.ID))
	}
	return nil
}

// Catalog is an immutable course lookup. One catalog is built per session
// and passed to whatever needs course metadata.
type Catalog struct {
	byID  map[string]Course
	order []string
}

// NewCatalog validates the courses and builds a catalog. Duplicate ids are rejected.
func NewCatalog(courses []Course) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]Course, len(courses)), order: make([]string, 0, len(courses))}
	for _, course := range courses {
		course.ID = strings.TrimSpace(course.ID)
		if err := course.Validate(); err != nil {
			return nil, err
		}
		if _, exists := c.byID[course.ID]; exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEntry, fmt.Sprintf("duplicate course %s", course.ID))
		}
		c.byID[course.ID] = course
		c.order = append(c.order, course.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// Lookup returns the course with the given id.
func (c *Catalog) Lookup(id string) (Course, bool) {
	if c == nil {
		return Course{}, false
	}
	course, ok := c.byID[id]
	return course, ok
}

// MustLookup returns the course or a NotFound error.
func (c *Catalog) MustLookup(id string) (Course, error) {
	course, ok := c.Lookup(id)
	if !ok {
		return Course{}, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("course %s not found", id))
	}
	return course, nil
}

// Courses returns the catalog content ordered by id.
func (c *Catalog) Courses() []Course {
	if c == nil {
		return nil
	}
	out := make([]Course, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}

// Len returns the number of courses.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}
