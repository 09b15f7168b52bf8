// Package academic holds the grading and progression rules. It has no
// storage or transport dependencies; every function here is deterministic.
package academic

// Letter is a letter grade such as "A-" or "F".
type Letter string

// Letter grades from highest to lowest.
const (
	LetterA      Letter = "A"
	LetterAMinus Letter = "A-"
	LetterBPlus  Letter = "B+"
	LetterB      Letter = "B"
	LetterBMinus Letter = "B-"
	LetterCPlus  Letter = "C+"
	LetterC      Letter = "C"
	LetterCMinus Letter = "C-"
	LetterD      Letter = "D"
	LetterF      Letter = "F"
)

// PassingGradePoint is the lowest grade point that does not count as a failure.
const PassingGradePoint = 2.0

// Grade pairs a letter with its 4.0-scale grade point.
type Grade struct {
	Letter Letter  `json:"letter"`
	Point  float64 `json:"grade_point"`
}

// Failed reports whether the grade is strictly below C.
func (g Grade) Failed() bool {
	return g.Point < PassingGradePoint
}

type gradeBand struct {
	minScore float64
	grade    Grade
}

// gradeBands is ordered by descending inclusive lower bound.
var gradeBands = []gradeBand{
	{90, Grade{LetterA, 4.0}},
	{85, Grade{LetterAMinus, 3.7}},
	{80, Grade{LetterBPlus, 3.3}},
	{75, Grade{LetterB, 3.0}},
	{70, Grade{LetterBMinus, 2.7}},
	{65, Grade{LetterCPlus, 2.3}},
	{60, Grade{LetterC, 2.0}},
	{55, Grade{LetterCMinus, 1.7}},
	{50, Grade{LetterD, 1.0}},
}

var gradeF = Grade{LetterF, 0.0}

// ScoreToGrade converts a total score into a grade. Scores above 100 stay in
// the A band, negative scores and NaN fall into F.
func ScoreToGrade(total float64) Grade {
	for _, band := range gradeBands {
		if total >= band.minScore {
			return band.grade
		}
	}
	return gradeF
}

// GradeScale returns the conversion table, highest band first.
func GradeScale() []GradeBand {
	scale := make([]GradeBand, 0, len(gradeBands)+1)
	for _, band := range gradeBands {
		scale = append(scale, GradeBand{MinScore: band.minScore, Grade: band.grade})
	}
	return append(scale, GradeBand{MinScore: 0, Grade: gradeF})
}

// GradeBand is one row of the published grade scale.
type GradeBand struct {
	MinScore float64 `json:"min_score"`
	Grade
}
