package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/dto"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

func scores(exam, assignment float64) dto.RecordScoresRequest {
	return dto.RecordScoresRequest{ExamScore: &exam, AssignmentScore: &assignment}
}

func TestRecordScoresAddsCourse(t *testing.T) {
	store := newTestStore(t, fixtureData(t))
	svc := NewGradeService(store, academic.DefaultPolicy(), nil, nil)

	view, err := svc.RecordScores(context.Background(), "S4", "PH101", scores(40, 35))
	require.NoError(t, err)
	require.Len(t, view.Courses, 1)
	assert.Equal(t, 75.0, view.Courses[0].TotalScore)
	assert.Equal(t, academic.LetterB, view.Courses[0].Letter)
	assert.Equal(t, 3.0, view.CGPA)

	st, err := store.FindStudent(context.Background(), "S4")
	require.NoError(t, err)
	assert.Equal(t, 1, st.Record.Len())
}

func TestRecordScoresReplacesExistingCourse(t *testing.T) {
	store := newTestStore(t, fixtureData(t))
	svc := NewGradeService(store, academic.DefaultPolicy(), nil, nil)

	view, err := svc.RecordScores(context.Background(), "S1", "MA201", scores(20, 10))
	require.NoError(t, err)
	assert.Len(t, view.Courses, 2)
	assert.Equal(t, 1, view.FailedCount)
	assert.Equal(t, 2.0, view.CGPA)
}

func TestRecordScoresErrors(t *testing.T) {
	svc := NewGradeService(newTestStore(t, fixtureData(t)), academic.DefaultPolicy(), nil, nil)
	ctx := context.Background()

	_, err := svc.RecordScores(ctx, "S9", "CS101", scores(10, 10))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.RecordScores(ctx, "S1", "XX999", scores(10, 10))
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = svc.RecordScores(ctx, "S1", "CS101", scores(120, 10))
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.RecordScores(ctx, "S1", "CS101", dto.RecordScoresRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	view, err := NewEligibilityService(svc.store, academic.DefaultPolicy(), nil).StudentByID(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, 3.5, view.CGPA)
}
