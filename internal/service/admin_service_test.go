package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/pkg/config"
)

func TestResetDataReseedsAndKeepsAdmin(t *testing.T) {
	store := newTestStore(t, fixtureData(t))
	users := NewUserService(store, nil, nil, nil)
	admin := config.AdminConfig{Email: "admin@crs.local", Password: "admin123"}
	svc := NewAdminService(store, users, admin, nil)
	enrollments := NewEnrollmentService(store, academic.DefaultPolicy(), nil, nil, nil, nil)
	ctx := context.Background()

	require.NoError(t, users.EnsureAdmin(ctx, admin))
	_, err := users.Create(ctx, officerRequest(), "admin-1")
	require.NoError(t, err)
	_, err = enrollments.ProcessEnrollment(ctx, enrollmentRequest("S1"))
	require.NoError(t, err)

	require.NoError(t, svc.ResetData(ctx, "admin-1"))
	require.NoError(t, svc.Ping(ctx))

	st, err := store.FindStudent(ctx, "S1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotEnrolled, st.EnrollmentStatus)

	list, err := users.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "admin@crs.local", list[0].Email)
}
