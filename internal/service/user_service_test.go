package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/pkg/config"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

func newUserFixture(t *testing.T) (*UserService, *fakeNotifier) {
	t.Helper()
	notifier := &fakeNotifier{}
	return NewUserService(newTestStore(t, fixtureData(t)), notifier, nil, zap.NewNop()), notifier
}

func officerRequest() models.CreateUserRequest {
	return models.CreateUserRequest{Name: "Olive Officer", Email: "Olive@Uni.test", Password: "secret123", Role: models.RoleOfficer}
}

func TestCreateUser(t *testing.T) {
	svc, notifier := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Create(ctx, officerRequest(), "admin-1")
	require.NoError(t, err)
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "olive@uni.test", user.Email)
	assert.True(t, user.Active)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte("secret123")))
	assert.Equal(t, []models.NotificationKind{models.NotifyAccountCreated}, notifier.kinds())

	_, err = svc.Create(ctx, officerRequest(), "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateEntry))

	users, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestCreateStudentUserNeedsStudent(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()
	req := models.CreateUserRequest{Name: "Ada", Email: "ada@uni.test", Password: "secret123", Role: models.RoleStudent}

	_, err := svc.Create(ctx, req, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	req.StudentID = "S9"
	_, err = svc.Create(ctx, req, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	req.StudentID = "S1"
	user, err := svc.Create(ctx, req, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "S1", user.StudentID)
}

func TestUpdateUser(t *testing.T) {
	svc, notifier := newUserFixture(t)
	ctx := context.Background()
	user, err := svc.Create(ctx, officerRequest(), "admin-1")
	require.NoError(t, err)

	updated, err := svc.Update(ctx, user.ID, models.UpdateUserRequest{Name: "Olive O.", Password: "newsecret"}, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "Olive O.", updated.Name)
	assert.Equal(t, "olive@uni.test", updated.Email)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("newsecret")))
	assert.Equal(t, models.NotifyAccountUpdated, notifier.kinds()[1])

	_, err = svc.Update(ctx, user.ID, models.UpdateUserRequest{Role: models.RoleStudent}, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrValidation))

	_, err = svc.Update(ctx, "missing", models.UpdateUserRequest{Name: "x"}, "admin-1")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDeactivateUser(t *testing.T) {
	svc, notifier := newUserFixture(t)
	ctx := context.Background()
	user, err := svc.Create(ctx, officerRequest(), "admin-1")
	require.NoError(t, err)

	assert.True(t, errors.Is(svc.Deactivate(ctx, user.ID, user.ID), appErrors.ErrValidation))
	require.NoError(t, svc.Deactivate(ctx, user.ID, "admin-1"))

	got, err := svc.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, models.NotifyAccountDeactivated, notifier.kinds()[1])

	assert.True(t, errors.Is(svc.Deactivate(ctx, "missing", "admin-1"), appErrors.ErrNotFound))
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	svc, _ := newUserFixture(t)
	ctx := context.Background()
	cfg := config.AdminConfig{Email: "admin@crs.local", Password: "admin123", Name: "Admin"}

	require.NoError(t, svc.EnsureAdmin(ctx, cfg))
	require.NoError(t, svc.EnsureAdmin(ctx, cfg))

	users, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, models.RoleAdmin, users[0].Role)

	require.NoError(t, svc.EnsureAdmin(ctx, config.AdminConfig{}))
}
