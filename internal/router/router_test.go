package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/handler"
	"github.com/noah-isme/crs-api/internal/importer"
	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/repository"
	"github.com/noah-isme/crs-api/internal/service"
	"github.com/noah-isme/crs-api/pkg/config"
	"github.com/noah-isme/crs-api/pkg/export"
)

const (
	adminEmail    = "registrar@crs.local"
	adminPassword = "registrar-pass"
)

type noopNotifier struct{}

func (noopNotifier) Notify(context.Context, models.Notification) error { return nil }

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	ctx := context.Background()
	logr := zap.NewNop()
	policy := academic.DefaultPolicy()

	records := repository.NewRecordStore(
		repository.NewFileBackend(filepath.Join(t.TempDir(), "records.json")),
		nil,
		&importer.SyntheticSeeder{Students: 20, RandomSeed: 7, Policy: policy},
		logr,
	)
	require.NoError(t, records.Open(ctx))

	metrics := service.NewMetricsService()
	store := service.NewInstrumentedStore(records, metrics)
	validate := validator.New()
	admin := config.AdminConfig{Email: adminEmail, Password: adminPassword, Name: "Registrar"}

	authSvc := service.NewAuthService(store, validate, logr, service.AuthConfig{AccessTokenSecret: "test-secret"})
	userSvc := service.NewUserService(store, noopNotifier{}, validate, logr)
	require.NoError(t, userSvc.EnsureAdmin(ctx, admin))

	return New(Options{Tokens: authSvc, Metrics: metrics, Logger: logr}, Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Student:    handler.NewStudentHandler(service.NewEligibilityService(store, policy, logr), service.NewGradeService(store, policy, validate, logr)),
		Enrollment: handler.NewEnrollmentHandler(service.NewEnrollmentService(store, policy, noopNotifier{}, metrics, validate, logr)),
		Recovery:   handler.NewRecoveryHandler(service.NewRecoveryService(store, noopNotifier{}, validate, logr)),
		Report:     handler.NewReportHandler(service.NewReportService(store, policy, noopNotifier{}, export.NewCSVExporter(), logr)),
		User:       handler.NewUserHandler(userSvc),
		System:     handler.NewSystemHandler(service.NewAdminService(records, userSvc, admin, logr), metrics),
	})
}

func do(t *testing.T, r *gin.Engine, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r *gin.Engine, email, password string) string {
	t.Helper()
	w := do(t, r, http.MethodPost, "/api/v1/auth/login", "", models.LoginRequest{Email: email, Password: password})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var env struct {
		Data models.LoginResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	require.NotEmpty(t, env.Data.AccessToken)
	return env.Data.AccessToken
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	r := newTestEngine(t)

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/v1/students", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/api/v1/students", "garbage", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/ready", "", nil).Code)
}

func TestAdminFlow(t *testing.T) {
	r := newTestEngine(t)
	token := login(t, r, adminEmail, adminPassword)

	w := do(t, r, http.MethodGet, "/api/v1/students?eligible=false", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Data []struct {
			StudentID string `json:"studentId"`
			Eligible  bool   `json:"eligible"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.NotEmpty(t, list.Data)
	for _, st := range list.Data {
		assert.False(t, st.Eligible)
	}

	ineligible := list.Data[0].StudentID
	w = do(t, r, http.MethodPost, "/api/v1/enrollments", token, map[string]string{
		"studentId": ineligible, "semester": "Spring", "targetYear": "Senior",
	})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = do(t, r, http.MethodGet, "/api/v1/reports/eligibility.csv", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "StudentID,Name,Major")

	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/eligibility/statistics", token, nil).Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/api/v1/admin/reset", token, nil).Code)

	// the administrator is recreated after a reset
	login(t, r, adminEmail, adminPassword)
}

func TestStudentSeesOnlyOwnRecord(t *testing.T) {
	r := newTestEngine(t)
	admin := login(t, r, adminEmail, adminPassword)

	w := do(t, r, http.MethodPost, "/api/v1/users", admin, models.CreateUserRequest{
		Name: "Student One", Email: "s001@crs.local", Password: "student-pass", Role: models.RoleStudent, StudentID: "S001",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	token := login(t, r, "s001@crs.local", "student-pass")
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/students/S001", token, nil).Code)
	assert.Equal(t, http.StatusOK, do(t, r, http.MethodGet, "/api/v1/students/S001/eligibility", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/api/v1/students/S002", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/api/v1/students", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodPost, "/api/v1/students/S001/enrollment/reset", token, nil).Code)
	assert.Equal(t, http.StatusForbidden, do(t, r, http.MethodGet, "/api/v1/users", token, nil).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestEngine(t)
	do(t, r, http.MethodGet, "/health", "", nil)

	w := do(t, r, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "crs_store_operation_duration_seconds")
}
