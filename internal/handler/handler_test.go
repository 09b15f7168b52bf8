package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/crs-api/internal/dto"
	"github.com/noah-isme/crs-api/internal/middleware"
	"github.com/noah-isme/crs-api/internal/models"
	appErrors "github.com/noah-isme/crs-api/pkg/errors"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

type envelope struct {
	Data  json.RawMessage        `json:"data"`
	Error *appErrors.Error       `json:"error"`
	Meta  map[string]interface{} `json:"meta"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

type eligibilityServiceMock struct {
	filter models.StudentFilter
	views  []dto.StudentView
	view   *dto.StudentView
	stats  *dto.EligibilityStatistics
	ledger []models.Enrollment
	err    error
}

func (m *eligibilityServiceMock) ListStudents(_ context.Context, filter models.StudentFilter) ([]dto.StudentView, error) {
	m.filter = filter
	return m.views, m.err
}

func (m *eligibilityServiceMock) StudentByID(context.Context, string) (*dto.StudentView, error) {
	return m.view, m.err
}

func (m *eligibilityServiceMock) CheckStudent(context.Context, string) (*dto.EligibilityResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &dto.EligibilityResult{StudentID: m.view.StudentID}, nil
}

func (m *eligibilityServiceMock) Statistics(context.Context) (*dto.EligibilityStatistics, error) {
	return m.stats, m.err
}

func (m *eligibilityServiceMock) StudentEnrollments(context.Context, string) ([]models.Enrollment, error) {
	return m.ledger, m.err
}

type enrollmentServiceMock struct {
	req models.EnrollmentRequest
	err error
}

func (m *enrollmentServiceMock) ProcessEnrollment(_ context.Context, req models.EnrollmentRequest) (*models.Enrollment, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.Enrollment{ID: "ENR-" + req.StudentID + "-001", StudentID: req.StudentID, ProcessedBy: req.Actor}, nil
}

func (m *enrollmentServiceMock) ResetStatus(context.Context, string) error { return m.err }

func (m *enrollmentServiceMock) MarkPending(context.Context, string) error { return m.err }

func TestStudentListParsesFilter(t *testing.T) {
	mock := &eligibilityServiceMock{views: []dto.StudentView{{StudentID: "S2"}}}
	h := NewStudentHandler(mock, nil)

	c, w := newGinContext(http.MethodGet, "/students?eligible=false&year=junior&major=Physics", nil)
	h.List(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.filter.Eligible)
	assert.False(t, *mock.filter.Eligible)
	assert.Equal(t, models.YearJunior, mock.filter.Year)
	assert.Equal(t, "Physics", mock.filter.Major)
	assert.Equal(t, float64(1), decode(t, w).Meta["count"])
}

func TestStudentListRejectsBadFilter(t *testing.T) {
	h := NewStudentHandler(&eligibilityServiceMock{}, nil)

	c, w := newGinContext(http.MethodGet, "/students?eligible=maybe", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodGet, "/students?year=graduate", nil)
	h.List(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestStudentGetMapsNotFound(t *testing.T) {
	h := NewStudentHandler(&eligibilityServiceMock{err: appErrors.Clone(appErrors.ErrNotFound, "student S9 not found")}, nil)

	c, w := newGinContext(http.MethodGet, "/students/S9", nil)
	c.Params = gin.Params{{Key: "id", Value: "S9"}}
	h.Get(c)

	require.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	require.NotNil(t, env.Error)
	assert.Equal(t, "NOT_FOUND", env.Error.Code)
}

func TestStatistics(t *testing.T) {
	h := NewStudentHandler(&eligibilityServiceMock{stats: &dto.EligibilityStatistics{Total: 3, Eligible: 2, Ineligible: 1, EligibilityRatePercent: 66.67}}, nil)

	c, w := newGinContext(http.MethodGet, "/eligibility/statistics", nil)
	h.Statistics(c)

	require.Equal(t, http.StatusOK, w.Code)
	var stats dto.EligibilityStatistics
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &stats))
	assert.Equal(t, 66.67, stats.EligibilityRatePercent)
}

func TestEnrollmentCreateUsesCaller(t *testing.T) {
	mock := &enrollmentServiceMock{}
	h := NewEnrollmentHandler(mock)

	body, _ := json.Marshal(dto.EnrollmentRequest{StudentID: "S1", Semester: "Spring", TargetYear: "junior"})
	c, w := newGinContext(http.MethodPost, "/enrollments", body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "u1", Email: "officer@crs.local", Role: models.RoleOfficer})
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "officer@crs.local", mock.req.Actor)
	assert.Equal(t, string(models.YearJunior), mock.req.TargetYear)
}

func TestEnrollmentCreateErrorStatuses(t *testing.T) {
	tests := []struct {
		err  *appErrors.Error
		code int
	}{
		{appErrors.ErrAlreadyEnrolled, http.StatusConflict},
		{appErrors.ErrNotEligible, http.StatusUnprocessableEntity},
		{appErrors.ErrNotFound, http.StatusNotFound},
		{appErrors.ErrValidation, http.StatusBadRequest},
		{appErrors.ErrPersistence, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.err.Code, func(t *testing.T) {
			h := NewEnrollmentHandler(&enrollmentServiceMock{err: tt.err})
			body, _ := json.Marshal(dto.EnrollmentRequest{StudentID: "S1", Semester: "Spring", TargetYear: "Junior"})
			c, w := newGinContext(http.MethodPost, "/enrollments", body)
			h.Create(c)
			assert.Equal(t, tt.code, w.Code)
		})
	}
}

func TestEnrollmentCreateRejectsMalformedBody(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})
	c, w := newGinContext(http.MethodPost, "/enrollments", []byte("{"))
	h.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestEnrollmentReset(t *testing.T) {
	h := NewEnrollmentHandler(&enrollmentServiceMock{})
	c, w := newGinContext(http.MethodPost, "/students/S1/enrollment/reset", nil)
	c.Params = gin.Params{{Key: "id", Value: "S1"}}
	h.Reset(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

type recoveryServiceMock struct {
	index int
	err   error
}

func (m *recoveryServiceMock) ListPlans(context.Context, string) ([]models.RecoveryPlan, error) {
	return []models.RecoveryPlan{}, m.err
}

func (m *recoveryServiceMock) GetPlan(_ context.Context, studentID, courseID string) (*models.RecoveryPlan, error) {
	return &models.RecoveryPlan{StudentID: studentID, CourseID: courseID}, m.err
}

func (m *recoveryServiceMock) AddTask(_ context.Context, studentID, courseID string, req models.RecoveryTaskRequest) (*models.RecoveryPlan, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.RecoveryPlan{StudentID: studentID, CourseID: courseID, Tasks: []models.RecoveryTask{{Week: req.Week}}}, nil
}

func (m *recoveryServiceMock) UpdateTask(_ context.Context, studentID, courseID string, index int, _ models.RecoveryTaskRequest) (*models.RecoveryPlan, error) {
	m.index = index
	return &models.RecoveryPlan{StudentID: studentID, CourseID: courseID}, m.err
}

func (m *recoveryServiceMock) DeleteTask(_ context.Context, studentID, courseID string, index int) (*models.RecoveryPlan, error) {
	m.index = index
	return &models.RecoveryPlan{StudentID: studentID, CourseID: courseID}, m.err
}

func (m *recoveryServiceMock) SendPlan(context.Context, string, string) error { return m.err }

func TestRecoveryTaskRoutes(t *testing.T) {
	mock := &recoveryServiceMock{}
	h := NewRecoveryHandler(mock)
	params := gin.Params{{Key: "id", Value: "S2"}, {Key: "courseId", Value: "CS101"}}

	body, _ := json.Marshal(models.RecoveryTaskRequest{Week: "Week 1", Description: "Review"})
	c, w := newGinContext(http.MethodPost, "/students/S2/recovery-plans/CS101/tasks", body)
	c.Params = params
	h.AddTask(c)
	assert.Equal(t, http.StatusCreated, w.Code)

	c, w = newGinContext(http.MethodPut, "/students/S2/recovery-plans/CS101/tasks/2", body)
	c.Params = append(params, gin.Param{Key: "index", Value: "2"})
	h.UpdateTask(c)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, mock.index)

	c, w = newGinContext(http.MethodDelete, "/students/S2/recovery-plans/CS101/tasks/x", nil)
	c.Params = append(params, gin.Param{Key: "index", Value: "x"})
	h.DeleteTask(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	c, w = newGinContext(http.MethodPost, "/students/S2/recovery-plans/CS101/notify", nil)
	c.Params = params
	h.SendPlan(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestRecoveryDuplicateTask(t *testing.T) {
	h := NewRecoveryHandler(&recoveryServiceMock{err: appErrors.Clone(appErrors.ErrDuplicateEntry, "task exists")})
	body, _ := json.Marshal(models.RecoveryTaskRequest{Week: "Week 1", Description: "Review"})
	c, w := newGinContext(http.MethodPost, "/students/S2/recovery-plans/CS101/tasks", body)
	h.AddTask(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

type reportServiceMock struct {
	semester string
	err      error
}

func (m *reportServiceMock) ContentType() string { return "text/csv; charset=utf-8" }

func (m *reportServiceMock) EligibilityCSV(context.Context) ([]byte, error) {
	return []byte("StudentID\nS1\n"), m.err
}

func (m *reportServiceMock) SendAcademicReport(_ context.Context, _ string, semester string) error {
	m.semester = semester
	return m.err
}

func TestReportHandler(t *testing.T) {
	mock := &reportServiceMock{}
	h := NewReportHandler(mock)

	c, w := newGinContext(http.MethodGet, "/reports/eligibility.csv", nil)
	h.EligibilityCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "eligibility-")
	assert.Equal(t, "StudentID\nS1\n", w.Body.String())

	body, _ := json.Marshal(dto.AcademicReportRequest{Semester: "Fall 2024"})
	c, w = newGinContext(http.MethodPost, "/students/S1/report", body)
	c.Params = gin.Params{{Key: "id", Value: "S1"}}
	h.SendAcademicReport(c)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "Fall 2024", mock.semester)
}

type userServiceMock struct {
	actor string
	err   error
}

func (m *userServiceMock) List(context.Context) ([]models.User, error) { return []models.User{}, m.err }

func (m *userServiceMock) Get(_ context.Context, id string) (*models.User, error) {
	return &models.User{ID: id}, m.err
}

func (m *userServiceMock) Create(_ context.Context, req models.CreateUserRequest, actorID string) (*models.User, error) {
	m.actor = actorID
	if m.err != nil {
		return nil, m.err
	}
	return &models.User{ID: "u-new", Email: req.Email, PasswordHash: "hash"}, nil
}

func (m *userServiceMock) Update(_ context.Context, id string, _ models.UpdateUserRequest, actorID string) (*models.User, error) {
	m.actor = actorID
	return &models.User{ID: id}, m.err
}

func (m *userServiceMock) Deactivate(_ context.Context, _ string, actorID string) error {
	m.actor = actorID
	return m.err
}

func TestUserCreateHidesPasswordHash(t *testing.T) {
	mock := &userServiceMock{}
	h := NewUserHandler(mock)

	body, _ := json.Marshal(models.CreateUserRequest{Name: "Olive", Email: "olive@uni.test", Password: "secret123", Role: models.RoleOfficer})
	c, w := newGinContext(http.MethodPost, "/users", body)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "admin-1", Role: models.RoleAdmin})
	h.Create(c)

	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "admin-1", mock.actor)
	assert.NotContains(t, w.Body.String(), "hash")
}

func TestUserDeactivate(t *testing.T) {
	h := NewUserHandler(&userServiceMock{err: errors.New("boom")})
	c, w := newGinContext(http.MethodDelete, "/users/u1", nil)
	c.Params = gin.Params{{Key: "id", Value: "u1"}}
	h.Deactivate(c)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

type authServiceMock struct {
	err error
}

func (m authServiceMock) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &models.LoginResponse{AccessToken: "token", User: models.UserInfo{Email: req.Email}}, nil
}

func TestAuthLogin(t *testing.T) {
	body, _ := json.Marshal(models.LoginRequest{Email: "ada@uni.test", Password: "secret"})

	c, w := newGinContext(http.MethodPost, "/auth/login", body)
	NewAuthHandler(authServiceMock{}).Login(c)
	assert.Equal(t, http.StatusOK, w.Code)

	c, w = newGinContext(http.MethodPost, "/auth/login", body)
	NewAuthHandler(authServiceMock{err: appErrors.ErrInvalidCredentials}).Login(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	c, w = newGinContext(http.MethodGet, "/auth/me", nil)
	NewAuthHandler(authServiceMock{}).Me(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

type adminServiceMock struct {
	pingErr error
	resets  int
}

func (m *adminServiceMock) ResetData(context.Context, string) error {
	m.resets++
	return nil
}

func (m *adminServiceMock) Ping(context.Context) error { return m.pingErr }

func TestSystemHandler(t *testing.T) {
	admin := &adminServiceMock{}
	h := NewSystemHandler(admin, nil)

	c, w := newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusOK, w.Code)

	admin.pingErr = appErrors.Persistence(errors.New("disk"), "load snapshot")
	c, w = newGinContext(http.MethodGet, "/ready", nil)
	h.Ready(c)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	c, w = newGinContext(http.MethodPost, "/admin/reset", nil)
	h.Reset(c)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, 1, admin.resets)

	c, w = newGinContext(http.MethodGet, "/health", nil)
	h.Health(c)
	assert.Equal(t, http.StatusOK, w.Code)
}
