// Package router assembles the HTTP surface of the records API.
package router

import (
	"strings"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/crs-api/internal/handler"
	"github.com/noah-isme/crs-api/internal/middleware"
	"github.com/noah-isme/crs-api/internal/models"
	"github.com/noah-isme/crs-api/internal/service"
	"github.com/noah-isme/crs-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/crs-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/crs-api/pkg/middleware/requestid"
)

// DefaultAPIPrefix is used when Options.APIPrefix is empty.
const DefaultAPIPrefix = "/api/v1"

// Handlers groups the HTTP handlers mounted by New.
type Handlers struct {
	Auth       *handler.AuthHandler
	Student    *handler.StudentHandler
	Enrollment *handler.EnrollmentHandler
	Recovery   *handler.RecoveryHandler
	Report     *handler.ReportHandler
	User       *handler.UserHandler
	System     *handler.SystemHandler
}

// Options configures the engine.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Tokens         middleware.TokenValidator
	// Metrics is optional. When set, requests are observed and /metrics is served.
	Metrics *service.MetricsService
	Logger  *zap.Logger
}

// New builds the gin engine with every route registered.
func New(opts Options, h Handlers) *gin.Engine {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	prefix := strings.TrimRight(opts.APIPrefix, "/")
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(log))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
		r.GET("/metrics", h.System.Prometheus)
	}

	r.GET("/health", h.System.Health)
	r.GET("/ready", h.System.Ready)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(prefix)
	api.POST("/auth/login", h.Auth.Login)

	secured := api.Group("")
	secured.Use(middleware.JWT(opts.Tokens))
	secured.GET("/auth/me", h.Auth.Me)

	staff := []string{string(models.RoleAdmin), string(models.RoleOfficer)}
	staffOrSelf := append(append([]string{}, staff...), middleware.Self)
	audit := func(action, resource string) gin.HandlerFunc {
		return middleware.Audit(log, action, resource)
	}

	secured.GET("/eligibility/statistics", middleware.RBAC(staff...), h.Student.Statistics)
	secured.GET("/reports/eligibility.csv", middleware.RBAC(staff...), audit("export", "eligibility_report"), h.Report.EligibilityCSV)
	secured.POST("/enrollments", middleware.RBAC(staff...), audit("create", "enrollment"), h.Enrollment.Create)

	students := secured.Group("/students")
	students.GET("", middleware.RBAC(staff...), h.Student.List)
	students.GET("/:id", middleware.RBAC(staffOrSelf...), h.Student.Get)
	students.GET("/:id/eligibility", middleware.RBAC(staffOrSelf...), h.Student.Eligibility)
	students.GET("/:id/enrollments", middleware.RBAC(staffOrSelf...), h.Student.Enrollments)
	students.PUT("/:id/courses/:courseId", middleware.RBAC(staff...), audit("update", "course_result"), h.Student.RecordScores)
	students.POST("/:id/enrollment/reset", middleware.RBAC(staff...), audit("reset", "enrollment_status"), h.Enrollment.Reset)
	students.POST("/:id/enrollment/pending", middleware.RBAC(staff...), audit("update", "enrollment_status"), h.Enrollment.MarkPending)
	students.POST("/:id/report", middleware.RBAC(staff...), audit("send", "academic_report"), h.Report.SendAcademicReport)

	plans := students.Group("/:id/recovery-plans")
	plans.GET("", middleware.RBAC(staffOrSelf...), h.Recovery.ListPlans)
	plans.GET("/:courseId/tasks", middleware.RBAC(staffOrSelf...), h.Recovery.GetPlan)
	plans.POST("/:courseId/tasks", middleware.RBAC(staff...), audit("create", "recovery_task"), h.Recovery.AddTask)
	plans.PUT("/:courseId/tasks/:index", middleware.RBAC(staff...), audit("update", "recovery_task"), h.Recovery.UpdateTask)
	plans.DELETE("/:courseId/tasks/:index", middleware.RBAC(staff...), audit("delete", "recovery_task"), h.Recovery.DeleteTask)
	plans.POST("/:courseId/notify", middleware.RBAC(staff...), audit("send", "recovery_plan"), h.Recovery.SendPlan)

	users := secured.Group("/users")
	users.Use(middleware.RequireRoles(models.RoleAdmin))
	users.GET("", h.User.List)
	users.GET("/:id", h.User.Get)
	users.POST("", audit("create", "user"), h.User.Create)
	users.PUT("/:id", audit("update", "user"), h.User.Update)
	users.DELETE("/:id", audit("deactivate", "user"), h.User.Deactivate)

	admin := secured.Group("/admin")
	admin.Use(middleware.RequireRoles(models.RoleAdmin))
	admin.POST("/reset", audit("reset", "records"), h.System.Reset)

	return r
}
