package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	_ "github.com/noah-isme/crs-api/api/swagger"
	"github.com/noah-isme/crs-api/internal/academic"
	"github.com/noah-isme/crs-api/internal/handler"
	"github.com/noah-isme/crs-api/internal/importer"
	"github.com/noah-isme/crs-api/internal/repository"
	"github.com/noah-isme/crs-api/internal/router"
	"github.com/noah-isme/crs-api/internal/service"
	"github.com/noah-isme/crs-api/pkg/cache"
	"github.com/noah-isme/crs-api/pkg/config"
	"github.com/noah-isme/crs-api/pkg/database"
	"github.com/noah-isme/crs-api/pkg/export"
	"github.com/noah-isme/crs-api/pkg/jobs"
	"github.com/noah-isme/crs-api/pkg/logger"
)

// @title CRS API
// @version 1.0.0
// @description Academic records, eligibility checks and re-enrollment
// @BasePath /api/v1
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

const lockKey = "crs:records:lock"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server failed", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	policy := academic.Policy{
		MinCGPA:          cfg.Eligibility.MinCGPA,
		MaxFailedCourses: cfg.Eligibility.MaxFailedCourses,
	}.Normalize()

	backend, closeBackend, err := openBackend(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer closeBackend()

	locker, closeLocker, err := openLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	records := repository.NewRecordStore(backend, locker, newSeeder(cfg, policy, logr), logr)
	if err := records.Open(ctx); err != nil {
		return fmt.Errorf("open record store: %w", err)
	}

	var metrics *service.MetricsService
	if cfg.Metrics.Enabled {
		metrics = service.NewMetricsService()
	}
	store := service.NewInstrumentedStore(records, metrics)

	queue := jobs.NewQueue("notifications", service.NewNotificationWorker(service.NewLogDeliverer(logr), logr).Handle, jobs.QueueConfig{
		Workers:    cfg.Notifications.Workers,
		MaxRetries: cfg.Notifications.Retries,
		Logger:     logr,
	})
	// detached from the signal context so queued notifications drain on shutdown
	queue.Start(context.Background())
	defer queue.Stop()
	if err := metrics.TrackQueue("notifications", queue.Pending); err != nil {
		return err
	}
	notifications := service.NewNotificationService(queue, logr)

	validate := validator.New()
	authSvc := service.NewAuthService(store, validate, logr, service.AuthConfig{
		AccessTokenSecret: cfg.JWT.Secret,
		AccessTokenExpiry: cfg.JWT.Expiration,
		Issuer:            cfg.JWT.Issuer,
	})
	userSvc := service.NewUserService(store, notifications, validate, logr)
	if err := userSvc.EnsureAdmin(ctx, cfg.Admin); err != nil {
		return fmt.Errorf("bootstrap admin: %w", err)
	}

	eligibilitySvc := service.NewEligibilityService(store, policy, logr)
	gradeSvc := service.NewGradeService(store, policy, validate, logr)
	enrollmentSvc := service.NewEnrollmentService(store, policy, notifications, metrics, validate, logr)
	recoverySvc := service.NewRecoveryService(store, notifications, validate, logr)
	reportSvc := service.NewReportService(store, policy, notifications, export.NewCSVExporter(), logr)
	adminSvc := service.NewAdminService(records, userSvc, cfg.Admin, logr)

	handlers := router.Handlers{
		Auth:       handler.NewAuthHandler(authSvc),
		Student:    handler.NewStudentHandler(eligibilitySvc, gradeSvc),
		Enrollment: handler.NewEnrollmentHandler(enrollmentSvc),
		Recovery:   handler.NewRecoveryHandler(recoverySvc),
		Report:     handler.NewReportHandler(reportSvc),
		User:       handler.NewUserHandler(userSvc),
		System:     handler.NewSystemHandler(adminSvc, metrics),
	}
	engine := router.New(router.Options{
		APIPrefix:      cfg.APIPrefix,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		EnableDocs:     cfg.Env != config.EnvProduction,
		Tokens:         authSvc,
		Metrics:        metrics,
		Logger:         logr,
	}, handlers)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logr.Info("server starting", zap.String("addr", srv.Addr), zap.String("env", cfg.Env), zap.String("store", cfg.Store.Driver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openBackend(ctx context.Context, cfg *config.Config, logr *zap.Logger) (repository.Backend, func(), error) {
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		db, err := database.NewPostgres(ctx, cfg.Database)
		if err != nil {
			return nil, nil, err
		}
		if cfg.Database.Migrate {
			if err := database.MigrateUp(db); err != nil {
				_ = db.Close()
				return nil, nil, err
			}
		}
		logr.Info("using postgres snapshot store", zap.String("database", cfg.Database.Name))
		return repository.NewPostgresBackend(db), closeDB(db, logr), nil
	case config.StoreDriverFile, "":
		logr.Info("using file snapshot store", zap.String("path", cfg.Store.Path))
		return repository.NewFileBackend(cfg.Store.Path), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

func closeDB(db *sqlx.DB, logr *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil {
			logr.Warn("close database", zap.Error(err))
		}
	}
}

func openLocker(ctx context.Context, cfg *config.Config) (repository.Locker, func(), error) {
	switch cfg.Lock.Driver {
	case config.LockDriverRedis:
		client, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewRedisLocker(client, lockKey, cfg.Lock.TTL, cfg.Lock.Wait), func() { _ = client.Close() }, nil
	case config.LockDriverLocal, "":
		return repository.NewLocalLocker(), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock driver %q", cfg.Lock.Driver)
	}
}

func newSeeder(cfg *config.Config, policy academic.Policy, logr *zap.Logger) repository.Seeder {
	if cfg.Seed.Source == config.SeedSourceCSV {
		return &importer.CSVSeeder{
			StudentsPath: cfg.Seed.StudentsCSV,
			CoursesPath:  cfg.Seed.CoursesCSV,
			ResultsPath:  cfg.Seed.ResultsCSV,
			RandomSeed:   cfg.Seed.RandomSeed,
			Policy:       policy,
			Logger:       logr,
		}
	}
	return &importer.SyntheticSeeder{RandomSeed: cfg.Seed.RandomSeed, Policy: policy, Logger: logr}
}
