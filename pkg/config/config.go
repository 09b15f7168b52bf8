package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Store drivers.
const (
	StoreDriverFile     = "file"
	StoreDriverPostgres = "postgres"
)

// Lock drivers.
const (
	LockDriverLocal = "local"
	LockDriverRedis = "redis"
)

// Seed sources.
const (
	SeedSourceSynthetic = "synthetic"
	SeedSourceCSV       = "csv"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store         StoreConfig
	Database      DatabaseConfig
	Redis         RedisConfig
	Lock          LockConfig
	Seed          SeedConfig
	Eligibility   EligibilityConfig
	JWT           JWTConfig
	Admin         AdminConfig
	CORS          CORSConfig
	Log           LogConfig
	Notifications NotificationConfig
	Metrics       MetricsConfig
}

// StoreConfig selects the snapshot backend.
type StoreConfig struct {
	Driver string
	Path   string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	Migrate      bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// LockConfig guards the load-modify-save cycle across processes.
type LockConfig struct {
	Driver string
	TTL    time.Duration
	Wait   time.Duration
}

// SeedConfig describes where the first snapshot comes from.
type SeedConfig struct {
	Source      string
	StudentsCSV string
	CoursesCSV  string
	ResultsCSV  string
	RandomSeed  int64
}

// EligibilityConfig carries the progression thresholds.
type EligibilityConfig struct {
	MinCGPA          float64
	MaxFailedCourses int
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

// AdminConfig bootstraps the first administrator account.
type AdminConfig struct {
	Email    string
	Password string
	Name     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// NotificationConfig tunes the notification dispatch queue.
type NotificationConfig struct {
	Workers int
	Retries int
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg := fromViper(v)
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Eligibility.MinCGPA < 0 {
		return fmt.Errorf("ELIGIBILITY_MIN_CGPA must not be negative, got %v", c.Eligibility.MinCGPA)
	}
	if c.Eligibility.MaxFailedCourses < 0 {
		return fmt.Errorf("ELIGIBILITY_MAX_FAILED must not be negative, got %d", c.Eligibility.MaxFailedCourses)
	}
	return nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Driver: strings.ToLower(v.GetString("STORE_DRIVER")),
		Path:   v.GetString("STORE_PATH"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		Migrate:      v.GetBool("DB_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Lock = LockConfig{
		Driver: strings.ToLower(v.GetString("LOCK_DRIVER")),
		TTL:    parseDuration(v.GetString("LOCK_TTL"), 10*time.Second),
		Wait:   parseDuration(v.GetString("LOCK_WAIT"), 5*time.Second),
	}

	cfg.Seed = SeedConfig{
		Source:      strings.ToLower(v.GetString("SEED_SOURCE")),
		StudentsCSV: v.GetString("SEED_STUDENTS_CSV"),
		CoursesCSV:  v.GetString("SEED_COURSES_CSV"),
		ResultsCSV:  v.GetString("SEED_RESULTS_CSV"),
		RandomSeed:  v.GetInt64("SEED_RANDOM_SEED"),
	}

	cfg.Eligibility = EligibilityConfig{
		MinCGPA:          v.GetFloat64("ELIGIBILITY_MIN_CGPA"),
		MaxFailedCourses: v.GetInt("ELIGIBILITY_MAX_FAILED"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 8*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.Admin = AdminConfig{
		Email:    v.GetString("ADMIN_EMAIL"),
		Password: v.GetString("ADMIN_PASSWORD"),
		Name:     v.GetString("ADMIN_NAME"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Notifications = NotificationConfig{
		Workers: v.GetInt("NOTIFY_WORKERS"),
		Retries: v.GetInt("NOTIFY_RETRIES"),
	}

	cfg.Metrics = MetricsConfig{Enabled: v.GetBool("ENABLE_METRICS")}

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_DRIVER", StoreDriverFile)
	v.SetDefault("STORE_PATH", "./data/crs.json")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "crs")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOCK_DRIVER", LockDriverLocal)
	v.SetDefault("LOCK_TTL", "10s")
	v.SetDefault("LOCK_WAIT", "5s")

	v.SetDefault("SEED_SOURCE", SeedSourceSynthetic)
	v.SetDefault("SEED_STUDENTS_CSV", "./data/student_information.csv")
	v.SetDefault("SEED_COURSES_CSV", "./data/course_assessment_information.csv")
	v.SetDefault("SEED_RESULTS_CSV", "")
	v.SetDefault("SEED_RANDOM_SEED", 42)

	v.SetDefault("ELIGIBILITY_MIN_CGPA", 2.0)
	v.SetDefault("ELIGIBILITY_MAX_FAILED", 3)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "8h")
	v.SetDefault("JWT_ISSUER", "crs-api")

	v.SetDefault("ADMIN_EMAIL", "admin@crs.local")
	v.SetDefault("ADMIN_PASSWORD", "admin123")
	v.SetDefault("ADMIN_NAME", "CRS Administrator")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("NOTIFY_WORKERS", 1)
	v.SetDefault("NOTIFY_RETRIES", 3)
	v.SetDefault("ENABLE_METRICS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
