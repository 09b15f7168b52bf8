package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaultsApplyWithoutEnvironment(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, StoreDriverFile, cfg.Store.Driver)
	assert.Equal(t, LockDriverLocal, cfg.Lock.Driver)
	assert.Equal(t, SeedSourceSynthetic, cfg.Seed.Source)
	assert.Equal(t, int64(42), cfg.Seed.RandomSeed)
	assert.InDelta(t, 2.0, cfg.Eligibility.MinCGPA, 1e-9)
	assert.Equal(t, 3, cfg.Eligibility.MaxFailedCourses)
	assert.Equal(t, 8*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
}

func TestOverridesAreNormalised(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORE_DRIVER", "Postgres")
	v.Set("LOCK_TTL", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := fromViper(v)
	assert.Equal(t, StoreDriverPostgres, cfg.Store.Driver)
	assert.Equal(t, 10*time.Second, cfg.Lock.TTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
}

func TestZeroMinimumCGPAIsAccepted(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ELIGIBILITY_MIN_CGPA", "0")

	cfg := fromViper(v)
	assert.NoError(t, cfg.validate())
	assert.Equal(t, 0.0, cfg.Eligibility.MinCGPA)
}

func TestNegativeThresholdsAreRejected(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("ELIGIBILITY_MIN_CGPA", "-1")
	assert.Error(t, fromViper(v).validate())

	v.Set("ELIGIBILITY_MIN_CGPA", "2.5")
	v.Set("ELIGIBILITY_MAX_FAILED", "-2")
	assert.Error(t, fromViper(v).validate())
}
