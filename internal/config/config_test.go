package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnv_Defaults(t *testing.T) {
	t.Setenv("APP_ENV", "development")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/app")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "postgres://u:p@db:5432/app", cfg.DatabaseURL)
	assert.Equal(t, BlobBackendLocal, cfg.BlobBackend)
	assert.Equal(t, SchedulerBackendMemory, cfg.SchedulerBackend)
	assert.Equal(t, "Europe/London", cfg.AppointmentTZ.String())
	assert.Equal(t, time.Minute, cfg.RateLimitPeriod)
	assert.NotEmpty(t, cfg.JWTSecret)
	assert.False(t, cfg.SMTP.Enabled())
}

func TestFromEnv_Production(t *testing.T) {
	t.Setenv("APP_ENV", "production")
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://app.example")

	_, err := FromEnv()
	assert.Error(t, err)

	t.Setenv("JWT_SECRET", "0123456789abcdef0123456789abcdef")
	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example"}, cfg.AllowedOrigins)
}

func TestFromEnv_BackendsRequireSettings(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	t.Setenv("SCHEDULER_BACKEND", "redis")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "REDIS_URL")

	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("BLOB_BACKEND", "cloudinary")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "CLOUDINARY_URL")

	t.Setenv("BLOB_BACKEND", "s3")
	_, err = FromEnv()
	assert.Error(t, err)
}

func TestFromEnv_BadValues(t *testing.T) {
	t.Setenv("APP_ENV", "development")

	t.Setenv("RATE_LIMIT_PERIOD", "soon")
	_, err := FromEnv()
	assert.ErrorContains(t, err, "RATE_LIMIT_PERIOD")

	t.Setenv("RATE_LIMIT_PERIOD", "1m")
	t.Setenv("APPOINTMENT_TZ", "Mars/Olympus")
	_, err = FromEnv()
	assert.ErrorContains(t, err, "APPOINTMENT_TZ")
}
