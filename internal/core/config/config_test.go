package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("APP_HOST", "")
	t.Setenv("JWT_TTL_HOURS", "not-a-number")
	t.Setenv("CACHE_TTL", "")

	cfg := Load()

	assert.Equal(t, "", cfg.AppHost)
	assert.Equal(t, 120*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Equal(t, int64(10<<20), cfg.UploadMaxBytes)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_TTL_HOURS", "8")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("AUTO_MIGRATE", "1")
	t.Setenv("APP_ENV", "development")

	cfg := Load()

	assert.Equal(t, 8*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.AutoMigrate)
	assert.True(t, cfg.IsDevelopment())
}

func TestValidate(t *testing.T) {
	cfg := &Config{}
	err := cfg.Validate()
	assert.ErrorContains(t, err, "DATABASE_URL")
	assert.ErrorContains(t, err, "JWT_SECRET")

	cfg = &Config{DatabaseURL: "postgres://localhost/helpdesk", JWTSecret: "secret"}
	assert.NoError(t, cfg.Validate())
}
