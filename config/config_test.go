package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("BACKEND_URL", "postgres://localhost/esports?sslmode=disable")
	t.Setenv("BACKEND_API_KEY", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.ServerPort)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.AutoMigrate)
	assert.Equal(t, time.Minute, cfg.StatusSyncInterval)
	assert.False(t, cfg.UploadsEnabled())
}

func TestLoad_MissingBackendURL(t *testing.T) {
	t.Setenv("BACKEND_URL", "")
	t.Setenv("BACKEND_API_KEY", "secret")

	_, err := Load()
	assert.ErrorContains(t, err, "BACKEND_URL")
}

func TestLoad_InvalidPort(t *testing.T) {
	setRequired(t)
	t.Setenv("SERVER_PORT", "70000")

	_, err := Load()
	assert.ErrorContains(t, err, "SERVER_PORT")
}

func TestLoad_PartialR2Rejected(t *testing.T) {
	setRequired(t)
	t.Setenv("R2_ACCOUNT_ID", "acc")

	_, err := Load()
	assert.ErrorContains(t, err, "incomplete R2 configuration")
}

func TestLoad_CORSOrigins(t *testing.T) {
	setRequired(t)
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test ,")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
}
