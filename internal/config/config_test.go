package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsWhenFileMissing(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8000", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, time.Second, cfg.Sync.CreateCheckInterval)
	assert.Equal(t, BackendFile, cfg.Store.Backend)
	assert.Equal(t, "https://tasklooop.vercel.app", cfg.ShareBaseURL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_FileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
api:
  base_url: https://api.example.com
  timeout: 3s
sync:
  poll_interval: 2s
log_level: debug
`), 0o600))
	t.Setenv("TASKLOOP_API_BASE_URL", "https://env.example.com")
	t.Setenv("TASKLOOP_APP_ENV", "production")

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "https://env.example.com", cfg.API.BaseURL, "env wins over file")
	assert.Equal(t, 3*time.Second, cfg.API.Timeout)
	assert.Equal(t, 2*time.Second, cfg.Sync.PollInterval)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.True(t, cfg.IsProduction())
}

func TestLoad_InvalidLogLevelFallsBack(t *testing.T) {
	t.Setenv("TASKLOOP_LOG_LEVEL", "chatty")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_RejectsUnknownBackend(t *testing.T) {
	t.Setenv("TASKLOOP_STORE_BACKEND", "floppy")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))

	assert.ErrorContains(t, err, "floppy")
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	require.NoError(t, WriteDefault(path))
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().API, cfg.API)
	assert.Equal(t, Default().Bridge, cfg.Bridge)

	assert.Error(t, WriteDefault(path), "existing files are not overwritten")
}
