package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "INFO", cfg.Logging.Level)
	assert.Equal(t, 10, cfg.Logging.MaxSizeMB)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 1.0, cfg.Tracing.SampleRate)
	assert.Equal(t, 500, cfg.Errors.MaxStoredErrors)
}

func TestLoadFromFile(t *testing.T) {
	projectDir := t.TempDir()
	obsDir := Dir(projectDir)
	require.NoError(t, os.MkdirAll(obsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(obsDir, "config.yaml"), []byte(`logging:
  level: DEBUG
tracing:
  sample_rate: 0.25
errors:
  max_stored_errors: 50
`), 0o644))

	cfg, err := Load(projectDir)
	require.NoError(t, err)
	assert.Equal(t, "DEBUG", cfg.Logging.Level)
	assert.Equal(t, 0.25, cfg.Tracing.SampleRate)
	assert.Equal(t, 50, cfg.Errors.MaxStoredErrors)
	// Unspecified values keep their defaults.
	assert.True(t, cfg.Metrics.Enabled)
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("SAM_OBS_LOGGING_LEVEL", "WARN")

	cfg, err := Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, "WARN", cfg.Logging.Level)
}

func TestInvalidLevelRejected(t *testing.T) {
	projectDir := t.TempDir()
	obsDir := Dir(projectDir)
	require.NoError(t, os.MkdirAll(obsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(obsDir, "config.yaml"), []byte("logging:\n  level: LOUD\n"), 0o644))

	_, err := Load(projectDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid logging level")
}

func TestInvalidSampleRateRejected(t *testing.T) {
	projectDir := t.TempDir()
	obsDir := Dir(projectDir)
	require.NoError(t, os.MkdirAll(obsDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(obsDir, "config.yaml"), []byte("tracing:\n  sample_rate: 1.5\n"), 0o644))

	_, err := Load(projectDir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample_rate")
}
