package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort)
	assert.Equal(t, "gemini-2.0-flash", cfg.Gemini.Model)
	assert.Empty(t, cfg.Gemini.APIKey, "the api key never has a default")
	assert.Equal(t, "./videos", cfg.Fetch.Dir)
	assert.Equal(t, 300*time.Second, cfg.Pipeline.ActivationTimeout)
	assert.Equal(t, time.Second, cfg.Pipeline.PollInterval)
	assert.Equal(t, 5, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 10*time.Second, cfg.Pipeline.RetryDelay)
	assert.Equal(t, 120*time.Second, cfg.Pipeline.CallTimeout)
	assert.Equal(t, []string{"stdout", "vidlens.log"}, cfg.Log.OutputPaths)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("VIDLENS_GEMINI_API_KEY", "env-key")
	t.Setenv("VIDLENS_GEMINI_MODEL", "gemini-2.5-pro")
	t.Setenv("VIDLENS_SERVER_HTTP_PORT", "9999")
	t.Setenv("VIDLENS_SERVER_RATE_LIMIT_RPS", "2.5")
	t.Setenv("VIDLENS_PIPELINE_RETRY_DELAY", "5s")
	t.Setenv("VIDLENS_PIPELINE_MAX_ATTEMPTS", "3")
	t.Setenv("VIDLENS_TELEMETRY_ENABLED", "true")
	t.Setenv("VIDLENS_LOG_OUTPUT_PATHS", "stdout, /var/log/vidlens.log")

	cfg, err := NewLoader().Load()
	require.NoError(t, err)

	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-2.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 9999, cfg.Server.HTTPPort)
	assert.Equal(t, 2.5, cfg.Server.RateLimitRPS)
	assert.Equal(t, 5*time.Second, cfg.Pipeline.RetryDelay)
	assert.Equal(t, 3, cfg.Pipeline.MaxAttempts)
	assert.True(t, cfg.Telemetry.Enabled)
	assert.Equal(t, []string{"stdout", "/var/log/vidlens.log"}, cfg.Log.OutputPaths)
}

func TestLoad_EnvPrefixOverride(t *testing.T) {
	t.Setenv("CUSTOM_GEMINI_API_KEY", "prefixed-key")

	cfg, err := NewLoader().WithEnvPrefix("CUSTOM").Load()
	require.NoError(t, err)
	assert.Equal(t, "prefixed-key", cfg.Gemini.APIKey)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gemini:
  api_key: yaml-key
  model: gemini-1.5-pro
pipeline:
  max_attempts: 7
  retry_delay: 20s
server:
  http_port: 8888
`), 0o644))

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)

	assert.Equal(t, "yaml-key", cfg.Gemini.APIKey)
	assert.Equal(t, "gemini-1.5-pro", cfg.Gemini.Model)
	assert.Equal(t, 7, cfg.Pipeline.MaxAttempts)
	assert.Equal(t, 20*time.Second, cfg.Pipeline.RetryDelay)
	assert.Equal(t, 8888, cfg.Server.HTTPPort)
	assert.Equal(t, 9091, cfg.Server.MetricsPort, "unset fields keep their defaults")
}

func TestLoad_EnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gemini:\n  api_key: yaml-key\n"), 0o644))
	t.Setenv("VIDLENS_GEMINI_API_KEY", "env-key")

	cfg, err := NewLoader().WithConfigPath(path).Load()
	require.NoError(t, err)
	assert.Equal(t, "env-key", cfg.Gemini.APIKey)
}

func TestLoad_MissingFileIsIgnored(t *testing.T) {
	cfg, err := NewLoader().WithConfigPath(filepath.Join(t.TempDir(), "absent.yaml")).Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.HTTPPort)
}

func TestLoad_InvalidEnvValue(t *testing.T) {
	t.Setenv("VIDLENS_SERVER_HTTP_PORT", "not-a-number")

	_, err := NewLoader().Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIDLENS_SERVER_HTTP_PORT")
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Gemini.APIKey = "k"
	require.NoError(t, cfg.Validate())

	missingKey := DefaultConfig()
	err := missingKey.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "VIDLENS_GEMINI_API_KEY")

	badAttempts := DefaultConfig()
	badAttempts.Gemini.APIKey = "k"
	badAttempts.Pipeline.MaxAttempts = 0
	assert.Error(t, badAttempts.Validate())

	badInterval := DefaultConfig()
	badInterval.Gemini.APIKey = "k"
	badInterval.Pipeline.PollInterval = 0
	assert.Error(t, badInterval.Validate())
}
