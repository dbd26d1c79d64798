package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"AUTOCARE_CONFIG", "SERVICE_NAME", "LOG_LEVEL", "HTTP_PORT", "DB_DRIVER", "DB_DSN",
		"PURGE_SAMPLES", "REDIS_ADDR", "REDIS_PASSWORD", "REDIS_DB",
		"EVAL_INTERVAL_HOURS", "EVAL_WORKERS", "ALERT_COOLDOWN_HOURS",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, 24*time.Hour, cfg.EvalInterval())
	assert.Equal(t, 24*time.Hour, cfg.AlertCooldown())
}

func TestLoad_FileThenEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "autocare.yaml")
	yaml := "http_port: 9090\ndb_driver: postgres\neval_workers: 8\nredis_addr: redis:6379\n"
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	t.Setenv("AUTOCARE_CONFIG", path)
	t.Setenv("EVAL_WORKERS", "2")
	t.Setenv("PURGE_SAMPLES", "false")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.HTTPPort)
	assert.Equal(t, "postgres", cfg.DBDriver)
	assert.Equal(t, "redis:6379", cfg.RedisAddr)
	assert.Equal(t, 2, cfg.EvalWorkers, "env overrides file")
	assert.False(t, cfg.PurgeSamples)
	assert.Equal(t, 0, cfg.RedisDB, "unparsable values fall back")
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("LOG_LEVEL=debug\n"), 0o644))
	// godotenv never overrides a variable that is present, even empty
	os.Unsetenv("LOG_LEVEL")
	t.Cleanup(func() { os.Unsetenv("LOG_LEVEL") })

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_BadFile(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())
	t.Setenv("AUTOCARE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := Load()
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"port zero", func(c *Config) { c.HTTPPort = 0 }},
		{"port too high", func(c *Config) { c.HTTPPort = 70000 }},
		{"interval", func(c *Config) { c.EvalIntervalHours = 0 }},
		{"workers", func(c *Config) { c.EvalWorkers = -1 }},
		{"cooldown", func(c *Config) { c.AlertCooldownHours = -5 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
	assert.NoError(t, Default().Validate())
}
