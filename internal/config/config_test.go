package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Server.Port)
	require.Equal(t, time.Minute, cfg.SchedulerPeriod())
	require.Equal(t, 3, cfg.Scheduler.Concurrency)
	require.Equal(t, 5*time.Minute, cfg.LockTTL())
	require.Equal(t, 15*time.Second, cfg.FetchTimeout())
	require.Equal(t, 10000, cfg.Fetch.ContentCap)
	require.Equal(t, 2, cfg.Fetch.SessionRetries)
	require.False(t, cfg.Browser.Enabled)
	require.Equal(t, 300, cfg.Browser.AuthTimeoutSeconds)
	require.Equal(t, "memory", cfg.DB.Provider)
	require.Equal(t, "noop", cfg.Archive.Provider)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
scheduler:
  period_seconds: 30
  concurrency: 5
browser:
  enabled: true
  login_url: https://example.com/login
db:
  provider: postgres
  dsn: postgres://localhost/sitewatch
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 9090, cfg.Server.Port)
	require.Equal(t, 30*time.Second, cfg.SchedulerPeriod())
	require.Equal(t, 5, cfg.Scheduler.Concurrency)
	require.True(t, cfg.Browser.Enabled)
	require.Equal(t, "postgres", cfg.DB.Provider)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := func() Config {
		return Config{
			Server:    ServerConfig{Port: 8080},
			Scheduler: SchedulerConfig{PeriodSeconds: 60, Concurrency: 3},
			Fetch:     FetchConfig{TimeoutSeconds: 15, ContentCap: 10000},
			DB:        DBConfig{Provider: "memory"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Server.Port = 0 }, "server.port"},
		{"bad period", func(c *Config) { c.Scheduler.PeriodSeconds = 0 }, "period_seconds"},
		{"bad concurrency", func(c *Config) { c.Scheduler.Concurrency = 0 }, "concurrency"},
		{"browser without login", func(c *Config) { c.Browser.Enabled = true }, "login_url"},
		{"postgres without dsn", func(c *Config) { c.DB.Provider = "postgres" }, "db.dsn"},
		{"gcs without bucket", func(c *Config) { c.Archive.Provider = "gcs" }, "gcs_bucket"},
		{"local without dir", func(c *Config) { c.Archive.Provider = "local" }, "base_dir"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
