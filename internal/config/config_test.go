package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "https://openapi.naver.com", cfg.Naver.BaseURL)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "data/price_sentinel.db", cfg.Database.DSN)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, time.Hour, cfg.Cache.RecipeTTL)
	assert.Equal(t, 24*time.Hour, cfg.Analysis.StaleAfter)
	assert.Equal(t, 0.3, cfg.Analysis.SmallUnitRatio)
	assert.Equal(t, 4, cfg.Analysis.Workers)
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.TelegramEnabled())
}

func TestLoad_YAMLAndEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
naver:
  client_id: file-id
  client_secret: file-secret
database:
  driver: postgres
  dsn: postgres://localhost/prices?sslmode=disable
cache:
  search_ttl: 5m
analysis:
  stale_after: 12h
  small_unit_ratio: 0.25
  workers: 8
schedule:
  report_cron: "0 30 8 * * 1"
`)
	t.Setenv("NAVER_CLIENT_ID", "env-id")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("HTTP_ADDR", ":9090")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "env-id", cfg.Naver.ClientID)
	assert.Equal(t, "file-secret", cfg.Naver.ClientSecret)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Cache.SearchTTL)
	assert.Equal(t, 12*time.Hour, cfg.Analysis.StaleAfter)
	assert.Equal(t, 0.25, cfg.Analysis.SmallUnitRatio)
	assert.Equal(t, 8, cfg.Analysis.Workers)
	assert.Equal(t, "0 30 8 * * 1", cfg.Schedule.ReportCron)
	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.True(t, cfg.TelegramEnabled())
	assert.NoError(t, cfg.Validate())
}

func TestLoad_BadYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "naver: [unterminated"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }},
		{"postgres without dsn", func(c *Config) { c.Database.Driver = "postgres"; c.Database.DSN = "" }},
		{"half credentials", func(c *Config) { c.Naver.ClientID = "id" }},
		{"ratio out of range", func(c *Config) { c.Analysis.SmallUnitRatio = 1.5 }},
		{"no workers", func(c *Config) { c.Analysis.Workers = -1 }},
		{"negative ttl", func(c *Config) { c.Cache.SearchTTL = -time.Second }},
		{"bad cron", func(c *Config) { c.Schedule.RefreshCron = "every day" }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestValidate_NoneDriverNeedsNoDSN(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	cfg.Database.Driver = "none"
	cfg.Database.DSN = ""
	assert.NoError(t, cfg.Validate())
	assert.False(t, cfg.PersistenceEnabled())
}
