package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
server:
  port: 9090
database:
  driver: sqlite
  sqlite:
    path: ":memory:"
  redis:
    host: redis.local
auth:
  jwt_secret: from-file
progress:
  timezone: Europe/Berlin
  daily_checkin_xp:
    enabled: true
coach:
  enabled: false
leaderboard:
  cache_ttl: 30s
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadFromFileWithDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, DriverSQLite, cfg.Database.Driver)
	assert.Equal(t, ":memory:", cfg.Database.SQLite.Path)
	assert.Equal(t, "Europe/Berlin", cfg.Progress.Timezone)
	assert.Equal(t, int64(100), cfg.Rewards.XPPerLevel)
	assert.Equal(t, 10, cfg.Coach.HistorySize)
	assert.Equal(t, 7*24*time.Hour, cfg.Coach.HistoryTTL)
	assert.Equal(t, 30*time.Second, cfg.Leaderboard.CacheTTL)
	assert.Equal(t, "/metrics", cfg.Metrics.Prometheus.Path)
	assert.Equal(t, int64(15), cfg.Progress.DailyCheckinXP.ForDifficulty("hard"))
}

func TestEnvironmentOverridesFile(t *testing.T) {
	t.Setenv("JWT_SECRET_KEY", "from-env")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("XP_PER_LEVEL", "250")

	cfg, err := Load(writeConfig(t, sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, int64(250), cfg.Rewards.XPPerLevel)
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Database: DatabaseConfig{
				Driver: DriverPostgres,
				Postgres: PostgresConfig{
					Host: "db", Database: "reclaim", User: "reclaim",
				},
				Redis: RedisConfig{Host: "redis"},
			},
			Auth:        AuthConfig{JWTSecret: "secret"},
			Progress:    ProgressConfig{Timezone: "UTC"},
			Rewards:     RewardsConfig{XPPerLevel: 100},
			Coach:       CoachConfig{Enabled: true, APIKey: "sk-test", HistorySize: 10},
			Leaderboard: LeaderboardConfig{Size: 10},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"unknown driver", func(c *Config) { c.Database.Driver = "mysql" }, "database.driver"},
		{"missing postgres host", func(c *Config) { c.Database.Postgres.Host = "" }, "database.postgres.host"},
		{"sqlite needs path", func(c *Config) { c.Database.Driver = DriverSQLite }, "database.sqlite.path"},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, "auth.jwt_secret"},
		{"zero xp per level", func(c *Config) { c.Rewards.XPPerLevel = 0 }, "rewards.xp_per_level"},
		{"bad timezone", func(c *Config) { c.Progress.Timezone = "Nowhere/Land" }, "progress.timezone"},
		{"coach without key", func(c *Config) { c.Coach.APIKey = "" }, "coach.api_key"},
		{"coach disabled without key", func(c *Config) { c.Coach.Enabled = false; c.Coach.APIKey = "" }, ""},
		{"announcer without webhook", func(c *Config) { c.Announcer.Enabled = true }, "announcer.webhook_url"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestDailyXPDisabledIsZero(t *testing.T) {
	c := DailyXPConfig{Enabled: false, Easy: 5, Medium: 10, Hard: 15}
	assert.Zero(t, c.ForDifficulty("hard"))

	c.Enabled = true
	assert.Equal(t, int64(5), c.ForDifficulty("easy"))
	assert.Equal(t, int64(10), c.ForDifficulty("unknown"))
}
