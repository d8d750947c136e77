// Package config handles application configuration loading and validation using Viper.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported database drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config represents the application configuration.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Database    DatabaseConfig    `mapstructure:"database"`
	Auth        AuthConfig        `mapstructure:"auth"`
	Progress    ProgressConfig    `mapstructure:"progress"`
	Rewards     RewardsConfig     `mapstructure:"rewards"`
	Coach       CoachConfig       `mapstructure:"coach"`
	Leaderboard LeaderboardConfig `mapstructure:"leaderboard"`
	Scheduler   SchedulerConfig   `mapstructure:"scheduler"`
	Metrics     MetricsConfig     `mapstructure:"metrics"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Catalog     CatalogConfig     `mapstructure:"catalog"`
	Announcer   AnnouncerConfig   `mapstructure:"announcer"`
}

// ServerConfig contains HTTP server configuration.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Environment     string        `mapstructure:"environment"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	AllowedOrigins  []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig selects the SQL driver and holds connection settings.
type DatabaseConfig struct {
	Driver      string         `mapstructure:"driver"`
	AutoMigrate bool           `mapstructure:"auto_migrate"`
	Postgres    PostgresConfig `mapstructure:"postgres"`
	SQLite      SQLiteConfig   `mapstructure:"sqlite"`
	Redis       RedisConfig    `mapstructure:"redis"`
}

// PostgresConfig contains PostgreSQL database connection and pool settings.
type PostgresConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Database        string `mapstructure:"database"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

// DSN renders the libpq connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// URL renders the connection URL used by the migrator.
func (c *PostgresConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

// SQLiteConfig points at a database file; ":memory:" is allowed.
type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig contains Redis cache connection and pool settings.
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

// Addr returns host:port.
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// AuthConfig contains bearer token verification settings.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

// ProgressConfig controls check-in behaviour.
type ProgressConfig struct {
	Timezone       string        `mapstructure:"timezone"`
	DailyCheckinXP DailyXPConfig `mapstructure:"daily_checkin_xp"`
}

// DailyXPConfig grants a small XP amount per check-in, keyed by challenge difficulty.
type DailyXPConfig struct {
	Enabled bool  `mapstructure:"enabled"`
	Easy    int64 `mapstructure:"easy"`
	Medium  int64 `mapstructure:"medium"`
	Hard    int64 `mapstructure:"hard"`
}

// ForDifficulty returns the configured amount, or zero when disabled.
func (c DailyXPConfig) ForDifficulty(difficulty string) int64 {
	if !c.Enabled {
		return 0
	}
	switch difficulty {
	case "easy":
		return c.Easy
	case "hard":
		return c.Hard
	default:
		return c.Medium
	}
}

// RewardsConfig holds the level policy.
type RewardsConfig struct {
	XPPerLevel int64 `mapstructure:"xp_per_level"`
}

// CoachConfig contains the advice provider and conversation history settings.
type CoachConfig struct {
	Enabled     bool            `mapstructure:"enabled"`
	BaseURL     string          `mapstructure:"base_url"`
	APIKey      string          `mapstructure:"api_key"`
	Model       string          `mapstructure:"model"`
	MaxTokens   int             `mapstructure:"max_tokens"`
	Temperature float64         `mapstructure:"temperature"`
	Timeout     time.Duration   `mapstructure:"timeout"`
	RetryMax    int             `mapstructure:"retry_max"`
	HistorySize int             `mapstructure:"history_size"`
	HistoryTTL  time.Duration   `mapstructure:"history_ttl"`
	RateLimit   RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig is a token bucket per user.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	Burst             int `mapstructure:"burst"`
}

// LeaderboardConfig controls the cached leaderboard.
type LeaderboardConfig struct {
	Size     int           `mapstructure:"size"`
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

// AnnouncerConfig contains chat webhook settings for public achievements.
type AnnouncerConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	WebhookURL string        `mapstructure:"webhook_url"`
	Channel    string        `mapstructure:"channel"`
	Username   string        `mapstructure:"username"`
	Timeout    time.Duration `mapstructure:"timeout"`
	QueueSize  int           `mapstructure:"queue_size"`
}

// SchedulerConfig contains background job settings.
type SchedulerConfig struct {
	Enabled               bool   `mapstructure:"enabled"`
	Timezone              string `mapstructure:"timezone"`
	BadgeEvaluationTime   string `mapstructure:"badge_evaluation_time"`   // Cron expression
	LeaderboardWarmupTime string `mapstructure:"leaderboard_warmup_time"` // Cron expression
}

// GetLocation returns the timezone location.
func (c *SchedulerConfig) GetLocation() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

// MetricsConfig contains metrics settings.
type MetricsConfig struct {
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig contains Prometheus metrics exporter settings.
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// LoggingConfig contains application logging settings.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

// CatalogConfig points at the challenge and badge seed file.
type CatalogConfig struct {
	Path        string `mapstructure:"path"`
	SeedOnStart bool   `mapstructure:"seed_on_start"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("database.driver", DriverPostgres)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.ssl_mode", "disable")
	v.SetDefault("database.postgres.max_open_conns", 25)
	v.SetDefault("database.postgres.max_idle_conns", 5)
	v.SetDefault("database.postgres.conn_max_lifetime", 300)
	v.SetDefault("database.sqlite.path", "reclaim.db")
	v.SetDefault("database.redis.host", "localhost")
	v.SetDefault("database.redis.port", 6379)
	v.SetDefault("database.redis.pool_size", 10)

	v.SetDefault("auth.issuer", "reclaim")

	v.SetDefault("progress.timezone", "UTC")
	v.SetDefault("progress.daily_checkin_xp.enabled", false)
	v.SetDefault("progress.daily_checkin_xp.easy", 5)
	v.SetDefault("progress.daily_checkin_xp.medium", 10)
	v.SetDefault("progress.daily_checkin_xp.hard", 15)

	v.SetDefault("rewards.xp_per_level", 100)

	v.SetDefault("coach.enabled", true)
	v.SetDefault("coach.base_url", "https://api.openai.com/v1")
	v.SetDefault("coach.model", "gpt-3.5-turbo")
	v.SetDefault("coach.max_tokens", 300)
	v.SetDefault("coach.temperature", 0.7)
	v.SetDefault("coach.timeout", 30*time.Second)
	v.SetDefault("coach.retry_max", 2)
	v.SetDefault("coach.history_size", 10)
	v.SetDefault("coach.history_ttl", 7*24*time.Hour)
	v.SetDefault("coach.rate_limit.requests_per_minute", 10)
	v.SetDefault("coach.rate_limit.burst", 3)

	v.SetDefault("leaderboard.size", 10)
	v.SetDefault("leaderboard.cache_ttl", time.Minute)

	v.SetDefault("scheduler.enabled", true)
	v.SetDefault("scheduler.timezone", "UTC")
	v.SetDefault("scheduler.badge_evaluation_time", "0 2 * * *")
	v.SetDefault("scheduler.leaderboard_warmup_time", "*/10 * * * *")

	v.SetDefault("metrics.prometheus.enabled", true)
	v.SetDefault("metrics.prometheus.path", "/metrics")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("catalog.path", "config/catalog.yaml")
	v.SetDefault("catalog.seed_on_start", true)

	v.SetDefault("announcer.enabled", false)
	v.SetDefault("announcer.username", "Reclaim")
	v.SetDefault("announcer.timeout", 10*time.Second)
	v.SetDefault("announcer.queue_size", 100)
}

// Load reads configuration from file and environment variables.
// A .env file in the working directory is loaded first when present.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/reclaim/")
	}

	// Explicit bindings for 12-factor deployments
	// Server configuration
	_ = v.BindEnv("server.port", "SERVER_PORT", "PORT")
	_ = v.BindEnv("server.environment", "SERVER_ENVIRONMENT")

	// Database configuration
	_ = v.BindEnv("database.driver", "DATABASE_DRIVER")
	_ = v.BindEnv("database.auto_migrate", "DATABASE_AUTO_MIGRATE")
	_ = v.BindEnv("database.sqlite.path", "SQLITE_PATH")
	_ = v.BindEnv("database.postgres.host", "POSTGRES_HOST")
	_ = v.BindEnv("database.postgres.port", "POSTGRES_PORT")
	_ = v.BindEnv("database.postgres.database", "POSTGRES_DB")
	_ = v.BindEnv("database.postgres.user", "POSTGRES_USER")
	_ = v.BindEnv("database.postgres.password", "POSTGRES_PASSWORD")
	_ = v.BindEnv("database.postgres.ssl_mode", "POSTGRES_SSL_MODE")
	_ = v.BindEnv("database.postgres.max_open_conns", "POSTGRES_MAX_OPEN_CONNS")
	_ = v.BindEnv("database.postgres.max_idle_conns", "POSTGRES_MAX_IDLE_CONNS")
	_ = v.BindEnv("database.postgres.conn_max_lifetime", "POSTGRES_CONN_MAX_LIFETIME")

	// Redis configuration
	_ = v.BindEnv("database.redis.host", "REDIS_HOST")
	_ = v.BindEnv("database.redis.port", "REDIS_PORT")
	_ = v.BindEnv("database.redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("database.redis.db", "REDIS_DB")
	_ = v.BindEnv("database.redis.pool_size", "REDIS_POOL_SIZE")

	// Auth
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET_KEY", "JWT_SECRET")
	_ = v.BindEnv("auth.issuer", "JWT_ISSUER")

	// Progress and rewards
	_ = v.BindEnv("progress.timezone", "PROGRESS_TIMEZONE")
	_ = v.BindEnv("progress.daily_checkin_xp.enabled", "DAILY_CHECKIN_XP_ENABLED")
	_ = v.BindEnv("rewards.xp_per_level", "XP_PER_LEVEL")

	// Coach
	_ = v.BindEnv("coach.enabled", "COACH_ENABLED")
	_ = v.BindEnv("coach.base_url", "OPENAI_BASE_URL")
	_ = v.BindEnv("coach.api_key", "OPENAI_API_KEY")
	_ = v.BindEnv("coach.model", "OPENAI_MODEL")

	// Announcer
	_ = v.BindEnv("announcer.enabled", "ANNOUNCER_ENABLED")
	_ = v.BindEnv("announcer.webhook_url", "ANNOUNCER_WEBHOOK_URL")
	_ = v.BindEnv("announcer.channel", "ANNOUNCER_CHANNEL")

	// Logging configuration
	_ = v.BindEnv("logging.level", "LOG_LEVEL")
	_ = v.BindEnv("logging.format", "LOG_FORMAT")
	_ = v.BindEnv("logging.output", "LOG_OUTPUT")

	// Scheduler configuration
	_ = v.BindEnv("scheduler.enabled", "SCHEDULER_ENABLED")
	_ = v.BindEnv("scheduler.timezone", "SCHEDULER_TIMEZONE")
	_ = v.BindEnv("scheduler.badge_evaluation_time", "SCHEDULER_BADGE_EVALUATION_TIME")
	_ = v.BindEnv("scheduler.leaderboard_warmup_time", "SCHEDULER_LEADERBOARD_WARMUP_TIME")

	// Catalog
	_ = v.BindEnv("catalog.path", "CATALOG_PATH")
	_ = v.BindEnv("catalog.seed_on_start", "CATALOG_SEED_ON_START")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		// Without an explicit path, defaults plus environment are enough.
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Database.Driver) {
	case DriverPostgres:
		if c.Database.Postgres.Host == "" {
			return fmt.Errorf("database.postgres.host is required")
		}
		if c.Database.Postgres.Database == "" {
			return fmt.Errorf("database.postgres.database is required")
		}
		if c.Database.Postgres.User == "" {
			return fmt.Errorf("database.postgres.user is required")
		}
	case DriverSQLite:
		if c.Database.SQLite.Path == "" {
			return fmt.Errorf("database.sqlite.path is required")
		}
	default:
		return fmt.Errorf("database.driver must be %q or %q, got %q", DriverPostgres, DriverSQLite, c.Database.Driver)
	}
	if c.Database.Redis.Host == "" {
		return fmt.Errorf("database.redis.host is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if c.Rewards.XPPerLevel <= 0 {
		return fmt.Errorf("rewards.xp_per_level must be positive")
	}
	if _, err := time.LoadLocation(c.Progress.Timezone); err != nil {
		return fmt.Errorf("progress.timezone: %w", err)
	}
	if c.Coach.Enabled && c.Coach.APIKey == "" {
		return fmt.Errorf("coach.api_key is required when coach is enabled")
	}
	if c.Coach.HistorySize <= 0 {
		return fmt.Errorf("coach.history_size must be positive")
	}
	if c.Leaderboard.Size <= 0 {
		return fmt.Errorf("leaderboard.size must be positive")
	}
	if c.Announcer.Enabled && c.Announcer.WebhookURL == "" {
		return fmt.Errorf("announcer.webhook_url is required when announcer is enabled")
	}

	return nil
}
