// Package repository provides data access layer using GORM for database operations.
package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dakshkumar96/Reclaim/internal/config"
	"github.com/dakshkumar96/Reclaim/internal/models"
	"github.com/dakshkumar96/Reclaim/pkg/logger"
)

// DB holds the database connection.
type DB struct {
	*gorm.DB
	driver string
}

// NewDB opens the configured driver, tunes the pool and pings the server.
func NewDB(cfg *config.DatabaseConfig, log *logger.Logger) (*DB, error) {
	switch strings.ToLower(cfg.Driver) {
	case config.DriverSQLite:
		return OpenSQLite(cfg.SQLite.Path, log)
	case config.DriverPostgres, "":
		return openPostgres(&cfg.Postgres, log)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

func gormConfig(log *logger.Logger) *gorm.Config {
	// Configure GORM logger
	gormLogLevel := gormlogger.Warn
	debug := log.Level() <= zerolog.DebugLevel
	if debug {
		gormLogLevel = gormlogger.Info
	}

	return &gorm.Config{
		Logger: gormlogger.New(gormWriter{log: log.Named("gorm"), debug: debug}, gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormLogLevel,
			IgnoreRecordNotFoundError: true,
		}),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// gormWriter sends GORM output through the application logger.
type gormWriter struct {
	log   *logger.Logger
	debug bool
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	if w.debug {
		w.log.Debug().Msgf(format, args...)
		return
	}
	w.log.Warn().Msgf(format, args...)
}

func openPostgres(cfg *config.PostgresConfig, log *logger.Logger) (*DB, error) {
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	// Set connection pool settings
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().
		Str("host", cfg.Host).
		Int("port", cfg.Port).
		Str("database", cfg.Database).
		Msg("Connected to PostgreSQL")

	return &DB{DB: db, driver: config.DriverPostgres}, nil
}

// OpenSQLite opens a SQLite database and applies the schema with AutoMigrate.
// The pool is pinned to one connection: SQLite has a single writer, and an
// in-memory database only lives as long as its connection.
func OpenSQLite(path string, log *logger.Logger) (*DB, error) {
	db, err := gorm.Open(sqlite.Open(path), gormConfig(log))
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	// Enable foreign key constraints (SQLite default is off)
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	wrapped := &DB{DB: db, driver: config.DriverSQLite}
	if err := wrapped.AutoMigrate(); err != nil {
		return nil, fmt.Errorf("failed to migrate sqlite schema: %w", err)
	}

	log.Info().Str("path", path).Msg("Opened SQLite database")

	return wrapped, nil
}

// Driver returns the SQL dialect in use.
func (db *DB) Driver() string {
	return db.driver
}

// Transaction runs fn inside a database transaction. Store failures are
// classified into conflict/unavailable kinds; errors returned by fn that are
// already classified pass through unchanged.
func (db *DB) Transaction(ctx context.Context, fn func(tx *DB) error) error {
	err := db.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&DB{DB: tx, driver: db.driver})
	})
	return classifyError(err)
}

// AutoMigrate runs database migrations for all models.
func (db *DB) AutoMigrate() error {
	return db.DB.AutoMigrate(
		&models.User{},
		&models.Challenge{},
		&models.Enrollment{},
		&models.DailyLog{},
		&models.Streak{},
		&models.Badge{},
		&models.UserBadge{},
	)
}

// Close closes the database connection.
func (db *DB) Close() error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Health checks if the database is healthy.
func (db *DB) Health(ctx context.Context) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
