// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file contains database bootstrapping helpers: driver
// selection from a connection URI (PostgreSQL or pure-Go SQLite), pool tuning,
// optional OpenTelemetry instrumentation, and schema migrations.
package repo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"

	"github.com/tbourn/go-accounts-backend/internal/domain"
)

// ErrUnsupportedURI is returned by Open for connection strings whose scheme
// names a database this service has no driver for.
var ErrUnsupportedURI = errors.New("unsupported database uri")

// OpenOptions tunes the connection returned by Open.
type OpenOptions struct {
	MaxOpenConns int
	MaxIdleConns int
	// Tracing installs the GORM OpenTelemetry plugin.
	Tracing bool
	// Logger replaces GORM's default stdout logger; nil keeps it silent.
	Logger gormlogger.Interface
}

// Open connects to the database named by uri:
//   - postgres:// or postgresql:// → PostgreSQL (pgx)
//   - sqlite://path, sqlite:path, file:… or a bare path → SQLite
func Open(uri string, opt OpenOptions) (*gorm.DB, error) {
	uri = strings.TrimSpace(uri)
	if uri == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnsupportedURI)
	}

	gcfg := &gorm.Config{Logger: opt.Logger}
	if gcfg.Logger == nil {
		gcfg.Logger = gormlogger.Default.LogMode(gormlogger.Silent)
	}

	var (
		db  *gorm.DB
		err error
	)
	switch lower := strings.ToLower(uri); {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		db, err = gorm.Open(postgres.Open(uri), gcfg)
	case strings.HasPrefix(lower, "sqlite://"):
		db, err = openSQLite(uri[len("sqlite://"):], gcfg)
	case strings.HasPrefix(lower, "sqlite:"):
		db, err = openSQLite(uri[len("sqlite:"):], gcfg)
	case strings.Contains(lower, "://"):
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURI, uri[:strings.Index(uri, "://")])
	default:
		db, err = openSQLite(uri, gcfg)
	}
	if err != nil {
		return nil, err
	}

	if opt.Tracing {
		if err := db.Use(tracing.NewPlugin()); err != nil {
			return nil, fmt.Errorf("install gorm tracing: %w", err)
		}
	}

	if err := tunePool(db, opt.MaxOpenConns, opt.MaxIdleConns); err != nil {
		return nil, err
	}

	return db, nil
}

// OpenSQLite opens (or creates) a SQLite database file, applies PRAGMAs and
// the default pool of 10 connections.
func OpenSQLite(path string) (*gorm.DB, error) {
	db, err := openSQLite(path, &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, err
	}
	if err := tunePool(db, 0, 0); err != nil {
		return nil, err
	}
	return db, nil
}

// tunePool sizes the connection pool. maxOpen <= 0 means 10; maxIdle <= 0 or
// above maxOpen means maxOpen. The idle pool is never zero: a shared-cache
// in-memory SQLite database is dropped once its last connection closes.
func tunePool(db *gorm.DB, maxOpen, maxIdle int) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("pool: %w", err)
	}
	if maxOpen <= 0 {
		maxOpen = 10
	}
	if maxIdle <= 0 || maxIdle > maxOpen {
		maxIdle = maxOpen
	}
	sqlDB.SetMaxOpenConns(maxOpen)
	sqlDB.SetMaxIdleConns(maxIdle)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)
	sqlDB.SetConnMaxLifetime(30 * time.Minute)
	return nil
}

func openSQLite(dsn string, gcfg *gorm.Config) (*gorm.DB, error) {
	// Fail early if parent directory does not exist (instead of sqlite "out of memory (14)" on Windows).
	if !strings.HasPrefix(dsn, "file:") && dsn != ":memory:" {
		if dir := filepath.Dir(dsn); dir != "." {
			if _, err := os.Stat(dir); err != nil {
				return nil, err
			}
		}
	}

	db, err := gorm.Open(sqlite.Open(dsn), gcfg)
	if err != nil {
		return nil, err
	}

	// PRAGMAs
	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA foreign_keys=ON;")
	db.Exec("PRAGMA busy_timeout=5000;")

	return db, nil
}

// AutoMigrate creates or updates the schema for every persisted model.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Account{},
		&domain.Idempotency{},
	)
}
