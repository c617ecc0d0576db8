// Package sqlite implements the engine repositories on a single SQLite file
// through gorm. It is the default desktop backend.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// Config holds SQLite connection settings.
type Config struct {
	// Path of the database file. Parent directories are created.
	Path string

	// BusyTimeout bounds how long a statement waits for the write lock.
	BusyTimeout time.Duration

	// MaxOpenConns caps the pool. Zero keeps the default of 4.
	MaxOpenConns int

	// Tracing registers the OpenTelemetry gorm plugin.
	Tracing bool
}

// DefaultConfig returns settings for the desktop database.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
		Tracing:      true,
	}
}

// DB is an open SQLite store.
type DB struct {
	gorm        *gorm.DB
	path        string
	busyTimeout time.Duration
}

// DSN builds the driver connection string. Write transactions start with
// BEGIN IMMEDIATE so concurrent writers queue on the busy timeout instead of
// failing on lock upgrade.
func DSN(cfg Config) string {
	q := url.Values{}
	q.Set("_txlock", "immediate")
	q.Set("_busy_timeout", strconv.FormatInt(cfg.BusyTimeout.Milliseconds(), 10))
	q.Set("_foreign_keys", "on")
	q.Set("_journal_mode", "WAL")
	return fileURI(cfg.Path) + "?" + q.Encode()
}

// fileURI escapes path for an SQLite URI filename, so '?', '#' and '%'
// in directory or file names survive. Windows drive paths get the
// leading slash SQLite expects (file:///C:/...).
func fileURI(path string) string {
	p := filepath.ToSlash(path)
	if filepath.VolumeName(path) != "" {
		p = "/" + p
	}
	u := url.URL{Scheme: "file", Path: p}
	return u.String()
}

// Open opens (and creates when missing) the database file.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("sqlite: empty database path")
	}
	if dir := filepath.Dir(cfg.Path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	db, err := openDialector(sqlite.Open(DSN(cfg)), cfg)
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.gorm.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	logger.Info(ctx, "sqlite store opened",
		"path", cfg.Path,
		"busy_timeout", cfg.BusyTimeout,
	)
	return db, nil
}

// NewFromConn wraps an existing connection pool. Used with sqlmock.
func NewFromConn(conn gorm.ConnPool, cfg Config) (*DB, error) {
	return openDialector(sqlite.New(sqlite.Config{Conn: conn}), cfg)
}

func openDialector(dialector gorm.Dialector, cfg Config) (*DB, error) {
	g, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if cfg.Tracing {
		plugin := otelgorm.NewPlugin(
			otelgorm.WithDBName("sqlite"),
			otelgorm.WithoutQueryVariables(),
		)
		if err := g.Use(plugin); err != nil {
			return nil, fmt.Errorf("register tracing plugin: %w", err)
		}
	}

	if sqlDB, err := g.DB(); err == nil {
		maxConns := cfg.MaxOpenConns
		if maxConns <= 0 {
			maxConns = 4
		}
		sqlDB.SetMaxOpenConns(maxConns)
	}

	return &DB{gorm: g, path: cfg.Path, busyTimeout: cfg.BusyTimeout}, nil
}

// Gorm returns the underlying gorm handle.
func (d *DB) Gorm() *gorm.DB {
	return d.gorm
}

// SQL returns the underlying database/sql handle.
func (d *DB) SQL() (*sql.DB, error) {
	return d.gorm.DB()
}

// Path returns the database file path.
func (d *DB) Path() string {
	return d.path
}

// Close closes the connection pool.
func (d *DB) Close() error {
	sqlDB, err := d.gorm.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
