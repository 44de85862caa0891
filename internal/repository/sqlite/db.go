package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/Rrens/workspace-sync/internal/config"
	_ "modernc.org/sqlite"
)

// DB wraps the local SQLite connection pool
type DB struct {
	Pool *sql.DB
	path string
}

// DSN builds a modernc sqlite DSN. Transactions start with BEGIN IMMEDIATE so a
// writer holds the write lock from its first statement.
func DSN(path string, cfg config.StorageConfig) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

// NewDB opens the user database at cfg.Path()
func NewDB(ctx context.Context, cfg config.StorageConfig) (*DB, error) {
	return Open(ctx, cfg.Path(), cfg)
}

// Open opens a SQLite database file, creating its directory if needed
func Open(ctx context.Context, path string, cfg config.StorageConfig) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	pool, err := sql.Open("sqlite", DSN(path, cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	maxConns := cfg.MaxOpenConns
	if maxConns <= 0 {
		maxConns = 1
	}
	pool.SetMaxOpenConns(maxConns)
	pool.SetMaxIdleConns(maxConns)

	if err := pool.PingContext(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{Pool: pool, path: path}, nil
}

// Path returns the database file location
func (db *DB) Path() string {
	return db.path
}

// Close closes the database connection pool
func (db *DB) Close() error {
	if db.Pool != nil {
		return db.Pool.Close()
	}
	return nil
}

// Ping verifies database connectivity
func (db *DB) Ping(ctx context.Context) error {
	return db.Pool.PingContext(ctx)
}
