// Package store persists imported volumes in DuckDB.
//
// The metastore holds datasets, channels, filters, coordinate spaces, tile
// images (Data2D), transform mappings and the history of import runs.
// Rows are keyed by natural keys scoped to a dataset; bounding boxes live
// in their own table and are owned by exactly one coordinate space or
// mapping side.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/volimport/config"
)

// Config holds store configuration options.
type Config struct {
	// DSN is the database path. ":memory:" opens a private in-memory database.
	DSN string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// QueryTimeout bounds opening the database and applying the schema.
	QueryTimeout time.Duration
}

// DefaultConfig returns the configuration of a file-backed metastore in
// the working directory.
func DefaultConfig() Config {
	return Config{
		DSN:             config.DefaultMetastorePath,
		MaxOpenConns:    config.DefaultMaxOpenConns,
		MaxIdleConns:    config.DefaultMaxIdleConns,
		ConnMaxLifetime: config.DefaultConnMaxLifetime,
		QueryTimeout:    config.DefaultQueryTimeout,
	}
}

// Store is the metastore. It is safe for concurrent use.
type Store struct {
	db *sql.DB

	closeOnce sync.Once
	closeErr  error
}

// New opens the database at cfg.DSN and brings its schema up to date.
func New(cfg Config) (*Store, error) {
	dsn := cfg.DSN
	if dsn == ":memory:" {
		dsn = ""
	}

	db, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("open metastore %q: %w", cfg.DSN, err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	timeout := cfg.QueryTimeout
	if timeout <= 0 {
		timeout = config.DefaultQueryTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	s := &Store{db: db}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping metastore %q: %w", cfg.DSN, err)
	}
	if err := s.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the database. Later calls return the first result.
func (s *Store) Close() error {
	s.closeOnce.Do(func() {
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

// QueryRowContext runs a single-row query against the metastore.
func (s *Store) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return s.db.QueryRowContext(ctx, query, args...)
}

// ExecContext runs a statement against the metastore.
func (s *Store) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return s.db.ExecContext(ctx, query, args...)
}
