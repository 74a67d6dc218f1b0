// Package store provides the hierarchical dataset container for specdb.
//
// The container is a single DuckDB file holding three tables: groups,
// datasets, and attributes. Entities are addressed by '/'-delimited string
// paths. The container supports one writer at a time; callers must not run
// two operations concurrently against the same file.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb"

	"github.com/xtxerr/specdb/internal/errors"
)

// Config holds store configuration options.
type Config struct {
	// Path is the database file location. An empty path opens an in-memory
	// database, which is useful for tests.
	Path string

	// QueryTimeout is the default timeout for queries.
	QueryTimeout time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueryTimeout: 30 * time.Second,
	}
}

// Store provides access to the dataset container.
type Store struct {
	db     *sql.DB
	config Config
	mu     sync.Mutex
	closed bool
}

// Open opens (and if needed initializes) the container at cfg.Path.
func Open(cfg Config) (*Store, error) {
	db, err := sql.Open("duckdb", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// The container format does not support concurrent multi-writer access.
	db.SetMaxOpenConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, config: cfg}

	if err := s.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return s, nil
}

// initSchema creates the container tables if they do not exist.
func (s *Store) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS groups (
			path VARCHAR PRIMARY KEY
		)`,
		`CREATE TABLE IF NOT EXISTS datasets (
			path  VARCHAR PRIMARY KEY,
			kind  VARCHAR NOT NULL,
			shape VARCHAR NOT NULL,
			data  BLOB,
			sdata VARCHAR
		)`,
		`CREATE TABLE IF NOT EXISTS attributes (
			path  VARCHAR NOT NULL,
			name  VARCHAR NOT NULL,
			kind  VARCHAR NOT NULL,
			value VARCHAR NOT NULL,
			PRIMARY KEY (path, name)
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}

	return nil
}

// Close closes the store.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	return s.db.Close()
}

// Path returns the container file location.
func (s *Store) Path() string {
	return s.config.Path
}

// checkOpen returns an error when the store has been closed.
func (s *Store) checkOpen() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.ErrStoreClosed
	}
	return nil
}

// Transaction executes a function within a database transaction.
//
// If the function returns an error, the transaction is rolled back.
// If the function returns nil, the transaction is committed.
func (s *Store) Transaction(fn func(*sql.Tx) error) error {
	return s.TransactionContext(context.Background(), fn)
}

// TransactionContext executes a function within a database transaction with
// context support.
func (s *Store) TransactionContext(ctx context.Context, fn func(*sql.Tx) error) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback failed: %v (original error: %w)", rbErr, err)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}
