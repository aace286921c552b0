package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/pranathisri21/frame-vault/internal/storage"
)

// Store is a SQLite-backed implementation of the storage.Store interface.
type Store struct {
	db    *sql.DB
	sets  *setRepository
	items *itemRepository
	users *userRepository
}

// Option customises a Store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used to stamp created_at and updated_at.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Open initialises (or opens) a SQLite database located at the provided path.
// The directory is created if it does not already exist. The returned Store is
// safe for concurrent use.
func Open(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite: path must not be empty")
	}

	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	if err := ensureDir(path); err != nil {
		return nil, fmt.Errorf("sqlite: ensure directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := configure(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := bootstrap(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	clock := func() time.Time { return o.now().UTC() }

	return &Store{
		db:    db,
		sets:  &setRepository{db: db, now: clock},
		items: &itemRepository{db: db, now: clock},
		users: &userRepository{db: db, now: clock},
	}, nil
}

// Sets returns the set repository.
func (s *Store) Sets() storage.Sets {
	return s.sets
}

// Items returns the item repository.
func (s *Store) Items() storage.Items {
	return s.items
}

// Users returns the user repository.
func (s *Store) Users() storage.Users {
	return s.users
}

// Ping verifies the database connection is still alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func configure(db *sql.DB) error {
	stmts := []string{
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
		"PRAGMA journal_mode = WAL;",
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite: configure: %w", err)
		}
	}

	return nil
}

func bootstrap(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sets (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			media_count INTEGER NOT NULL DEFAULT 0,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS items (
			id TEXT PRIMARY KEY,
			set_id TEXT NOT NULL,
			title TEXT NOT NULL,
			media_url TEXT NOT NULL,
			media_type TEXT NOT NULL CHECK (media_type IN ('image', 'video')),
			removal_handle TEXT NOT NULL DEFAULT '',
			is_private INTEGER NOT NULL DEFAULT 0,
			taken_at DATETIME,
			created_at DATETIME NOT NULL,
			FOREIGN KEY(set_id) REFERENCES sets(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_items_set_id ON items(set_id);`,
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			email TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite: bootstrap: %w", err)
		}
	}

	return nil
}

func isUniqueConstraintError(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

type rowScanner interface {
	Scan(dest ...any) error
}

var (
	_ storage.Store          = (*Store)(nil)
	_ storage.CountRefresher = (*setRepository)(nil)
)
