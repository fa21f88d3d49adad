// Package store persists users, passcodes, image metadata and image
// objects in a single SQLite database.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/logger"
	_ "modernc.org/sqlite"
)

var (
	// ErrNotFound is returned when a row does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUsernameTaken is returned when registering an existing username.
	ErrUsernameTaken = errors.New("username already taken")
)

// DB wraps the SQLite connection pool.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if necessary) the database at path and ensures all
// tables exist.
func Open(path string) (*DB, error) {
	busy := configuration.GetInt("Database", "busy_timeout_ms", 5000)
	dsn := fmt.Sprintf("%s?_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)", path, busy)

	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	conn.SetMaxOpenConns(configuration.GetInt("Database", "max_open_conns", 1))

	// Ensure the database is accessible
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.createTables(); err != nil {
		conn.Close()
		return nil, err
	}
	logger.Info(logger.AreaDatabase, "Database opened at %s", path)
	return db, nil
}

// Close closes the connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping checks that the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// createTables ensures all required tables exist in the database.
func (db *DB) createTables() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS users (
			uid TEXT PRIMARY KEY,
			username TEXT UNIQUE,
			password TEXT NOT NULL DEFAULT '',
			display_name TEXT NOT NULL DEFAULT '',
			email TEXT NOT NULL DEFAULT '',
			is_anonymous INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL,
			last_login INTEGER
		)`,
		`CREATE TABLE IF NOT EXISTS passcodes (
			uid TEXT PRIMARY KEY REFERENCES users(uid) ON DELETE CASCADE,
			passcode TEXT NOT NULL,
			updated_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS gallery_objects (
			object_key TEXT PRIMARY KEY,
			content_type TEXT NOT NULL,
			content BLOB NOT NULL,
			created_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS gallery_meta (
			id TEXT PRIMARY KEY,
			uid TEXT NOT NULL REFERENCES users(uid) ON DELETE CASCADE,
			object_key TEXT NOT NULL,
			width INTEGER NOT NULL DEFAULT 0,
			height INTEGER NOT NULL DEFAULT 0,
			mime TEXT NOT NULL,
			size INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_gallery_meta_uid_created ON gallery_meta (uid, created_at DESC)`,
	}

	for _, query := range queries {
		if _, err := db.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}

	return nil
}

func toMillis(t time.Time) int64 {
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
