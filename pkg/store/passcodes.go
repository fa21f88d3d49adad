package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// GetPasscode returns the custom passcode of uid, or ErrNotFound when the
// user has not set one.
func (db *DB) GetPasscode(ctx context.Context, uid string) (string, error) {
	var passcode string
	err := db.conn.QueryRowContext(ctx, `SELECT passcode FROM passcodes WHERE uid = ?`, uid).Scan(&passcode)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to read passcode: %w", err)
	}
	return passcode, nil
}

// SetPasscode stores or replaces the passcode of uid.
func (db *DB) SetPasscode(ctx context.Context, uid, passcode string) error {
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO passcodes (uid, passcode, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(uid) DO UPDATE SET passcode = excluded.passcode, updated_at = excluded.updated_at`,
		uid, passcode, toMillis(time.Now()))
	if err != nil {
		return fmt.Errorf("failed to store passcode: %w", err)
	}
	return nil
}

// ClearPasscode removes the custom passcode of uid so the default applies
// again.
func (db *DB) ClearPasscode(ctx context.Context, uid string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM passcodes WHERE uid = ?`, uid); err != nil {
		return fmt.Errorf("failed to clear passcode: %w", err)
	}
	return nil
}
