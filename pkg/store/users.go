package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// User is an account. Anonymous users have no username or password.
type User struct {
	UID          string
	Username     string
	PasswordHash string
	DisplayName  string
	Email        string
	Anonymous    bool
	CreatedAt    time.Time
	LastLogin    time.Time
}

const userColumns = `uid, username, password, display_name, email, is_anonymous, created_at, last_login`

// CreateUser inserts u. An empty UID is filled with a new UUID and a zero
// CreatedAt with the current time.
func (db *DB) CreateUser(ctx context.Context, u *User) error {
	if u.UID == "" {
		u.UID = uuid.New().String()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	var username sql.NullString
	if u.Username != "" {
		username = sql.NullString{String: u.Username, Valid: true}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		u.UID, username, u.PasswordHash, u.DisplayName, u.Email,
		boolToInt(u.Anonymous), toMillis(u.CreatedAt), nullMillis(u.LastLogin))
	if isUniqueViolation(err) {
		return ErrUsernameTaken
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUser loads a user by uid.
func (db *DB) GetUser(ctx context.Context, uid string) (*User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE uid = ?`, uid)
	return scanUser(row)
}

// GetUserByUsername loads a registered user.
func (db *DB) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := db.conn.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE username = ?`, username)
	return scanUser(row)
}

// TouchLogin records a successful sign-in.
func (db *DB) TouchLogin(ctx context.Context, uid string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx, `UPDATE users SET last_login = ? WHERE uid = ?`, toMillis(at), uid)
	if err != nil {
		return fmt.Errorf("failed to update last login: %w", err)
	}
	return expectOne(res)
}

// DeleteUser removes a user together with passcode and image metadata.
// Objects are removed by the gallery before calling this.
func (db *DB) DeleteUser(ctx context.Context, uid string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM users WHERE uid = ?`, uid)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return expectOne(res)
}

// ListUsers returns all users ordered by creation time.
func (db *DB) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u         User
		username  sql.NullString
		anonymous int
		created   int64
		lastLogin sql.NullInt64
	)
	err := row.Scan(&u.UID, &username, &u.PasswordHash, &u.DisplayName, &u.Email, &anonymous, &created, &lastLogin)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read user: %w", err)
	}
	u.Username = username.String
	u.Anonymous = anonymous != 0
	u.CreatedAt = fromMillis(created)
	if lastLogin.Valid {
		u.LastLogin = fromMillis(lastLogin.Int64)
	}
	return &u, nil
}

func expectOne(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nullMillis(t time.Time) sql.NullInt64 {
	if t.IsZero() {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: toMillis(t), Valid: true}
}
