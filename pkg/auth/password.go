package auth

import (
	"errors"
	"fmt"
	"unicode"

	"github.com/antibyte/calcvault/pkg/configuration"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrInvalidUsername is returned for usernames outside the configured
	// length or with characters other than letters, digits, "_", "-" and ".".
	ErrInvalidUsername = errors.New("invalid username")

	// ErrInvalidPassword is returned for passwords outside the configured length.
	ErrInvalidPassword = errors.New("invalid password")
)

// ValidateUsername checks length and character set of a username.
func ValidateUsername(username string) error {
	minLen := configuration.GetInt("Authentication", "min_username_length", 3)
	maxLen := configuration.GetInt("Authentication", "max_username_length", 20)

	n := len([]rune(username))
	if n < minLen || n > maxLen {
		return fmt.Errorf("%w: must be %d to %d characters", ErrInvalidUsername, minLen, maxLen)
	}
	for _, r := range username {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			continue
		}
		return fmt.Errorf("%w: character %q not allowed", ErrInvalidUsername, r)
	}
	return nil
}

// ValidatePassword checks the length of a password.
func ValidatePassword(password string) error {
	minLen := configuration.GetInt("Authentication", "min_password_length", 6)
	maxLen := configuration.GetInt("Authentication", "max_password_length", 100)

	// bcrypt ignores everything after 72 bytes
	if maxLen > 72 {
		maxLen = 72
	}
	if len(password) < minLen || len(password) > maxLen {
		return fmt.Errorf("%w: must be %d to %d characters", ErrInvalidPassword, minLen, maxLen)
	}
	return nil
}

// HashPassword hashes password with the configured bcrypt cost.
func HashPassword(password string) (string, error) {
	cost := configuration.GetInt("Authentication", "password_hash_cost", bcrypt.DefaultCost)
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
