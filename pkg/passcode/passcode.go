// Package passcode manages the per-user secret that unlocks the hidden
// gallery from the calculator keypad.
package passcode

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/secretcapture"
	"github.com/antibyte/calcvault/pkg/store"
)

// DefaultPasscode applies to every user who has not chosen their own.
const DefaultPasscode = "1701"

// Validation errors.
var (
	ErrMismatch  = errors.New("passcodes do not match")
	ErrNotDigits = errors.New("passcode must contain only digits")
	ErrTooShort  = errors.New("passcode is too short")
	ErrTooLong   = errors.New("passcode is too long")
)

// Store is the persistence the passcode package needs.
type Store interface {
	GetPasscode(ctx context.Context, uid string) (string, error)
	SetPasscode(ctx context.Context, uid, passcode string) error
	ClearPasscode(ctx context.Context, uid string) error
}

// Default returns the configured default passcode.
func Default() string {
	return configuration.GetString("Vault", "default_passcode", DefaultPasscode)
}

func lengthBounds() (int, int) {
	minLen := configuration.GetInt("Vault", "min_passcode_length", 4)
	maxLen := configuration.GetInt("Vault", "max_passcode_length", secretcapture.BufferSize)
	// A longer passcode could never be matched by the keypad.
	if maxLen > secretcapture.BufferSize {
		maxLen = secretcapture.BufferSize
	}
	return minLen, maxLen
}

// Validate checks a new passcode and its confirmation.
func Validate(passcode, confirm string) error {
	if passcode != confirm {
		return ErrMismatch
	}
	for _, r := range passcode {
		if r < '0' || r > '9' {
			return ErrNotDigits
		}
	}
	minLen, maxLen := lengthBounds()
	if len(passcode) < minLen {
		return fmt.Errorf("%w: at least %d digits", ErrTooShort, minLen)
	}
	if len(passcode) > maxLen {
		return fmt.Errorf("%w: at most %d digits", ErrTooLong, maxLen)
	}
	return nil
}

// Manager changes and resolves passcodes.
type Manager struct {
	store   Store
	timeout time.Duration
}

// NewManager returns a Manager backed by s.
func NewManager(s Store) *Manager {
	return &Manager{store: s, timeout: 2 * time.Second}
}

// Change validates and stores a new passcode for uid.
func (m *Manager) Change(ctx context.Context, uid, passcode, confirm string) error {
	if err := Validate(passcode, confirm); err != nil {
		return err
	}
	if err := m.store.SetPasscode(ctx, uid, passcode); err != nil {
		return err
	}
	logger.VaultInfo("Passcode changed for user %s", uid)
	return nil
}

// Reset removes the custom passcode of uid.
func (m *Manager) Reset(ctx context.Context, uid string) error {
	if err := m.store.ClearPasscode(ctx, uid); err != nil {
		return err
	}
	logger.VaultInfo("Passcode reset to default for user %s", uid)
	return nil
}

// IsCustom reports whether uid has chosen a passcode.
func (m *Manager) IsCustom(ctx context.Context, uid string) (bool, error) {
	_, err := m.store.GetPasscode(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Current returns the passcode that unlocks the gallery of uid.
func (m *Manager) Current(ctx context.Context, uid string) (string, error) {
	p, err := m.store.GetPasscode(ctx, uid)
	if errors.Is(err, store.ErrNotFound) {
		return Default(), nil
	}
	return p, err
}

// SourceFor returns a SecretSource that looks up the passcode of uid each
// time the keypad evaluates. Lookup failures yield the empty secret, which
// never matches.
func (m *Manager) SourceFor(uid string) secretcapture.SecretSource {
	return secretcapture.SecretFunc(func() string {
		ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
		defer cancel()

		p, err := m.Current(ctx, uid)
		if err != nil {
			logger.VaultWarn("Passcode lookup for %s failed: %v", uid, err)
			return ""
		}
		return p
	})
}
