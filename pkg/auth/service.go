package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/store"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials is returned when username or password is wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrAnonymousDisabled is returned when anonymous sign-in is switched off.
	ErrAnonymousDisabled = errors.New("anonymous access is disabled")

	// ErrRegistrationDisabled is returned when registration is switched off.
	ErrRegistrationDisabled = errors.New("registration is disabled")
)

// UserStore is the persistence the auth service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *store.User) error
	GetUser(ctx context.Context, uid string) (*store.User, error)
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
	TouchLogin(ctx context.Context, uid string, at time.Time) error
}

// Session is the result of a successful sign-in.
type Session struct {
	Token     string
	SessionID string
	ExpiresAt time.Time
	User      *store.User
}

// Service signs users in and out.
type Service struct {
	users UserStore
	now   func() time.Time
}

// NewService returns a Service backed by users.
func NewService(users UserStore) *Service {
	return &Service{users: users, now: time.Now}
}

// SignInAnonymously creates a fresh anonymous user and signs it in.
func (s *Service) SignInAnonymously(ctx context.Context) (*Session, error) {
	if !configuration.GetBool("Authentication", "enable_anonymous_access", true) {
		return nil, ErrAnonymousDisabled
	}

	u := &store.User{
		Anonymous:   true,
		DisplayName: "Anonymous",
		CreatedAt:   s.now().UTC(),
		LastLogin:   s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	sessionID := generateSessionID()
	token, expires, err := GenerateGuestToken(sessionID, u.UID)
	if err != nil {
		return nil, err
	}
	logger.AuthInfo("Anonymous user %s signed in (session %s)", u.UID, sessionID)
	return &Session{Token: token, SessionID: sessionID, ExpiresAt: expires, User: u}, nil
}

// Register creates a user with a password and signs it in.
func (s *Service) Register(ctx context.Context, username, password, displayName, email string) (*Session, error) {
	if !configuration.GetBool("Authentication", "enable_registration", true) {
		return nil, ErrRegistrationDisabled
	}
	if err := ValidateUsername(username); err != nil {
		return nil, err
	}
	if err := ValidatePassword(password); err != nil {
		return nil, err
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	if displayName == "" {
		displayName = username
	}

	u := &store.User{
		Username:     username,
		PasswordHash: hash,
		DisplayName:  displayName,
		Email:        email,
		CreatedAt:    s.now().UTC(),
		LastLogin:    s.now().UTC(),
	}
	if err := s.users.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	logger.AuthInfo("User %s registered as %s", username, u.UID)
	return s.issue(u)
}

// SignIn verifies username and password.
func (s *Service) SignIn(ctx context.Context, username, password string) (*Session, error) {
	u, err := s.users.GetUserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		logger.AuthWarn("Sign-in for unknown user %q", username)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if u.Anonymous || !CheckPassword(u.PasswordHash, password) {
		logger.AuthWarn("Wrong password for user %q", username)
		return nil, ErrInvalidCredentials
	}

	now := s.now().UTC()
	if err := s.users.TouchLogin(ctx, u.UID, now); err != nil {
		return nil, err
	}
	u.LastLogin = now
	logger.AuthInfo("User %s signed in", username)
	return s.issue(u)
}

// Profile returns the user behind uid.
func (s *Service) Profile(ctx context.Context, uid string) (*store.User, error) {
	return s.users.GetUser(ctx, uid)
}

func (s *Service) issue(u *store.User) (*Session, error) {
	sessionID := generateSessionID()
	token, expires, err := GenerateUserToken(sessionID, u.UID, u.Username)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, SessionID: sessionID, ExpiresAt: expires, User: u}, nil
}

// generateSessionID creates a unique session ID
func generateSessionID() string {
	return fmt.Sprintf("sess_%s", uuid.New().String())
}
