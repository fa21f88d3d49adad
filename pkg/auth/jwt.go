package auth

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/logger"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultJWTSecret       = "calcvault_dev_secret_change_in_production"
	defaultTokenExpiration = 24 * time.Hour
	defaultGuestExpiration = 12 * time.Hour

	tokenIssuer  = "calcvault"
	guestSubject = "guest"
)

// ErrNoToken is returned when a request carries no token at all.
var ErrNoToken = errors.New("no token found in request")

// getJWTSecret prefers JWT_SECRET_KEY over [JWT] secret_key.
func getJWTSecret() string {
	if envSecret := os.Getenv("JWT_SECRET_KEY"); envSecret != "" {
		return envSecret
	}

	secret := configuration.GetString("JWT", "secret_key", "")
	if secret == "" {
		logger.SecurityWarn("Using fallback JWT secret - set JWT_SECRET_KEY environment variable for production!")
		return defaultJWTSecret
	}
	return secret
}

func getTokenExpiration() time.Duration {
	return configuration.GetDuration("JWT", "token_lifetime", defaultTokenExpiration)
}

func getGuestTokenExpiration() time.Duration {
	return configuration.GetDuration("JWT", "guest_lifetime", defaultGuestExpiration)
}

// CookieName returns the name of the cookie carrying the token.
func CookieName() string {
	return configuration.GetString("JWT", "cookie_name", "vault_token")
}

// Claims are the JWT claims of a vault session. Anonymous sessions use the
// subject "guest", registered users their uid.
type Claims struct {
	SessionID string `json:"sid"`
	UserID    string `json:"uid"`
	Username  string `json:"username,omitempty"`
	jwt.RegisteredClaims
}

// Identity is the validated caller behind a token.
type Identity struct {
	UserID    string
	SessionID string
	Username  string
	Anonymous bool
	ExpiresAt time.Time
}

// GenerateGuestToken signs a token for an anonymous user.
func GenerateGuestToken(sessionID, userID string) (string, time.Time, error) {
	return signToken(sessionID, userID, "", guestSubject, getGuestTokenExpiration())
}

// GenerateUserToken signs a token for a registered user.
func GenerateUserToken(sessionID, userID, username string) (string, time.Time, error) {
	return signToken(sessionID, userID, username, userID, getTokenExpiration())
}

func signToken(sessionID, userID, username, subject string, lifetime time.Duration) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(lifetime)

	claims := Claims{
		SessionID: sessionID,
		UserID:    userID,
		Username:  username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   subject,
			ID:        sessionID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString([]byte(getJWTSecret()))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("token could not be signed: %w", err)
	}

	logger.AuthDebug("Token generated for session %s (subject %s)", sessionID, subject)
	return signedToken, expires, nil
}

// ValidateToken parses and verifies a token and returns the identity it
// carries.
func ValidateToken(tokenString string) (*Identity, error) {
	secretKey := getJWTSecret()

	token, err := jwt.ParseWithClaims(
		tokenString,
		&Claims{},
		func(token *jwt.Token) (interface{}, error) {
			// Check signing algorithm
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing algorithm: %v", token.Header["alg"])
			}
			return []byte(secretKey), nil
		},
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("token parsing failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("could not extract token claims")
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("token carries no user id")
	}

	return &Identity{
		UserID:    claims.UserID,
		SessionID: claims.SessionID,
		Username:  claims.Username,
		Anonymous: claims.Subject == guestSubject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ExtractTokenFromRequest extracts the JWT token from the HTTP request.
// The token can be passed in the Authorization header (Bearer Token), as a
// cookie or as the "token" query parameter (used by WebSocket clients).
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	if header := r.Header.Get("Authorization"); header != "" {
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" || strings.Contains(token, " ") {
			return "", fmt.Errorf("invalid authorization header format")
		}
		return token, nil
	}

	if cookie, err := r.Cookie(CookieName()); err == nil && cookie.Value != "" {
		return cookie.Value, nil
	}

	if token := r.URL.Query().Get("token"); token != "" {
		return token, nil
	}

	return "", ErrNoToken
}

// RequireToken ist ein Middleware für HTTP-Handler, die einen gültigen Token erfordert
func RequireToken(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// OPTIONS-Anfrage für CORS-Preflight erlauben ohne Token-Überprüfung
		if r.Method == http.MethodOptions {
			next(w, r)
			return
		}

		tokenString, err := ExtractTokenFromRequest(r)
		if err != nil {
			logger.AuthWarn("No token in request to %s: %v", r.URL.Path, err)
			http.Error(w, "Unauthorized: token missing", http.StatusUnauthorized)
			return
		}

		identity, err := ValidateToken(tokenString)
		if err != nil {
			logger.AuthWarn("Invalid token for %s: %v", r.URL.Path, err)
			http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
			return
		}

		next(w, r.WithContext(NewContextWithIdentity(r.Context(), identity)))
	}
}
