package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/shared"
	"github.com/antibyte/calcvault/pkg/store"
)

// CredentialsRequest is the body of login and register requests.
type CredentialsRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
}

// UserView is the public part of a user.
type UserView struct {
	UID         string    `json:"uid"`
	Username    string    `json:"username,omitempty"`
	DisplayName string    `json:"displayName"`
	Email       string    `json:"email,omitempty"`
	Anonymous   bool      `json:"anonymous"`
	CreatedAt   time.Time `json:"createdAt"`
}

// LoginResponse definiert die Struktur für Login-Antworten
type LoginResponse struct {
	Success   bool      `json:"success"`
	Token     string    `json:"token,omitempty"`
	SessionID string    `json:"sessionId,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	User      *UserView `json:"user,omitempty"`
	Message   string    `json:"message"`
}

// NewUserView converts a stored user.
func NewUserView(u *store.User) *UserView {
	return &UserView{
		UID:         u.UID,
		Username:    u.Username,
		DisplayName: u.DisplayName,
		Email:       u.Email,
		Anonymous:   u.Anonymous,
		CreatedAt:   u.CreatedAt,
	}
}

// Handlers exposes the Service over HTTP.
type Handlers struct {
	svc *Service
}

// NewHandlers returns the HTTP handlers for svc.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// Register mounts all auth routes on mux.
func (h *Handlers) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/auth/anonymous", h.HandleAnonymous)
	mux.HandleFunc("/api/auth/register", h.HandleRegister)
	mux.HandleFunc("/api/auth/login", h.HandleLogin)
	mux.HandleFunc("/api/auth/validate", HandleTokenValidation)
	mux.HandleFunc("/api/auth/me", RequireToken(h.HandleMe))
	mux.HandleFunc("/api/auth/logout", HandleLogout)
}

// preflight writes CORS headers and reports whether the request is done.
func preflight(w http.ResponseWriter, r *http.Request, method string) bool {
	shared.SetCORSHeaders(w, method)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return true
	}
	if r.Method != method {
		logger.AuthWarn("Invalid method %s for %s", r.Method, r.URL.Path)
		shared.RespondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return true
	}
	return false
}

// HandleAnonymous signs in a new anonymous user.
func (h *Handlers) HandleAnonymous(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, http.MethodPost) {
		return
	}

	session, err := h.svc.SignInAnonymously(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithSession(w, session, http.StatusOK, "Signed in anonymously")
}

// HandleRegister creates an account.
func (h *Handlers) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, http.MethodPost) {
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.AuthWarn("Invalid JSON in register request: %v", err)
		shared.RespondWithError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	session, err := h.svc.Register(r.Context(), req.Username, req.Password, req.DisplayName, req.Email)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithSession(w, session, http.StatusCreated, "Registration successful")
}

// HandleLogin verarbeitet Login-Anfragen und generiert JWT-Tokens
func (h *Handlers) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, http.MethodPost) {
		return
	}

	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.AuthWarn("Invalid JSON in login request: %v", err)
		shared.RespondWithError(w, "Invalid request format", http.StatusBadRequest)
		return
	}

	session, err := h.svc.SignIn(r.Context(), req.Username, req.Password)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithSession(w, session, http.StatusOK, "Login successful")
}

// HandleMe returns the profile of the caller.
func (h *Handlers) HandleMe(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, http.MethodGet) {
		return
	}

	identity, _ := IdentityFromContext(r.Context())
	u, err := h.svc.Profile(r.Context(), identity.UserID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: identity.SessionID,
		User:      NewUserView(u),
		Message:   "OK",
	})
}

// HandleTokenValidation validiert ein JWT-Token
func HandleTokenValidation(w http.ResponseWriter, r *http.Request) {
	shared.SetCORSHeaders(w, "GET, POST")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	tokenString, err := ExtractTokenFromRequest(r)
	if err != nil {
		logger.AuthWarn("No token found in validation request: %v", err)
		shared.RespondWithError(w, "Token not found", http.StatusUnauthorized)
		return
	}

	identity, err := ValidateToken(tokenString)
	if err != nil {
		logger.AuthWarn("Token validation failed: %v", err)
		shared.RespondWithError(w, "Invalid token", http.StatusUnauthorized)
		return
	}

	logger.AuthDebug("Token validated for session: %s", identity.SessionID)
	shared.WriteJSON(w, http.StatusOK, LoginResponse{
		Success:   true,
		SessionID: identity.SessionID,
		ExpiresAt: identity.ExpiresAt,
		Message:   "Token valid",
	})
}

// HandleLogout löscht das JWT-Token Cookie
func HandleLogout(w http.ResponseWriter, r *http.Request) {
	if preflight(w, r, http.MethodPost) {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // Sofort löschen
		HttpOnly: true,
		Secure:   configuration.GetBool("JWT", "secure_cookie", false),
		SameSite: http.SameSiteLaxMode,
	})

	logger.AuthInfo("User logged out, token cookie cleared")
	shared.WriteJSON(w, http.StatusOK, LoginResponse{Success: true, Message: "Logout successful"})
}

func respondWithSession(w http.ResponseWriter, session *Session, statusCode int, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName(),
		Value:    session.Token,
		Path:     "/",
		Expires:  session.ExpiresAt,
		HttpOnly: true, // XSS-Schutz
		Secure:   configuration.GetBool("JWT", "secure_cookie", false),
		SameSite: http.SameSiteLaxMode,
	})

	shared.WriteJSON(w, statusCode, LoginResponse{
		Success:   true,
		Token:     session.Token,
		SessionID: session.SessionID,
		ExpiresAt: session.ExpiresAt,
		User:      NewUserView(session.User),
		Message:   message,
	})
}

func respondWithServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidCredentials):
		shared.RespondWithError(w, err.Error(), http.StatusUnauthorized)
	case errors.Is(err, ErrInvalidUsername), errors.Is(err, ErrInvalidPassword):
		shared.RespondWithError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, store.ErrUsernameTaken):
		shared.RespondWithError(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrAnonymousDisabled), errors.Is(err, ErrRegistrationDisabled):
		shared.RespondWithError(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, store.ErrNotFound):
		shared.RespondWithError(w, "User not found", http.StatusNotFound)
	default:
		logger.AuthError("Auth request failed: %v", err)
		shared.RespondWithError(w, "Internal server error", http.StatusInternalServerError)
	}
}
