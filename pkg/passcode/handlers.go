package passcode

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/shared"
)

// ChangeRequest is the body of PUT /api/vault/passcode.
type ChangeRequest struct {
	Passcode string `json:"passcode"`
	Confirm  string `json:"confirm"`
}

// StatusResponse reports whether a custom passcode is in use.
type StatusResponse struct {
	Custom    bool `json:"custom"`
	MinLength int  `json:"minLength"`
	MaxLength int  `json:"maxLength"`
}

// Handler serves /api/vault/passcode.
type Handler struct {
	manager *Manager
}

// NewHandler returns the passcode endpoint.
func NewHandler(m *Manager) *Handler {
	return &Handler{manager: m}
}

// Register mounts the passcode route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/api/vault/passcode", auth.RequireToken(h.ServeHTTP))
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	shared.SetCORSHeaders(w, "GET, PUT, DELETE")
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusOK)
		return
	}

	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		shared.RespondWithError(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		custom, err := h.manager.IsCustom(r.Context(), identity.UserID)
		if err != nil {
			logger.VaultWarn("Passcode status for %s failed: %v", identity.UserID, err)
			shared.RespondWithError(w, "Internal server error", http.StatusInternalServerError)
			return
		}
		minLen, maxLen := lengthBounds()
		shared.RespondWithData(w, http.StatusOK, "", StatusResponse{Custom: custom, MinLength: minLen, MaxLength: maxLen})

	case http.MethodPut:
		var req ChangeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			shared.RespondWithError(w, "Invalid request format", http.StatusBadRequest)
			return
		}
		err := h.manager.Change(r.Context(), identity.UserID, req.Passcode, req.Confirm)
		switch {
		case err == nil:
			shared.RespondWithData(w, http.StatusOK, "New passcode set successfully", nil)
		case errors.Is(err, ErrMismatch), errors.Is(err, ErrNotDigits),
			errors.Is(err, ErrTooShort), errors.Is(err, ErrTooLong):
			shared.RespondWithError(w, err.Error(), http.StatusBadRequest)
		default:
			logger.VaultWarn("Passcode change for %s failed: %v", identity.UserID, err)
			shared.RespondWithError(w, "Failed to set new passcode", http.StatusInternalServerError)
		}

	case http.MethodDelete:
		if err := h.manager.Reset(r.Context(), identity.UserID); err != nil {
			logger.VaultWarn("Passcode reset for %s failed: %v", identity.UserID, err)
			shared.RespondWithError(w, "Failed to reset passcode", http.StatusInternalServerError)
			return
		}
		shared.RespondWithData(w, http.StatusOK, "Passcode reset to default", nil)

	default:
		shared.RespondWithError(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
