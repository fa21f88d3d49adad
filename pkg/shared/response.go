package shared

import (
	"encoding/json"
	"net/http"
)

// APIResponse is the envelope of every JSON endpoint.
type APIResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// SetCORSHeaders writes the CORS headers used by all API endpoints.
func SetCORSHeaders(w http.ResponseWriter, methods string) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", methods+", OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

// RespondWithData sends a successful response carrying data.
func RespondWithData(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	WriteJSON(w, statusCode, APIResponse{Success: true, Message: message, Data: data})
}

// RespondWithError sendet eine Fehlerantwort als JSON
func RespondWithError(w http.ResponseWriter, message string, statusCode int) {
	WriteJSON(w, statusCode, APIResponse{Success: false, Message: message})
}
