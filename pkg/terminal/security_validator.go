package terminal

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"unicode"

	"github.com/antibyte/calcvault/pkg/configuration"
)

const maxKeyLabelLength = 16

// SecurityValidator checks client-supplied values before they reach a
// keypad session.
type SecurityValidator struct{}

func NewSecurityValidator() *SecurityValidator {
	return &SecurityValidator{}
}

// ValidateSessionID accepts 1..128 letters, digits, '-' and '_'. Session
// IDs come from the token, so anything else means a forged or mangled one.
func (sv *SecurityValidator) ValidateSessionID(sessionID string) error {
	switch {
	case sessionID == "":
		return fmt.Errorf("session ID is empty")
	case len(sessionID) > 128:
		return fmt.Errorf("session ID too long")
	}
	if strings.IndexFunc(sessionID, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-' && r != '_'
	}) >= 0 {
		return fmt.Errorf("session ID contains invalid characters")
	}
	return nil
}

// ValidateKeyLabel rejects labels that cannot be a keypad button.
func (sv *SecurityValidator) ValidateKeyLabel(label string) error {
	if label == "" {
		return fmt.Errorf("key is empty")
	}
	if len(label) > maxKeyLabelLength {
		return fmt.Errorf("key label too long")
	}
	for _, r := range label {
		if unicode.IsControl(r) {
			return fmt.Errorf("key label contains control characters")
		}
	}
	return nil
}

// CheckOrigin accepts requests without Origin, from the serving host, or
// from an origin listed in [Server] allowed_origins.
func (sv *SecurityValidator) CheckOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	for _, allowed := range configuration.GetList("Server", "allowed_origins") {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	return false
}

// ClientIP extracts the client IP. Proxy headers win over RemoteAddr,
// the first X-Forwarded-For hop over X-Real-IP.
func ClientIP(r *http.Request) string {
	if first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ","); strings.TrimSpace(first) != "" {
		return strings.TrimSpace(first)
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
