package terminal

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/logger"
)

const (
	MaxClientsDefault        = 100 // gleichzeitige Keypad-Verbindungen
	RateLimitMessagesDefault = 120 // Tastendrücke pro Fenster und IP
)

var errServerFull = errors.New("server full")

// ipWindow zählt Nachrichten einer IP im aktuellen Fenster.
type ipWindow struct {
	count   int
	started time.Time
}

// ClientManager hält die aktiven Keypad-Clients (eine Verbindung pro
// Session-ID) und die Rate-Limit-Fenster pro IP.
type ClientManager struct {
	mu      sync.Mutex
	clients map[string]*Client
	windows map[string]*ipWindow
	now     func() time.Time
}

func NewClientManager() *ClientManager {
	return &ClientManager{
		clients: make(map[string]*Client),
		windows: make(map[string]*ipWindow),
		now:     time.Now,
	}
}

// MaxClients returns [Security] max_clients.
func MaxClients() int {
	return configuration.GetInt("Security", "max_clients", MaxClientsDefault)
}

func rateLimitSettings() (int, time.Duration) {
	return configuration.GetInt("Security", "rate_limit_messages", RateLimitMessagesDefault),
		configuration.GetDuration("Security", "rate_limit_window", time.Minute)
}

// AddClient registers client under sessionID. A reconnect with the same
// session replaces and closes the previous connection.
func (cm *ClientManager) AddClient(sessionID string, client *Client) error {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	old := cm.clients[sessionID]
	if old == nil && len(cm.clients) >= MaxClients() {
		return fmt.Errorf("%w: %d clients connected", errServerFull, len(cm.clients))
	}
	if old != nil && old != client {
		go old.close()
	}
	cm.clients[sessionID] = client

	// Bei jeder neuen Verbindung alte IP-Fenster aufräumen
	_, window := rateLimitSettings()
	cm.pruneLocked(10 * window)

	logger.Debug(logger.AreaSession, "Client added for session %s (%d connected)", sessionID, len(cm.clients))
	return nil
}

// RemoveClient is a no-op when sessionID already belongs to a newer
// connection.
func (cm *ClientManager) RemoveClient(sessionID string, client *Client) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	if cm.clients[sessionID] != client {
		return
	}
	delete(cm.clients, sessionID)
	logger.Debug(logger.AreaSession, "Client removed for session %s", sessionID)
}

func (cm *ClientManager) GetClientCount() int {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	return len(cm.clients)
}

// CheckRateLimit counts one message for ip and fails once the configured
// number per window is exceeded. A limit of 0 disables the check.
func (cm *ClientManager) CheckRateLimit(ip string) error {
	limit, window := rateLimitSettings()

	cm.mu.Lock()
	defer cm.mu.Unlock()

	now := cm.now()
	w := cm.windows[ip]
	if w == nil || now.Sub(w.started) > window {
		w = &ipWindow{started: now}
		cm.windows[ip] = w
	}
	w.count++

	if limit <= 0 || w.count <= limit {
		return nil
	}
	if w.count == limit+1 {
		// nur einmal pro Fenster melden
		logger.SecurityWarn("Rate limit exceeded for IP %s: %d messages in %v", ip, w.count, window)
	}
	return fmt.Errorf("rate limit exceeded for %s", ip)
}

// PruneRateLimits drops windows that started more than maxAge ago.
func (cm *ClientManager) PruneRateLimits(maxAge time.Duration) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.pruneLocked(maxAge)
}

func (cm *ClientManager) pruneLocked(maxAge time.Duration) {
	now := cm.now()
	for ip, w := range cm.windows {
		if now.Sub(w.started) > maxAge {
			delete(cm.windows, ip)
		}
	}
}
