// Package terminal serves the calculator keypad over WebSocket. Every
// connection owns one keypad session whose secret is the passcode of the
// authenticated user.
package terminal

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/keypad"
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/secretcapture"
	"github.com/antibyte/calcvault/pkg/shared"

	"github.com/gorilla/websocket"
)

// SecretResolver returns the secret source for a user.
type SecretResolver func(uid string) secretcapture.SecretSource

// Client ist eine einzelne WebSocket-Verbindung
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	handler   *KeypadHandler
	ipAddress string
	sessionID string
	userID    string
	expiresAt time.Time // Ablauf des Tokens, mit dem verbunden wurde
	session   *keypad.Session

	// set by the navigator during a key press, flushed after the display update
	navigatePending bool

	shutdown  chan struct{}
	closeOnce sync.Once
}

// KeypadHandler upgrades HTTP requests to keypad connections.
type KeypadHandler struct {
	upgrader      websocket.Upgrader
	clientManager *ClientManager
	validator     *SecurityValidator
	secrets       SecretResolver
}

// NewKeypadHandler erstellt einen neuen Handler. secrets liefert pro
// Benutzer die Passcode-Quelle.
func NewKeypadHandler(secrets SecretResolver) *KeypadHandler {
	validator := NewSecurityValidator()
	return &KeypadHandler{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  configuration.GetInt("WebSocket", "read_buffer_size", 1024),
			WriteBufferSize: configuration.GetInt("WebSocket", "write_buffer_size", 1024),
			CheckOrigin:     validator.CheckOrigin,
		},
		clientManager: NewClientManager(),
		validator:     validator,
		secrets:       secrets,
	}
}

// ClientCount returns the number of open connections.
func (h *KeypadHandler) ClientCount() int {
	return h.clientManager.GetClientCount()
}

// HiddenRoute is the route a client is sent to after an unlock.
func HiddenRoute() string {
	return configuration.GetString("Vault", "hidden_route", "/gallery")
}

// HandleWebSocket ist der Einstiegspunkt für /ws
func (h *KeypadHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	ipAddress := ClientIP(r)

	if h.clientManager.GetClientCount() >= MaxClients() {
		logger.SecurityWarn("Connection from %s rejected: client limit reached", ipAddress)
		http.Error(w, "Server is full", http.StatusServiceUnavailable)
		return
	}

	tokenString, err := auth.ExtractTokenFromRequest(r)
	if err != nil {
		logger.SecurityWarn("WebSocket connection from %s without token", ipAddress)
		http.Error(w, "Unauthorized: token missing", http.StatusUnauthorized)
		return
	}
	identity, err := auth.ValidateToken(tokenString)
	if err != nil {
		logger.SecurityWarn("WebSocket connection from %s with invalid token: %v", ipAddress, err)
		http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
		return
	}
	if err := h.validator.ValidateSessionID(identity.SessionID); err != nil {
		logger.SecurityWarn("WebSocket connection from %s with bad session ID: %v", ipAddress, err)
		http.Error(w, "Unauthorized: invalid session", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade hat bereits eine HTTP-Fehlerantwort geschrieben
		logger.WebSocketWarn("Upgrade failed for %s: %v", ipAddress, err)
		return
	}

	client := &Client{
		conn:      conn,
		send:      make(chan []byte, getMaxChannelBuffer()),
		handler:   h,
		ipAddress: ipAddress,
		sessionID: identity.SessionID,
		userID:    identity.UserID,
		expiresAt: identity.ExpiresAt,
		shutdown:  make(chan struct{}),
	}
	var secret secretcapture.SecretSource = secretcapture.StaticSecret("")
	if h.secrets != nil {
		secret = h.secrets(identity.UserID)
	}
	client.session = keypad.NewSession(secret, secretcapture.NavigatorFunc(func() {
		client.navigatePending = true
	}))

	if err := h.clientManager.AddClient(client.sessionID, client); err != nil {
		logger.SecurityWarn("Client %s rejected: %v", ipAddress, err)
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "server full"))
		conn.Close()
		return
	}

	logger.WebSocketInfo("Keypad connected: session %s, user %s, ip %s", client.sessionID, client.userID, ipAddress)

	client.queue(shared.Message{
		Type:      shared.MessageTypeSession,
		Content:   client.session.Display(),
		State:     client.session.State().String(),
		SessionID: client.sessionID,
	})

	go client.writePump()
	go client.readPump()
}

// queue encodes msg and hands it to the write pump. A client whose buffer
// is full is disconnected.
func (c *Client) queue(msg shared.Message) bool {
	data, err := json.Marshal(msg)
	if err != nil {
		logger.WebSocketError("Could not encode %s message: %v", msg.Type, err)
		return false
	}
	select {
	case <-c.shutdown:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	default:
		logger.WebSocketWarn("Send buffer full for session %s, closing connection", c.sessionID)
		go c.close()
		return false
	}
}

// close stops both pumps exactly once.
func (c *Client) close() {
	c.closeOnce.Do(func() {
		close(c.shutdown)
		c.handler.clientManager.RemoveClient(c.sessionID, c)
		c.conn.Close()
		logger.WebSocketInfo("Keypad disconnected: session %s", c.sessionID)
	})
}
