package terminal

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/antibyte/calcvault/pkg/calculator"
	"github.com/antibyte/calcvault/pkg/configuration"
	"github.com/antibyte/calcvault/pkg/logger"
	"github.com/antibyte/calcvault/pkg/shared"

	"github.com/gorilla/websocket"
)

// Hilfsfunktionen für WebSocket-Konfigurationswerte, siehe [Network]
func getWriteWait() time.Duration {
	return configuration.GetDuration("Network", "write_wait_timeout", 10*time.Second)
}

func getPongWait() time.Duration {
	return configuration.GetDuration("Network", "pong_timeout", 90*time.Second)
}

func getPingPeriod() time.Duration {
	pongWait := getPongWait()
	return (pongWait * 9) / 10
}

func getMaxMessageSize() int64 {
	return int64(configuration.GetInt("Network", "max_message_size_kb", 4) * 1024)
}

func getMaxChannelBuffer() int {
	return configuration.GetInt("Network", "max_channel_buffer", 64)
}

// readPump liest Nachrichten vom Client und drückt die Tasten der Session.
// Es läuft genau eine readPump pro Verbindung, daher braucht die Session
// keine eigene Synchronisation.
func (c *Client) readPump() {
	defer func() {
		if r := recover(); r != nil {
			logger.WebSocketError("Panic in readPump for session %s: %v", c.sessionID, r)
		}
		c.close()
	}()

	c.conn.SetReadLimit(getMaxMessageSize())
	pongWait := getPongWait()
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				logger.WebSocketWarn("Unexpected close for session %s: %v", c.sessionID, err)
			}
			return
		}

		msg := parseClientMessage(data)
		if msg.Type == shared.ClientKeepalive {
			continue
		}

		if c.sessionExpired(time.Now()) {
			// Verbindung bleibt offen, der Client meldet sich neu an
			c.queue(shared.Message{Type: shared.MessageTypeAuth, Content: "session expired"})
			continue
		}

		if err := c.handler.clientManager.CheckRateLimit(c.ipAddress); err != nil {
			c.queue(shared.Message{Type: shared.MessageTypeError, Content: "too many key presses"})
			continue
		}

		c.handleMessage(msg)
	}
}

// sessionExpired reports whether the token the client connected with has
// run out. Keys are no longer accepted after that.
func (c *Client) sessionExpired(now time.Time) bool {
	return !c.expiresAt.IsZero() && now.After(c.expiresAt)
}

// parseClientMessage accepts a JSON ClientMessage or a bare key label.
func parseClientMessage(data []byte) shared.ClientMessage {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		var msg shared.ClientMessage
		if err := json.Unmarshal([]byte(trimmed), &msg); err == nil {
			if msg.Type == "" && msg.Key != "" {
				msg.Type = shared.ClientKey
			}
			return msg
		}
	}
	if trimmed == shared.ClientKeepalive {
		return shared.ClientMessage{Type: shared.ClientKeepalive}
	}
	return shared.ClientMessage{Type: shared.ClientKey, Key: trimmed}
}

func (c *Client) handleMessage(msg shared.ClientMessage) {
	switch msg.Type {
	case shared.ClientClear:
		c.session.Clear()
		c.sendDisplay()
	case shared.ClientKey:
		if err := c.handler.validator.ValidateKeyLabel(msg.Key); err != nil {
			c.queue(shared.Message{Type: shared.MessageTypeError, Content: err.Error()})
			return
		}
		if _, err := c.session.PressLabel(msg.Key); err != nil {
			logger.Debug(logger.AreaKeypad, "Session %s: %v", c.sessionID, err)
			c.queue(shared.Message{Type: shared.MessageTypeError, Content: err.Error()})
			return
		}
		c.sendDisplay()
		if c.navigatePending {
			c.navigatePending = false
			logger.VaultInfo("Vault unlocked by session %s", c.sessionID)
			c.queue(shared.Message{Type: shared.MessageTypeNavigate, Content: HiddenRoute()})
		}
	default:
		c.queue(shared.Message{Type: shared.MessageTypeError, Content: "unknown message type"})
	}
}

func (c *Client) sendDisplay() {
	msg := shared.Message{
		Type:    shared.MessageTypeDisplay,
		Content: c.session.Display(),
		State:   c.session.State().String(),
	}
	if op := c.session.Pending(); op != calculator.NoOperation {
		msg.Pending = op.Symbol()
	}
	c.queue(msg)
}

// writePump schreibt Nachrichten an den Client und sendet Pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(getPingPeriod())
	defer func() {
		ticker.Stop()
		c.close()
	}()

	writeWait := getWriteWait()
	for {
		select {
		case message := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.WebSocketDebug("Write failed for session %s: %v", c.sessionID, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.shutdown:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
