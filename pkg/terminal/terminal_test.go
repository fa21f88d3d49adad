package terminal

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/antibyte/calcvault/pkg/auth"
	"github.com/antibyte/calcvault/pkg/secretcapture"
	"github.com/antibyte/calcvault/pkg/shared"

	"github.com/gorilla/websocket"
)

func newTestServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	h := NewKeypadHandler(func(uid string) secretcapture.SecretSource {
		return secretcapture.StaticSecret(secret)
	})
	srv := httptest.NewServer(http.HandlerFunc(h.HandleWebSocket))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	token, _, err := auth.GenerateGuestToken(sessionID, "user-"+sessionID)
	if err != nil {
		t.Fatalf("GenerateGuestToken: %v", err)
	}
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) shared.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var msg shared.Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("ReadJSON: %v", err)
	}
	return msg
}

func sendKey(t *testing.T, conn *websocket.Conn, key string) {
	t.Helper()
	if err := conn.WriteJSON(shared.ClientMessage{Type: shared.ClientKey, Key: key}); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
}

func TestHandshakeSendsSession(t *testing.T) {
	srv := newTestServer(t, "1701")
	conn := dial(t, srv, "sess_handshake")

	msg := readMessage(t, conn)
	if msg.Type != shared.MessageTypeSession {
		t.Fatalf("first message type = %s, want session", msg.Type)
	}
	if msg.SessionID != "sess_handshake" || msg.Content != "0" {
		t.Errorf("session message = %+v", msg)
	}
}

func TestSecretNavigatesOnce(t *testing.T) {
	srv := newTestServer(t, "1701")
	conn := dial(t, srv, "sess_unlock")
	readMessage(t, conn)

	for _, k := range []string{"1", "7", "0", "1", "="} {
		sendKey(t, conn, k)
	}

	var displays []string
	for len(displays) < 5 {
		msg := readMessage(t, conn)
		if msg.Type != shared.MessageTypeDisplay {
			t.Fatalf("unexpected %s message before display updates: %+v", msg.Type, msg)
		}
		displays = append(displays, msg.Content)
	}
	if got := displays[len(displays)-1]; got != "1701" {
		t.Errorf("display after = is %q, want 1701", got)
	}

	msg := readMessage(t, conn)
	if msg.Type != shared.MessageTypeNavigate || msg.Content != "/gallery" {
		t.Fatalf("got %+v, want navigate to /gallery", msg)
	}

	// A second "=" must not unlock again, the buffer was consumed.
	sendKey(t, conn, "=")
	msg = readMessage(t, conn)
	if msg.Type != shared.MessageTypeDisplay {
		t.Fatalf("got %s, want display", msg.Type)
	}
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var extra shared.Message
	if err := conn.ReadJSON(&extra); err == nil {
		t.Errorf("unexpected extra message %+v", extra)
	}
}

func TestArithmeticDisplay(t *testing.T) {
	srv := newTestServer(t, "1701")
	conn := dial(t, srv, "sess_math")
	readMessage(t, conn)

	// bare labels are accepted as well
	for _, k := range []string{"5", "+", "3", "="} {
		if err := conn.WriteMessage(websocket.TextMessage, []byte(k)); err != nil {
			t.Fatalf("WriteMessage: %v", err)
		}
	}
	var last shared.Message
	for i := 0; i < 4; i++ {
		last = readMessage(t, conn)
	}
	if last.Content != "8" || last.State != "just_evaluated" {
		t.Errorf("last display = %+v, want 8 just_evaluated", last)
	}
}

func TestUnknownKeyReportsError(t *testing.T) {
	srv := newTestServer(t, "1701")
	conn := dial(t, srv, "sess_unknown")
	readMessage(t, conn)

	sendKey(t, conn, "sqrt")
	msg := readMessage(t, conn)
	if msg.Type != shared.MessageTypeError {
		t.Fatalf("got %s, want error", msg.Type)
	}

	// keepalives produce no answer, the next key still works
	conn.WriteJSON(shared.ClientMessage{Type: shared.ClientKeepalive})
	sendKey(t, conn, "4")
	msg = readMessage(t, conn)
	if msg.Type != shared.MessageTypeDisplay || msg.Content != "4" {
		t.Errorf("got %+v, want display 4", msg)
	}
}

func TestMissingTokenRejected(t *testing.T) {
	srv := newTestServer(t, "1701")
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	if err == nil {
		t.Fatal("Dial succeeded without token")
	}
	if resp == nil || resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("response = %v, want 401", resp)
	}
}

func TestParseClientMessage(t *testing.T) {
	tests := []struct {
		in   string
		want shared.ClientMessage
	}{
		{`{"type":"key","key":"7"}`, shared.ClientMessage{Type: "key", Key: "7"}},
		{`{"key":"+"}`, shared.ClientMessage{Type: "key", Key: "+"}},
		{`{"type":"keepalive"}`, shared.ClientMessage{Type: "keepalive"}},
		{"keepalive", shared.ClientMessage{Type: "keepalive"}},
		{" 9 ", shared.ClientMessage{Type: "key", Key: "9"}},
	}
	for _, tt := range tests {
		if got := parseClientMessage([]byte(tt.in)); got != tt.want {
			t.Errorf("parseClientMessage(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestRateLimit(t *testing.T) {
	cm := NewClientManager()
	now := time.Unix(1000, 0)
	cm.now = func() time.Time { return now }

	for i := 0; i < RateLimitMessagesDefault; i++ {
		if err := cm.CheckRateLimit("10.0.0.1"); err != nil {
			t.Fatalf("message %d rejected: %v", i, err)
		}
	}
	if err := cm.CheckRateLimit("10.0.0.1"); err == nil {
		t.Error("message over the limit accepted")
	}
	if err := cm.CheckRateLimit("10.0.0.2"); err != nil {
		t.Errorf("other IP rejected: %v", err)
	}

	now = now.Add(2 * time.Minute)
	if err := cm.CheckRateLimit("10.0.0.1"); err != nil {
		t.Errorf("rejected after window: %v", err)
	}
}

func TestSessionExpired(t *testing.T) {
	exp := time.Unix(2000, 0)
	c := &Client{expiresAt: exp}
	if c.sessionExpired(exp.Add(-time.Second)) {
		t.Error("session expired before its token")
	}
	if !c.sessionExpired(exp.Add(time.Second)) {
		t.Error("session still valid after its token expired")
	}
	if (&Client{}).sessionExpired(time.Now()) {
		t.Error("client without expiry treated as expired")
	}
}

func TestPruneRateLimits(t *testing.T) {
	cm := NewClientManager()
	now := time.Unix(1000, 0)
	cm.now = func() time.Time { return now }

	cm.CheckRateLimit("10.0.0.1")
	now = now.Add(30 * time.Second)
	cm.CheckRateLimit("10.0.0.2")
	now = now.Add(45 * time.Second)

	cm.PruneRateLimits(time.Minute)
	if _, ok := cm.windows["10.0.0.1"]; ok {
		t.Error("stale window kept")
	}
	if _, ok := cm.windows["10.0.0.2"]; !ok {
		t.Error("recent window dropped")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/ws", nil)
	r.RemoteAddr = "192.0.2.1:5555"
	if got := ClientIP(r); got != "192.0.2.1" {
		t.Errorf("ClientIP = %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := ClientIP(r); got != "203.0.113.7" {
		t.Errorf("ClientIP with X-Forwarded-For = %q", got)
	}
}

func TestCheckOrigin(t *testing.T) {
	sv := NewSecurityValidator()
	r := httptest.NewRequest(http.MethodGet, "http://calc.example/ws", nil)
	if !sv.CheckOrigin(r) {
		t.Error("request without Origin rejected")
	}
	r.Header.Set("Origin", "http://calc.example")
	if !sv.CheckOrigin(r) {
		t.Error("same-host origin rejected")
	}
	r.Header.Set("Origin", "http://evil.example")
	if sv.CheckOrigin(r) {
		t.Error("foreign origin accepted")
	}
}

func TestValidateSessionID(t *testing.T) {
	sv := NewSecurityValidator()
	if err := sv.ValidateSessionID("sess_0b6f-42"); err != nil {
		t.Errorf("valid ID rejected: %v", err)
	}
	for _, bad := range []string{"", "a b", "x;drop", strings.Repeat("a", 129)} {
		if err := sv.ValidateSessionID(bad); err == nil {
			t.Errorf("ValidateSessionID(%q) accepted", bad)
		}
	}
}
