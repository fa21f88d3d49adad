package shared

// MessageType definiert den Typ einer Nachricht vom Server zum Client.
type MessageType int

const (
	MessageTypeDisplay  MessageType = 0 // Rendered calculator display after a key press
	MessageTypeNavigate MessageType = 1 // Switch the client to another route
	MessageTypeSession  MessageType = 2 // Session ID and initial display on connect
	MessageTypeError    MessageType = 3 // Rejected input, e.g. an unknown key
	MessageTypeAuth     MessageType = 4 // Token no longer valid, client should sign in again
)

func (t MessageType) String() string {
	switch t {
	case MessageTypeDisplay:
		return "display"
	case MessageTypeNavigate:
		return "navigate"
	case MessageTypeSession:
		return "session"
	case MessageTypeError:
		return "error"
	case MessageTypeAuth:
		return "auth"
	default:
		return "unknown"
	}
}

// Message is sent from the server to a keypad client.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content"`

	// Für DISPLAY und SESSION
	State   string `json:"state,omitempty"`   // entering, awaiting_operand, just_evaluated
	Pending string `json:"pending,omitempty"` // symbol of the pending operation

	// Für SESSION
	SessionID string `json:"sessionId,omitempty"`
}

// Client message types.
const (
	ClientKey       = "key"
	ClientKeepalive = "keepalive"
	ClientClear     = "clear"
)

// ClientMessage is sent from a keypad client to the server.
type ClientMessage struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}
