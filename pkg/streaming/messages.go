// Package streaming defines the envelope protocol used to stream a session
// journal to a live server over WebSocket.
package streaming

import (
	"encoding/json"

	"github.com/wanderlens/arsync/pkg/core"
)

// Message type constants matching the streaming protocol.
const (
	TypeSessionStart = "session_start"
	TypeSessionEnd   = "session_end"
	TypeSighting     = "sighting"
	TypeAction       = "action"
	TypePerformance  = "performance"

	TypeAck = "ack"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SessionStartPayload carries the session and the markers it can show.
type SessionStartPayload struct {
	Session *core.Session           `json:"session"`
	Markers []core.MarkerDescriptor `json:"markers"`
}

// SessionEndPayload names the session being closed.
type SessionEndPayload struct {
	SessionID string `json:"sessionId"`
}
