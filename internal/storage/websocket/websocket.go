// Package websocket streams the journal to a live server as
// pkg/streaming envelopes.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/pkg/core"
	"github.com/wanderlens/arsync/pkg/streaming"
)

// ErrNoSession is returned when recording outside a started session.
var ErrNoSession = errors.New("no session started")

// Backend streams session data over WebSocket. Session start and end wait
// for a server ack; everything else is fire-and-forget.
type Backend struct {
	conn *connection
	cfg  config.WebSocketConfig

	mu        sync.Mutex
	sessionID string
}

// New creates a new WebSocket storage backend.
func New(cfg config.WebSocketConfig, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		conn: newConnection(logger.With("component", "storage.websocket")),
		cfg:  cfg,
	}
}

// Init connects to the WebSocket server.
func (b *Backend) Init() error {
	if b.cfg.URL == "" {
		return errors.New("websocket url not set")
	}
	return b.conn.dial(b.cfg.URL, b.cfg.Secret)
}

// Close disconnects from the WebSocket server.
func (b *Backend) Close() error {
	return b.conn.close()
}

// Dropped reports messages lost to a full send queue.
func (b *Backend) Dropped() uint64 {
	return b.conn.droppedCount()
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	data, err := json.Marshal(streaming.Envelope{Type: msgType, Payload: raw})
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

func (b *Backend) active(id string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessionID == "" {
		return "", ErrNoSession
	}
	if id == "" {
		return b.sessionID, nil
	}
	return id, nil
}

// sendEnvelope marshals the payload and pushes it to the write loop.
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// StartSession sends session_start and waits for the server ack. The
// message is cached for replay after a reconnect.
func (b *Backend) StartSession(s *core.Session, markers []core.MarkerDescriptor) error {
	data, err := marshalEnvelope(streaming.TypeSessionStart, streaming.SessionStartPayload{Session: s, Markers: markers})
	if err != nil {
		return err
	}
	b.conn.setCachedStart(data)

	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()

	return b.conn.sendAndWait(data, streaming.TypeSessionStart, ackTimeout)
}

// EndSession sends session_end and waits for the server ack.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	id := b.sessionID
	b.sessionID = ""
	b.mu.Unlock()
	if id == "" {
		return ErrNoSession
	}

	data, err := marshalEnvelope(streaming.TypeSessionEnd, streaming.SessionEndPayload{SessionID: id})
	if err != nil {
		return err
	}
	err = b.conn.sendAndWait(data, streaming.TypeSessionEnd, ackTimeout)

	// Clear cached state regardless of error.
	b.conn.setCachedStart(nil)
	return err
}

// RecordSighting streams a sighting.
func (b *Backend) RecordSighting(s *core.Sighting) error {
	id, err := b.active(s.SessionID)
	if err != nil {
		return err
	}
	out := *s
	out.SessionID = id
	return b.sendEnvelope(streaming.TypeSighting, &out)
}

// RecordAction streams an action.
func (b *Backend) RecordAction(a *core.Action) error {
	id, err := b.active(a.SessionID)
	if err != nil {
		return err
	}
	out := *a
	out.SessionID = id
	return b.sendEnvelope(streaming.TypeAction, &out)
}

// RecordPerformance streams a load sample.
func (b *Backend) RecordPerformance(p *core.Performance) error {
	id, err := b.active(p.SessionID)
	if err != nil {
		return err
	}
	out := *p
	out.SessionID = id
	return b.sendEnvelope(streaming.TypePerformance, &out)
}
