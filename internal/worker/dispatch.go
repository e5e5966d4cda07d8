package worker

import (
	"fmt"

	"github.com/wanderlens/arsync/internal/dispatcher"
	"github.com/wanderlens/arsync/internal/storage"
	"github.com/wanderlens/arsync/pkg/core"
)

// Journal commands.
const (
	CmdSessionStart = ":SESSION:START:"
	CmdSessionEnd   = ":SESSION:END:"
	CmdSighting     = ":SIGHTING:"
	CmdAction       = ":ACTION:"
	CmdPerformance  = ":PERFORMANCE:"
)

type sessionStart struct {
	Session core.Session
	Markers []core.MarkerDescriptor
}

// RegisterHandlers registers all journal handlers with the dispatcher.
func (m *Manager) RegisterHandlers(d *dispatcher.Dispatcher) {
	m.dispatcher = d

	// Session boundaries - sync (records need the session ID)
	d.Register(CmdSessionStart, m.handleSessionStart, dispatcher.Logged())
	d.Register(CmdSessionEnd, m.handleSessionEnd, dispatcher.Logged())

	// Per-transition records - buffered
	d.Register(CmdSighting, m.queued(m.handleSighting), dispatcher.Buffered(10000), dispatcher.Logged())
	d.Register(CmdAction, m.queued(m.handleAction), dispatcher.Buffered(1000), dispatcher.Logged())

	// Load samples - buffered, dropped first under pressure
	d.Register(CmdPerformance, m.queued(m.handlePerformance), dispatcher.Buffered(100))
}

// queued releases the in-flight slot taken when the event was dispatched.
func (m *Manager) queued(h dispatcher.HandlerFunc) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		defer m.inflight.Add(-1)
		return h(e)
	}
}

func (m *Manager) handleSessionStart(e dispatcher.Event) (any, error) {
	p, ok := e.Payload.(sessionStart)
	if !ok {
		return nil, fmt.Errorf("session start: %w: %T", ErrBadPayload, e.Payload)
	}

	s := p.Session
	if err := m.backend.StartSession(&s, p.Markers); err != nil {
		return nil, fmt.Errorf("failed to start session: %w", err)
	}
	m.deps.Sessions.Start(s)
	m.deps.Logger.Info("session started", "session", s.ID, "scene", s.Scene, "markers", len(p.Markers))
	return s.ID, nil
}

func (m *Manager) handleSessionEnd(e dispatcher.Event) (any, error) {
	s, ok := m.deps.Sessions.End()
	if !ok {
		return nil, nil
	}
	if err := m.backend.EndSession(); err != nil {
		return nil, fmt.Errorf("failed to end session %s: %w", s.ID, err)
	}

	attrs := []any{"session", s.ID}
	if ex, ok := m.backend.(storage.Exporter); ok && ex.ExportedFilePath() != "" {
		attrs = append(attrs, "file", ex.ExportedFilePath())
	}
	m.deps.Logger.Info("session ended", attrs...)
	return s.ID, nil
}

func (m *Manager) handleSighting(e dispatcher.Event) (any, error) {
	s, ok := e.Payload.(*core.Sighting)
	if !ok {
		return nil, fmt.Errorf("sighting: %w: %T", ErrBadPayload, e.Payload)
	}
	if s.SessionID == "" {
		s.SessionID = m.deps.Sessions.ID()
	}
	if s.Time.IsZero() {
		s.Time = e.Timestamp
	}
	if err := m.backend.RecordSighting(s); err != nil {
		return nil, fmt.Errorf("failed to record sighting: %w", err)
	}
	return nil, nil
}

func (m *Manager) handleAction(e dispatcher.Event) (any, error) {
	a, ok := e.Payload.(*core.Action)
	if !ok {
		return nil, fmt.Errorf("action: %w: %T", ErrBadPayload, e.Payload)
	}
	if a.SessionID == "" {
		a.SessionID = m.deps.Sessions.ID()
	}
	if a.Time.IsZero() {
		a.Time = e.Timestamp
	}
	if err := m.backend.RecordAction(a); err != nil {
		return nil, fmt.Errorf("failed to record action: %w", err)
	}
	return nil, nil
}

func (m *Manager) handlePerformance(e dispatcher.Event) (any, error) {
	p, ok := e.Payload.(*core.Performance)
	if !ok {
		return nil, fmt.Errorf("performance: %w: %T", ErrBadPayload, e.Payload)
	}
	rec, ok := m.backend.(storage.PerformanceRecorder)
	if !ok {
		return nil, nil
	}
	if p.SessionID == "" {
		p.SessionID = m.deps.Sessions.ID()
	}
	if p.Time.IsZero() {
		p.Time = e.Timestamp
	}
	if err := rec.RecordPerformance(p); err != nil {
		return nil, fmt.Errorf("failed to record performance: %w", err)
	}
	return nil, nil
}
