// Package worker turns engine observations into journal commands and
// writes them to the storage backend.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/wanderlens/arsync/internal/dispatcher"
	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/internal/session"
	"github.com/wanderlens/arsync/internal/storage"
	"github.com/wanderlens/arsync/pkg/core"
)

// ErrBadPayload is returned by a handler given a payload of the wrong type.
var ErrBadPayload = errors.New("unexpected payload type")

// Resolver looks up marker descriptors by name.
type Resolver interface {
	Lookup(name string) (core.MarkerDescriptor, bool)
}

// Dependencies holds all dependencies for the worker manager.
type Dependencies struct {
	Registry Resolver
	Sessions *session.Context
	Logger   *slog.Logger
	Now      func() time.Time

	// FlushPoll is how often Flush checks for in-flight writes.
	FlushPoll time.Duration
}

// Manager feeds journal commands from the engine into a storage backend.
type Manager struct {
	deps    Dependencies
	backend storage.Backend

	dispatcher *dispatcher.Dispatcher
	inflight   atomic.Int64
}

// NewManager creates a new worker manager.
func NewManager(deps Dependencies, backend storage.Backend) *Manager {
	if deps.Sessions == nil {
		deps.Sessions = session.NewContext()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.FlushPoll <= 0 {
		deps.FlushPoll = 5 * time.Millisecond
	}
	return &Manager{
		deps:    deps,
		backend: backend,
	}
}

// LastWriteDuration returns the duration of the backend's last write cycle.
// Returns 0 if the backend doesn't report it.
func (m *Manager) LastWriteDuration() time.Duration {
	if p, ok := m.backend.(storage.WriteTimer); ok {
		return p.LastWriteDuration()
	}
	return 0
}

// Sessions returns the session context the manager stamps records with.
func (m *Manager) Sessions() *session.Context {
	return m.deps.Sessions
}

// StartSession opens s on the backend and makes it current.
func (m *Manager) StartSession(s core.Session, markers []core.MarkerDescriptor) error {
	_, err := m.dispatch(CmdSessionStart, sessionStart{Session: s, Markers: markers}, false)
	return err
}

// EndSession waits for queued records, then finalizes the current session.
func (m *Manager) EndSession(ctx context.Context) error {
	if err := m.Flush(ctx); err != nil {
		return err
	}
	_, err := m.dispatch(CmdSessionEnd, nil, false)
	return err
}

// Flush blocks until every queued record has been handed to the backend.
func (m *Manager) Flush(ctx context.Context) error {
	if m.inflight.Load() == 0 {
		return nil
	}
	ticker := time.NewTicker(m.deps.FlushPoll)
	defer ticker.Stop()
	for m.inflight.Load() > 0 {
		select {
		case <-ctx.Done():
			return fmt.Errorf("flushing journal: %w", ctx.Err())
		case <-ticker.C:
		}
	}
	return nil
}

// ObserveTransition journals a reconciler transition as a sighting.
// It matches reconciler.Observer.
func (m *Manager) ObserveTransition(t core.Transition) {
	s := &core.Sighting{
		Time:   t.Time,
		Marker: t.Marker,
		From:   t.From,
		To:     t.To,
		Cause:  t.Cause,
		Pose:   t.Pose,
	}
	if m.deps.Registry != nil {
		if d, ok := m.deps.Registry.Lookup(t.Marker); ok {
			s.Title = d.Title
			s.Location = d.Map
		}
	}
	if _, err := m.dispatch(CmdSighting, s, true); err != nil {
		m.deps.Logger.Warn("sighting not journaled", "marker", t.Marker, "error", err)
	}
}

// RecordAction journals a launcher outcome. It matches
// launcher.ActionRecorder.
func (m *Manager) RecordAction(a core.Action) {
	if _, err := m.dispatch(CmdAction, &a, true); err != nil {
		m.deps.Logger.Warn("action not journaled", "kind", a.Kind, "error", err)
	}
}

// RecordPerformance journals a load sample. The backend's last write
// duration is filled in when the sample has none.
func (m *Manager) RecordPerformance(p core.Performance) {
	if p.LastWriteDuration == 0 {
		p.LastWriteDuration = m.LastWriteDuration()
	}
	if _, err := m.dispatch(CmdPerformance, &p, true); err != nil {
		m.deps.Logger.Debug("performance sample not journaled", "error", err)
	}
}

func (m *Manager) dispatch(cmd string, payload any, queued bool) (any, error) {
	if m.dispatcher == nil {
		return nil, errors.New("handlers not registered")
	}
	if queued {
		m.inflight.Add(1)
	}
	res, err := m.dispatcher.Dispatch(dispatcher.Event{
		Command:   cmd,
		Payload:   payload,
		Timestamp: m.deps.Now(),
	})
	if err != nil && queued {
		m.inflight.Add(-1)
	}
	return res, err
}
