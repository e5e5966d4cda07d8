// Package memory keeps the journal of a session in memory and exports it as
// a JSON file when the session ends.
package memory

import (
	"errors"
	"sync"
	"time"

	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/pkg/core"
)

// ErrNoSession is returned when recording outside a started session.
var ErrNoSession = errors.New("no session started")

// Option configures a Backend.
type Option func(*Backend)

// WithClock overrides the time source for the session end time.
func WithClock(now func() time.Time) Option {
	return func(b *Backend) { b.now = now }
}

// Backend stores session data in memory and exports to JSON.
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session
	open    bool
	endTime time.Time

	markers      []core.MarkerDescriptor
	sightings    []core.Sighting
	actions      []core.Action
	performances []core.Performance

	idCounter      uint
	lastExportPath string
	now            func() time.Time
	mu             sync.RWMutex
}

// New creates a new memory backend.
func New(cfg config.MemoryConfig, opts ...Option) *Backend {
	b := &Backend{cfg: cfg, now: time.Now}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Init initializes the backend.
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources.
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and drops the previous one.
func (b *Backend) StartSession(s *core.Session, markers []core.MarkerDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	session := *s
	b.session = &session
	b.open = true
	b.endTime = time.Time{}
	b.markers = append([]core.MarkerDescriptor(nil), markers...)
	b.sightings = nil
	b.actions = nil
	b.performances = nil
	b.idCounter = 0
	return nil
}

// EndSession finalizes and exports the session data. Without an output
// directory nothing is written.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrNoSession
	}
	b.open = false
	b.endTime = b.now()
	if b.cfg.OutputDir == "" {
		return nil
	}
	return b.exportJSON()
}

// RecordSighting assigns an ID and appends the sighting.
func (b *Backend) RecordSighting(s *core.Sighting) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrNoSession
	}
	b.idCounter++
	s.ID = b.idCounter
	if s.SessionID == "" {
		s.SessionID = b.session.ID
	}
	b.sightings = append(b.sightings, *s)
	return nil
}

// RecordAction assigns an ID and appends the action.
func (b *Backend) RecordAction(a *core.Action) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrNoSession
	}
	b.idCounter++
	a.ID = b.idCounter
	if a.SessionID == "" {
		a.SessionID = b.session.ID
	}
	b.actions = append(b.actions, *a)
	return nil
}

// RecordPerformance keeps a load sample for the status report.
func (b *Backend) RecordPerformance(p *core.Performance) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.open {
		return ErrNoSession
	}
	b.performances = append(b.performances, *p)
	return nil
}

// Session returns a copy of the current or last session.
func (b *Backend) Session() (core.Session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session == nil {
		return core.Session{}, false
	}
	return *b.session, true
}

// Sightings returns a copy of the recorded sightings.
func (b *Backend) Sightings() []core.Sighting {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Sighting(nil), b.sightings...)
}

// Actions returns a copy of the recorded actions.
func (b *Backend) Actions() []core.Action {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Action(nil), b.actions...)
}

// Performances returns a copy of the recorded load samples.
func (b *Backend) Performances() []core.Performance {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]core.Performance(nil), b.performances...)
}

// ExportedFilePath returns the path of the last export, or "".
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
