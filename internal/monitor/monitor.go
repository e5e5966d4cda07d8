// Package monitor reports engine and journal status and samples it into the
// journal while a session is running.
package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/pkg/core"
)

// Pool reports content instance counts.
type Pool interface {
	Len() int
	Visible() []string
}

// Panel reports the info panel snapshot.
type Panel interface {
	State() core.PanelState
}

// Sessions reports the current session ID.
type Sessions interface {
	ID() string
}

// Queues reports pending journal events per command.
type Queues interface {
	QueueLengths() map[string]int
}

// WriteTimer reports the last journal write cycle.
type WriteTimer interface {
	LastWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the monitor service. Any of them
// may be nil.
type Dependencies struct {
	Pool     Pool
	Panel    Panel
	Sessions Sessions
	Queues   Queues
	Writes   WriteTimer
	Logger   *slog.Logger

	// Sink receives a sample every Interval while a session is running.
	Sink     func(core.Performance)
	Interval time.Duration

	// StatusFile, when set, is rewritten with the text report on every tick.
	StatusFile string
	Now        func() time.Time
}

// Status is a point-in-time snapshot.
type Status struct {
	Time              time.Time       `json:"time"`
	SessionID         string          `json:"sessionId,omitempty"`
	Instances         int             `json:"instances"`
	Visible           []string        `json:"visible"`
	Panel             core.PanelState `json:"panel"`
	QueueLengths      map[string]int  `json:"queueLengths,omitempty"`
	LastWriteDuration time.Duration   `json:"lastWriteDuration"`
}

// Performance converts the snapshot to a journal sample.
func (st Status) Performance() core.Performance {
	return core.Performance{
		SessionID:         st.SessionID,
		Time:              st.Time,
		Instances:         st.Instances,
		Visible:           len(st.Visible),
		QueueLengths:      st.QueueLengths,
		LastWriteDuration: st.LastWriteDuration,
	}
}

// Lines renders the snapshot as the text status report.
func (st Status) Lines() []string {
	session := st.SessionID
	if session == "" {
		session = "none"
	}
	lines := []string{
		fmt.Sprintf("Session: %s", session),
		fmt.Sprintf("Instances: %d", st.Instances),
		fmt.Sprintf("Visible: %s", strings.Join(st.Visible, ", ")),
		fmt.Sprintf("Panel: open=%t pinned=%t marker=%s", st.Panel.Open, st.Panel.Pinned, st.Panel.CurrentMarker),
	}

	cmds := make([]string, 0, len(st.QueueLengths))
	for cmd := range st.QueueLengths {
		cmds = append(cmds, cmd)
	}
	sort.Strings(cmds)
	for _, cmd := range cmds {
		lines = append(lines, fmt.Sprintf("Queue %s: %d", cmd, st.QueueLengths[cmd]))
	}
	lines = append(lines, fmt.Sprintf("Last write: %s", st.LastWriteDuration))
	return lines
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	return &Service{deps: deps}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Status returns the current snapshot.
func (s *Service) Status() Status {
	st := Status{Time: s.deps.Now(), Visible: []string{}}
	if s.deps.Pool != nil {
		st.Instances = s.deps.Pool.Len()
		st.Visible = append(st.Visible, s.deps.Pool.Visible()...)
	}
	if s.deps.Panel != nil {
		st.Panel = s.deps.Panel.State()
	}
	if s.deps.Sessions != nil {
		st.SessionID = s.deps.Sessions.ID()
	}
	if s.deps.Queues != nil {
		st.QueueLengths = s.deps.Queues.QueueLengths()
	}
	if s.deps.Writes != nil {
		st.LastWriteDuration = s.deps.Writes.LastWriteDuration()
	}
	return st
}

// Report returns the current snapshot as indented JSON.
func (s *Service) Report() ([]byte, error) {
	b, err := json.MarshalIndent(s.Status(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding status: %w", err)
	}
	return b, nil
}

// Start starts the status monitor goroutine
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.Logger
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.tick(logger)
			}
		}
	}()

	return nil
}

func (s *Service) tick(logger *slog.Logger) {
	st := s.Status()

	if s.deps.StatusFile != "" {
		content := strings.Join(st.Lines(), "\n") + "\n"
		if err := os.WriteFile(s.deps.StatusFile, []byte(content), 0o644); err != nil {
			logger.Error("Error writing status file", "error", err)
		}
	}

	if st.SessionID == "" || s.deps.Sink == nil {
		return
	}
	s.deps.Sink(st.Performance())
}

// Stop stops the status monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
