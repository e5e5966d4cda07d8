// Package storage defines the journal backend contract and selects an
// implementation from configuration.
package storage

import (
	"time"

	"github.com/wanderlens/arsync/pkg/core"
)

// Backend is the interface all journal implementations must satisfy.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management. StartSession snapshots the markers known to the
	// session; EndSession flushes and finalizes it.
	StartSession(s *core.Session, markers []core.MarkerDescriptor) error
	EndSession() error

	// Recording. Both may queue; errors only report rejected input.
	RecordSighting(s *core.Sighting) error
	RecordAction(a *core.Action) error
}

// Exporter is implemented by backends that write a file per session.
type Exporter interface {
	ExportedFilePath() string
}

// PerformanceRecorder is implemented by backends that accept load samples.
type PerformanceRecorder interface {
	RecordPerformance(p *core.Performance) error
}

// WriteTimer is implemented by backends with a background writer.
type WriteTimer interface {
	LastWriteDuration() time.Duration
}
