package memory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/pkg/core"
)

var start = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newStarted(t *testing.T, cfg config.MemoryConfig) *Backend {
	t.Helper()
	b := New(cfg, WithClock(func() time.Time { return start.Add(time.Minute) }))
	require.NoError(t, b.Init())
	require.NoError(t, b.StartSession(&core.Session{ID: "s1", Scene: "city tour", StartTime: start},
		[]core.MarkerDescriptor{{Name: "chapel", Title: "Chapel"}}))
	return b
}

func TestRecord_RequiresSession(t *testing.T) {
	b := New(config.MemoryConfig{})

	assert.ErrorIs(t, b.RecordSighting(&core.Sighting{Marker: "chapel"}), ErrNoSession)
	assert.ErrorIs(t, b.RecordAction(&core.Action{}), ErrNoSession)
	assert.ErrorIs(t, b.RecordPerformance(&core.Performance{}), ErrNoSession)
	assert.ErrorIs(t, b.EndSession(), ErrNoSession)
	_, err := b.Export()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestRecord_AssignsIDsAndSession(t *testing.T) {
	b := newStarted(t, config.MemoryConfig{})

	s := &core.Sighting{Marker: "chapel", To: core.PhaseVisible}
	a := &core.Action{Kind: core.ActionShare, Marker: "chapel"}
	require.NoError(t, b.RecordSighting(s))
	require.NoError(t, b.RecordAction(a))

	assert.Equal(t, uint(1), s.ID)
	assert.Equal(t, uint(2), a.ID)
	assert.Equal(t, "s1", s.SessionID)
	assert.Len(t, b.Sightings(), 1)
	assert.Len(t, b.Actions(), 1)
}

func TestStartSession_ResetsRecords(t *testing.T) {
	b := newStarted(t, config.MemoryConfig{})
	require.NoError(t, b.RecordSighting(&core.Sighting{Marker: "chapel"}))
	require.NoError(t, b.RecordPerformance(&core.Performance{Instances: 1}))

	require.NoError(t, b.StartSession(&core.Session{ID: "s2"}, nil))
	assert.Empty(t, b.Sightings())
	assert.Empty(t, b.Performances())
	s, ok := b.Session()
	require.True(t, ok)
	assert.Equal(t, "s2", s.ID)
}

func TestEndSession_NoOutputDir(t *testing.T) {
	b := newStarted(t, config.MemoryConfig{})
	require.NoError(t, b.EndSession())
	assert.Empty(t, b.ExportedFilePath())
	assert.ErrorIs(t, b.RecordSighting(&core.Sighting{}), ErrNoSession)

	export, err := b.Export()
	require.NoError(t, err)
	assert.Equal(t, 60.0, export.Session.DurationSeconds)
}
