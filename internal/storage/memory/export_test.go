package memory

import (
	"compress/gzip"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/internal/config"
	v1 "github.com/wanderlens/arsync/internal/storage/memory/export/v1"
	"github.com/wanderlens/arsync/pkg/core"
)

func TestExportJSON_Plain(t *testing.T) {
	dir := t.TempDir()
	b := newStarted(t, config.MemoryConfig{OutputDir: dir})
	require.NoError(t, b.RecordSighting(&core.Sighting{Time: start.Add(10e9), Marker: "chapel", From: core.PhaseAbsent, To: core.PhaseVisible}))

	require.NoError(t, b.EndSession())

	path := b.ExportedFilePath()
	assert.Equal(t, filepath.Join(dir, "city_tour_20260301_090000_s1.json"), path)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var export v1.Export
	require.NoError(t, json.Unmarshal(raw, &export))
	assert.Equal(t, "s1", export.Session.ID)
	require.Len(t, export.Markers, 1)
	assert.Equal(t, 1, export.Markers[0].Visits)
	assert.Equal(t, 50.0, export.Markers[0].VisibleSeconds)
	assert.Len(t, export.Sightings, 1)
}

func TestExportJSON_Gzip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested")
	b := newStarted(t, config.MemoryConfig{OutputDir: dir, CompressOutput: true})
	require.NoError(t, b.RecordAction(&core.Action{Kind: core.ActionOpenMap, Marker: "chapel", Target: "geo:1,2"}))

	require.NoError(t, b.EndSession())

	path := b.ExportedFilePath()
	assert.Equal(t, ".gz", filepath.Ext(path))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)
	var export v1.Export
	require.NoError(t, json.NewDecoder(gz).Decode(&export))
	require.Len(t, export.Actions, 1)
	assert.Equal(t, "open_map", export.Actions[0].Kind)
}

func TestExportFileName_DefaultScene(t *testing.T) {
	b := New(config.MemoryConfig{})
	require.NoError(t, b.StartSession(&core.Session{ID: "x", StartTime: start}, nil))
	assert.Equal(t, "session_20260301_090000_x.json", b.exportFileName())
}
