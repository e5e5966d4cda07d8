package v1

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/pkg/core"
)

var (
	t0     = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	chapel = core.MapLocation{Lat: 7.07, Lon: 125.61}
)

func at(sec int) time.Time {
	return t0.Add(time.Duration(sec) * time.Second)
}

func sighting(sec int, marker string, from, to core.Phase, loc *core.MapLocation) core.Sighting {
	return core.Sighting{
		Time:     at(sec),
		Marker:   marker,
		From:     from,
		To:       to,
		Cause:    "tracking",
		Pose:     core.Pose{Position: mgl32.Vec3{0.12345, 1, 2}, Rotation: mgl32.QuatIdent()},
		Location: loc,
	}
}

func testData() *SessionData {
	return &SessionData{
		Session: core.Session{ID: "s1", Scene: "tour", Platform: "web", StartTime: t0},
		EndTime: at(100),
		Markers: []core.MarkerDescriptor{
			{Name: "chapel", Title: "Chapel", Content: core.ContentRef{ID: "chapel-model"}, Map: &chapel},
			{Name: "garden", Title: "Garden"},
		},
		Sightings: []core.Sighting{
			sighting(10, "chapel", core.PhaseAbsent, core.PhaseVisible, &chapel),
			sighting(20, "chapel", core.PhaseVisible, core.PhaseHidden, &chapel),
			sighting(30, "chapel", core.PhaseHidden, core.PhaseVisible, &chapel),
			sighting(40, "chapel", core.PhaseVisible, core.PhaseAbsent, &chapel),
			sighting(90, "garden", core.PhaseAbsent, core.PhaseVisible, nil),
		},
		Actions: []core.Action{
			{Time: at(50), Kind: core.ActionOpenMap, Marker: "chapel", Target: "geo:7.07,125.61"},
		},
	}
}

func TestBuild_Session(t *testing.T) {
	export := Build(testData())

	assert.Equal(t, FormatVersion, export.FormatVersion)
	assert.Equal(t, "s1", export.Session.ID)
	assert.Equal(t, "2026-03-01T09:00:00Z", export.Session.StartTime)
	assert.Equal(t, "2026-03-01T09:01:40Z", export.Session.EndTime)
	assert.Equal(t, 100.0, export.Session.DurationSeconds)
}

func TestBuild_MarkerSummaries(t *testing.T) {
	export := Build(testData())
	require.Len(t, export.Markers, 2)

	chapel := export.Markers[0]
	assert.Equal(t, "chapel", chapel.Name)
	assert.Equal(t, 2, chapel.Visits)
	assert.Equal(t, 20.0, chapel.VisibleSeconds)
	assert.Equal(t, "2026-03-01T09:00:10Z", chapel.FirstSeen)
	assert.Equal(t, "2026-03-01T09:00:40Z", chapel.LastSeen)
	require.NotNil(t, chapel.Lat)
	assert.Equal(t, 7.07, *chapel.Lat)

	garden := export.Markers[1]
	assert.Equal(t, 1, garden.Visits)
	assert.Equal(t, 10.0, garden.VisibleSeconds, "still visible at session end")
	assert.Nil(t, garden.Lat)
}

func TestBuild_SightingRows(t *testing.T) {
	export := Build(testData())
	require.Len(t, export.Sightings, 5)

	row := export.Sightings[0]
	assert.Equal(t, at(10).UnixMilli(), row[0])
	assert.Equal(t, "chapel", row[1])
	assert.Equal(t, "absent", row[2])
	assert.Equal(t, "visible", row[3])
	assert.Equal(t, []float64{0.123, 1, 2}, row[5])
}

func TestBuild_RouteCollapsesRepeats(t *testing.T) {
	export := Build(testData())
	assert.Equal(t, [][]float64{{7.07, 125.61}}, export.Route)
}

func TestBuild_UnknownMarkersSorted(t *testing.T) {
	data := &SessionData{
		Session: core.Session{ID: "s2", StartTime: t0},
		EndTime: at(5),
		Sightings: []core.Sighting{
			sighting(1, "zeta", core.PhaseAbsent, core.PhasePending, nil),
			sighting(2, "alpha", core.PhaseAbsent, core.PhasePending, nil),
		},
	}
	export := Build(data)
	require.Len(t, export.Markers, 2)
	assert.Equal(t, "alpha", export.Markers[0].Name)
	assert.Equal(t, "zeta", export.Markers[1].Name)
	assert.Zero(t, export.Markers[0].Visits)
}

func TestBuild_EmptySessionEncodesArrays(t *testing.T) {
	export := Build(&SessionData{Session: core.Session{ID: "empty", StartTime: t0}, EndTime: t0})

	raw, err := json.Marshal(export)
	require.NoError(t, err)
	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	for _, key := range []string{"markers", "sightings", "actions", "route"} {
		assert.Equal(t, []any{}, decoded[key], key)
	}
}
