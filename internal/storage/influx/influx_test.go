package influx

import (
	"bufio"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/pkg/core"
)

func line(p *influxdb2_write.Point) string {
	return influxdb2_write.PointToLineProtocol(p, time.Nanosecond)
}

func TestSightingPoint(t *testing.T) {
	p := SightingPoint("s1", &core.Sighting{
		Time:     time.Unix(10, 0),
		Marker:   "chapel",
		Title:    "Chapel",
		From:     core.PhaseAbsent,
		To:       core.PhaseVisible,
		Cause:    "tracking",
		Pose:     core.Pose{Position: mgl32.Vec3{1, 2, 3}},
		Location: &core.MapLocation{Lat: 7.5, Lon: 125.25},
	})

	lp := line(p)
	assert.Contains(t, lp, "sighting,cause=tracking,from=absent,marker=chapel,session=s1,to=visible ")
	assert.Contains(t, lp, "lat=7.5")
	assert.Contains(t, lp, "lon=125.25")
	assert.Contains(t, lp, `title="Chapel"`)
	assert.Contains(t, lp, "x=1")
	assert.Contains(t, lp, "10000000000")
}

func TestActionPoint(t *testing.T) {
	ok := line(ActionPoint("s1", &core.Action{Time: time.Unix(1, 0), Kind: core.ActionShare, Marker: "chapel", Target: "Chapel"}))
	assert.Contains(t, ok, "action,kind=share,marker=chapel,session=s1 ")
	assert.Contains(t, ok, "ok=true")
	assert.NotContains(t, ok, "error=")

	failed := line(ActionPoint("s1", &core.Action{Time: time.Unix(1, 0), Kind: core.ActionOpenMap, Error: "boom"}))
	assert.Contains(t, failed, "ok=false")
	assert.Contains(t, failed, `error="boom"`)
	assert.NotContains(t, failed, "marker=")
}

func TestPerformancePoint(t *testing.T) {
	lp := line(PerformancePoint("s1", &core.Performance{
		Time:         time.Unix(1, 0),
		Instances:    2,
		Visible:      1,
		QueueLengths: map[string]int{"sightings": 4},
	}))
	assert.Contains(t, lp, "performance,session=s1 ")
	assert.Contains(t, lp, "queue_sightings=4i")
	assert.Contains(t, lp, "instances=2i")
}

func TestInit_RequiresURL(t *testing.T) {
	b := New(config.InfluxConfig{}, zerolog.Nop())
	assert.Error(t, b.Init())
}

func TestInit_UnreachableWithoutBackup(t *testing.T) {
	b := New(config.InfluxConfig{URL: "http://127.0.0.1:1"}, zerolog.Nop())
	assert.Error(t, b.Init())
	_ = b.Close()
}

func TestBackupMode_WritesLineProtocol(t *testing.T) {
	path := filepath.Join(t.TempDir(), "backup.lp.gz")
	b := New(config.InfluxConfig{URL: "http://127.0.0.1:1", Org: "arsync", Bucket: "sightings", BackupPath: path}, zerolog.Nop())
	require.NoError(t, b.Init())
	assert.True(t, b.Backup())
	assert.Equal(t, path, b.ExportedFilePath())

	assert.ErrorIs(t, b.RecordSighting(&core.Sighting{Marker: "chapel"}), ErrNoSession)

	require.NoError(t, b.StartSession(&core.Session{ID: "s1", StartTime: time.Unix(1, 0)}, nil))
	require.NoError(t, b.RecordSighting(&core.Sighting{Time: time.Unix(2, 0), Marker: "chapel", To: core.PhaseVisible}))
	require.NoError(t, b.RecordAction(&core.Action{Time: time.Unix(3, 0), Kind: core.ActionOpenURL, Target: "https://example.com"}))
	require.NoError(t, b.EndSession())
	require.NoError(t, b.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	scanner := bufio.NewScanner(gz)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	require.NoError(t, scanner.Err())
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "session,event=start,session=s1")
	assert.Contains(t, lines[1], "sighting,")
	assert.Contains(t, lines[2], "action,kind=open_url,session=s1")
	assert.Contains(t, lines[3], "session,event=end,session=s1")
}
