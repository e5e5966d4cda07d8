// Package influx writes the journal as InfluxDB points. While the server is
// unreachable at Init, points go to a gzipped line protocol backup file.
package influx

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/influxdata/influxdb-client-go/v2/domain"
	"github.com/rs/zerolog"
	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/pkg/core"
)

// Measurement names.
const (
	MeasurementSession     = "session"
	MeasurementSighting    = "sighting"
	MeasurementAction      = "action"
	MeasurementPerformance = "performance"
)

const (
	pingTimeout     = 5 * time.Second
	retentionPeriod = 60 * 60 * 24 * 90 // 90 days
)

// ErrNoSession is returned when recording outside a started session.
var ErrNoSession = errors.New("no session started")

// Backend implements storage.Backend on InfluxDB v2.
type Backend struct {
	cfg    config.InfluxConfig
	log    zerolog.Logger
	client influxdb2.Client
	writer influxdb2_api.WriteAPI

	mu         sync.Mutex
	valid      bool
	backup     *gzip.Writer
	backupFile *os.File
	sessionID  string
	now        func() time.Time
}

// New creates a backend. No connection is made until Init.
func New(cfg config.InfluxConfig, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log, now: time.Now}
}

// Init connects and prepares the org and bucket, or falls back to the
// backup file.
func (b *Backend) Init() error {
	if b.cfg.URL == "" {
		return errors.New("influx url not set")
	}
	b.client = influxdb2.NewClientWithOptions(
		b.cfg.URL,
		b.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(2500).
			SetFlushInterval(1000),
	)

	ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
	defer cancel()
	running, err := b.client.Ping(ctx)
	if err != nil || !running {
		b.log.Warn().Err(err).Str("url", b.cfg.URL).Msg("InfluxDB unreachable, using backup writer")
		return b.openBackup()
	}

	if err := b.setupOrganizationAndBucket(context.Background()); err != nil {
		return err
	}
	b.createWriter()
	b.valid = true
	b.log.Info().Str("bucket", b.cfg.Bucket).Msg("InfluxDB client initialized")
	return nil
}

func (b *Backend) openBackup() error {
	if b.cfg.BackupPath == "" {
		return errors.New("influx unreachable and no backup path set")
	}
	file, err := os.OpenFile(b.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	b.backupFile = file
	b.backup = gzip.NewWriter(file)
	return nil
}

func (b *Backend) setupOrganizationAndBucket(ctx context.Context) error {
	orgs := b.client.OrganizationsAPI()
	org, err := orgs.FindOrganizationByName(ctx, b.cfg.Org)
	if err != nil {
		b.log.Info().Str("org", b.cfg.Org).Msg("Organization not found, creating")
		org, err = orgs.CreateOrganizationWithName(ctx, b.cfg.Org)
		if err != nil {
			return fmt.Errorf("creating organization %s: %w", b.cfg.Org, err)
		}
	}

	buckets := b.client.BucketsAPI()
	if _, err := buckets.FindBucketByName(ctx, b.cfg.Bucket); err != nil {
		b.log.Info().Str("bucket", b.cfg.Bucket).Msg("Bucket not found, creating")
		rule := domain.RetentionRuleTypeExpire
		_, err = buckets.CreateBucketWithName(ctx, org, b.cfg.Bucket, domain.RetentionRule{
			Type:         &rule,
			EverySeconds: retentionPeriod,
		})
		if err != nil {
			return fmt.Errorf("creating bucket %s: %w", b.cfg.Bucket, err)
		}
	}
	return nil
}

func (b *Backend) createWriter() {
	b.writer = b.client.WriteAPI(b.cfg.Org, b.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			b.log.Error().Err(writeErr).Str("bucket", b.cfg.Bucket).Msg("Error sending data to InfluxDB")
		}
	}(b.writer.Errors())
}

// Backup reports whether points go to the backup file.
func (b *Backend) Backup() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.valid && b.backup != nil
}

// ExportedFilePath returns the backup file while in backup mode.
func (b *Backend) ExportedFilePath() string {
	if b.Backup() {
		return b.cfg.BackupPath
	}
	return ""
}

// Close flushes pending points and releases the client and backup file.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.writer != nil {
		b.writer.Flush()
	}
	if b.client != nil {
		b.client.Close()
		b.client = nil
	}
	var errs []error
	if b.backup != nil {
		errs = append(errs, b.backup.Close())
		errs = append(errs, b.backupFile.Close())
		b.backup = nil
	}
	b.valid = false
	return errors.Join(errs...)
}

// StartSession writes a session start point.
func (b *Backend) StartSession(s *core.Session, markers []core.MarkerDescriptor) error {
	b.mu.Lock()
	b.sessionID = s.ID
	b.mu.Unlock()

	p := influxdb2_write.NewPoint(MeasurementSession,
		tags("session", s.ID, "event", "start", "scene", s.Scene, "platform", s.Platform),
		map[string]any{"markers": len(markers), "version": s.Version},
		s.StartTime,
	)
	return b.writePoint(p)
}

// EndSession writes a session end point and flushes.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	id := b.sessionID
	b.sessionID = ""
	b.mu.Unlock()
	if id == "" {
		return ErrNoSession
	}

	p := influxdb2_write.NewPoint(MeasurementSession,
		tags("session", id, "event", "end"),
		map[string]any{"ended": true},
		b.now(),
	)
	if err := b.writePoint(p); err != nil {
		return err
	}
	return b.flush()
}

func (b *Backend) session(id string) (string, error) {
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

// RecordSighting writes a sighting point.
func (b *Backend) RecordSighting(s *core.Sighting) error {
	id, err := b.session(s.SessionID)
	if err != nil {
		return err
	}
	return b.writePoint(SightingPoint(id, s))
}

// RecordAction writes an action point.
func (b *Backend) RecordAction(a *core.Action) error {
	id, err := b.session(a.SessionID)
	if err != nil {
		return err
	}
	return b.writePoint(ActionPoint(id, a))
}

// RecordPerformance writes a load sample point.
func (b *Backend) RecordPerformance(p *core.Performance) error {
	id, err := b.session(p.SessionID)
	if err != nil {
		return err
	}
	return b.writePoint(PerformancePoint(id, p))
}

// writePoint writes a point to InfluxDB or the backup file.
func (b *Backend) writePoint(point *influxdb2_write.Point) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.valid {
		b.writer.WritePoint(point)
		return nil
	}
	if b.backup == nil {
		return errors.New("influxDB client not initialized and backup writer not available")
	}
	line := strings.TrimSuffix(influxdb2_write.PointToLineProtocol(point, time.Nanosecond), "\n")
	if _, err := b.backup.Write([]byte(line + "\n")); err != nil {
		return fmt.Errorf("error writing to InfluxDB backup file: %w", err)
	}
	return nil
}

func (b *Backend) flush() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.valid {
		b.writer.Flush()
		return nil
	}
	if b.backup != nil {
		return b.backup.Flush()
	}
	return nil
}

// SightingPoint builds the point for a phase transition.
func SightingPoint(sessionID string, s *core.Sighting) *influxdb2_write.Point {
	pos := s.Pose.Position
	fields := map[string]any{
		"x": float64(pos[0]),
		"y": float64(pos[1]),
		"z": float64(pos[2]),
	}
	if s.Title != "" {
		fields["title"] = s.Title
	}
	if s.Location != nil {
		fields["lat"] = s.Location.Lat
		fields["lon"] = s.Location.Lon
	}
	return influxdb2_write.NewPoint(MeasurementSighting,
		tags("session", sessionID, "marker", s.Marker, "from", string(s.From), "to", string(s.To), "cause", s.Cause),
		fields,
		s.Time,
	)
}

// ActionPoint builds the point for a platform launch.
func ActionPoint(sessionID string, a *core.Action) *influxdb2_write.Point {
	fields := map[string]any{
		"target": a.Target,
		"ok":     a.Error == "",
	}
	if a.Error != "" {
		fields["error"] = a.Error
	}
	return influxdb2_write.NewPoint(MeasurementAction,
		tags("session", sessionID, "kind", string(a.Kind), "marker", a.Marker),
		fields,
		a.Time,
	)
}

// PerformancePoint builds the point for a load sample. Queue lengths become
// queue_<name> fields.
func PerformancePoint(sessionID string, p *core.Performance) *influxdb2_write.Point {
	fields := map[string]any{
		"instances":     p.Instances,
		"visible":       p.Visible,
		"last_write_ms": float64(p.LastWriteDuration.Microseconds()) / 1000,
	}
	for name, n := range p.QueueLengths {
		fields["queue_"+name] = n
	}
	return influxdb2_write.NewPoint(MeasurementPerformance,
		tags("session", sessionID),
		fields,
		p.Time,
	)
}

// tags pairs up keys and values, leaving out empty values which line
// protocol cannot carry.
func tags(kv ...string) map[string]string {
	out := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			out[kv[i]] = kv[i+1]
		}
	}
	return out
}
