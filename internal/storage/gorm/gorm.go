// Package gormstorage is the journal backend shared by the sqlite and
// postgres storage types. Sessions and their markers are written
// synchronously; sightings, actions and performance samples go through
// queues drained by a background writer goroutine.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/wanderlens/arsync/internal/database"
	"github.com/wanderlens/arsync/internal/geo"
	"github.com/wanderlens/arsync/internal/model"
	"github.com/wanderlens/arsync/internal/queue"
	"github.com/wanderlens/arsync/pkg/core"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultFlushInterval = 2 * time.Second
	defaultQueueLimit    = 100_000
)

var (
	// ErrNoSession is returned when recording outside a started session.
	ErrNoSession = errors.New("no session started")
	// ErrSessionActive is returned by StartSession before the previous
	// session ended.
	ErrSessionActive = errors.New("session already started")
)

// Dependencies holds all dependencies for the GORM storage backend.
type Dependencies struct {
	DB            *gorm.DB
	Logger        *slog.Logger
	DBLog         zerolog.Logger
	AppName       string
	FlushInterval time.Duration
	QueueLimit    int
	Now           func() time.Time
}

type queues struct {
	Sightings    *queue.Queue[model.Sighting]
	Actions      *queue.Queue[model.Action]
	Performances *queue.Queue[model.Performance]
}

func newQueues(limit int) *queues {
	return &queues{
		Sightings:    queue.NewBounded[model.Sighting](limit),
		Actions:      queue.NewBounded[model.Action](limit),
		Performances: queue.NewBounded[model.Performance](limit),
	}
}

// Backend implements storage.Backend on top of a gorm connection. A Backend
// without a DB only queues, which is what the unit tests exercise.
type Backend struct {
	deps   Dependencies
	log    *slog.Logger
	queues *queues

	mu        sync.Mutex
	sessionID string
	route     []core.MapLocation

	flushMu   sync.Mutex
	lastWrite atomic.Int64

	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = defaultFlushInterval
	}
	if deps.QueueLimit <= 0 {
		deps.QueueLimit = defaultQueueLimit
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Backend{
		deps: deps,
		log:  log.With("component", "storage.gorm"),
	}
}

// Init creates the queues, migrates the schema and starts the writer.
func (b *Backend) Init() error {
	b.queues = newQueues(b.deps.QueueLimit)
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return nil
	}
	appName := b.deps.AppName
	if appName == "" {
		appName = "arsync"
	}
	if err := database.Migrate(b.deps.DB, appName, b.deps.DBLog); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.startDBWriter()
	return nil
}

// DB returns the underlying connection.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Close stops the writer and flushes whatever is still queued.
func (b *Backend) Close() error {
	b.closeOnce.Do(func() {
		if b.stopChan != nil {
			close(b.stopChan)
		}
		b.wg.Wait()
		if b.queues != nil {
			b.flush()
		}
	})
	return nil
}

// StartSession inserts the session row and a snapshot of its markers.
func (b *Backend) StartSession(s *core.Session, markers []core.MarkerDescriptor) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessionID != "" {
		return fmt.Errorf("%w: %s", ErrSessionActive, b.sessionID)
	}

	if db := b.deps.DB; db != nil {
		row := model.SessionFromCore(*s)
		rows := make([]model.Marker, 0, len(markers))
		for _, d := range markers {
			m, err := model.MarkerFromCore(s.ID, d)
			if err != nil {
				return err
			}
			rows = append(rows, m)
		}
		err := db.Transaction(func(tx *gorm.DB) error {
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to insert session: %w", err)
			}
			if len(rows) == 0 {
				return nil
			}
			if err := tx.Omit(clause.Associations).Create(&rows).Error; err != nil {
				return fmt.Errorf("failed to insert markers: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	b.sessionID = s.ID
	b.route = b.route[:0]
	b.log.Info("Session started", "session", s.ID, "markers", len(markers))
	return nil
}

// EndSession flushes the queues and stamps the end time and visited route.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	id := b.sessionID
	route := append([]core.MapLocation(nil), b.route...)
	b.sessionID = ""
	b.route = b.route[:0]
	b.mu.Unlock()

	if id == "" {
		return ErrNoSession
	}
	b.flush()

	db := b.deps.DB
	if db == nil {
		return nil
	}
	updates := map[string]any{"end_time": b.deps.Now()}
	if len(route) > 1 {
		if line, err := geo.Route(route); err == nil {
			updates["route"] = line
		} else {
			b.log.Debug("Route not stored", "session", id, "error", err)
		}
	}
	if err := db.Model(&model.Session{}).Where("id = ?", id).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to finalize session %s: %w", id, err)
	}
	b.log.Info("Session ended", "session", id, "routePoints", len(route))
	return nil
}

// SessionID returns the active session, or "".
func (b *Backend) SessionID() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sessionID
}

func (b *Backend) stamp(sessionID string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessionID == "" {
		return "", ErrNoSession
	}
	if sessionID == "" {
		return b.sessionID, nil
	}
	return sessionID, nil
}

// RecordSighting converts and queues a sighting. Sightings that make a
// marker visible extend the session route.
func (b *Backend) RecordSighting(s *core.Sighting) error {
	id, err := b.stamp(s.SessionID)
	if err != nil {
		return err
	}
	row, err := model.SightingFromCore(*s)
	if err != nil {
		return err
	}
	row.SessionID = id
	b.queues.Sightings.Push(row)

	if s.To == core.PhaseVisible && s.Location != nil {
		b.mu.Lock()
		b.route = append(b.route, *s.Location)
		b.mu.Unlock()
	}
	return nil
}

// RecordAction converts and queues an action.
func (b *Backend) RecordAction(a *core.Action) error {
	id, err := b.stamp(a.SessionID)
	if err != nil {
		return err
	}
	row := model.ActionFromCore(*a)
	row.SessionID = id
	b.queues.Actions.Push(row)
	return nil
}

// RecordPerformance converts and queues a load sample.
func (b *Backend) RecordPerformance(p *core.Performance) error {
	id, err := b.stamp(p.SessionID)
	if err != nil {
		return err
	}
	row, err := model.PerformanceFromCore(*p)
	if err != nil {
		return err
	}
	row.SessionID = id
	b.queues.Performances.Push(row)
	return nil
}

// QueueLengths reports the pending rows per queue.
func (b *Backend) QueueLengths() map[string]int {
	if b.queues == nil {
		return map[string]int{}
	}
	return map[string]int{
		"sightings":    b.queues.Sightings.Len(),
		"actions":      b.queues.Actions.Len(),
		"performances": b.queues.Performances.Len(),
	}
}

// Dropped reports rows discarded by full queues.
func (b *Backend) Dropped() uint64 {
	if b.queues == nil {
		return 0
	}
	return b.queues.Sightings.Dropped() + b.queues.Actions.Dropped() + b.queues.Performances.Dropped()
}

// LastWriteDuration returns the duration of the last write cycle.
func (b *Backend) LastWriteDuration() time.Duration {
	return time.Duration(b.lastWrite.Load())
}

// writeQueue writes all items from a queue to the database in a
// transaction. Failed batches go back to the head of the queue.
func writeQueue[T any](db *gorm.DB, q *queue.Queue[T], name string, log *slog.Logger) int {
	if q.Empty() {
		return 0
	}
	items := q.Drain()
	err := db.Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&items).Error
	})
	if err != nil {
		log.Error("Error writing queue", "queue", name, "count", len(items), "error", err)
		q.Requeue(items...)
		return 0
	}
	return len(items)
}

func (b *Backend) flush() {
	db := b.deps.DB
	if db == nil {
		return
	}
	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	start := time.Now()
	written := writeQueue(db, b.queues.Sightings, "sightings", b.log)
	written += writeQueue(db, b.queues.Actions, "actions", b.log)
	written += writeQueue(db, b.queues.Performances, "performances", b.log)
	if written == 0 {
		return
	}
	elapsed := time.Since(start)
	b.lastWrite.Store(int64(elapsed))
	b.log.Debug("Journal rows written", "count", written, "duration", elapsed)
}

// startDBWriter starts the goroutine that periodically drains the queues.
func (b *Backend) startDBWriter() {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		ticker := time.NewTicker(b.deps.FlushInterval)
		defer ticker.Stop()
		for {
			select {
			case <-b.stopChan:
				return
			case <-ticker.C:
				b.flush()
			}
		}
	}()
}
