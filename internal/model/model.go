// Package model holds the gorm table definitions of the sighting journal.
package model

import (
	"encoding/json"
	"fmt"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/wanderlens/arsync/internal/geo"
	"github.com/wanderlens/arsync/pkg/core"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Info{},
	&Session{},
	&Marker{},
	&Sighting{},
	&Action{},
	&Performance{},
}

// Info describes the installation writing the journal.
type Info struct {
	gorm.Model
	AppName string `json:"appName" gorm:"size:127"`
	Website string `json:"website" gorm:"size:255"`
}

func (*Info) TableName() string {
	return "arsync_infos"
}

// Session is one run of the AR experience.
type Session struct {
	ID        string          `json:"id" gorm:"primarykey;size:64"`
	StartTime time.Time       `json:"startTime" gorm:"type:timestamptz;index:idx_session_start"`
	EndTime   *time.Time      `json:"endTime" gorm:"type:timestamptz"`
	Scene     string          `json:"scene" gorm:"size:127"`
	Platform  string          `json:"platform" gorm:"size:32"`
	Version   string          `json:"version" gorm:"size:32"`
	Route     geom.LineString `json:"route" gorm:"type:bytes"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Marker is the registry entry as it was when a session saw it.
type Marker struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement"`
	SessionID string         `json:"sessionId" gorm:"size:64;uniqueIndex:idx_marker_session_name"`
	Session   Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Name      string         `json:"name" gorm:"size:127;uniqueIndex:idx_marker_session_name"`
	Title     string         `json:"title" gorm:"size:255"`
	ContentID string         `json:"contentId" gorm:"size:127"`
	Location  geom.Point     `json:"location" gorm:"type:bytes"`
	Details   datatypes.JSON `json:"details" gorm:"default:'[]'"`
}

func (*Marker) TableName() string {
	return "markers"
}

// Sighting is one marker phase transition.
type Sighting struct {
	ID        uint           `json:"id" gorm:"primarykey;autoIncrement"`
	Time      time.Time      `json:"time" gorm:"type:timestamptz;index:idx_sighting_time"`
	SessionID string         `json:"sessionId" gorm:"size:64;index:idx_sighting_session"`
	Session   Session        `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Marker    string         `json:"marker" gorm:"size:127;index:idx_sighting_marker"`
	Title     string         `json:"title" gorm:"size:255"`
	FromPhase string         `json:"from" gorm:"size:16"`
	ToPhase   string         `json:"to" gorm:"size:16"`
	Cause     string         `json:"cause" gorm:"size:32"`
	Pose      datatypes.JSON `json:"pose"`
	Location  geom.Point     `json:"location" gorm:"type:bytes"`
}

func (*Sighting) TableName() string {
	return "sightings"
}

// Action is one user-triggered platform launch.
type Action struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement"`
	Time      time.Time `json:"time" gorm:"type:timestamptz;index:idx_action_time"`
	SessionID string    `json:"sessionId" gorm:"size:64;index:idx_action_session"`
	Session   Session   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
	Kind      string    `json:"kind" gorm:"size:16"`
	Marker    string    `json:"marker" gorm:"size:127"`
	Target    string    `json:"target" gorm:"size:2048"`
	Error     string    `json:"error" gorm:"size:1024"`
}

func (*Action) TableName() string {
	return "actions"
}

// Performance is a periodic snapshot of engine and journal load.
type Performance struct {
	Time                time.Time      `json:"time" gorm:"type:timestamptz;index:idx_perf_time"`
	SessionID           string         `json:"sessionId" gorm:"size:64;index:idx_perf_session"`
	Instances           int            `json:"instances"`
	Visible             int            `json:"visible"`
	QueueLengths        datatypes.JSON `json:"queueLengths"`
	LastWriteDurationMs float32        `json:"lastWriteDurationMs"`
}

func (*Performance) TableName() string {
	return "performances"
}

// SessionFromCore converts a core session.
func SessionFromCore(s core.Session) Session {
	return Session{
		ID:        s.ID,
		StartTime: s.StartTime,
		Scene:     s.Scene,
		Platform:  s.Platform,
		Version:   s.Version,
	}
}

// MarkerFromCore snapshots a descriptor for a session. Descriptors without
// a valid map location get an empty point.
func MarkerFromCore(sessionID string, d core.MarkerDescriptor) (Marker, error) {
	details, err := json.Marshal(d.Details())
	if err != nil {
		return Marker{}, fmt.Errorf("encoding details of %s: %w", d.Name, err)
	}
	m := Marker{
		SessionID: sessionID,
		Name:      d.Name,
		Title:     d.Title,
		ContentID: d.Content.ID,
		Details:   datatypes.JSON(details),
		Location:  geom.NewEmptyPoint(geom.DimXY),
	}
	if d.Map != nil {
		if p, err := geo.PointFromLocation(d.Map); err == nil {
			m.Location = p
		}
	}
	return m, nil
}

// SightingFromCore converts a journal sighting.
func SightingFromCore(s core.Sighting) (Sighting, error) {
	pose, err := json.Marshal(s.Pose)
	if err != nil {
		return Sighting{}, fmt.Errorf("encoding pose: %w", err)
	}
	row := Sighting{
		ID:        s.ID,
		Time:      s.Time,
		SessionID: s.SessionID,
		Marker:    s.Marker,
		Title:     s.Title,
		FromPhase: string(s.From),
		ToPhase:   string(s.To),
		Cause:     s.Cause,
		Pose:      datatypes.JSON(pose),
		Location:  geom.NewEmptyPoint(geom.DimXY),
	}
	if s.Location != nil {
		if p, err := geo.PointFromLocation(s.Location); err == nil {
			row.Location = p
		}
	}
	return row, nil
}

// ToCore converts a sighting row back. The location is not restored.
func (s Sighting) ToCore() (core.Sighting, error) {
	out := core.Sighting{
		ID:        s.ID,
		SessionID: s.SessionID,
		Time:      s.Time,
		Marker:    s.Marker,
		Title:     s.Title,
		From:      core.Phase(s.FromPhase),
		To:        core.Phase(s.ToPhase),
		Cause:     s.Cause,
	}
	if len(s.Pose) > 0 {
		if err := json.Unmarshal(s.Pose, &out.Pose); err != nil {
			return core.Sighting{}, fmt.Errorf("decoding pose: %w", err)
		}
	}
	return out, nil
}

// ActionFromCore converts a journal action.
func ActionFromCore(a core.Action) Action {
	return Action{
		ID:        a.ID,
		Time:      a.Time,
		SessionID: a.SessionID,
		Kind:      string(a.Kind),
		Marker:    a.Marker,
		Target:    a.Target,
		Error:     a.Error,
	}
}

// PerformanceFromCore converts a load sample.
func PerformanceFromCore(p core.Performance) (Performance, error) {
	lengths := p.QueueLengths
	if lengths == nil {
		lengths = map[string]int{}
	}
	raw, err := json.Marshal(lengths)
	if err != nil {
		return Performance{}, fmt.Errorf("encoding queue lengths: %w", err)
	}
	return Performance{
		Time:                p.Time,
		SessionID:           p.SessionID,
		Instances:           p.Instances,
		Visible:             p.Visible,
		QueueLengths:        datatypes.JSON(raw),
		LastWriteDurationMs: float32(p.LastWriteDuration.Microseconds()) / 1000,
	}, nil
}
