package v1

import (
	"math"
	"sort"
	"time"

	"github.com/wanderlens/arsync/pkg/core"
)

// SessionData contains all the data needed to build an export.
type SessionData struct {
	Session   core.Session
	EndTime   time.Time
	Markers   []core.MarkerDescriptor
	Sightings []core.Sighting
	Actions   []core.Action
}

// Build creates an Export from the session data. Markers keep registry
// order; markers sighted without a descriptor follow in name order.
//
// Sightings are encoded as [unixMillis, marker, from, to, cause, [x, y, z]].
func Build(data *SessionData) Export {
	export := Export{
		FormatVersion: FormatVersion,
		Session: Session{
			ID:              data.Session.ID,
			Scene:           data.Session.Scene,
			Platform:        data.Session.Platform,
			Version:         data.Session.Version,
			StartTime:       formatTime(data.Session.StartTime),
			EndTime:         formatTime(data.EndTime),
			DurationSeconds: seconds(data.EndTime.Sub(data.Session.StartTime)),
		},
		Markers:   make([]Marker, 0, len(data.Markers)),
		Sightings: make([][]any, 0, len(data.Sightings)),
		Actions:   make([]Action, 0, len(data.Actions)),
		Route:     make([][]float64, 0),
	}

	index := make(map[string]int, len(data.Markers))
	for _, d := range data.Markers {
		index[d.Name] = len(export.Markers)
		m := Marker{Name: d.Name, Title: d.Title, ContentID: d.Content.ID}
		if d.Map != nil {
			lat, lon := d.Map.Lat, d.Map.Lon
			m.Lat, m.Lon = &lat, &lon
		}
		export.Markers = append(export.Markers, m)
	}

	unknown := 0
	visibleSince := make(map[string]time.Time)
	for _, s := range data.Sightings {
		i, ok := index[s.Marker]
		if !ok {
			i = len(export.Markers)
			index[s.Marker] = i
			export.Markers = append(export.Markers, Marker{Name: s.Marker, Title: s.Title})
			unknown++
		}
		m := &export.Markers[i]
		if m.FirstSeen == "" {
			m.FirstSeen = formatTime(s.Time)
		}
		m.LastSeen = formatTime(s.Time)

		since, visible := visibleSince[s.Marker]
		switch {
		case s.To == core.PhaseVisible && !visible:
			m.Visits++
			visibleSince[s.Marker] = s.Time
			if s.Location != nil {
				export.Route = appendRoute(export.Route, s.Location)
			}
		case s.To != core.PhaseVisible && visible:
			m.VisibleSeconds += seconds(s.Time.Sub(since))
			delete(visibleSince, s.Marker)
		}

		p := s.Pose.Position
		export.Sightings = append(export.Sightings, []any{
			s.Time.UnixMilli(),
			s.Marker,
			string(s.From),
			string(s.To),
			s.Cause,
			[]float64{round(float64(p[0])), round(float64(p[1])), round(float64(p[2]))},
		})
	}
	for name, since := range visibleSince {
		export.Markers[index[name]].VisibleSeconds += seconds(data.EndTime.Sub(since))
	}
	for i := range export.Markers {
		export.Markers[i].VisibleSeconds = round(export.Markers[i].VisibleSeconds)
	}

	if unknown > 1 {
		tail := export.Markers[len(data.Markers):]
		sort.Slice(tail, func(a, b int) bool { return tail[a].Name < tail[b].Name })
	}

	for _, a := range data.Actions {
		export.Actions = append(export.Actions, Action{
			Time:   formatTime(a.Time),
			Kind:   string(a.Kind),
			Marker: a.Marker,
			Target: a.Target,
			Error:  a.Error,
		})
	}
	return export
}

func appendRoute(route [][]float64, loc *core.MapLocation) [][]float64 {
	if n := len(route); n > 0 && route[n-1][0] == loc.Lat && route[n-1][1] == loc.Lon {
		return route
	}
	return append(route, []float64{loc.Lat, loc.Lon})
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func seconds(d time.Duration) float64 {
	if d < 0 {
		return 0
	}
	return d.Seconds()
}

// round keeps three decimals for compact output.
func round(v float64) float64 {
	return math.Round(v*1000) / 1000
}
