// Package v1 contains the v1 session export format written by the memory
// journal.
package v1

// FormatVersion is written into every export.
const FormatVersion = "1"

// Export is the root JSON structure for v1 format.
type Export struct {
	FormatVersion string      `json:"formatVersion"`
	Session       Session     `json:"session"`
	Markers       []Marker    `json:"markers"`
	Sightings     [][]any     `json:"sightings"`
	Actions       []Action    `json:"actions"`
	Route         [][]float64 `json:"route"`
}

// Session describes the run the export covers.
type Session struct {
	ID              string  `json:"id"`
	Scene           string  `json:"scene,omitempty"`
	Platform        string  `json:"platform,omitempty"`
	Version         string  `json:"version,omitempty"`
	StartTime       string  `json:"startTime"`
	EndTime         string  `json:"endTime"`
	DurationSeconds float64 `json:"durationSeconds"`
}

// Marker summarizes how a marker was seen during the session.
type Marker struct {
	Name           string   `json:"name"`
	Title          string   `json:"title,omitempty"`
	ContentID      string   `json:"contentId,omitempty"`
	Lat            *float64 `json:"lat,omitempty"`
	Lon            *float64 `json:"lon,omitempty"`
	Visits         int      `json:"visits"`
	VisibleSeconds float64  `json:"visibleSeconds"`
	FirstSeen      string   `json:"firstSeen,omitempty"`
	LastSeen       string   `json:"lastSeen,omitempty"`
}

// Action is a platform launch as exported.
type Action struct {
	Time   string `json:"time"`
	Kind   string `json:"kind"`
	Marker string `json:"marker,omitempty"`
	Target string `json:"target,omitempty"`
	Error  string `json:"error,omitempty"`
}
