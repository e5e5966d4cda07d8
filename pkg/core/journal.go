package core

import "time"

// Phase is the reconciler's view of a single marker.
type Phase string

const (
	// PhaseAbsent: not tracked, no content.
	PhaseAbsent Phase = "absent"
	// PhasePending: tracked but never reached full tracking, no content yet.
	PhasePending Phase = "pending"
	// PhaseVisible: content shown at the marker.
	PhaseVisible Phase = "visible"
	// PhaseHidden: content kept but invisible while tracking is degraded.
	PhaseHidden Phase = "hidden"
	// PhaseEvicted: content destroyed to make room under the single-active
	// policy. Shown again once it tracks and nothing else is visible.
	PhaseEvicted Phase = "evicted"
	// PhaseDetached: still tracked, but its content was dropped by a reset.
	// Updates are ignored until the marker is added again.
	PhaseDetached Phase = "detached"
)

// HasInstance reports whether the phase owns a content instance.
func (p Phase) HasInstance() bool {
	return p == PhaseVisible || p == PhaseHidden
}

// Transition records a marker moving between phases.
type Transition struct {
	Marker string    `json:"marker"`
	From   Phase     `json:"from"`
	To     Phase     `json:"to"`
	Cause  string    `json:"cause"`
	Pose   Pose      `json:"pose"`
	Time   time.Time `json:"time"`
}

// Sighting is the journaled form of a Transition.
type Sighting struct {
	ID        uint         `json:"id"`
	SessionID string       `json:"sessionId"`
	Time      time.Time    `json:"time"`
	Marker    string       `json:"marker"`
	Title     string       `json:"title,omitempty"`
	From      Phase        `json:"from"`
	To        Phase        `json:"to"`
	Cause     string       `json:"cause"`
	Pose      Pose         `json:"pose"`
	Location  *MapLocation `json:"location,omitempty"`
}

// ActionKind names a user-triggered platform action.
type ActionKind string

const (
	ActionOpenMap ActionKind = "open_map"
	ActionShare   ActionKind = "share"
	ActionOpenURL ActionKind = "open_url"
)

// Action is a journaled platform launch and its outcome.
type Action struct {
	ID        uint       `json:"id"`
	SessionID string     `json:"sessionId"`
	Time      time.Time  `json:"time"`
	Kind      ActionKind `json:"kind"`
	Marker    string     `json:"marker"`
	Target    string     `json:"target"`
	Error     string     `json:"error,omitempty"`
}

// Performance is a periodic sample of engine and journal load.
type Performance struct {
	SessionID         string         `json:"sessionId"`
	Time              time.Time      `json:"time"`
	Instances         int            `json:"instances"`
	Visible           int            `json:"visible"`
	QueueLengths      map[string]int `json:"queueLengths,omitempty"`
	LastWriteDuration time.Duration  `json:"lastWriteDuration"`
}
