// Package core holds the domain types shared between the arsync engine and
// its hosts: markers, poses, tracking events and journal records.
package core

import (
	"fmt"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// Pose is a position and orientation reported by the tracking subsystem in
// world space.
type Pose struct {
	Position mgl32.Vec3 `json:"position"`
	Rotation mgl32.Quat `json:"rotation"`
}

// IdentityPose returns a pose at the origin with no rotation.
func IdentityPose() Pose {
	return Pose{Rotation: mgl32.QuatIdent()}
}

// Up returns the local up axis of the pose frame.
func (p Pose) Up() mgl32.Vec3 {
	q := p.Rotation
	if q.Len() == 0 {
		q = mgl32.QuatIdent()
	}
	return q.Normalize().Rotate(mgl32.Vec3{0, 1, 0})
}

// TrackingState is the quality of tracking reported for a marker.
type TrackingState int

const (
	TrackingNone TrackingState = iota
	TrackingLimited
	TrackingFull
)

var trackingStateNames = map[TrackingState]string{
	TrackingNone:    "none",
	TrackingLimited: "limited",
	TrackingFull:    "tracking",
}

func (s TrackingState) String() string {
	if name, ok := trackingStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TrackingState(%d)", int(s))
}

// ParseTrackingState converts "tracking", "limited" or "none" (any case).
func ParseTrackingState(s string) (TrackingState, error) {
	for state, name := range trackingStateNames {
		if strings.EqualFold(s, name) {
			return state, nil
		}
	}
	return TrackingNone, fmt.Errorf("unknown tracking state %q", s)
}

// TrackingEvent is one marker's entry in a tracking batch.
type TrackingEvent struct {
	Marker string        `json:"marker"`
	Pose   Pose          `json:"pose"`
	State  TrackingState `json:"state"`
}

// Batch is the set of changes delivered by the tracking subsystem in one tick.
type Batch struct {
	Added   []TrackingEvent `json:"added,omitempty"`
	Updated []TrackingEvent `json:"updated,omitempty"`
	Removed []TrackingEvent `json:"removed,omitempty"`
}

// Empty reports whether the batch carries no events.
func (b Batch) Empty() bool {
	return len(b.Added) == 0 && len(b.Updated) == 0 && len(b.Removed) == 0
}

// Len returns the total number of events in the batch.
func (b Batch) Len() int {
	return len(b.Added) + len(b.Updated) + len(b.Removed)
}
