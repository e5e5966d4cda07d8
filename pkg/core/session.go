package core

import (
	"fmt"
	"strings"
	"time"
)

// SessionState is the state of the device tracking subsystem.
type SessionState int

const (
	SessionNone SessionState = iota
	SessionUnsupported
	SessionCheckingAvailability
	SessionNeedsInstall
	SessionInstalling
	SessionReady
	SessionInitializing
	SessionTracking
)

var sessionStateNames = []string{
	"none",
	"unsupported",
	"checking_availability",
	"needs_install",
	"installing",
	"ready",
	"initializing",
	"tracking",
}

func (s SessionState) String() string {
	if int(s) >= 0 && int(s) < len(sessionStateNames) {
		return sessionStateNames[s]
	}
	return fmt.Sprintf("SessionState(%d)", int(s))
}

// ParseSessionState converts a snake_case state name (any case).
func ParseSessionState(s string) (SessionState, error) {
	for i, name := range sessionStateNames {
		if strings.EqualFold(s, name) {
			return SessionState(i), nil
		}
	}
	return SessionNone, fmt.Errorf("unknown session state %q", s)
}

// PanelState is the info panel snapshot owned by the presenter.
type PanelState struct {
	CurrentMarker string `json:"currentMarker,omitempty"`
	Open          bool   `json:"open"`
	Pinned        bool   `json:"pinned"`
}

// Session is one run of the AR experience, from start to shutdown.
type Session struct {
	ID        string    `json:"id"`
	StartTime time.Time `json:"startTime"`
	Scene     string    `json:"scene,omitempty"`
	Platform  string    `json:"platform,omitempty"`
	Version   string    `json:"version,omitempty"`
}
