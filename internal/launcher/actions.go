package launcher

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/pkg/core"
)

// ErrNoCurrentMarker is returned when an action runs with nothing presented.
var ErrNoCurrentMarker = errors.New("no marker is being presented")

// Current exposes the described marker. *presenter.Presenter satisfies it.
type Current interface {
	Current() (core.MarkerDescriptor, bool)
}

// ActionRecorder receives the outcome of every action.
type ActionRecorder func(core.Action)

// Actions runs user-triggered panel buttons against the current marker.
// Platform failures are logged and swallowed; the user may retry.
type Actions struct {
	launcher Launcher
	current  Current
	record   ActionRecorder
	logger   *slog.Logger
	now      func() time.Time
}

// ActionsOption configures Actions.
type ActionsOption func(*Actions)

// WithRecorder journals every action outcome.
func WithRecorder(r ActionRecorder) ActionsOption {
	return func(a *Actions) {
		a.record = r
	}
}

// WithActionsLogger sets the logger.
func WithActionsLogger(l *slog.Logger) ActionsOption {
	return func(a *Actions) {
		a.logger = l
	}
}

// NewActions binds a launcher to the presenter's current marker.
func NewActions(l Launcher, current Current, opts ...ActionsOption) *Actions {
	a := &Actions{
		launcher: l,
		current:  current,
		logger:   logging.NewNop(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(a)
	}
	return a
}

// OpenMap opens the current marker's location. Reports success.
func (a *Actions) OpenMap(ctx context.Context) bool {
	d, ok := a.current.Current()
	if !ok {
		return a.finish(core.ActionOpenMap, "", "", ErrNoCurrentMarker)
	}
	req, ok := MapRequestFor(d)
	if !ok {
		return a.finish(core.ActionOpenMap, d.Name, "", core.ErrMissingContent)
	}
	return a.finish(core.ActionOpenMap, d.Name, latLon(req), a.launcher.OpenMap(ctx, req))
}

// Share shares the current marker's summary text.
func (a *Actions) Share(ctx context.Context) bool {
	d, ok := a.current.Current()
	if !ok {
		return a.finish(core.ActionShare, "", "", ErrNoCurrentMarker)
	}
	text := ShareText(d)
	return a.finish(core.ActionShare, d.Name, d.Title, a.launcher.Share(ctx, text))
}

// OpenWebsite opens the current marker's website.
func (a *Actions) OpenWebsite(ctx context.Context) bool {
	d, ok := a.current.Current()
	if !ok {
		return a.finish(core.ActionOpenURL, "", "", ErrNoCurrentMarker)
	}
	if d.WebsiteURL == "" {
		return a.finish(core.ActionOpenURL, d.Name, "", core.ErrMissingContent)
	}
	return a.finish(core.ActionOpenURL, d.Name, d.WebsiteURL, a.launcher.OpenURL(ctx, d.WebsiteURL))
}

func (a *Actions) finish(kind core.ActionKind, marker, target string, err error) bool {
	act := core.Action{
		Time:   a.now(),
		Kind:   kind,
		Marker: marker,
		Target: target,
	}
	if err != nil {
		act.Error = err.Error()
		a.logger.Warn("action failed", "kind", kind, "marker", marker, "target", target, "error", err)
	} else {
		a.logger.Info("action launched", "kind", kind, "marker", marker, "target", target)
	}
	if a.record != nil {
		a.record(act)
	}
	return err == nil
}

// ShareText is the message shared for a marker.
func ShareText(d core.MarkerDescriptor) string {
	lines := []string{d.Title}
	if addr := firstNonEmpty(d.Address, mapAddress(d)); addr != "" {
		lines = append(lines, addr)
	}
	switch {
	case d.WebsiteURL != "":
		lines = append(lines, d.WebsiteURL)
	case d.Map != nil:
		if req, ok := MapRequestFor(d); ok {
			lines = append(lines, googleSearchURL(req))
		}
	}
	return strings.Join(lines, "\n")
}

func mapAddress(d core.MarkerDescriptor) string {
	if d.Map == nil {
		return ""
	}
	return d.Map.Address
}
