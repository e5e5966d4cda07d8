// Package lifecycle resets the tracking session on focus, resume and
// tracking subsystem restarts.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/pkg/core"
)

// Reset reasons.
const (
	ReasonFocus   = "focus"
	ReasonResume  = "resume"
	ReasonSession = "session_state"
	ReasonManual  = "manual"
)

// Resetter clears engine state between batches. *reconciler.Reconciler
// satisfies it.
type Resetter interface {
	Reset(forget bool) error
}

// Source is the tracking subsystem switch.
type Source interface {
	SetEnabled(enabled bool)
}

// Authorizer reports the camera permission. *permission.Gate satisfies it.
type Authorizer interface {
	Authorized() bool
	Wait(ctx context.Context) (bool, error)
}

// ResetEvent describes one completed session reset.
type ResetEvent struct {
	Reason  string
	State   core.SessionState
	Forgot  bool
	Enabled bool
	Err     error
}

// Hooks are optional callbacks fired by the controller.
type Hooks struct {
	OnReset   func(context.Context, ResetEvent)
	OnEnabled func(context.Context, bool)
}

// Controller routes host lifecycle signals to a session reset.
type Controller struct {
	mu     sync.Mutex
	engine Resetter
	source Source
	gate   Authorizer
	hooks  Hooks
	logger *slog.Logger
	state  core.SessionState
}

// Option configures the Controller.
type Option func(*Controller)

// WithLogger sets the controller logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = l
	}
}

// WithHooks registers lifecycle hooks.
func WithHooks(h Hooks) Option {
	return func(c *Controller) {
		c.hooks = h
	}
}

// New creates a controller.
func New(engine Resetter, source Source, gate Authorizer, opts ...Option) *Controller {
	c := &Controller{
		engine: engine,
		source: source,
		gate:   gate,
		logger: logging.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Start waits for the permission result and enables the source when the
// camera is authorized.
func (c *Controller) Start(ctx context.Context) error {
	ok, err := c.gate.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for camera permission: %w", err)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !ok {
		c.logger.Warn("camera permission denied, tracking stays disabled")
	}
	c.setEnabled(ctx, ok)
	return nil
}

// OnFocusGained resets the session.
func (c *Controller) OnFocusGained(ctx context.Context) error {
	return c.reset(ctx, ReasonFocus, false)
}

// OnPauseResumed resets the session when the app resumes. Pausing is a
// no-op.
func (c *Controller) OnPauseResumed(ctx context.Context, paused bool) error {
	if paused {
		return nil
	}
	return c.reset(ctx, ReasonResume, false)
}

// OnTrackingSessionStateChanged resets the session. Initializing also drops
// all tracked marker bookkeeping before the source is re-enabled.
func (c *Controller) OnTrackingSessionStateChanged(ctx context.Context, state core.SessionState) error {
	c.mu.Lock()
	prev := c.state
	c.state = state
	c.mu.Unlock()

	c.logger.Debug("tracking session state changed", "from", prev, "to", state)
	return c.reset(ctx, ReasonSession, state == core.SessionInitializing)
}

// ResetSession empties the pool, dismisses the panel and restarts the
// tracking source.
func (c *Controller) ResetSession(ctx context.Context) error {
	return c.reset(ctx, ReasonManual, false)
}

// State returns the last tracking session state seen.
func (c *Controller) State() core.SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) reset(ctx context.Context, reason string, forget bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	err := c.engine.Reset(forget)
	if err != nil {
		c.logger.Error("session reset incomplete", "reason", reason, "error", err)
	}

	c.setEnabled(ctx, false)
	enabled := c.gate.Authorized()
	if enabled {
		c.setEnabled(ctx, true)
	}

	c.logger.Info("session reset", "reason", reason, "state", c.state, "forgot", forget, "enabled", enabled)
	if c.hooks.OnReset != nil {
		c.hooks.OnReset(ctx, ResetEvent{Reason: reason, State: c.state, Forgot: forget, Enabled: enabled, Err: err})
	}
	return err
}

// Caller holds c.mu.
func (c *Controller) setEnabled(ctx context.Context, enabled bool) {
	c.source.SetEnabled(enabled)
	if c.hooks.OnEnabled != nil {
		c.hooks.OnEnabled(ctx, enabled)
	}
}
