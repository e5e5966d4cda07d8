// Package reconciler applies tracking batches to the content pool and the
// info presenter. It is the only writer of both during a tick.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/wanderlens/arsync/internal/cache"
	"github.com/wanderlens/arsync/internal/content"
	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/pkg/core"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Event kinds, also used as the metric "kind" attribute.
const (
	KindAdded   = "added"
	KindUpdated = "updated"
	KindRemoved = "removed"
)

// Transition causes.
const (
	CauseAdded    = "added"
	CauseTracking = "tracking"
	CauseDegraded = "degraded"
	CauseRemoved  = "removed"
	CauseEvicted  = "evicted"
	CauseReset    = "reset"
)

// Source is the tracking subsystem switch.
type Source interface {
	SetEnabled(enabled bool)
}

// Resolver finds marker descriptors.
type Resolver interface {
	Lookup(name string) (core.MarkerDescriptor, bool)
}

// Pool is the content side of a tick. *content.Pool satisfies it.
type Pool interface {
	Show(marker string, pose core.Pose) (*content.Instance, []string, error)
	Update(marker string, pose core.Pose) error
	Hide(marker string) error
	Remove(marker string) (bool, error)
	Reset() error
	Visible() []string
}

// Presenter is the info panel side of a tick. *presenter.Presenter
// satisfies it.
type Presenter interface {
	Present(d core.MarkerDescriptor)
	Dismiss()
	IsCurrent(marker string) bool
	Current() (core.MarkerDescriptor, bool)
}

// Observer receives every phase transition. Observers run inside the tick
// and must not call back into the Reconciler.
type Observer func(core.Transition)

// Report summarizes one processed batch.
type Report struct {
	Processed   int
	Ignored     int
	Failed      int
	Transitions []core.Transition
	Errors      []error
}

// Err joins the per-marker failures.
func (r Report) Err() error {
	return errors.Join(r.Errors...)
}

// Reconciler is the per-marker state machine.
type Reconciler struct {
	mu        sync.Mutex
	resolver  Resolver
	pool      Pool
	presenter Presenter
	tracked   *cache.TrackingCache
	observers []Observer
	logger    *slog.Logger
	now       func() time.Time

	events      metric.Int64Counter
	transitions metric.Int64Counter
	failures    metric.Int64Counter
	visible     metric.Int64ObservableGauge
}

// Option configures the Reconciler.
type Option func(*Reconciler)

// WithLogger sets the reconciler logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		r.logger = l
	}
}

// WithClock overrides the transition timestamp source.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		r.now = now
	}
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) Option {
	return func(r *Reconciler) {
		r.observers = append(r.observers, o)
	}
}

// New creates a Reconciler. Uses the global OTel meter for metrics (no-op if
// not configured).
func New(resolver Resolver, pool Pool, pres Presenter, opts ...Option) (*Reconciler, error) {
	r := &Reconciler{
		resolver:  resolver,
		pool:      pool,
		presenter: pres,
		tracked:   cache.NewTrackingCache(),
		logger:    logging.NewNop(),
		now:       time.Now,
	}
	for _, o := range opts {
		o(r)
	}

	m := meter()
	var err error

	r.events, err = m.Int64Counter(
		"reconciler.events",
		metric.WithDescription("Tracking events processed by kind"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating events counter: %w", err)
	}

	r.transitions, err = m.Int64Counter(
		"reconciler.transitions",
		metric.WithDescription("Marker phase transitions by target phase"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating transitions counter: %w", err)
	}

	r.failures, err = m.Int64Counter(
		"reconciler.failures",
		metric.WithDescription("Tracking events that failed and were isolated"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failures counter: %w", err)
	}

	r.visible, err = m.Int64ObservableGauge(
		"reconciler.content.visible",
		metric.WithDescription("Current number of visible content instances"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating visible gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			o.ObserveInt64(r.visible, int64(len(r.pool.Visible())))
			return nil
		},
		r.visible,
	)
	if err != nil {
		return nil, fmt.Errorf("registering visible callback: %w", err)
	}

	return r, nil
}

// Observe registers an observer.
func (r *Reconciler) Observe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// Phase returns the bookkeeping phase of marker.
func (r *Reconciler) Phase(marker string) core.Phase {
	return r.tracked.Phase(marker)
}

// Process applies one batch: all Added, then all Updated, then all Removed.
// Failures are isolated per marker and reported, never returned.
func (r *Reconciler) Process(ctx context.Context, b core.Batch) Report {
	r.mu.Lock()
	defer r.mu.Unlock()

	var rep Report
	r.each(ctx, KindAdded, b.Added, &rep, r.added)
	r.each(ctx, KindUpdated, b.Updated, &rep, r.updated)
	r.each(ctx, KindRemoved, b.Removed, &rep, r.removed)
	return rep
}

type handler func(ev core.TrackingEvent, rep *Report) error

func (r *Reconciler) each(ctx context.Context, kind string, events []core.TrackingEvent, rep *Report, h handler) {
	if len(events) == 0 {
		return
	}
	seen := make(map[string]struct{}, len(events))
	kindAttr := metric.WithAttributes(attribute.String("kind", kind))
	for _, ev := range events {
		if _, dup := seen[ev.Marker]; dup {
			r.logger.Warn("duplicate event in batch ignored", "kind", kind, "marker", ev.Marker)
			rep.Ignored++
			continue
		}
		seen[ev.Marker] = struct{}{}
		r.events.Add(ctx, 1, kindAttr)
		if err := r.apply(ev, rep, h); err != nil {
			rep.Failed++
			rep.Errors = append(rep.Errors, fmt.Errorf("%s %s: %w", kind, ev.Marker, err))
			r.failures.Add(ctx, 1, kindAttr)
			r.logger.Error("tracking event failed", "kind", kind, "marker", ev.Marker, "error", err)
			continue
		}
		rep.Processed++
	}
}

func (r *Reconciler) apply(ev core.TrackingEvent, rep *Report, h handler) (err error) {
	defer func() {
		if v := recover(); v != nil {
			err = fmt.Errorf("panic: %v", v)
		}
	}()
	return h(ev, rep)
}

func (r *Reconciler) added(ev core.TrackingEvent, rep *Report) error {
	desc, ok := r.resolver.Lookup(ev.Marker)
	if !ok {
		r.logger.Warn("marker not in registry", "marker", ev.Marker, "error", core.ErrUnknownMarker)
		rep.Ignored++
		return nil
	}

	from := r.tracked.Phase(ev.Marker)
	if ev.State != core.TrackingFull {
		if from == core.PhaseVisible {
			return r.hide(ev, from, rep)
		}
		if from == core.PhaseHidden || from == core.PhaseEvicted {
			r.touch(ev)
			return nil
		}
		r.transition(rep, ev, from, core.PhasePending, CauseAdded)
		return nil
	}
	return r.show(desc, ev, from, CauseAdded, rep)
}

func (r *Reconciler) updated(ev core.TrackingEvent, rep *Report) error {
	from := r.tracked.Phase(ev.Marker)
	tracking := ev.State == core.TrackingFull

	switch from {
	case core.PhaseAbsent, core.PhaseDetached:
		r.logger.Debug("update without instance ignored", "marker", ev.Marker, "phase", from, "error", core.ErrNoInstance)
		rep.Ignored++
		return nil

	case core.PhasePending:
		if !tracking {
			r.touch(ev)
			return nil
		}

	case core.PhaseEvicted:
		// Waits for the slot to free up; reclaiming it here would swap
		// markers back and forth on every tick.
		if !tracking || len(r.pool.Visible()) > 0 {
			r.touch(ev)
			return nil
		}

	case core.PhaseHidden:
		if !tracking {
			r.touch(ev)
			return r.pool.Update(ev.Marker, ev.Pose)
		}

	case core.PhaseVisible:
		if !tracking {
			return r.hide(ev, from, rep)
		}
		if err := r.pool.Update(ev.Marker, ev.Pose); err != nil {
			return err
		}
		r.touch(ev)
		desc, _ := r.resolver.Lookup(ev.Marker)
		r.present(desc, from)
		return nil
	}

	desc, ok := r.resolver.Lookup(ev.Marker)
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrUnknownMarker, ev.Marker)
	}
	return r.show(desc, ev, from, CauseTracking, rep)
}

func (r *Reconciler) removed(ev core.TrackingEvent, rep *Report) error {
	from := r.tracked.Phase(ev.Marker)
	if from == core.PhaseAbsent {
		r.logger.Debug("remove of absent marker ignored", "marker", ev.Marker)
		rep.Ignored++
		return nil
	}

	_, err := r.pool.Remove(ev.Marker)
	if r.presenter.IsCurrent(ev.Marker) {
		r.presenter.Dismiss()
	}
	r.transition(rep, ev, from, core.PhaseAbsent, CauseRemoved)
	return err
}

// show makes marker visible and records the markers evicted to make room.
func (r *Reconciler) show(desc core.MarkerDescriptor, ev core.TrackingEvent, from core.Phase, cause string, rep *Report) error {
	_, evicted, err := r.pool.Show(ev.Marker, ev.Pose)
	for _, name := range evicted {
		e, _ := r.tracked.Get(name)
		r.transition(rep, core.TrackingEvent{Marker: name, Pose: e.Pose, State: e.State}, e.Phase, core.PhaseEvicted, CauseEvicted)
		if err != nil && r.presenter.IsCurrent(name) {
			r.presenter.Dismiss()
		}
	}
	if err != nil {
		if errors.Is(err, core.ErrMissingContent) {
			r.logger.Warn("marker has no content", "marker", ev.Marker, "error", err)
			rep.Ignored++
			return nil
		}
		return err
	}

	r.transition(rep, ev, from, core.PhaseVisible, cause)
	r.present(desc, from)
	return nil
}

// present describes a marker that just became visible. One that was
// already visible takes the panel only when nothing else is described.
func (r *Reconciler) present(desc core.MarkerDescriptor, from core.Phase) {
	if r.presenter.IsCurrent(desc.Name) {
		return
	}
	if from == core.PhaseVisible {
		if _, ok := r.presenter.Current(); ok {
			return
		}
	}
	r.presenter.Present(desc)
}

func (r *Reconciler) hide(ev core.TrackingEvent, from core.Phase, rep *Report) error {
	if err := r.pool.Hide(ev.Marker); err != nil {
		return err
	}
	r.transition(rep, ev, from, core.PhaseHidden, CauseDegraded)
	return nil
}

// touch refreshes the last known state without a phase change.
func (r *Reconciler) touch(ev core.TrackingEvent) {
	e, _ := r.tracked.Get(ev.Marker)
	e.State = ev.State
	e.Pose = ev.Pose
	r.tracked.Set(ev.Marker, e)
}

func (r *Reconciler) transition(rep *Report, ev core.TrackingEvent, from, to core.Phase, cause string) {
	if from == to {
		r.touch(ev)
		return
	}
	now := r.now()
	r.tracked.Set(ev.Marker, cache.Entry{Phase: to, State: ev.State, Pose: ev.Pose, Since: now})

	t := core.Transition{Marker: ev.Marker, From: from, To: to, Cause: cause, Pose: ev.Pose, Time: now}
	rep.Transitions = append(rep.Transitions, t)
	r.transitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("to", string(to))))
	r.logger.Debug("marker transition", "marker", ev.Marker, "from", from, "to", to, "cause", cause)
	for _, o := range r.observers {
		o(t)
	}
}

// Reset empties the pool and dismisses the presenter between batches. Known
// markers become Detached so stale updates are ignored; with forget the
// bookkeeping is dropped entirely.
func (r *Reconciler) Reset(forget bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := r.pool.Reset()
	r.presenter.Dismiss()
	if forget {
		r.forget()
	} else {
		r.detach()
	}
	if err != nil {
		return fmt.Errorf("resetting content pool: %w", err)
	}
	return nil
}

// Detach marks every marker with an instance, or an evicted one, as Detached.
func (r *Reconciler) Detach() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.detach()
}

// Forget drops all tracking bookkeeping.
func (r *Reconciler) Forget() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forget()
}

func (r *Reconciler) detach() {
	snapshot := r.tracked.Snapshot()
	now := r.now()
	for _, name := range r.tracked.DetachAll(now) {
		e := snapshot[name]
		t := core.Transition{Marker: name, From: e.Phase, To: core.PhaseDetached, Cause: CauseReset, Pose: e.Pose, Time: now}
		r.transitions.Add(context.Background(), 1, metric.WithAttributes(attribute.String("to", string(core.PhaseDetached))))
		for _, o := range r.observers {
			o(t)
		}
	}
}

func (r *Reconciler) forget() {
	n := r.tracked.Len()
	r.tracked.Reset()
	r.logger.Debug("tracking bookkeeping cleared", "markers", n)
}
