package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rs/zerolog"
	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/internal/content"
	"github.com/wanderlens/arsync/internal/dispatcher"
	"github.com/wanderlens/arsync/internal/host"
	"github.com/wanderlens/arsync/internal/launcher"
	"github.com/wanderlens/arsync/internal/lifecycle"
	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/internal/monitor"
	"github.com/wanderlens/arsync/internal/parser"
	"github.com/wanderlens/arsync/internal/permission"
	"github.com/wanderlens/arsync/internal/presenter"
	"github.com/wanderlens/arsync/internal/reconciler"
	"github.com/wanderlens/arsync/internal/registry"
	"github.com/wanderlens/arsync/internal/session"
	"github.com/wanderlens/arsync/internal/storage"
	"github.com/wanderlens/arsync/internal/worker"
	"github.com/wanderlens/arsync/pkg/core"
)

// engineConfig is everything needed to assemble an engine.
type engineConfig struct {
	Markers  []core.MarkerDescriptor
	Policy   config.Policy
	Platform string
	Scene    string
	Storage  config.StorageConfig

	Sessions *session.Context
	Logger   *slog.Logger
	DBLog    zerolog.Logger

	SampleInterval time.Duration
	StatusFile     string
}

// engine is the wired object graph behind the CLI.
type engine struct {
	logger *slog.Logger

	registry   *registry.Registry
	pool       *content.Pool
	presenter  *presenter.Presenter
	reconciler *reconciler.Reconciler
	gate       *permission.Gate
	lifecycle  *lifecycle.Controller
	actions    *launcher.Actions
	source     *host.Source

	backend    storage.Backend
	dispatcher *dispatcher.Dispatcher
	worker     *worker.Manager
	monitor    *monitor.Service

	started chan error
}

func newEngine(cfg engineConfig) (*engine, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}
	if cfg.Sessions == nil {
		cfg.Sessions = session.NewContext()
	}
	logger := cfg.Logger

	reg, err := registry.New(cfg.Markers)
	if err != nil {
		return nil, fmt.Errorf("loading markers: %w", err)
	}

	backend, err := storage.NewBackend(cfg.Storage, storage.Dependencies{Logger: logger, DBLog: cfg.DBLog})
	if err != nil {
		return nil, fmt.Errorf("creating storage backend: %w", err)
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("initializing %s storage: %w", cfg.Storage.Type, err)
	}

	d, err := dispatcher.New(logging.NewDispatcherLogger(cfg.DBLog))
	if err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("creating dispatcher: %w", err)
	}
	wm := worker.NewManager(worker.Dependencies{
		Registry: reg,
		Sessions: cfg.Sessions,
		Logger:   logger.With("component", "worker"),
	}, backend)
	wm.RegisterHandlers(d)

	e := &engine{
		logger:     logger,
		registry:   reg,
		gate:       permission.NewGate(),
		source:     host.NewSource(logger.With("component", "source")),
		backend:    backend,
		dispatcher: d,
		worker:     wm,
		started:    make(chan error, 1),
	}

	e.pool = content.New(host.NewInstantiator(logger.With("component", "host")), reg, content.Options{
		SingleActive:   cfg.Policy.SingleActive,
		FollowRotation: cfg.Policy.FollowRotation(),
		UpOffset:       cfg.Policy.UpOffset,
	}, content.WithLogger(logger.With("component", "pool")))

	e.presenter = presenter.New(
		host.Panel{Logger: logger.With("component", "panel")},
		host.NewNarrator(logger.With("component", "narrator")),
		presenter.WithLogger(logger.With("component", "presenter")),
	)
	e.selectScene(cfg.Scene)

	e.reconciler, err = reconciler.New(reg, e.pool, e.presenter,
		reconciler.WithLogger(logger.With("component", "reconciler")),
		reconciler.WithObserver(wm.ObserveTransition),
	)
	if err != nil {
		e.abort()
		return nil, fmt.Errorf("creating reconciler: %w", err)
	}

	e.lifecycle = lifecycle.New(e.reconciler, e.source, e.gate,
		lifecycle.WithLogger(logger.With("component", "lifecycle")))

	l, err := launcher.ForPlatform(cfg.Platform,
		host.Opener{Logger: logger.With("component", "launcher")},
		host.Sharer{Logger: logger.With("component", "launcher")})
	if err != nil {
		e.abort()
		return nil, err
	}
	e.actions = launcher.NewActions(l, e.presenter,
		launcher.WithRecorder(wm.RecordAction),
		launcher.WithActionsLogger(logger.With("component", "actions")))

	e.monitor = monitor.NewService(monitor.Dependencies{
		Pool:       e.pool,
		Panel:      e.presenter,
		Sessions:   cfg.Sessions,
		Queues:     d,
		Writes:     wm,
		Logger:     logger.With("component", "monitor"),
		Sink:       wm.RecordPerformance,
		Interval:   cfg.SampleInterval,
		StatusFile: cfg.StatusFile,
	})

	s := session.New(cfg.Scene, cfg.Platform, Version, time.Now())
	if err := wm.StartSession(s, cfg.Markers); err != nil {
		e.abort()
		return nil, err
	}
	return e, nil
}

// selectScene describes the marker named by the scene selection before
// any tracking arrives. An unmatched selection is logged and left empty.
func (e *engine) selectScene(scene string) {
	if scene == "" {
		return
	}
	d, ok := e.registry.Select(scene)
	if !ok {
		e.logger.Error("no marker for selected scene", "scene", scene, "markers", e.registry.Names())
		return
	}
	e.presenter.Present(d)
	e.logger.Info("scene selected", "scene", scene, "marker", d.Name)
}

// run starts the lifecycle controller and the status monitor.
func (e *engine) run(ctx context.Context) {
	go func() { e.started <- e.lifecycle.Start(ctx) }()
	_ = e.monitor.Start()
}

// grant resolves the camera permission and waits for the controller to act
// on it. Only the first call has an effect.
func (e *engine) grant(ctx context.Context, granted bool) error {
	if !e.gate.Resolve(granted) {
		return nil
	}
	select {
	case err := <-e.started:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// handle applies one replay record.
func (e *engine) handle(ctx context.Context, rec parser.Record) error {
	switch rec.Kind {
	case parser.KindBatch:
		if !e.source.Enabled() {
			e.logger.Warn("tracking disabled, batch dropped", "line", rec.Line, "events", rec.Batch.Len())
			return nil
		}
		rep := e.reconciler.Process(ctx, rec.Batch)
		if err := rep.Err(); err != nil {
			e.logger.Warn("batch had failures", "line", rec.Line, "failed", rep.Failed, "error", err)
		}
		return nil
	case parser.KindFocus:
		return e.lifecycle.OnFocusGained(ctx)
	case parser.KindPause:
		return e.lifecycle.OnPauseResumed(ctx, rec.Paused)
	case parser.KindSessionState:
		return e.lifecycle.OnTrackingSessionStateChanged(ctx, rec.State)
	case parser.KindPermission:
		return e.grant(ctx, rec.Granted)
	case parser.KindPanel:
		e.presenter.TogglePanel(rec.Open)
		return nil
	case parser.KindAction:
		e.action(ctx, rec.Action)
		return nil
	default:
		return fmt.Errorf("unhandled record kind %q", rec.Kind)
	}
}

func (e *engine) action(ctx context.Context, kind core.ActionKind) {
	switch kind {
	case core.ActionOpenMap:
		e.actions.OpenMap(ctx)
	case core.ActionShare:
		e.actions.Share(ctx)
	case core.ActionOpenURL:
		e.actions.OpenWebsite(ctx)
	}
}

// close ends the session, drains the journal and releases the backend.
func (e *engine) close(ctx context.Context) error {
	e.monitor.Stop()

	var errs []error
	if err := e.worker.EndSession(ctx); err != nil {
		errs = append(errs, fmt.Errorf("ending session: %w", err))
	}
	if err := e.dispatcher.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := e.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("closing storage: %w", err))
	}
	return errors.Join(errs...)
}

// abort releases what newEngine built so far.
func (e *engine) abort() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = e.dispatcher.Close(ctx)
	_ = e.backend.Close()
}

// exportedFile returns the file written by the backend, if any.
func (e *engine) exportedFile() string {
	if ex, ok := e.backend.(storage.Exporter); ok {
		return ex.ExportedFilePath()
	}
	return ""
}
