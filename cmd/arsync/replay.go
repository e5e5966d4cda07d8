package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"
	"github.com/wanderlens/arsync/internal/api"
	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/internal/parser"
	"github.com/wanderlens/arsync/internal/session"
)

type replayOptions struct {
	storage     string
	realtime    bool
	grant       bool
	status      bool
	statusFile  string
	sample      time.Duration
	drainWithin time.Duration
}

var replayOpts replayOptions

var replayCmd = &cobra.Command{
	Use:   "replay <events.jsonl>",
	Short: "Feed a recorded host event file through the engine",
	Long: `Replays a JSON-lines event file (tracking batches, lifecycle callbacks,
panel toggles and user actions) against logging host fakes and journals the
session to the configured storage.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return runReplay(ctx, args[0], replayOpts, cmd.OutOrStdout())
	},
}

func init() {
	f := replayCmd.Flags()
	f.StringVar(&replayOpts.storage, "storage", "", "Override storage.type (memory, sqlite, postgres, influx, websocket)")
	f.BoolVar(&replayOpts.realtime, "realtime", false, "Honor record offsets instead of replaying as fast as possible")
	f.BoolVar(&replayOpts.grant, "grant", true, "Grant camera permission before the first record")
	f.BoolVar(&replayOpts.status, "status", false, "Print the final status report as JSON")
	f.StringVar(&replayOpts.statusFile, "status-file", "", "Rewrite this file with the text status every sample")
	f.DurationVar(&replayOpts.sample, "sample", time.Second, "Performance sample interval")
	f.DurationVar(&replayOpts.drainWithin, "drain-timeout", 30*time.Second, "Time allowed to drain the journal on exit")
	rootCmd.AddCommand(replayCmd)
}

func runReplay(ctx context.Context, path string, opts replayOptions, out io.Writer) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening replay: %w", err)
	}
	defer file.Close()

	markers, err := config.LoadMarkers(config.GetString("markersFile"))
	if err != nil {
		return err
	}

	start := time.Now()
	sessions := session.NewContext()
	logs, err := setupLogging(start, sessions.ID)
	if err != nil {
		return err
	}
	defer logs.close()
	logger := logs.logger

	storageCfg := config.GetStorage()
	if opts.storage != "" {
		storageCfg.Type = opts.storage
	}

	e, err := newEngine(engineConfig{
		Markers:        markers,
		Policy:         config.GetPolicy(),
		Platform:       config.GetString("platform"),
		Scene:          config.GetString("scene"),
		Storage:        storageCfg,
		Sessions:       sessions,
		Logger:         logger,
		DBLog:          logs.dbLog,
		SampleInterval: opts.sample,
		StatusFile:     opts.statusFile,
	})
	if err != nil {
		logger.Error("engine setup failed", "error", err)
		return err
	}
	logger.Info("replay started", "file", path, "storage", storageCfg.Type, "markers", len(markers))

	current, _ := sessions.Current()

	runCtx, cancel := context.WithCancel(ctx)
	e.run(runCtx)
	replayErr := replay(runCtx, e, file, opts, start)
	cancel()

	status, _ := e.monitor.Report()

	drainCtx, drainCancel := context.WithTimeout(context.Background(), opts.drainWithin)
	defer drainCancel()
	closeErr := e.close(drainCtx)

	if replayErr != nil {
		logger.Error("replay stopped", "error", replayErr)
	}
	if closeErr != nil {
		logger.Error("shutdown incomplete", "error", closeErr)
	}

	fmt.Fprintf(out, "replayed %s (log: %s)\n", path, logs.logFile)
	if f := e.exportedFile(); f != "" {
		fmt.Fprintf(out, "journal written to %s\n", f)
		if apiCfg := config.GetAPI(); apiCfg.Upload {
			meta := api.UploadMetadata{
				SessionID:       current.ID,
				Scene:           current.Scene,
				Platform:        current.Platform,
				DurationSeconds: time.Since(start).Seconds(),
			}
			if err := api.New(apiCfg.ServerURL, apiCfg.APIKey).Upload(drainCtx, f, meta); err != nil {
				logger.Warn("journal upload failed", "file", f, "error", err)
			} else {
				fmt.Fprintf(out, "journal uploaded to %s\n", apiCfg.ServerURL)
			}
		}
	}
	if opts.status && status != nil {
		fmt.Fprintln(out, string(status))
	}

	if replayErr != nil {
		return replayErr
	}
	return closeErr
}

func replay(ctx context.Context, e *engine, r io.Reader, opts replayOptions, start time.Time) error {
	if opts.grant {
		if err := e.grant(ctx, true); err != nil {
			return err
		}
	}

	p := parser.NewParser(e.logger.With("component", "parser"))
	return p.Scan(r, func(rec parser.Record) error {
		if opts.realtime {
			if wait := time.Until(start.Add(rec.At)); wait > 0 {
				select {
				case <-time.After(wait):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		return e.handle(ctx, rec)
	})
}
