package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/wanderlens/arsync/internal/config"
	"github.com/wanderlens/arsync/internal/logging"
	intOtel "github.com/wanderlens/arsync/internal/otel"
)

// sinks are the loggers of one CLI run and the resources behind them.
type sinks struct {
	slog   *logging.SlogManager
	logger *slog.Logger
	dbLog  zerolog.Logger
	otel   *intOtel.Provider

	logFile  string
	closers  []io.Closer
	shutdown func(context.Context) error
}

// setupLogging opens the session log file and builds the slog chain and the
// zerolog logger used by the storage components. current tags records with
// the active session ID.
func setupLogging(start time.Time, current func() string) (*sinks, error) {
	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating logs dir: %w", err)
	}

	s := &sinks{logFile: logging.LogFilePath(logsDir, appName, start)}
	if _, err := os.Stat(s.logFile); err == nil {
		_ = os.Rename(s.logFile, s.logFile+".old")
	}
	file, err := os.OpenFile(s.logFile, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}
	s.closers = append(s.closers, file)

	otelCfg := config.GetOTel()
	var otelOut io.Writer
	if otelCfg.Enabled {
		otelFile, err := os.Create(filepath.Join(logsDir, fmt.Sprintf("%s.%s.otel.jsonl", appName, start.Format("20060102_150405"))))
		if err != nil {
			s.close()
			return nil, fmt.Errorf("opening otel log file: %w", err)
		}
		s.closers = append(s.closers, otelFile)
		otelOut = otelFile
	}
	s.otel, err = intOtel.New(intOtel.FromSettings(otelCfg, Version, otelOut))
	if err != nil {
		s.close()
		return nil, fmt.Errorf("setting up otel: %w", err)
	}

	opts := logging.Options{
		File:     file,
		Level:    config.GetString("logLevel"),
		Provider: s.otel.LoggerProvider(),
		Context:  logging.SessionAttrs(current),
	}

	gl := config.GetGraylog()
	var graylogErr error
	if gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address)
		if err != nil {
			graylogErr = err
		} else {
			opts.Graylog = w
			s.closers = append(s.closers, w)
		}
	}

	s.slog = logging.NewSlogManager()
	s.slog.Setup(opts)
	s.logger = s.slog.Logger().With("app", appName)
	if graylogErr != nil {
		s.logger.Warn("graylog disabled", "error", graylogErr)
	}

	s.dbLog = zerolog.New(file).With().Timestamp().Str("component", "storage").Logger().
		Level(zerologLevel(opts.Level))

	s.shutdown = s.otel.Shutdown
	return s, nil
}

// close flushes OTel and closes the log files.
func (s *sinks) close() error {
	var errs []error
	if s.shutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		errs = append(errs, s.shutdown(ctx))
		cancel()
	}
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i].Close())
	}
	return errors.Join(errs...)
}

func zerologLevel(level string) zerolog.Level {
	switch logging.ParseLevel(level) {
	case slog.LevelDebug:
		return zerolog.DebugLevel
	case slog.LevelWarn:
		return zerolog.WarnLevel
	case slog.LevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
