package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogFilePath(t *testing.T) {
	start := time.Date(2026, 10, 14, 9, 5, 7, 0, time.UTC)

	tests := []struct {
		name    string
		logsDir string
		want    string
	}{
		{"basic path", "arsynclogs", filepath.Join("arsynclogs", "arsync.20261014_090507.log")},
		{"relative path with dot", "./arsynclogs", filepath.Join(".", "arsynclogs", "arsync.20261014_090507.log")},
		{"absolute path", filepath.Join("/var", "log"), filepath.Join("/var", "log", "arsync.20261014_090507.log")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, LogFilePath(tt.logsDir, "arsync", start))
		})
	}
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("WARNING"))
	assert.Equal(t, slog.LevelError, ParseLevel("Error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("bogus"))
}

func TestSetup_FileAndLevel(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info"})

	m.Logger().Debug("hidden debug")
	m.Logger().Info("visible info", "error", "boom")

	out := buf.String()
	assert.NotContains(t, out, "hidden debug")
	assert.Contains(t, out, "visible info")
	assert.Contains(t, out, "err=boom", "error key is renamed to err")
}

func TestSetup_GraylogReceivesJSON(t *testing.T) {
	var file, gray bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &file, Level: "info", Graylog: &gray})

	m.Logger().Info("to graylog", "marker", "mona_lisa")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(gray.Bytes(), &rec))
	assert.Equal(t, "to graylog", rec["msg"])
	assert.Equal(t, "mona_lisa", rec["marker"])
}

func TestSetup_ContextProviderAddsSession(t *testing.T) {
	var buf bytes.Buffer
	id := ""
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "info", Context: SessionAttrs(func() string { return id })})

	m.Logger().Info("before")
	id = "s-42"
	m.Logger().Info("after")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.NotContains(t, lines[0], "session=")
	assert.Contains(t, lines[1], "session=s-42")
}

func TestWriteLog_BeforeSetupIsNoop(t *testing.T) {
	m := NewSlogManager()
	m.WriteLog("test", "ignored", "INFO")

	var nilManager *SlogManager
	nilManager.WriteLog("test", "ignored", "INFO")
	assert.NotNil(t, nilManager.Logger())
}

func TestWriteLog_UsesComponent(t *testing.T) {
	var buf bytes.Buffer
	m := NewSlogManager()
	m.Setup(Options{File: &buf, Level: "debug"})

	m.WriteLog("reconciler", "batch done", "WARN")

	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "component=reconciler")
}

type failingHandler struct{ slog.Handler }

func (failingHandler) Enabled(context.Context, slog.Level) bool { return true }
func (failingHandler) Handle(context.Context, slog.Record) error {
	return errors.New("sink down")
}

func TestMultiHandler_ContinuesPastFailingSink(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(failingHandler{}, nil, slog.NewTextHandler(&buf, nil))

	err := h.Handle(context.Background(), slog.NewRecord(time.Now(), slog.LevelInfo, "still here", 0))

	require.Error(t, err)
	assert.Contains(t, buf.String(), "still here")
}

func TestMultiHandler_WithAttrsAndGroup(t *testing.T) {
	var buf bytes.Buffer
	h := NewMultiHandler(slog.NewTextHandler(&buf, nil))
	logger := slog.New(h).With("app", "arsync").WithGroup("pool")

	logger.Info("sized", "n", 2)

	assert.Contains(t, buf.String(), "app=arsync")
	assert.Contains(t, buf.String(), "pool.n=2")
}

func TestDispatcherLogger_Fields(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.DebugLevel))

	dl.Debug("handling event", "command", ":TRACK:", "events", 3, "dangling")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "debug", rec["level"])
	assert.Equal(t, "handling event", rec["message"])
	assert.Equal(t, ":TRACK:", rec["command"])
	assert.Equal(t, float64(3), rec["events"])
	assert.NotContains(t, rec, "dangling")
}

func TestDispatcherLogger_Levels(t *testing.T) {
	var buf bytes.Buffer
	dl := NewDispatcherLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	dl.Info("dropped")
	dl.Warn("kept warn")
	dl.Error("kept error", 7, "non-string key")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, "kept warn")
	assert.Contains(t, out, "kept error")
}
