package host

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/internal/content"
	"github.com/wanderlens/arsync/pkg/core"
)

func newLogger(buf *bytes.Buffer) *slog.Logger {
	return slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestInstantiator(t *testing.T) {
	var buf bytes.Buffer
	h := NewInstantiator(newLogger(&buf))

	handle, err := h.Instantiate(core.ContentRef{ID: "lake-model"}, core.IdentityPose())
	require.NoError(t, err)
	assert.Equal(t, 1, h.Alive())

	require.NoError(t, h.SetVisible(handle, true))
	require.NoError(t, h.SetPose(handle, core.IdentityPose()))
	require.NoError(t, h.Destroy(handle))
	assert.Zero(t, h.Alive())

	assert.ErrorIs(t, h.Destroy(handle), content.ErrUnknownHandle)
	assert.ErrorIs(t, h.SetVisible(handle, false), content.ErrUnknownHandle)
	assert.ErrorIs(t, h.SetPose(handle, core.IdentityPose()), content.ErrUnknownHandle)
	assert.Contains(t, buf.String(), "content=lake-model")
}

func TestNarrator(t *testing.T) {
	var buf bytes.Buffer
	n := NewNarrator(newLogger(&buf))

	assert.False(t, n.IsPlaying())
	require.NoError(t, n.Play(core.AudioRef{ID: "intro"}))
	assert.True(t, n.IsPlaying())
	require.NoError(t, n.Stop())
	assert.False(t, n.IsPlaying())
	assert.Contains(t, buf.String(), "narration stopped")
}

func TestSource(t *testing.T) {
	var buf bytes.Buffer
	s := NewSource(newLogger(&buf))

	assert.False(t, s.Enabled())
	s.SetEnabled(true)
	assert.True(t, s.Enabled())
}

func TestPanelOpenerSharer(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf)

	p := Panel{Logger: logger}
	require.NoError(t, p.ShowDetails(core.MarkerDescriptor{Name: "lake", Title: "Crater Lake"}))
	require.NoError(t, p.SetOpen(true))
	require.NoError(t, p.Clear())

	require.NoError(t, Opener{Logger: logger}.Open("https://example.com"))
	require.NoError(t, Sharer{Logger: logger}.Share("Crater Lake"))

	out := buf.String()
	assert.Contains(t, out, `title="Crater Lake"`)
	assert.Contains(t, out, "uri=https://example.com")
}
