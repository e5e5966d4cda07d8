// Package host provides logging implementations of the host ports, used by
// the CLI to drive the engine without a renderer.
package host

import (
	"log/slog"
	"sync"

	"github.com/wanderlens/arsync/internal/content"
	"github.com/wanderlens/arsync/pkg/core"
)

// Instantiator logs content lifecycle calls and hands out sequential handles.
type Instantiator struct {
	mu     sync.Mutex
	logger *slog.Logger
	next   content.Handle
	alive  map[content.Handle]string
}

// NewInstantiator creates an Instantiator.
func NewInstantiator(logger *slog.Logger) *Instantiator {
	return &Instantiator{logger: logger, alive: make(map[content.Handle]string)}
}

func (h *Instantiator) Instantiate(ref core.ContentRef, initial core.Pose) (content.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.alive[h.next] = ref.ID
	h.logger.Info("content instantiated", "handle", h.next, "content", ref.ID, "position", initial.Position)
	return h.next, nil
}

func (h *Instantiator) Destroy(handle content.Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	id, ok := h.alive[handle]
	if !ok {
		return content.ErrUnknownHandle
	}
	delete(h.alive, handle)
	h.logger.Info("content destroyed", "handle", handle, "content", id)
	return nil
}

func (h *Instantiator) SetVisible(handle content.Handle, visible bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.alive[handle]; !ok {
		return content.ErrUnknownHandle
	}
	h.logger.Debug("content visibility", "handle", handle, "visible", visible)
	return nil
}

func (h *Instantiator) SetPose(handle content.Handle, pose core.Pose) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.alive[handle]; !ok {
		return content.ErrUnknownHandle
	}
	h.logger.Debug("content pose", "handle", handle, "position", pose.Position)
	return nil
}

// Alive returns the number of live handles.
func (h *Instantiator) Alive() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.alive)
}

// Panel logs info panel calls.
type Panel struct{ Logger *slog.Logger }

func (p Panel) ShowDetails(d core.MarkerDescriptor) error {
	p.Logger.Info("panel details", "marker", d.Name, "title", d.Title, "details", len(d.Details()))
	return nil
}

func (p Panel) SetOpen(open bool) error {
	p.Logger.Info("panel open", "open", open)
	return nil
}

func (p Panel) Clear() error {
	p.Logger.Info("panel cleared")
	return nil
}

// Narrator logs narration calls and tracks the playing clip.
type Narrator struct {
	mu      sync.Mutex
	logger  *slog.Logger
	playing string
}

// NewNarrator creates a Narrator.
func NewNarrator(logger *slog.Logger) *Narrator {
	return &Narrator{logger: logger}
}

func (n *Narrator) Play(a core.AudioRef) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = a.ID
	n.logger.Info("narration started", "audio", a.ID)
	return nil
}

func (n *Narrator) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.playing != "" {
		n.logger.Info("narration stopped", "audio", n.playing)
	}
	n.playing = ""
	return nil
}

func (n *Narrator) IsPlaying() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.playing != ""
}

// Source logs tracking enable/disable calls.
type Source struct {
	mu      sync.Mutex
	logger  *slog.Logger
	enabled bool
}

// NewSource creates a disabled Source.
func NewSource(logger *slog.Logger) *Source {
	return &Source{logger: logger}
}

func (s *Source) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = enabled
	s.logger.Info("tracking source", "enabled", enabled)
}

// Enabled reports the last state set.
func (s *Source) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// Opener logs URIs instead of opening them.
type Opener struct{ Logger *slog.Logger }

func (o Opener) Open(uri string) error {
	o.Logger.Info("open uri", "uri", uri)
	return nil
}

// Sharer logs share text instead of showing a share sheet.
type Sharer struct{ Logger *slog.Logger }

func (s Sharer) Share(text string) error {
	s.Logger.Info("share", "text", text)
	return nil
}
