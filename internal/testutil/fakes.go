// Package testutil provides in-memory fakes of the host ports for tests.
package testutil

import (
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/internal/content"
	"github.com/wanderlens/arsync/pkg/core"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// Host is a fake content.Instantiator that records the engine side state.
type Host struct {
	mu        sync.Mutex
	next      content.Handle
	alive     map[content.Handle]core.ContentRef
	visible   map[content.Handle]bool
	poses     map[content.Handle]core.Pose
	maxActive int

	// FailInstantiate makes Instantiate fail for the given content ID.
	FailInstantiate map[string]bool
	Instantiated    int
	Destroyed       int
}

// NewHost returns an empty fake host.
func NewHost() *Host {
	return &Host{
		alive:           make(map[content.Handle]core.ContentRef),
		visible:         make(map[content.Handle]bool),
		poses:           make(map[content.Handle]core.Pose),
		FailInstantiate: make(map[string]bool),
	}
}

func (h *Host) Instantiate(ref core.ContentRef, initial core.Pose) (content.Handle, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.FailInstantiate[ref.ID] {
		return 0, ErrInjected
	}
	h.next++
	h.alive[h.next] = ref
	h.poses[h.next] = initial
	h.Instantiated++
	return h.next, nil
}

func (h *Host) Destroy(handle content.Handle) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.alive[handle]; !ok {
		return content.ErrUnknownHandle
	}
	delete(h.alive, handle)
	delete(h.visible, handle)
	delete(h.poses, handle)
	h.Destroyed++
	return nil
}

func (h *Host) SetVisible(handle content.Handle, visible bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.alive[handle]; !ok {
		return content.ErrUnknownHandle
	}
	if visible {
		h.visible[handle] = true
	} else {
		delete(h.visible, handle)
	}
	if n := len(h.visible); n > h.maxActive {
		h.maxActive = n
	}
	return nil
}

func (h *Host) SetPose(handle content.Handle, pose core.Pose) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.alive[handle]; !ok {
		return content.ErrUnknownHandle
	}
	h.poses[handle] = pose
	return nil
}

// Alive returns the number of live instances.
func (h *Host) Alive() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.alive)
}

// VisibleContent returns the content IDs currently visible, sorted.
func (h *Host) VisibleContent() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	var ids []string
	for handle := range h.visible {
		ids = append(ids, h.alive[handle].ID)
	}
	sort.Strings(ids)
	return ids
}

// PoseOf returns the last pose applied to handle.
func (h *Host) PoseOf(handle content.Handle) core.Pose {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.poses[handle]
}

// MaxVisible is the highest number of simultaneously visible instances seen.
func (h *Host) MaxVisible() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.maxActive
}

// RequireAtMostOneVisible fails the test if two instances were ever visible
// at the same time.
func (h *Host) RequireAtMostOneVisible(t *testing.T) {
	t.Helper()
	require.LessOrEqual(t, h.MaxVisible(), 1, "more than one instance visible at once")
}

// Panel is a fake presenter.Panel.
type Panel struct {
	mu      sync.Mutex
	Shown   []core.MarkerDescriptor
	Open    bool
	Toggles []bool
	Clears  int
	// Fail makes every call return ErrMissingUI.
	Fail bool
}

func (p *Panel) ShowDetails(d core.MarkerDescriptor) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail {
		return core.ErrMissingUI
	}
	p.Shown = append(p.Shown, d)
	return nil
}

func (p *Panel) SetOpen(open bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail {
		return core.ErrMissingUI
	}
	p.Open = open
	p.Toggles = append(p.Toggles, open)
	return nil
}

func (p *Panel) Clear() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.Fail {
		return core.ErrMissingUI
	}
	p.Clears++
	p.Open = false
	return nil
}

// IsOpen reports the last open state applied.
func (p *Panel) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.Open
}

// LastTitle returns the title of the last descriptor shown, or "".
func (p *Panel) LastTitle() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.Shown) == 0 {
		return ""
	}
	return p.Shown[len(p.Shown)-1].Title
}

// Narrator is a fake presenter.Narrator.
type Narrator struct {
	mu      sync.Mutex
	playing string
	Plays   []string
	Stops   int
	// FailPlay makes Play return ErrInjected.
	FailPlay bool
}

func (n *Narrator) Play(a core.AudioRef) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.FailPlay {
		return ErrInjected
	}
	n.playing = a.ID
	n.Plays = append(n.Plays, a.ID)
	return nil
}

func (n *Narrator) Stop() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.playing = ""
	n.Stops++
	return nil
}

func (n *Narrator) IsPlaying() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.playing != ""
}

// Playing returns the ID of the clip playing, or "".
func (n *Narrator) Playing() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.playing
}

// PlayCount returns how many times playback was started.
func (n *Narrator) PlayCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Plays)
}

// Source is a fake tracking source that records enable toggles.
type Source struct {
	mu      sync.Mutex
	Enabled bool
	Calls   []bool
}

func (s *Source) SetEnabled(enabled bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Enabled = enabled
	s.Calls = append(s.Calls, enabled)
}

// History returns a copy of the recorded toggles.
func (s *Source) History() []bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]bool(nil), s.Calls...)
}

// Opener is a fake link opener.
type Opener struct {
	mu     sync.Mutex
	Opened []string
	Fail   bool
}

func (o *Opener) Open(uri string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.Fail {
		return ErrInjected
	}
	o.Opened = append(o.Opened, uri)
	return nil
}

// Sharer is a fake share sheet.
type Sharer struct {
	mu     sync.Mutex
	Shared []string
	Fail   bool
}

func (s *Sharer) Share(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return ErrInjected
	}
	s.Shared = append(s.Shared, text)
	return nil
}
