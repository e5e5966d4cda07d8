// Package presenter owns the single info panel and the narration player.
package presenter

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/pkg/core"
)

// Panel is the host UI that displays marker details.
type Panel interface {
	ShowDetails(d core.MarkerDescriptor) error
	SetOpen(open bool) error
	Clear() error
}

// Narrator plays narration clips.
type Narrator interface {
	Play(a core.AudioRef) error
	Stop() error
	IsPlaying() bool
}

// Presenter drives the panel and narrator from visibility transitions.
type Presenter struct {
	mu       sync.Mutex
	panel    Panel
	narrator Narrator
	logger   *slog.Logger

	state     core.PanelState
	current   core.MarkerDescriptor
	presented string // last marker whose narration was started
}

// Option configures the Presenter.
type Option func(*Presenter)

// WithLogger sets the presenter logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Presenter) {
		p.logger = l
	}
}

// New creates a presenter. A nil panel or narrator is allowed; the
// corresponding output is skipped and reported in the log.
func New(panel Panel, narrator Narrator, opts ...Option) *Presenter {
	p := &Presenter{
		panel:    panel,
		narrator: narrator,
		logger:   logging.NewNop(),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

// Present makes d the described marker. The panel opens unless the user
// pinned it for this same marker. Narration restarts only when d differs
// from the marker presented before.
func (p *Presenter) Present(d core.MarkerDescriptor) {
	p.mu.Lock()
	defer p.mu.Unlock()

	same := p.state.CurrentMarker == d.Name
	p.state.CurrentMarker = d.Name
	p.current = d

	p.panelCall("show details", func(panel Panel) error { return panel.ShowDetails(d) })

	if !same || !p.state.Pinned {
		p.state.Pinned = false
		if !p.state.Open || !same {
			p.state.Open = true
			p.panelCall("open", func(panel Panel) error { return panel.SetOpen(true) })
		}
	}

	if d.Name != p.presented {
		p.presented = d.Name
		p.restartNarration(d)
	}
}

func (p *Presenter) restartNarration(d core.MarkerDescriptor) {
	if p.narrator == nil {
		p.logger.Warn("narration skipped", "marker", d.Name, "error", fmt.Errorf("%w: narrator", core.ErrMissingUI))
		return
	}
	if p.narrator.IsPlaying() {
		if err := p.narrator.Stop(); err != nil {
			p.logger.Warn("stopping narration failed", "error", err)
		}
	}
	if d.Audio == nil {
		return
	}
	if err := p.narrator.Play(*d.Audio); err != nil {
		p.logger.Warn("starting narration failed", "marker", d.Name, "audio", d.Audio.ID, "error", err)
	}
}

// Dismiss clears the described marker, closes the panel and stops audio.
func (p *Presenter) Dismiss() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state.CurrentMarker != "" {
		p.logger.Debug("dismissing panel", "marker", p.state.CurrentMarker)
	}
	p.state = core.PanelState{}
	p.current = core.MarkerDescriptor{}
	p.presented = ""

	p.panelCall("clear", func(panel Panel) error { return panel.Clear() })
	if p.narrator != nil {
		if err := p.narrator.Stop(); err != nil {
			p.logger.Warn("stopping narration failed", "error", err)
		}
	}
}

// TogglePanel applies a user open/close action. It pins the choice for the
// current marker and leaves narration alone.
func (p *Presenter) TogglePanel(open bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.state.Open = open
	p.state.Pinned = true
	p.panelCall("toggle", func(panel Panel) error { return panel.SetOpen(open) })
}

// State returns a copy of the panel state.
func (p *Presenter) State() core.PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Current returns the descriptor being described, if any.
func (p *Presenter) Current() (core.MarkerDescriptor, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state.CurrentMarker == "" {
		return core.MarkerDescriptor{}, false
	}
	return p.current, true
}

// IsCurrent reports whether marker is the described one.
func (p *Presenter) IsCurrent(marker string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return marker != "" && p.state.CurrentMarker == marker
}

// panelCall runs fn against the panel and logs instead of failing.
// Caller holds p.mu.
func (p *Presenter) panelCall(op string, fn func(Panel) error) {
	if p.panel == nil {
		p.logger.Warn("panel "+op+" skipped", "error", fmt.Errorf("%w: panel", core.ErrMissingUI))
		return
	}
	if err := fn(p.panel); err != nil {
		p.logger.Warn("panel "+op+" failed", "marker", p.state.CurrentMarker, "error", err)
	}
}
