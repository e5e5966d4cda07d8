// Package content owns the content instances spawned for tracked markers and
// enforces the single-active policy on constrained devices.
package content

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/wanderlens/arsync/internal/logging"
	"github.com/wanderlens/arsync/pkg/core"
)

// DefaultUpOffset lifts content above the marker plane along its up axis.
const DefaultUpOffset float32 = 0.1

// Handle identifies an instance inside the host engine.
type Handle uint64

// ErrUnknownHandle is returned by hosts asked to act on a destroyed handle.
var ErrUnknownHandle = errors.New("unknown content handle")

// Instantiator is the host engine side of content management.
// Instantiate must return an invisible instance.
type Instantiator interface {
	Instantiate(ref core.ContentRef, initial core.Pose) (Handle, error)
	Destroy(h Handle) error
	SetVisible(h Handle, visible bool) error
	SetPose(h Handle, pose core.Pose) error
}

// Resolver finds the descriptor for a marker. *registry.Registry satisfies it.
type Resolver interface {
	Lookup(name string) (core.MarkerDescriptor, bool)
}

// Options are the pool policy switches.
type Options struct {
	// SingleActive keeps at most one instance visible.
	SingleActive bool
	// FollowRotation takes the rotation from the tracking pose instead of
	// the content's default orientation.
	FollowRotation bool
	// UpOffset defaults to DefaultUpOffset when zero.
	UpOffset float32
}

// Instance is a spawned content object keyed by marker name.
type Instance struct {
	Marker  string
	Handle  Handle
	Content core.ContentRef
	Visible bool
	Pose    core.Pose
}

// Pool owns all content instances.
type Pool struct {
	mu        sync.RWMutex
	host      Instantiator
	resolver  Resolver
	opts      Options
	instances map[string]*Instance
	logger    *slog.Logger
}

// Option configures the Pool.
type Option func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) {
		p.logger = l
	}
}

// New creates an empty pool.
func New(host Instantiator, resolver Resolver, opts Options, options ...Option) *Pool {
	if opts.UpOffset == 0 {
		opts.UpOffset = DefaultUpOffset
	}
	p := &Pool{
		host:      host,
		resolver:  resolver,
		opts:      opts,
		instances: make(map[string]*Instance),
		logger:    logging.NewNop(),
	}
	for _, o := range options {
		o(p)
	}
	return p
}

// Place applies the pose-application rule: the position is lifted by the
// up offset along the marker's local up axis and the rotation is either the
// tracked one or the content's default.
func (p *Pool) Place(tracked core.Pose, ref core.ContentRef) core.Pose {
	pos := tracked.Position.Add(tracked.Up().Mul(p.opts.UpOffset))
	rot := DefaultRotation(ref)
	if p.opts.FollowRotation {
		rot = tracked.Rotation
	}
	return core.Pose{Position: pos, Rotation: rot}
}

// DefaultRotation returns the authored orientation of ref, identity if unset.
func DefaultRotation(ref core.ContentRef) mgl32.Quat {
	r := ref.DefaultRotation
	q := mgl32.Quat{W: r[0], V: mgl32.Vec3{r[1], r[2], r[3]}}
	if q.Len() == 0 {
		return mgl32.QuatIdent()
	}
	return q.Normalize()
}

// Show makes the content for marker visible at pose, creating it on first
// use. Under the single-active policy every other visible instance is hidden
// and destroyed before this one is shown; their markers are returned.
func (p *Pool) Show(marker string, pose core.Pose) (*Instance, []string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, ok := p.instances[marker]
	var ref core.ContentRef
	if ok {
		ref = inst.Content
	} else {
		desc, found := p.resolver.Lookup(marker)
		if !found {
			return nil, nil, fmt.Errorf("%w: %s", core.ErrUnknownMarker, marker)
		}
		if desc.Content.Empty() {
			return nil, nil, fmt.Errorf("%w: %s", core.ErrMissingContent, marker)
		}
		ref = desc.Content
	}
	placed := p.Place(pose, ref)

	var evicted []string
	if p.opts.SingleActive {
		evicted = p.evictOthers(marker)
	}

	if !ok {
		h, err := p.host.Instantiate(ref, placed)
		if err != nil {
			return nil, evicted, fmt.Errorf("instantiating %s for %s: %w", ref.ID, marker, err)
		}
		inst = &Instance{Marker: marker, Handle: h, Content: ref}
		p.instances[marker] = inst
		p.logger.Debug("content instantiated", "marker", marker, "content", ref.ID, "handle", h)
	} else if err := p.host.SetPose(inst.Handle, placed); err != nil {
		return nil, evicted, fmt.Errorf("posing %s: %w", marker, err)
	}
	inst.Pose = placed

	if !inst.Visible {
		if err := p.host.SetVisible(inst.Handle, true); err != nil {
			return nil, evicted, fmt.Errorf("showing %s: %w", marker, err)
		}
		inst.Visible = true
	}

	out := *inst
	return &out, evicted, nil
}

// evictOthers hides then destroys every visible instance except keep.
// Caller holds p.mu.
func (p *Pool) evictOthers(keep string) []string {
	var evicted []string
	for name, inst := range p.instances {
		if name == keep || !inst.Visible {
			continue
		}
		if err := p.destroy(inst); err != nil {
			p.logger.Warn("evicting content failed", "marker", name, "error", err)
		}
		delete(p.instances, name)
		evicted = append(evicted, name)
	}
	sort.Strings(evicted)
	if len(evicted) > 0 {
		p.logger.Debug("single-active eviction", "kept", keep, "evicted", evicted)
	}
	return evicted
}

// Update reapplies the pose without changing visibility.
func (p *Pool) Update(marker string, pose core.Pose) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, ok := p.instances[marker]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNoInstance, marker)
	}
	placed := p.Place(pose, inst.Content)
	if err := p.host.SetPose(inst.Handle, placed); err != nil {
		return fmt.Errorf("posing %s: %w", marker, err)
	}
	inst.Pose = placed
	return nil
}

// Hide makes the instance invisible but keeps it for a later Show.
func (p *Pool) Hide(marker string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, ok := p.instances[marker]
	if !ok {
		return fmt.Errorf("%w: %s", core.ErrNoInstance, marker)
	}
	if !inst.Visible {
		return nil
	}
	if err := p.host.SetVisible(inst.Handle, false); err != nil {
		return fmt.Errorf("hiding %s: %w", marker, err)
	}
	inst.Visible = false
	return nil
}

// Remove hides and destroys the instance. It reports whether one existed.
func (p *Pool) Remove(marker string) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	inst, ok := p.instances[marker]
	if !ok {
		return false, nil
	}
	delete(p.instances, marker)
	if err := p.destroy(inst); err != nil {
		return true, fmt.Errorf("removing %s: %w", marker, err)
	}
	return true, nil
}

// destroy hides a visible instance before destroying it.
func (p *Pool) destroy(inst *Instance) error {
	var errs []error
	if inst.Visible {
		if err := p.host.SetVisible(inst.Handle, false); err != nil {
			errs = append(errs, err)
		}
		inst.Visible = false
	}
	if err := p.host.Destroy(inst.Handle); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Reset destroys every instance unconditionally.
func (p *Pool) Reset() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for name, inst := range p.instances {
		if err := p.destroy(inst); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	n := len(p.instances)
	p.instances = make(map[string]*Instance)
	p.logger.Debug("content pool reset", "destroyed", n)
	return errors.Join(errs...)
}

// Get returns a copy of the instance for marker.
func (p *Pool) Get(marker string) (Instance, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	inst, ok := p.instances[marker]
	if !ok {
		return Instance{}, false
	}
	return *inst, true
}

// Has reports whether an instance exists for marker.
func (p *Pool) Has(marker string) bool {
	_, ok := p.Get(marker)
	return ok
}

// Visible returns the markers whose content is visible, sorted.
func (p *Pool) Visible() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var names []string
	for name, inst := range p.instances {
		if inst.Visible {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// Len returns the number of instances, visible or not.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.instances)
}

// Options returns the pool policy.
func (p *Pool) Options() Options {
	return p.opts
}
