// Package permission turns the host's camera permission result into a
// one-shot readiness notification.
package permission

import (
	"context"
	"sync"
)

// Gate resolves exactly once. Later calls to Resolve are ignored.
type Gate struct {
	once       sync.Once
	ready      chan struct{}
	mu         sync.RWMutex
	authorized bool
}

// NewGate returns an unresolved gate.
func NewGate() *Gate {
	return &Gate{ready: make(chan struct{})}
}

// Granted returns a gate already resolved as authorized.
func Granted() *Gate {
	g := NewGate()
	g.Resolve(true)
	return g
}

// Resolve records the permission result and releases waiters. It reports
// whether this call was the one that resolved the gate.
func (g *Gate) Resolve(granted bool) bool {
	resolved := false
	g.once.Do(func() {
		g.mu.Lock()
		g.authorized = granted
		g.mu.Unlock()
		close(g.ready)
		resolved = true
	})
	return resolved
}

// Authorized reports whether the camera may be used. False until resolved.
func (g *Gate) Authorized() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.authorized
}

// Ready is closed once the gate resolves.
func (g *Gate) Ready() <-chan struct{} {
	return g.ready
}

// Wait blocks until the gate resolves or ctx is done.
func (g *Gate) Wait(ctx context.Context) (bool, error) {
	select {
	case <-g.ready:
		return g.Authorized(), nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
