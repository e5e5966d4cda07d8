// Package session tracks the session the engine is currently journaling.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/wanderlens/arsync/pkg/core"
)

// New builds a session with a fresh random ID.
func New(scene, platform, version string, start time.Time) core.Session {
	return core.Session{
		ID:        uuid.NewString(),
		StartTime: start,
		Scene:     scene,
		Platform:  platform,
		Version:   version,
	}
}

// Context holds the current session.
type Context struct {
	mu      sync.RWMutex
	current *core.Session
}

// NewContext creates a Context with no session.
func NewContext() *Context {
	return &Context{}
}

// Start makes s the current session.
func (c *Context) Start(s core.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = &s
}

// End clears the current session and returns it.
func (c *Context) End() (core.Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return core.Session{}, false
	}
	s := *c.current
	c.current = nil
	return s, true
}

// Current returns the current session.
func (c *Context) Current() (core.Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return core.Session{}, false
	}
	return *c.current, true
}

// ID returns the current session ID, or "".
func (c *Context) ID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.current == nil {
		return ""
	}
	return c.current.ID
}
