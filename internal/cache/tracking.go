// Package cache holds the reconciler's per-marker tracking bookkeeping.
package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/wanderlens/arsync/pkg/core"
)

// Entry is what the reconciler remembers about one tracked marker.
type Entry struct {
	Phase core.Phase
	State core.TrackingState
	Pose  core.Pose
	Since time.Time
}

// TrackingCache maps marker names to their last known tracking entry.
type TrackingCache struct {
	mu      sync.RWMutex
	entries map[string]Entry
}

// NewTrackingCache creates an empty cache.
func NewTrackingCache() *TrackingCache {
	return &TrackingCache{entries: make(map[string]Entry)}
}

// Get returns the entry for name.
func (c *TrackingCache) Get(name string) (Entry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[name]
	return e, ok
}

// Phase returns the phase for name, PhaseAbsent when untracked.
func (c *TrackingCache) Phase(name string) core.Phase {
	if e, ok := c.Get(name); ok {
		return e.Phase
	}
	return core.PhaseAbsent
}

// Set stores the entry for name. Storing PhaseAbsent deletes it.
func (c *TrackingCache) Set(name string, e Entry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e.Phase == core.PhaseAbsent {
		delete(c.entries, name)
		return
	}
	c.entries[name] = e
}

// Delete removes name from the cache.
func (c *TrackingCache) Delete(name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, name)
}

// DetachAll moves every entry that owned content, or lost it to eviction,
// to PhaseDetached and returns the affected names in sorted order.
func (c *TrackingCache) DetachAll(now time.Time) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	var names []string
	for name, e := range c.entries {
		if !e.Phase.HasInstance() && e.Phase != core.PhaseEvicted {
			continue
		}
		e.Phase = core.PhaseDetached
		e.Since = now
		c.entries[name] = e
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset clears all entries.
func (c *TrackingCache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]Entry)
}

// Len returns the number of tracked markers.
func (c *TrackingCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of all entries.
func (c *TrackingCache) Snapshot() map[string]Entry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]Entry, len(c.entries))
	for k, v := range c.entries {
		out[k] = v
	}
	return out
}
