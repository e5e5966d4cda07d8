package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wanderlens/arsync/pkg/core"
)

func TestTrackingCache_SetAndGet(t *testing.T) {
	c := NewTrackingCache()

	c.Set("mona_lisa", Entry{Phase: core.PhaseVisible, State: core.TrackingFull})

	e, ok := c.Get("mona_lisa")
	require.True(t, ok)
	assert.Equal(t, core.PhaseVisible, e.Phase)
	assert.Equal(t, core.PhaseVisible, c.Phase("mona_lisa"))
	assert.Equal(t, 1, c.Len())
}

func TestTrackingCache_UnknownIsAbsent(t *testing.T) {
	c := NewTrackingCache()

	_, ok := c.Get("nonexistent")
	assert.False(t, ok)
	assert.Equal(t, core.PhaseAbsent, c.Phase("nonexistent"))
}

func TestTrackingCache_SetAbsentDeletes(t *testing.T) {
	c := NewTrackingCache()
	c.Set("a", Entry{Phase: core.PhaseHidden})

	c.Set("a", Entry{Phase: core.PhaseAbsent})

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestTrackingCache_DeleteNonExistent(t *testing.T) {
	c := NewTrackingCache()
	c.Delete("nonexistent")
	assert.Equal(t, 0, c.Len())
}

func TestTrackingCache_DetachAll(t *testing.T) {
	c := NewTrackingCache()
	c.Set("visible", Entry{Phase: core.PhaseVisible})
	c.Set("hidden", Entry{Phase: core.PhaseHidden})
	c.Set("pending", Entry{Phase: core.PhasePending})
	c.Set("evicted", Entry{Phase: core.PhaseEvicted})
	now := time.Date(2026, 10, 14, 12, 0, 0, 0, time.UTC)

	names := c.DetachAll(now)

	assert.Equal(t, []string{"evicted", "hidden", "visible"}, names)
	assert.Equal(t, core.PhaseDetached, c.Phase("evicted"))
	assert.Equal(t, core.PhaseDetached, c.Phase("visible"))
	assert.Equal(t, core.PhaseDetached, c.Phase("hidden"))
	assert.Equal(t, core.PhasePending, c.Phase("pending"))
	e, _ := c.Get("visible")
	assert.Equal(t, now, e.Since)
}

func TestTrackingCache_ResetAndSnapshot(t *testing.T) {
	c := NewTrackingCache()
	c.Set("a", Entry{Phase: core.PhaseVisible})
	c.Set("b", Entry{Phase: core.PhaseHidden})

	snap := c.Snapshot()
	c.Reset()

	assert.Equal(t, 0, c.Len())
	assert.Len(t, snap, 2, "snapshot is a copy")

	c.Set("c", Entry{Phase: core.PhaseVisible})
	assert.Equal(t, 1, c.Len())
}

func TestTrackingCache_ConcurrentReadWrite(t *testing.T) {
	c := NewTrackingCache()
	var wg sync.WaitGroup

	for i := 0; i < 100; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			c.Set("marker", Entry{Phase: core.PhaseVisible})
		}()
		go func() {
			defer wg.Done()
			c.Get("marker")
		}()
		go func() {
			defer wg.Done()
			c.Delete("marker")
		}()
	}
	wg.Wait()
}
