package session

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_AssignsUUID(t *testing.T) {
	start := time.Unix(100, 0)
	a := New("tour", "android", "1.0.0", start)
	b := New("tour", "android", "1.0.0", start)

	_, err := uuid.Parse(a.ID)
	require.NoError(t, err)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "tour", a.Scene)
	assert.Equal(t, start, a.StartTime)
}

func TestContext_StartEnd(t *testing.T) {
	c := NewContext()
	assert.Empty(t, c.ID())
	_, ok := c.Current()
	assert.False(t, ok)

	s := New("tour", "web", "", time.Now())
	c.Start(s)
	assert.Equal(t, s.ID, c.ID())

	ended, ok := c.End()
	require.True(t, ok)
	assert.Equal(t, s.ID, ended.ID)
	assert.Empty(t, c.ID())

	_, ok = c.End()
	assert.False(t, ok)
}

func TestContext_ConcurrentAccess(t *testing.T) {
	c := NewContext()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			c.Start(New("tour", "web", "", time.Now()))
		}()
		go func() {
			defer wg.Done()
			_ = c.ID()
		}()
	}
	wg.Wait()
	assert.NotEmpty(t, c.ID())
}
