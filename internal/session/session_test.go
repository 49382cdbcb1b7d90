package session

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matthewbaird/condexpr/internal/catalog"
	"github.com/matthewbaird/condexpr/internal/editor"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestManager(maxAge, idle time.Duration) (*Manager, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 5, 15, 9, 0, 0, 0, time.UTC)}
	factory := func(string) *editor.Editor {
		return editor.New(editor.Config{Catalog: catalog.NewRegistry()})
	}
	return NewManager(maxAge, idle, factory, WithClock(clock.Now)), clock
}

func TestManager_CreateAndGet(t *testing.T) {
	m, _ := newTestManager(time.Hour, 10*time.Minute)

	s := m.Create()
	require.NotNil(t, s.Editor)
	assert.Len(t, s.ID, 36)

	got := m.Get(s.ID)
	require.NotNil(t, got)
	assert.Same(t, s, got)
	assert.Nil(t, m.Get("missing"))

	other := m.Create()
	assert.NotEqual(t, s.ID, other.ID)
	assert.NotSame(t, s.Editor, other.Editor, "editors are per session")
	assert.Equal(t, 2, m.Len())
}

func TestManager_IdleExpiry(t *testing.T) {
	m, clock := newTestManager(time.Hour, 10*time.Minute)
	s := m.Create()

	clock.Advance(9 * time.Minute)
	require.NotNil(t, m.Get(s.ID), "activity resets the idle timer")

	clock.Advance(9 * time.Minute)
	require.NotNil(t, m.Get(s.ID))

	clock.Advance(11 * time.Minute)
	assert.Nil(t, m.Get(s.ID))
	assert.Equal(t, 0, m.Len())
}

func TestManager_MaxAge(t *testing.T) {
	m, clock := newTestManager(30*time.Minute, 0)
	s := m.Create()

	for i := 0; i < 3; i++ {
		clock.Advance(9 * time.Minute)
		require.NotNil(t, m.Get(s.ID))
	}
	clock.Advance(4 * time.Minute)
	assert.Nil(t, m.Get(s.ID))
}

func TestManager_Cleanup(t *testing.T) {
	m, clock := newTestManager(time.Hour, 10*time.Minute)
	stale := m.Create()
	clock.Advance(8 * time.Minute)
	fresh := m.Create()
	clock.Advance(5 * time.Minute)

	assert.Equal(t, 1, m.Cleanup())
	assert.Nil(t, m.Get(stale.ID))
	assert.NotNil(t, m.Get(fresh.ID))

	m.Remove(fresh.ID)
	assert.Equal(t, 0, m.Len())
}
