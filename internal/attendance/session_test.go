package attendance

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 4, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func TestSessionManager_LateCountingRequiresOpenSession(t *testing.T) {
	sm := NewSessionManager(time.Hour, newFakeClock().Now)

	_, err := sm.StartLateCounting()
	assert.ErrorIs(t, err, ErrSessionNotOpen)

	_, ok := sm.Current()
	assert.False(t, ok)
}

func TestSessionManager_LateCountingIsIdempotent(t *testing.T) {
	clock := newFakeClock()
	sm := NewSessionManager(time.Hour, clock.Now)
	sm.Open(clock.Now(), "subuh")

	clock.Advance(10 * time.Minute)
	first, err := sm.StartLateCounting()
	require.NoError(t, err)
	require.NotNil(t, first.LateStartedAt)

	clock.Advance(3 * time.Minute)
	second, err := sm.StartLateCounting()
	require.NoError(t, err)

	assert.Equal(t, first.LateStartedAt.Add(3*time.Minute), *second.LateStartedAt)
	// snapshots are independent of later mutations
	assert.Equal(t, clock.Now().Add(-3*time.Minute), *first.LateStartedAt)
}

func TestSessionManager_OpenReplacesSession(t *testing.T) {
	clock := newFakeClock()
	sm := NewSessionManager(time.Hour, clock.Now)

	sm.Open(clock.Now(), "subuh")
	_, err := sm.StartLateCounting()
	require.NoError(t, err)

	clock.Advance(time.Minute)
	sm.Open(clock.Now(), "sore")

	current, ok := sm.Current()
	require.True(t, ok)
	assert.Equal(t, "sore", current.Period)
	assert.False(t, current.LateCounting())
	assert.Equal(t, clock.Now(), current.OpenedAt)
}

func TestSessionManager_Close(t *testing.T) {
	clock := newFakeClock()
	sm := NewSessionManager(time.Hour, clock.Now)
	sm.Open(clock.Now(), "malam")
	_, err := sm.StartLateCounting()
	require.NoError(t, err)

	sm.Close()

	_, ok := sm.Current()
	assert.False(t, ok)
	_, err = sm.StartLateCounting()
	assert.ErrorIs(t, err, ErrSessionNotOpen)

	// closing twice is fine
	sm.Close()
}

func TestSessionManager_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	sm := NewSessionManager(time.Hour, clock.Now)
	sm.Open(clock.Now(), "subuh")

	clock.Advance(59 * time.Minute)
	_, ok := sm.Current()
	assert.True(t, ok)

	// expiry is measured from opened-at, not from late counting
	_, err := sm.StartLateCounting()
	require.NoError(t, err)

	clock.Advance(time.Minute)
	_, ok = sm.Current()
	assert.False(t, ok)

	_, err = sm.StartLateCounting()
	assert.ErrorIs(t, err, ErrSessionNotOpen)
}

func TestSessionManager_DateIsTruncated(t *testing.T) {
	clock := newFakeClock()
	sm := NewSessionManager(time.Hour, clock.Now)

	s := sm.Open(time.Date(2024, 3, 5, 17, 45, 0, 0, time.UTC), "sore")
	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), s.Date)
}

func TestSessionManager_Concurrent(t *testing.T) {
	sm := NewSessionManager(time.Hour, nil)

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			switch i % 4 {
			case 0:
				sm.Open(time.Now(), "subuh")
			case 1:
				_, _ = sm.StartLateCounting()
			case 2:
				sm.Current()
			case 3:
				sm.Close()
			}
		}(i)
	}
	wg.Wait()
}
