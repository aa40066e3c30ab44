package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestGetOrComputeCachesUntilExpiry(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := New[[]string](time.Minute).WithClock(clock.Now)

	calls := 0
	compute := func() ([]string, error) {
		calls++
		return []string{"design", "seo"}, nil
	}

	first, err := c.GetOrCompute("tags", compute)
	require.NoError(t, err)
	second, err := c.GetOrCompute("tags", compute)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)

	clock.Advance(time.Minute)
	_, err = c.GetOrCompute("tags", compute)
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestGetOrComputeDoesNotCacheErrors(t *testing.T) {
	c := New[int](time.Minute)
	boom := errors.New("boom")

	_, err := c.GetOrCompute("k", func() (int, error) { return 0, boom })
	require.ErrorIs(t, err, boom)

	value, err := c.GetOrCompute("k", func() (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, value)
}

func TestInvalidateAndPurge(t *testing.T) {
	c := New[string](time.Hour)
	c.Set("a", "1")
	c.Set("b", "2")

	c.Invalidate("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)

	c.Purge()
	_, ok = c.Get("b")
	assert.False(t, ok)
}

func TestZeroTTLDisablesCaching(t *testing.T) {
	c := New[int](0)
	calls := 0
	for i := 0; i < 3; i++ {
		_, err := c.GetOrCompute("k", func() (int, error) {
			calls++
			return calls, nil
		})
		require.NoError(t, err)
	}
	assert.Equal(t, 3, calls)
}

func TestConcurrentMissesShareCompute(t *testing.T) {
	c := New[int](time.Minute)
	var calls int32
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			value, err := c.GetOrCompute("k", func() (int, error) {
				atomic.AddInt32(&calls, 1)
				<-release
				return 42, nil
			})
			assert.NoError(t, err)
			assert.Equal(t, 42, value)
		}()
	}

	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&calls), int32(8))
	value, ok := c.Get("k")
	assert.True(t, ok)
	assert.Equal(t, 42, value)
}
