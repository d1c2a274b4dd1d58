package locks

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLockExcludes(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLock()

	ok, err := l.Acquire(ctx, "booking", time.Second)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = l.Acquire(ctx, "booking", 20*time.Millisecond)
	require.NoError(t, err)
	assert.False(t, ok, "second holder times out")

	ok, err = l.Acquire(ctx, "other", 0)
	require.NoError(t, err)
	assert.True(t, ok, "names are independent")

	require.NoError(t, l.Release(ctx, "booking"))
	ok, err = l.Acquire(ctx, "booking", 0)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestMemoryLockReleaseNotHeld(t *testing.T) {
	assert.Error(t, NewMemoryLock().Release(context.Background(), "booking"))
}

func TestMemoryLockCancelledWait(t *testing.T) {
	l := NewMemoryLock()
	ok, err := l.Acquire(context.Background(), "booking", 0)
	require.NoError(t, err)
	require.True(t, ok)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok, err = l.Acquire(ctx, "booking", time.Second)
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestMemoryLockMutualExclusion(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLock()

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := l.Acquire(ctx, "booking", 5*time.Second)
			if err != nil || !ok {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			_ = l.Release(ctx, "booking")
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), maxInside.Load())
}

func TestPollUntil(t *testing.T) {
	ctx := context.Background()

	calls := 0
	ok, err := pollUntil(ctx, time.Second, func(context.Context) (bool, error) {
		calls++
		return calls == 3, nil
	})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, calls)

	start := time.Now()
	ok, err = pollUntil(ctx, 30*time.Millisecond, func(context.Context) (bool, error) { return false, nil })
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Less(t, time.Since(start), time.Second)

	boom := assert.AnError
	_, err = pollUntil(ctx, time.Second, func(context.Context) (bool, error) { return false, boom })
	assert.ErrorIs(t, err, boom)
}

func TestPollUntilZeroTimeoutTriesOnce(t *testing.T) {
	calls := 0
	ok, err := pollUntil(context.Background(), 0, func(context.Context) (bool, error) {
		calls++
		return false, nil
	})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, calls)
}

func TestPollUntilStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	ok, err := pollUntil(ctx, 5*time.Second, func(context.Context) (bool, error) {
		calls++
		if calls == 2 {
			cancel()
		}
		return false, nil
	})
	assert.False(t, ok)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, calls)
}
