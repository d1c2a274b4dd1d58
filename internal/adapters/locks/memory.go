package locks

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLock is an in-process named lock. It only excludes holders that
// share the same MemoryLock value.
type MemoryLock struct {
	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewMemoryLock() *MemoryLock {
	return &MemoryLock{slots: make(map[string]chan struct{})}
}

func (l *MemoryLock) slot(name string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()

	ch, ok := l.slots[name]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[name] = ch
	}
	return ch
}

func (l *MemoryLock) Acquire(ctx context.Context, name string, timeout time.Duration) (bool, error) {
	ch := l.slot(name)

	select {
	case ch <- struct{}{}:
		return true, nil
	default:
	}
	if timeout <= 0 {
		return false, nil
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		return true, nil
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

func (l *MemoryLock) Release(_ context.Context, name string) error {
	select {
	case <-l.slot(name):
		return nil
	default:
		return fmt.Errorf("release lock %q: not held", name)
	}
}
