package ports

import (
	"context"
	"time"
)

// Port: a named mutual-exclusion lock shared by every booking writer.
type NamedLock interface {
	// Acquire waits up to timeout for the lock. It reports false (and no error)
	// when the wait timed out.
	Acquire(ctx context.Context, name string, timeout time.Duration) (bool, error)
	// Release gives up a lock previously acquired by this holder.
	Release(ctx context.Context, name string) error
}
