package locks

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	initialRetryInterval = 10 * time.Millisecond
	maxRetryInterval     = 250 * time.Millisecond
)

var errNotAcquired = errors.New("lock not acquired")

// pollUntil calls try until it reports true, fails, or timeout elapses. The
// wait between attempts grows exponentially up to maxRetryInterval and stops
// before it would pass the deadline. A timeout reports (false, nil).
func pollUntil(ctx context.Context, timeout time.Duration, try func(context.Context) (bool, error)) (bool, error) {
	attempt := func() (struct{}, error) {
		if err := ctx.Err(); err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		ok, err := try(ctx)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if !ok {
			return struct{}{}, errNotAcquired
		}
		return struct{}{}, nil
	}

	b := &backoff.ExponentialBackOff{
		InitialInterval:     initialRetryInterval,
		RandomizationFactor: 0.2,
		Multiplier:          2,
		MaxInterval:         maxRetryInterval,
	}
	b.Reset()

	opts := []backoff.RetryOption{
		backoff.WithBackOff(b),
		backoff.WithMaxElapsedTime(timeout),
	}
	if timeout <= 0 {
		opts = append(opts, backoff.WithMaxTries(1))
	}

	_, err := backoff.Retry(ctx, attempt, opts...)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errNotAcquired):
		return false, nil
	default:
		return false, err
	}
}
