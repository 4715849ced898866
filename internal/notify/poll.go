package notify

import (
	"context"
	"fmt"
	"time"
)

// Poll calls lookup every interval until it reports done, the attempts run out, or ctx ends.
// lookup must be a side-effect free point read so that repeated calls are safe
func Poll[T any](ctx context.Context, interval time.Duration, attempts int, lookup func(context.Context) (T, bool, error)) (T, error) {
	var last T

	if attempts <= 0 {
		attempts = 1
	}

	ticker := time.NewTicker(max(interval, time.Millisecond))
	defer ticker.Stop()

	for i := 0; i < attempts; i++ {
		value, done, err := lookup(ctx)
		if err != nil {
			return value, err
		}

		last = value

		if done {
			return value, nil
		}

		if i == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return last, ctx.Err()
		case <-ticker.C:
		}
	}

	return last, fmt.Errorf("%w after %d attempts", ErrPollExhausted, attempts)
}
