package resilience

import (
	"context"
	"fmt"
	"time"
)

// Call runs fn under a deadline and returns its result. A non-positive
// timeout only inherits ctx. When the deadline passes first the returned
// error wraps context.DeadlineExceeded; fn is expected to notice ctx and
// return on its own.
func Call[T any](ctx context.Context, timeout time.Duration, op string, fn func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		v, err := fn(ctx)
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		var zero T
		return zero, fmt.Errorf("%s after %v: %w", op, timeout, ctx.Err())
	}
}
