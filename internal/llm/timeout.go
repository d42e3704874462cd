package llm

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithTimeout runs fn on its own goroutine and waits at most d for it. On
// expiry fn's context is cancelled, its late result is discarded and the
// returned error wraps ErrTimeout. Cancellation of ctx itself returns ctx.Err().
func WithTimeout[T any](ctx context.Context, d time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	cctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()

	type result struct {
		v   T
		err error
	}
	// buffered so a late sender never blocks after we stop listening
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				ch <- result{err: fmt.Errorf("llm call panicked: %v", p)}
			}
		}()
		v, err := fn(cctx)
		ch <- result{v: v, err: err}
	}()

	select {
	case r := <-ch:
		if r.err != nil && errors.Is(cctx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
		}
		return r.v, r.err
	case <-cctx.Done():
		if err := ctx.Err(); err != nil && !errors.Is(err, context.DeadlineExceeded) {
			return zero, err
		}
		return zero, fmt.Errorf("%w after %s", ErrTimeout, d)
	}
}
