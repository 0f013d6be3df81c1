package media

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"
)

// Pool bounds CPU-bound image work (decode, resize, encode) so that large
// images cannot starve concurrent network-bound builds.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool returns a pool running at most workers jobs at once.
// workers <= 0 uses GOMAXPROCS.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(workers))}
}

// run executes fn on a pool slot. The caller stops waiting as soon as ctx
// is done; fn keeps its slot until it returns.
func run[T any](ctx context.Context, p *Pool, fn func() (T, error)) (T, error) {
	var zero T
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	type result struct {
		v   T
		err error
	}
	done := make(chan result, 1)
	go func() {
		defer p.sem.Release(1)
		v, err := fn()
		done <- result{v, err}
	}()

	select {
	case r := <-done:
		return r.v, r.err
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}
