package media

import (
	"context"
	"sync"
)

// memo is a single-assignment slot. The first caller computes the value
// while concurrent callers wait for it. A result caused by cancellation is
// not kept, so a later caller with a live context computes again.
type memo[T any] struct {
	mu      sync.Mutex
	pending chan struct{}
	set     bool
	val     T
	err     error
}

func (m *memo[T]) get(ctx context.Context, compute func() (T, error)) (T, error) {
	for {
		m.mu.Lock()
		if m.set {
			v, err := m.val, m.err
			m.mu.Unlock()
			return v, err
		}
		if wait := m.pending; wait != nil {
			m.mu.Unlock()
			select {
			case <-wait:
				continue
			case <-ctx.Done():
				var zero T
				return zero, ctx.Err()
			}
		}
		wait := make(chan struct{})
		m.pending = wait
		m.mu.Unlock()

		v, err := compute()

		m.mu.Lock()
		if !IsCanceled(err) {
			m.val, m.err, m.set = v, err, true
		}
		m.pending = nil
		m.mu.Unlock()
		close(wait)
		return v, err
	}
}

// peek returns the stored value without computing it. ok is false until
// a successful computation has been stored.
func (m *memo[T]) peek() (v T, ok bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.set || m.err != nil {
		return v, false
	}
	return m.val, true
}
