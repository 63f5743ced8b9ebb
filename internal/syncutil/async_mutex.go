package syncutil

import (
	"context"
	"sync"
)

// AsyncMutex serializes operations in submission order. It keeps only the
// completion channel of the newest submitted operation; each new operation
// waits on its predecessor's channel, so the waiters form an implicit queue.
type AsyncMutex struct {
	mu     sync.Mutex
	newest chan struct{}
}

// With waits for every previously submitted operation, then runs fn.
// If ctx is cancelled while waiting, fn is skipped and ctx.Err() is returned;
// later operations still wait for the ones submitted before the cancelled one.
func (m *AsyncMutex) With(ctx context.Context, fn func() error) error {
	done := make(chan struct{})

	m.mu.Lock()
	prev := m.newest
	m.newest = done
	m.mu.Unlock()

	if prev != nil {
		select {
		case <-prev:
		case <-ctx.Done():
			go func() {
				<-prev
				m.release(done)
			}()
			return ctx.Err()
		}
	}
	defer m.release(done)
	return fn()
}

func (m *AsyncMutex) release(done chan struct{}) {
	m.mu.Lock()
	if m.newest == done {
		m.newest = nil
	}
	m.mu.Unlock()
	close(done)
}

// With runs fn under m and returns its value.
func With[T any](ctx context.Context, m *AsyncMutex, fn func() (T, error)) (T, error) {
	var out T
	err := m.With(ctx, func() error {
		v, err := fn()
		out = v
		return err
	})
	return out, err
}
