package unittests

import (
	"context"
	"sync"
	"time"

	"cts/internal/params"
	"cts/internal/registry"
	"cts/internal/syncutil"
)

const asyncMutexDescription = `AsyncMutex runs operations one at a time in submission order.`

func registerAsyncMutex(g *registry.Group) {
	g.Test("order").
		Desc("operations run in the order they were submitted").
		Params(params.Options("n", 1, 5, 20)).
		Fn(func(t *registry.T) error {
			n := t.Param("n").(int)
			var (
				m       syncutil.AsyncMutex
				wg      sync.WaitGroup
				order   []int
				started = make(chan struct{})
			)
			// Submit in order; each goroutine enters the queue before the next starts.
			for i := 0; i < n; i++ {
				wg.Add(1)
				entered := make(chan struct{})
				go func() {
					defer wg.Done()
					_ = m.With(context.Background(), func() error {
						close(entered)
						<-started
						order = append(order, i)
						return nil
					})
				}()
				if i == 0 {
					<-entered
				} else {
					time.Sleep(2 * time.Millisecond)
				}
			}
			close(started)
			wg.Wait()

			for i, v := range order {
				if !t.Expect(v == i, "operation %d ran at position %d", v, i) {
					break
				}
			}
			return nil
		})

	g.Test("exclusive").Fn(func(t *registry.T) error {
		var (
			m       syncutil.AsyncMutex
			wg      sync.WaitGroup
			running int
			maxSeen int
			stats   sync.Mutex
		)
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = m.With(context.Background(), func() error {
					stats.Lock()
					running++
					maxSeen = max(maxSeen, running)
					stats.Unlock()
					time.Sleep(100 * time.Microsecond)
					stats.Lock()
					running--
					stats.Unlock()
					return nil
				})
			}()
		}
		wg.Wait()
		t.Expect(maxSeen == 1, "%d operations overlapped", maxSeen)
		return nil
	})

	g.Test("cancelled_wait").
		Desc("a cancelled waiter is skipped without breaking the queue").
		Fn(func(t *registry.T) error {
			var m syncutil.AsyncMutex
			release := make(chan struct{})
			holding := make(chan struct{})
			go func() {
				_ = m.With(context.Background(), func() error {
					close(holding)
					<-release
					return nil
				})
			}()
			<-holding

			ctx, cancel := context.WithCancel(t.Context())
			cancel()
			ran := false
			err := m.With(ctx, func() error {
				ran = true
				return nil
			})
			t.Expect(err == context.Canceled, "cancelled waiter returned %v", err)
			t.Expect(!ran, "cancelled operation ran")

			close(release)
			v, err := syncutil.With(t.Context(), &m, func() (int, error) { return 7, nil })
			if err != nil {
				return err
			}
			t.Expect(v == 7, "With returned %d", v)
			return nil
		})
}
