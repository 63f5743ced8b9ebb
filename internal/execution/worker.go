package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cts/internal/domain"
	"cts/internal/logging"
	"cts/internal/syncutil"
	"cts/internal/ui"

	"golang.org/x/sync/errgroup"
)

// Executor runs case queries and returns their results
type Executor interface {
	Execute(ctx context.Context, queries []string) ([]domain.CaseResult, time.Duration, error)
}

// PoolOptions configures a WorkerPool
type PoolOptions struct {
	Workers     int
	FailFast    bool          // Stop scheduling after the first failed case
	CaseTimeout time.Duration // Zero means no timeout
	Debug       bool          // Ask workers to keep debug messages
}

// WorkerPool manages a pool of workers for parallel case execution
type WorkerPool struct {
	opts      PoolOptions
	newWorker WorkerFactory
	progress  *ui.ProgressBar
	onResult  func(domain.CaseResult)
}

// NewWorkerPool creates a new WorkerPool
func NewWorkerPool(factory WorkerFactory, opts PoolOptions) *WorkerPool {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	return &WorkerPool{opts: opts, newWorker: factory}
}

// SetProgress sets the progress bar for the worker pool
func (wp *WorkerPool) SetProgress(progress *ui.ProgressBar) {
	wp.progress = progress
}

// OnResult registers a callback receiving each result as it completes.
// Calls never overlap and follow completion order.
func (wp *WorkerPool) OnResult(fn func(domain.CaseResult)) {
	wp.onResult = fn
}

type job struct {
	index int
	query string
}

// Execute runs every query on the pool's workers. Results are returned in
// query order; with fail-fast, cases not yet started after the first
// failure are left out.
func (wp *WorkerPool) Execute(ctx context.Context, queries []string) ([]domain.CaseResult, time.Duration, error) {
	if len(queries) == 0 {
		return nil, 0, nil
	}
	startTime := time.Now()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(runCtx)

	queue := make(chan job)
	g.Go(func() error {
		defer close(queue)
		for i, q := range queries {
			select {
			case <-gctx.Done():
				return nil
			case queue <- job{index: i, query: q}:
			}
		}
		return nil
	})

	var (
		deliver   syncutil.AsyncMutex
		slots     = make([]*domain.CaseResult, len(queries))
		completed int
		passed    int
		failed    int
		stopped   bool
	)

	for id := 1; id <= wp.opts.Workers; id++ {
		g.Go(func() error {
			w, err := wp.newWorker(id)
			if err != nil {
				return fmt.Errorf("start worker %d: %w", id, err)
			}
			defer func() {
				if w != nil {
					w.Close()
				}
			}()

			for j := range queue {
				result, timedOut := wp.runOne(gctx, w, id, j.query)
				if timedOut {
					// The worker may still be running the case. Drop it
					// without waiting and carry on with a fresh one.
					go w.Close()
					if w, err = wp.newWorker(id); err != nil {
						w = nil
						return fmt.Errorf("restart worker %d: %w", id, err)
					}
				}
				_ = deliver.With(context.Background(), func() error {
					if stopped {
						return nil
					}
					slots[j.index] = &result
					completed++
					if result.Status() == logging.StatusFailed {
						failed++
					} else {
						passed++
					}
					if wp.progress != nil {
						wp.progress.Update(completed, passed, failed)
					}
					if wp.onResult != nil {
						wp.onResult(result)
					}
					if wp.opts.FailFast && result.Status() == logging.StatusFailed {
						stopped = true
						cancel()
					}
					return nil
				})
			}
			return nil
		})
	}

	err := g.Wait()
	if wp.progress != nil {
		wp.progress.Finish()
	}

	results := make([]domain.CaseResult, 0, completed)
	for _, r := range slots {
		if r != nil {
			results = append(results, *r)
		}
	}
	if err == nil {
		err = ctx.Err()
	}
	return results, time.Since(startTime), err
}

// runOne runs query on w. timedOut reports that the case outlived
// CaseTimeout, leaving w in an unknown state.
func (wp *WorkerPool) runOne(ctx context.Context, w Worker, id int, query string) (result domain.CaseResult, timedOut bool) {
	caseCtx := ctx
	if wp.opts.CaseTimeout > 0 {
		var cancel context.CancelFunc
		caseCtx, cancel = context.WithTimeout(ctx, wp.opts.CaseTimeout)
		defer cancel()
	}

	start := time.Now()
	res, err := w.Run(caseCtx, query, wp.opts.Debug)
	result = domain.CaseResult{
		Query:    query,
		Result:   res,
		WorkerID: id,
		Duration: time.Since(start),
	}
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			timedOut = true
			err = fmt.Errorf("case timed out after %s", wp.opts.CaseTimeout)
		}
		result.Error = err.Error()
		if result.Result == nil {
			result.Result = logging.FailedResult(err)
		}
	}
	return result, timedOut
}
