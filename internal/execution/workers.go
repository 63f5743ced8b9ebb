package execution

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cts/internal/logging"

	"go.uber.org/zap"
)

// ErrWorkerClosed is returned by Run after Close
var ErrWorkerClosed = errors.New("worker is closed")

// Worker runs case queries one request at a time and answers with the
// case Result.
type Worker interface {
	Run(ctx context.Context, query string, debug bool) (*logging.Result, error)
	Close() error
}

// Isolation selects how a WorkerPool runs its cases
type Isolation string

const (
	// IsolationInline runs cases on the calling goroutine
	IsolationInline Isolation = "inline"
	// IsolationGoroutine runs each worker on its own goroutine
	IsolationGoroutine Isolation = "goroutine"
	// IsolationProcess runs each worker as a `cts worker` subprocess
	IsolationProcess Isolation = "process"
)

// ParseIsolation validates an isolation mode name
func ParseIsolation(s string) (Isolation, error) {
	switch iso := Isolation(s); iso {
	case IsolationInline, IsolationGoroutine, IsolationProcess:
		return iso, nil
	case "":
		return IsolationGoroutine, nil
	}
	return "", fmt.Errorf("unknown isolation %q (want inline, goroutine or process)", s)
}

// WorkerFactory starts the worker with the given 1-based id
type WorkerFactory func(id int) (Worker, error)

// NewWorkerFactory returns a factory for the given isolation mode. The
// process config is only used by IsolationProcess.
func NewWorkerFactory(iso Isolation, runner *Runner, proc ProcessConfig, log *zap.Logger) (WorkerFactory, error) {
	if log == nil {
		log = zap.NewNop()
	}
	switch iso {
	case IsolationInline:
		return func(int) (Worker, error) { return NewInlineWorker(runner), nil }, nil
	case IsolationGoroutine:
		return func(int) (Worker, error) { return NewLocalWorker(runner), nil }, nil
	case IsolationProcess:
		return func(id int) (Worker, error) {
			return NewProcessWorker(proc, log.With(zap.Int("worker", id))), nil
		}, nil
	}
	return nil, fmt.Errorf("unknown isolation %q", iso)
}

// InlineWorker runs cases directly on the caller's goroutine
type InlineWorker struct {
	runner *Runner

	mu     sync.Mutex
	closed bool
}

// NewInlineWorker creates a new InlineWorker
func NewInlineWorker(runner *Runner) *InlineWorker {
	return &InlineWorker{runner: runner}
}

// Run executes the case selected by query
func (w *InlineWorker) Run(ctx context.Context, query string, debug bool) (*logging.Result, error) {
	w.mu.Lock()
	closed := w.closed
	w.mu.Unlock()
	if closed {
		return nil, ErrWorkerClosed
	}
	resp := w.runner.Handle(ctx, Message{Kind: KindRequest, Query: query, Debug: debug})
	return resp.Result, responseError(resp)
}

// Close marks the worker closed
func (w *InlineWorker) Close() error {
	w.mu.Lock()
	w.closed = true
	w.mu.Unlock()
	return nil
}

// LocalWorker runs cases on a dedicated goroutine. Requests and responses
// travel over channels; responses are matched to callers by query string.
type LocalWorker struct {
	runner   *Runner
	requests chan Message
	quit     chan struct{}
	done     chan struct{}
	cancel   context.CancelFunc

	mu      sync.Mutex
	closed  bool
	pending map[string][]chan Message
}

// NewLocalWorker starts a LocalWorker
func NewLocalWorker(runner *Runner) *LocalWorker {
	ctx, cancel := context.WithCancel(context.Background())
	w := &LocalWorker{
		runner:   runner,
		requests: make(chan Message),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
		cancel:   cancel,
		pending:  make(map[string][]chan Message),
	}
	go w.loop(ctx)
	return w
}

func (w *LocalWorker) loop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-w.quit:
			return
		case req := <-w.requests:
			w.deliver(w.runner.Handle(ctx, req))
		}
	}
}

func (w *LocalWorker) deliver(resp Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	waiters := w.pending[resp.Query]
	if len(waiters) == 0 {
		// The caller gave up waiting.
		return
	}
	w.pending[resp.Query] = waiters[1:]
	if len(waiters) == 1 {
		delete(w.pending, resp.Query)
	}
	waiters[0] <- resp
}

// Run sends a request to the worker goroutine and waits for its response.
// Cancelling ctx abandons the response; the case itself runs to completion.
func (w *LocalWorker) Run(ctx context.Context, query string, debug bool) (*logging.Result, error) {
	reply := make(chan Message, 1)

	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil, ErrWorkerClosed
	}
	w.pending[query] = append(w.pending[query], reply)
	w.mu.Unlock()

	select {
	case w.requests <- Message{Kind: KindRequest, Query: query, Debug: debug}:
	case <-ctx.Done():
		w.forget(query, reply)
		return nil, ctx.Err()
	case <-w.quit:
		w.forget(query, reply)
		return nil, ErrWorkerClosed
	}

	select {
	case resp := <-reply:
		return resp.Result, responseError(resp)
	case <-ctx.Done():
		w.forget(query, reply)
		return nil, ctx.Err()
	case <-w.done:
		select {
		case resp := <-reply:
			return resp.Result, responseError(resp)
		default:
			return nil, ErrWorkerClosed
		}
	}
}

func (w *LocalWorker) forget(query string, reply chan Message) {
	w.mu.Lock()
	defer w.mu.Unlock()
	waiters := w.pending[query]
	for i, ch := range waiters {
		if ch == reply {
			w.pending[query] = append(waiters[:i:i], waiters[i+1:]...)
			break
		}
	}
	if len(w.pending[query]) == 0 {
		delete(w.pending, query)
	}
}

// Close stops the worker goroutine after its current case
func (w *LocalWorker) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.quit)
	w.cancel()
	<-w.done
	return nil
}
