package execution

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"cts/internal/domain"
	"cts/internal/loader"
	"cts/internal/logging"
	"cts/internal/params"
	"cts/internal/query"
	"cts/internal/registry"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const workerEnv = "CTS_TEST_WORKER"

// TestMain doubles as the `cts worker` subprocess for process isolation
// tests when workerEnv is set.
func TestMain(m *testing.M) {
	if os.Getenv(workerEnv) != "" {
		runner := NewRunner(newTestLoader(), 0)
		if err := Serve(context.Background(), os.Stdin, os.Stdout, runner, nil); err != nil {
			os.Exit(2)
		}
		os.Exit(0)
	}
	os.Exit(m.Run())
}

func newTestLoader() *loader.Loader {
	suite := &loader.Suite{
		Name: "demo",
		Modules: map[string]loader.Module{
			"basic": {Register: func(g *registry.Group) {
				g.Test("pass").Fn(func(*registry.T) error { return nil })
				g.Test("fail").Fn(func(t *registry.T) error {
					t.Expect(false, "always fails")
					return nil
				})
				g.Test("panics").Fn(func(*registry.T) error { panic("boom") })
				g.Test("opts").Params(params.Options("x", 1, 2, 3)).Fn(func(t *registry.T) error {
					t.Expect(t.Param("x").(int) != 2, "x is 2")
					return nil
				})
				g.Test("slow").Fn(func(t *registry.T) error {
					<-t.Context().Done()
					return t.Context().Err()
				})
				g.Test("hangs").Fn(func(*registry.T) error {
					time.Sleep(400 * time.Millisecond)
					return nil
				})
				g.Test("exits").Fn(func(*registry.T) error {
					// Only ever run in a worker subprocess.
					if os.Getenv(workerEnv) != "" {
						os.Exit(3)
					}
					return errors.New("exits only runs in a worker process")
				})
			}},
		},
	}
	return loader.New([]*loader.Suite{suite}, loader.Options{Source: loader.SourceTable})
}

func processConfig() ProcessConfig {
	return ProcessConfig{
		Path: os.Args[0],
		Env:  []string{workerEnv + "=1"},
	}
}

func TestRunner_Handle(t *testing.T) {
	runner := NewRunner(newTestLoader(), 0)
	ctx := context.Background()

	tests := []struct {
		name     string
		query    string
		status   logging.Status
		errorHas string
	}{
		{"pass", "demo:basic:pass:", logging.StatusPassed, ""},
		{"fail", "demo:basic:fail:", logging.StatusFailed, ""},
		{"panic", "demo:basic:panics:", logging.StatusFailed, ""},
		{"param case", "demo:basic:opts:x=2", logging.StatusFailed, ""},
		{"no match", "demo:basic:missing:", logging.StatusFailed, "no matching test cases"},
		{"several matches", "demo:basic:opts", logging.StatusFailed, "more than one case"},
		{"malformed", "demo::", logging.StatusFailed, "malformed query"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := runner.Handle(ctx, Message{Kind: KindRequest, Query: tt.query})
			assert.Equal(t, KindResponse, resp.Kind)
			assert.Equal(t, tt.query, resp.Query)
			require.NotNil(t, resp.Result)
			assert.Equal(t, tt.status, resp.Result.Status)
			if tt.errorHas == "" {
				assert.Empty(t, resp.Error)
				return
			}
			assert.Contains(t, resp.Error, "expected exactly one case")
			assert.Contains(t, resp.Error, tt.errorHas)
			assert.ErrorIs(t, responseError(resp), ErrWorkerAssertion)
		})
	}
}

func TestRunner_RunQuery_Errors(t *testing.T) {
	runner := NewRunner(newTestLoader(), 0)
	logger := logging.NewLogger(false)

	_, err := runner.RunQuery(context.Background(), "demo:basic:missing:", logger)
	assert.ErrorIs(t, err, loader.ErrNotFound)
	_, err = runner.RunQuery(context.Background(), "demo:basic:opts", logger)
	assert.ErrorIs(t, err, loader.ErrAmbiguous)
	_, err = runner.RunQuery(context.Background(), "", logger)
	assert.ErrorIs(t, err, query.ErrBadQuery)
	assert.Empty(t, logger.Results())
}

func TestRunner_CaseTimeout(t *testing.T) {
	runner := NewRunner(newTestLoader(), 20*time.Millisecond)
	res, err := runner.RunQuery(context.Background(), "demo:basic:slow:", logging.NewLogger(false))
	require.NoError(t, err)
	assert.Equal(t, logging.StatusFailed, res.Status)
}

func TestServe(t *testing.T) {
	var in bytes.Buffer
	enc := json.NewEncoder(&in)
	require.NoError(t, enc.Encode(Message{Kind: KindRequest, Query: "demo:basic:pass:"}))
	require.NoError(t, enc.Encode(Message{Kind: KindRequest, Query: "demo:basic:missing:"}))
	require.NoError(t, enc.Encode(Message{Kind: KindResponse, Query: "demo:basic:pass:"}))

	var out bytes.Buffer
	require.NoError(t, Serve(context.Background(), &in, &out, NewRunner(newTestLoader(), 0), nil))

	var responses []Message
	dec := json.NewDecoder(&out)
	for dec.More() {
		var msg Message
		require.NoError(t, dec.Decode(&msg))
		responses = append(responses, msg)
	}
	require.Len(t, responses, 3)
	assert.Equal(t, logging.StatusPassed, responses[0].Result.Status)
	assert.Empty(t, responses[0].Error)
	assert.Equal(t, logging.StatusFailed, responses[1].Result.Status)
	assert.NotEmpty(t, responses[1].Error)
	assert.Contains(t, responses[2].Error, "unexpected message kind")

	// One JSON document per line
	assert.Equal(t, 3, strings.Count(out.String(), "\n"))
}

func TestServe_MalformedInput(t *testing.T) {
	err := Serve(context.Background(), strings.NewReader("{not json\n"), &bytes.Buffer{}, NewRunner(newTestLoader(), 0), nil)
	assert.ErrorContains(t, err, "read request")
}

func TestParseIsolation(t *testing.T) {
	for _, s := range []string{"inline", "goroutine", "process"} {
		iso, err := ParseIsolation(s)
		require.NoError(t, err)
		assert.Equal(t, Isolation(s), iso)
	}
	iso, err := ParseIsolation("")
	require.NoError(t, err)
	assert.Equal(t, IsolationGoroutine, iso)
	_, err = ParseIsolation("thread")
	assert.Error(t, err)
}

func TestWorkers_RunCases(t *testing.T) {
	runner := NewRunner(newTestLoader(), 0)
	workers := map[string]func() Worker{
		"inline":    func() Worker { return NewInlineWorker(runner) },
		"goroutine": func() Worker { return NewLocalWorker(runner) },
		"process":   func() Worker { return NewProcessWorker(processConfig(), nil) },
	}
	for name, newWorker := range workers {
		t.Run(name, func(t *testing.T) {
			w := newWorker()
			ctx := context.Background()

			res, err := w.Run(ctx, "demo:basic:pass:", false)
			require.NoError(t, err)
			assert.Equal(t, logging.StatusPassed, res.Status)

			res, err = w.Run(ctx, "demo:basic:opts:x=2", false)
			require.NoError(t, err)
			assert.Equal(t, logging.StatusFailed, res.Status)
			require.NotEmpty(t, res.Logs)
			assert.Equal(t, "x is 2", res.Logs[0].Message)

			res, err = w.Run(ctx, "demo:basic:missing:", false)
			assert.ErrorIs(t, err, ErrWorkerAssertion)
			require.NotNil(t, res)
			assert.Equal(t, logging.StatusFailed, res.Status)

			require.NoError(t, w.Close())
			_, err = w.Run(ctx, "demo:basic:pass:", false)
			assert.ErrorIs(t, err, ErrWorkerClosed)
		})
	}
}

func TestLocalWorker_Concurrent(t *testing.T) {
	w := NewLocalWorker(NewRunner(newTestLoader(), 0))
	defer w.Close()

	queries := []string{"demo:basic:opts:x=1", "demo:basic:opts:x=2", "demo:basic:opts:x=3", "demo:basic:pass:"}
	statuses := make([]logging.Status, len(queries))
	var wg sync.WaitGroup
	for i, q := range queries {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := w.Run(context.Background(), q, false)
			if assert.NoError(t, err) {
				statuses[i] = res.Status
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, []logging.Status{
		logging.StatusPassed, logging.StatusFailed, logging.StatusPassed, logging.StatusPassed,
	}, statuses)
}

func TestProcessWorker_RestartsAfterExit(t *testing.T) {
	w := NewProcessWorker(processConfig(), nil)
	defer w.Close()

	_, err := w.Run(context.Background(), "demo:basic:exits:", false)
	assert.ErrorContains(t, err, "worker exited while running demo:basic:exits:")

	res, err := w.Run(context.Background(), "demo:basic:pass:", false)
	require.NoError(t, err)
	assert.Equal(t, logging.StatusPassed, res.Status)
}

func TestProcessWorker_KilledOnTimeout(t *testing.T) {
	w := NewProcessWorker(processConfig(), nil)
	defer w.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	_, err := w.Run(ctx, "demo:basic:slow:", false)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	res, err := w.Run(context.Background(), "demo:basic:pass:", false)
	require.NoError(t, err)
	assert.Equal(t, logging.StatusPassed, res.Status)
}

func newTestPool(t *testing.T, iso Isolation, opts PoolOptions) *WorkerPool {
	t.Helper()
	factory, err := NewWorkerFactory(iso, NewRunner(newTestLoader(), 0), processConfig(), nil)
	require.NoError(t, err)
	return NewWorkerPool(factory, opts)
}

func queriesOf(results []domain.CaseResult) []string {
	out := make([]string, len(results))
	for i, r := range results {
		out[i] = r.Query
	}
	return out
}

func TestWorkerPool_Execute(t *testing.T) {
	queries := []string{
		"demo:basic:opts:x=1",
		"demo:basic:fail:",
		"demo:basic:opts:x=2",
		"demo:basic:pass:",
		"demo:basic:panics:",
		"demo:basic:opts:x=3",
		"demo:basic:missing:",
	}
	for _, iso := range []Isolation{IsolationInline, IsolationGoroutine, IsolationProcess} {
		t.Run(string(iso), func(t *testing.T) {
			pool := newTestPool(t, iso, PoolOptions{Workers: 3})
			var seen []string
			pool.OnResult(func(r domain.CaseResult) { seen = append(seen, r.Query) })

			results, duration, err := pool.Execute(context.Background(), queries)
			require.NoError(t, err)
			assert.Positive(t, duration)

			// Results come back in query order whatever the completion order
			assert.Equal(t, queries, queriesOf(results))
			assert.ElementsMatch(t, queries, seen)

			counts := domain.Summarize(results)
			assert.Equal(t, 3, counts["pass"])
			assert.Equal(t, 4, counts["fail"])
			assert.Contains(t, results[6].Error, "expected exactly one case")
			for _, r := range results {
				assert.GreaterOrEqual(t, r.WorkerID, 1)
				assert.LessOrEqual(t, r.WorkerID, 3)
			}
		})
	}
}

func TestWorkerPool_FailFast(t *testing.T) {
	pool := newTestPool(t, IsolationInline, PoolOptions{Workers: 1, FailFast: true})
	results, _, err := pool.Execute(context.Background(), []string{
		"demo:basic:pass:",
		"demo:basic:fail:",
		"demo:basic:pass:",
		"demo:basic:opts:x=1",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"demo:basic:pass:", "demo:basic:fail:"}, queriesOf(results))
}

func TestWorkerPool_CaseTimeout(t *testing.T) {
	pool := newTestPool(t, IsolationGoroutine, PoolOptions{Workers: 1, CaseTimeout: 50 * time.Millisecond})
	results, _, err := pool.Execute(context.Background(), []string{"demo:basic:slow:"})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "case timed out after 50ms", results[0].Error)
	assert.Equal(t, logging.StatusFailed, results[0].Status())
}

func TestWorkerPool_CaseTimeoutReplacesWorker(t *testing.T) {
	pool := newTestPool(t, IsolationGoroutine, PoolOptions{Workers: 1, CaseTimeout: 100 * time.Millisecond})
	results, _, err := pool.Execute(context.Background(), []string{
		"demo:basic:hangs:",
		"demo:basic:pass:",
		"demo:basic:pass:",
	})
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, "case timed out after 100ms", results[0].Error)
	for _, r := range results[1:] {
		assert.Empty(t, r.Error)
		assert.Equal(t, logging.StatusPassed, r.Status())
	}
}

func TestWorkerPool_Cancelled(t *testing.T) {
	pool := newTestPool(t, IsolationInline, PoolOptions{Workers: 2})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := pool.Execute(ctx, []string{"demo:basic:pass:", "demo:basic:pass:"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWorkerPool_Empty(t *testing.T) {
	pool := newTestPool(t, IsolationInline, PoolOptions{})
	results, _, err := pool.Execute(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestShard(t *testing.T) {
	s := NewRoundRobinScheduler()
	queries := []string{"a", "b", "c", "d", "e"}

	tests := []struct {
		name     string
		index    int
		count    int
		expected []string
		wantErr  bool
	}{
		{"no sharding", 0, 0, queries, false},
		{"first of two", 0, 2, []string{"a", "c", "e"}, false},
		{"second of two", 1, 2, []string{"b", "d"}, false},
		{"more shards than queries", 4, 6, []string{"e"}, false},
		{"empty shard", 5, 6, []string{}, false},
		{"index out of range", 2, 2, nil, true},
		{"negative index", -1, 2, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Shard(s, queries, tt.index, tt.count)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}
