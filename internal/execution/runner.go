package execution

import (
	"context"
	"fmt"
	"time"

	"cts/internal/loader"
	"cts/internal/logging"
	"cts/internal/query"
)

// CaseLoader resolves a case query to exactly one case
type CaseLoader interface {
	LoadCase(ctx context.Context, q query.Query) (*loader.TestCase, error)
}

// Runner executes resolved test cases in the current process
type Runner struct {
	loader      CaseLoader
	caseTimeout time.Duration
}

// NewRunner creates a new Runner. A zero caseTimeout disables the deadline
// test bodies see through T.Context.
func NewRunner(l CaseLoader, caseTimeout time.Duration) *Runner {
	return &Runner{loader: l, caseTimeout: caseTimeout}
}

// RunCase runs tc, recording into logger. Failures of the test body,
// including panics, end up in the returned Result and never escape.
func (r *Runner) RunCase(ctx context.Context, tc *loader.TestCase, logger *logging.Logger) *logging.Result {
	if r.caseTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.caseTimeout)
		defer cancel()
	}

	rec, res := logger.Record(tc.Name())
	func() {
		defer func() {
			if p := recover(); p != nil {
				rec.Threw(fmt.Errorf("panic: %v", p))
				rec.Finish()
			}
		}()
		tc.Run(ctx, rec)
	}()
	return res
}

// RunQuery resolves text to exactly one case and runs it. Resolution
// errors wrap query.ErrBadQuery, loader.ErrNotFound or loader.ErrAmbiguous.
func (r *Runner) RunQuery(ctx context.Context, text string, logger *logging.Logger) (*logging.Result, error) {
	q, err := query.Parse(text)
	if err != nil {
		return nil, err
	}
	tc, err := r.loader.LoadCase(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.RunCase(ctx, tc, logger), nil
}

// Handle answers one protocol request. A query that does not resolve to
// exactly one case is answered with a failed result and an error, never
// with a success.
func (r *Runner) Handle(ctx context.Context, req Message) Message {
	resp := Message{Kind: KindResponse, Query: req.Query}
	res, err := r.RunQuery(ctx, req.Query, logging.NewLogger(req.Debug))
	if err != nil {
		err = fmt.Errorf("expected exactly one case for %q: %w", req.Query, err)
		resp.Result = logging.FailedResult(err)
		resp.Error = err.Error()
		return resp
	}
	resp.Result = res
	return resp
}
