package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"cts/internal/logging"

	"go.uber.org/zap"
)

// MessageKind tags a worker protocol message
type MessageKind string

const (
	KindRequest  MessageKind = "request"
	KindResponse MessageKind = "response"
)

// Message is one newline-delimited JSON line of the worker protocol.
// Requests carry Query and Debug; responses echo Query and carry Result,
// plus Error when the worker could not run exactly one case.
type Message struct {
	Kind   MessageKind     `json:"kind"`
	Query  string          `json:"query"`
	Debug  bool            `json:"debug,omitempty"`
	Result *logging.Result `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// ErrWorkerAssertion is returned to the host when a worker rejected a
// request, e.g. because its query did not select exactly one case.
var ErrWorkerAssertion = errors.New("worker assertion failed")

func newEncoder(w io.Writer) *json.Encoder {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc
}

// responseError converts a response into the error the host reports.
func responseError(msg Message) error {
	if msg.Error == "" {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrWorkerAssertion, msg.Error)
}

// Serve is the worker side of the protocol: it reads requests from r, runs
// each against runner and writes one response per request to w. It returns
// nil when r is exhausted.
func Serve(ctx context.Context, r io.Reader, w io.Writer, runner *Runner, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	dec := json.NewDecoder(r)
	enc := newEncoder(w)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		var req Message
		if err := dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("input closed, worker exiting")
				return nil
			}
			return fmt.Errorf("read request: %w", err)
		}

		var resp Message
		if req.Kind != KindRequest {
			log.Warn("unexpected message", zap.String("kind", string(req.Kind)), zap.String("query", req.Query))
			resp = Message{
				Kind:   KindResponse,
				Query:  req.Query,
				Result: logging.FailedResult(fmt.Errorf("unexpected message kind %q", req.Kind)),
				Error:  fmt.Sprintf("unexpected message kind %q", req.Kind),
			}
		} else {
			log.Debug("running case", zap.String("query", req.Query), zap.Bool("debug", req.Debug))
			resp = runner.Handle(ctx, req)
			log.Debug("case finished",
				zap.String("query", req.Query),
				zap.String("status", string(resp.Result.Status)),
				zap.Float64("timems", resp.Result.TimeMS))
		}

		if err := enc.Encode(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}
	}
}
