package execution

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"cts/internal/logging"

	"go.uber.org/zap"
)

// ProcessConfig describes how to start a worker subprocess
type ProcessConfig struct {
	Path   string   // Executable, normally the running cts binary
	Args   []string // Arguments selecting the worker command
	Dir    string
	Env    []string // Appended to the current environment
	Stderr io.Writer
}

// ProcessWorker runs cases in a `cts worker` subprocess speaking the
// NDJSON protocol over stdin and stdout. A request that times out or is
// cancelled kills the subprocess; the next request starts a fresh one.
type ProcessWorker struct {
	cfg ProcessConfig
	log *zap.Logger

	mu     sync.Mutex
	closed bool
	proc   *workerProcess
}

type workerProcess struct {
	cmd    *exec.Cmd
	cancel context.CancelFunc
	stdin  io.WriteCloser
	enc    *json.Encoder
	dec    *json.Decoder
}

type reply struct {
	msg Message
	err error
}

// NewProcessWorker creates a ProcessWorker; the subprocess starts lazily
func NewProcessWorker(cfg ProcessConfig, log *zap.Logger) *ProcessWorker {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}
	return &ProcessWorker{cfg: cfg, log: log}
}

func (w *ProcessWorker) start() (*workerProcess, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cmd := exec.CommandContext(ctx, w.cfg.Path, w.cfg.Args...)
	cmd.Dir = w.cfg.Dir
	cmd.Env = append(os.Environ(), w.cfg.Env...)
	cmd.Stderr = w.cfg.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("worker stdin: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("worker stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start worker %s: %w", w.cfg.Path, err)
	}
	w.log.Debug("worker started", zap.Int("pid", cmd.Process.Pid))

	return &workerProcess{
		cmd:    cmd,
		cancel: cancel,
		stdin:  stdin,
		enc:    newEncoder(stdin),
		dec:    json.NewDecoder(stdout),
	}, nil
}

// kill terminates the subprocess and waits for it to exit.
func (w *ProcessWorker) kill(reason string) {
	if w.proc == nil {
		return
	}
	w.proc.cancel()
	_ = w.proc.cmd.Wait()
	w.log.Debug("worker stopped", zap.String("reason", reason))
	w.proc = nil
}

// Run sends one request and waits for the matching response
func (w *ProcessWorker) Run(ctx context.Context, query string, debug bool) (*logging.Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil, ErrWorkerClosed
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if w.proc == nil {
		proc, err := w.start()
		if err != nil {
			return nil, err
		}
		w.proc = proc
	}
	proc := w.proc

	if err := proc.enc.Encode(Message{Kind: KindRequest, Query: query, Debug: debug}); err != nil {
		w.kill("write failed")
		return nil, fmt.Errorf("send request: %w", err)
	}

	replies := make(chan reply, 1)
	go func() {
		var msg Message
		err := proc.dec.Decode(&msg)
		replies <- reply{msg: msg, err: err}
	}()

	select {
	case r := <-replies:
		if r.err != nil {
			w.kill("read failed")
			if errors.Is(r.err, io.EOF) {
				return nil, fmt.Errorf("worker exited while running %s", query)
			}
			return nil, fmt.Errorf("read response: %w", r.err)
		}
		if r.msg.Kind != KindResponse || r.msg.Query != query {
			w.kill("protocol error")
			return nil, fmt.Errorf("worker answered %s %q to request %q", r.msg.Kind, r.msg.Query, query)
		}
		if r.msg.Result == nil {
			return nil, fmt.Errorf("worker sent no result for %s", query)
		}
		return r.msg.Result, responseError(r.msg)
	case <-ctx.Done():
		w.log.Warn("terminating worker", zap.String("query", query), zap.Error(ctx.Err()))
		w.kill(ctx.Err().Error())
		return nil, ctx.Err()
	}
}

// Close ends the subprocess by closing its input
func (w *ProcessWorker) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true
	if w.proc == nil {
		return nil
	}
	_ = w.proc.stdin.Close()
	err := w.proc.cmd.Wait()
	w.proc.cancel()
	w.proc = nil
	if err != nil {
		return fmt.Errorf("worker exit: %w", err)
	}
	return nil
}
