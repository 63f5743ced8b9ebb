package commands

import (
	"os"

	"cts/internal/execution"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// WorkerCommand serves case requests for a parent `cts run`
type WorkerCommand struct {
	env *environment
}

// NewWorkerCommand creates a new WorkerCommand
func NewWorkerCommand(env *environment) *WorkerCommand {
	return &WorkerCommand{env: env}
}

// Execute runs the command. It returns when stdin is closed.
func (wc *WorkerCommand) Execute(cmd *cobra.Command, args []string) error {
	cfg := wc.env.config
	l, err := wc.env.loader()
	if err != nil {
		return err
	}
	log := newLogger(cfg.Debug).With(zap.Int("pid", os.Getpid()))
	defer log.Sync()

	runner := execution.NewRunner(l, cfg.CaseTimeout)
	return execution.Serve(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), runner, log)
}
