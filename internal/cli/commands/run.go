package commands

import (
	"context"
	"fmt"

	"cts/internal/discovery"
	"cts/internal/domain"
	"cts/internal/execution"
	"cts/internal/loader"
	"cts/internal/logging"
	"cts/internal/query"
	"cts/internal/ui"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// RunCommand handles the run command
type RunCommand struct {
	env       *environment
	filter    *discovery.Filter
	scheduler execution.Scheduler
	formatter *ui.Formatter
}

// NewRunCommand creates a new RunCommand
func NewRunCommand(
	env *environment,
	filter *discovery.Filter,
	scheduler execution.Scheduler,
	formatter *ui.Formatter,
) *RunCommand {
	return &RunCommand{
		env:       env,
		filter:    filter,
		scheduler: scheduler,
		formatter: formatter,
	}
}

// Execute runs the command
func (rc *RunCommand) Execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := rc.env.config

	isolation, err := execution.ParseIsolation(cfg.Isolation)
	if err != nil {
		return err
	}
	l, err := rc.env.loader()
	if err != nil {
		return err
	}
	st, closeStorage, err := rc.env.storage(ctx)
	if err != nil {
		return err
	}
	defer closeStorage()

	// Expand queries into cases
	if len(args) == 0 {
		args = suiteNames(rc.env.suites)
	}
	cases, err := expandQueries(ctx, l, args)
	if err != nil {
		return err
	}

	// Filter cases
	cases = rc.filter.FilterByName(cases, cfg.Flags.Filter)
	if cfg.Flags.OnlyFailed {
		last, err := st.Load()
		if err != nil {
			return fmt.Errorf("--failed needs a previous run: %w", err)
		}
		cases = onlyFailed(cases, last)
	}
	cases, err = execution.Shard(rc.scheduler, cases, cfg.Flags.ShardIndex, cfg.Flags.ShardCount)
	if err != nil {
		return err
	}

	if len(cases) == 0 {
		color.Yellow("No cases to execute")
		return nil
	}

	// Build the worker pool
	executor, err := rc.env.executor(l, isolation, ui.NewProgressBar(len(cases)))
	if err != nil {
		return err
	}

	// Execute cases
	results, duration, err := executor.Execute(ctx, cases)
	if err != nil {
		return err
	}

	output := domain.NewRunOutput(args, results, duration, cfg.Workers, string(isolation))
	if err := st.Save(output, results); err != nil {
		return fmt.Errorf("failed to save test results: %w", err)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	rc.formatter.PrintResults(results, verbose)
	rc.formatter.PrintMetaStats(output)

	failed := output.Meta.Counts[string(logging.StatusFailed)]
	if failed == 0 {
		return nil
	}
	if cfg.Flags.OpenFailures {
		if err := rc.env.viewer(st).View(output); err != nil {
			return err
		}
	}
	return fmt.Errorf("%d case(s) failed", failed)
}

func suiteNames(suites []*loader.Suite) []string {
	names := make([]string, 0, len(suites))
	for _, s := range suites {
		names = append(names, s.Name)
	}
	return names
}

// expandQueries resolves every query to its case queries, keeping the
// first occurrence of a case selected twice.
func expandQueries(ctx context.Context, l *loader.Loader, texts []string) ([]string, error) {
	var out []string
	seen := make(map[string]bool)
	for _, text := range texts {
		q, err := query.Parse(text)
		if err != nil {
			return nil, err
		}
		cases, err := l.LoadCases(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", text, err)
		}
		for _, tc := range cases {
			name := tc.Name()
			if !seen[name] {
				seen[name] = true
				out = append(out, name)
			}
		}
	}
	return out, nil
}

func onlyFailed(cases []string, last *domain.RunOutput) []string {
	failed := failedSet(last)
	var out []string
	for _, c := range cases {
		if _, ok := failed[c]; ok {
			out = append(out, c)
		}
	}
	return out
}

func failedSet(last *domain.RunOutput) map[string]struct{} {
	failed := make(map[string]struct{})
	if last == nil {
		return failed
	}
	for _, f := range last.Details {
		if !f.Resolved {
			failed[f.Query] = struct{}{}
		}
	}
	return failed
}
