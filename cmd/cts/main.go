package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"cts/internal/cli"
	"cts/internal/cli/commands"
	"cts/internal/config"
	"cts/suites"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	// Create root command
	rootCmd := &cobra.Command{
		Use:   "cts",
		Short: "Parameterized conformance test runner",
		Long: `cts runs parameterized conformance test suites. Tests are addressed by
hierarchical queries (suite:group:test:params) and executed in parallel on
inline, goroutine or subprocess workers.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Create initial config with defaults
	cfg := config.New()

	// Create flags struct (will be populated by command flags)
	var flags cli.Flags

	// Create commands with dependencies
	cmds := commands.NewCommands(cfg, suites.All())

	// Register all commands
	cmds.Register(rootCmd, &flags, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
