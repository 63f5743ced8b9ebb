package commands

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"cts/internal/cli"
	"cts/internal/config"
	"cts/internal/discovery"
	"cts/internal/execution"
	"cts/internal/loader"
	"cts/internal/migration"
	"cts/internal/storage"
	"cts/internal/ui"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Commands holds all CLI commands
type Commands struct {
	Run      *RunCommand
	List     *ListCommand
	Gen      *GenCommand
	Worker   *WorkerCommand
	Migrate  *MigrateCommand
	Failures *FailuresCommand
}

// NewCommands creates all commands with dependencies. Dependencies that
// read settings hold cfg and read it when a command runs, after flags and
// the config file are applied.
func NewCommands(cfg *config.Config, suites []*loader.Suite) *Commands {
	env := &environment{config: cfg, suites: suites}
	filter := discovery.NewFilter()
	scheduler := execution.NewRoundRobinScheduler()
	formatter := ui.NewFormatter()
	dbManager := migration.NewDatabaseManager(cfg)
	migrator := migration.NewSchemaMigrator(dbManager)

	return &Commands{
		Run:      NewRunCommand(env, filter, scheduler, formatter),
		List:     NewListCommand(env, filter, discovery.NewParser(), formatter),
		Gen:      NewGenCommand(env),
		Worker:   NewWorkerCommand(env),
		Migrate:  NewMigrateCommand(migrator),
		Failures: NewFailuresCommand(env),
	}
}

// Register registers all commands with cobra
func (c *Commands) Register(rootCmd *cobra.Command, flags *cli.Flags, cfg *config.Config) {
	loadConfig := func(cmd *cobra.Command, args []string) error {
		// Update config with flags after parsing
		flags.CaseTimeoutSet = cmd.Flags().Changed("case-timeout")
		loaded, err := config.Load(flags.ToConfigFlags())
		if err != nil {
			return err
		}
		*cfg = *loaded
		return nil
	}

	rootCmd.PersistentFlags().StringVarP(&flags.ProjectPath, "project", "C", "", "Project root containing the suites (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&flags.ListingSource, "listing-source", "", "Where listings come from: auto, manifest, crawl or table")
	rootCmd.PersistentFlags().BoolVar(&flags.Debug, "debug", false, "Keep debug logs in case results")

	// Run command
	runCmd := &cobra.Command{
		Use:   "run [QUERY...]",
		Short: "Run test cases in parallel",
		Long: `Expand queries such as "unittests:params" or "unittests:query:round_trip" into
test cases and execute them on a pool of workers. With no query every suite runs.`,
		RunE:    c.Run.Execute,
		PreRunE: loadConfig,
	}
	runCmd.Flags().IntVarP(&flags.Workers, "workers", "j", 0, "Number of workers (default from config, 4)")
	runCmd.Flags().StringVar(&flags.Isolation, "isolation", "", "Worker isolation: inline, goroutine or process")
	runCmd.Flags().DurationVar(&flags.CaseTimeout, "case-timeout", 0, "Time limit per case (default 1m, 0 disables it)")
	runCmd.Flags().StringVarP(&flags.Filter, "filter", "f", "", "Filter cases by query pattern (supports wildcards, e.g. '*:parse:*')")
	runCmd.Flags().BoolVar(&flags.FailFast, "fail-fast", false, "Stop on first case failure")
	runCmd.Flags().IntVar(&flags.ShardIndex, "shard-index", 0, "Run only the shard with this 0-based index")
	runCmd.Flags().IntVar(&flags.ShardCount, "shard-count", 0, "Split the cases into this many shards")
	runCmd.Flags().BoolVar(&flags.OnlyFailed, "failed", false, "Run only cases that failed in the last run")
	runCmd.Flags().BoolVar(&flags.OpenFailures, "open-failures", false, "Open the failures viewer when the run finishes with failures")
	runCmd.Flags().BoolVar(&flags.SaveDB, "save-db", false, "Also record the run in the MySQL results database, creating its schema if needed")
	runCmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Print passing cases too")
	rootCmd.AddCommand(runCmd)

	// List command
	listCmd := &cobra.Command{
		Use:     "list [QUERY...]",
		Short:   "List tests and cases",
		Long:    "Resolve queries and list the tests they select without executing them",
		RunE:    c.List.Execute,
		PreRunE: loadConfig,
	}
	listCmd.Flags().StringVarP(&flags.Filter, "filter", "f", "", "Filter by query pattern (supports wildcards)")
	listCmd.Flags().BoolVarP(&flags.ShowCases, "cases", "c", false, "List cases below each test")
	listCmd.Flags().BoolVarP(&flags.ShowListing, "listing", "l", false, "Print each suite's listing instead of its tests")
	listCmd.Flags().BoolVar(&flags.Static, "static", false, "Read test names from source files without loading modules")
	rootCmd.AddCommand(listCmd)

	// Gen command
	genCmd := &cobra.Command{
		Use:     "gen SUITE...",
		Aliases: []string{"gen_listings"},
		Short:   "Generate listing manifests",
		Long: `Crawl each suite's directory and write its listing manifest to
<out>/suites/<suite>/index.js. Must be run from the project root.`,
		RunE:    c.Gen.Execute,
		PreRunE: loadConfig,
	}
	genCmd.Flags().BoolVar(&flags.Check, "check", false, "Fail if a manifest differs from the crawl instead of writing it")
	rootCmd.AddCommand(genCmd)

	// Worker command
	workerCmd := &cobra.Command{
		Use:     "worker",
		Short:   "Serve case requests over stdin and stdout",
		Hidden:  true,
		RunE:    c.Worker.Execute,
		PreRunE: loadConfig,
	}
	workerCmd.Flags().DurationVar(&flags.CaseTimeout, "case-timeout", 0, "Time limit per case")
	rootCmd.AddCommand(workerCmd)

	// Migrate command
	migrateCmd := &cobra.Command{
		Use:     "migrate",
		Short:   "Create or update the results database",
		Long:    "Apply pending schema migrations to the MySQL database that --save-db records runs in",
		RunE:    c.Migrate.Execute,
		PreRunE: loadConfig,
	}
	rootCmd.AddCommand(migrateCmd)

	// Failures command
	failuresCmd := &cobra.Command{
		Use:     "failures",
		Aliases: []string{"fails"},
		Short:   "View failed cases interactively",
		Long:    "Display the failures of the last run in an interactive viewer",
		RunE:    c.Failures.Execute,
		PreRunE: loadConfig,
	}
	rootCmd.AddCommand(failuresCmd)
}

// environment builds the run-time dependencies that depend on the loaded
// config.
type environment struct {
	config *config.Config
	suites []*loader.Suite
}

func (e *environment) loader() (*loader.Loader, error) {
	source, err := loader.ParseSource(e.config.ListingSource)
	if err != nil {
		return nil, err
	}
	return loader.New(e.suites, loader.Options{
		Root:     e.config.ProjectPath,
		OutDir:   e.config.OutDir,
		Source:   source,
		SkipDirs: e.config.PathsToIgnore,
	}), nil
}

// storage returns the JSON store, plus the MySQL store when the results
// database is enabled. The returned func closes the database.
func (e *environment) storage(ctx context.Context) (storage.Storage, func(), error) {
	jsonStorage := storage.NewJSONStorage(e.config)
	if !e.config.Database.Enabled {
		return jsonStorage, func() {}, nil
	}
	dm := migration.NewDatabaseManager(e.config)
	db, err := dm.Open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("results database: %w", err)
	}
	if err := migration.NewSchemaMigrator(dm).Ensure(ctx, db); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("results database: %w", err)
	}
	return storage.Multi{jsonStorage, storage.NewMySQLStorage(db)}, func() { db.Close() }, nil
}

// processConfig describes how process isolation starts `cts worker`.
func (e *environment) processConfig() (execution.ProcessConfig, error) {
	exe, err := e.config.GetWorkerExecutable()
	if err != nil {
		return execution.ProcessConfig{}, err
	}
	project, err := filepath.Abs(e.config.ProjectPath)
	if err != nil {
		return execution.ProcessConfig{}, err
	}
	args := []string{
		"worker",
		"--project", project,
		"--listing-source", e.config.ListingSource,
		"--case-timeout", e.config.CaseTimeout.String(),
	}
	return execution.ProcessConfig{
		Path:   exe,
		Args:   args,
		Dir:    project,
		Stderr: os.Stderr,
	}, nil
}

// executor builds the worker pool for a run.
func (e *environment) executor(l *loader.Loader, isolation execution.Isolation, progress *ui.ProgressBar) (execution.Executor, error) {
	cfg := e.config
	runner := execution.NewRunner(l, cfg.CaseTimeout)
	proc, err := e.processConfig()
	if err != nil {
		return nil, err
	}
	factory, err := execution.NewWorkerFactory(isolation, runner, proc, newLogger(cfg.Debug))
	if err != nil {
		return nil, err
	}
	pool := execution.NewWorkerPool(factory, execution.PoolOptions{
		Workers:     cfg.Workers,
		FailFast:    cfg.Flags.FailFast,
		CaseTimeout: cfg.CaseTimeout,
		Debug:       cfg.Debug,
	})
	pool.SetProgress(progress)
	return pool, nil
}

func (e *environment) viewer(st storage.Storage) ui.Viewer {
	return ui.NewErrorViewer(st)
}

// newLogger returns the zap logger for worker diagnostics on stderr.
func newLogger(debug bool) *zap.Logger {
	cfg := zap.NewDevelopmentConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.TimeKey = ""
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = !debug
	cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	if debug {
		cfg.Level.SetLevel(zapcore.DebugLevel)
	}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}
