package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Project settings
	ProjectPath string `yaml:"-"`
	RootMarker  string `yaml:"root_marker"`
	OutDir      string `yaml:"out_dir"`

	// Output settings
	OutputJSONFile string `yaml:"results_file"`
	OutputJSONDir  string `yaml:"results_dir"`

	// Execution settings
	Workers       int           `yaml:"workers"`
	Isolation     string        `yaml:"isolation"`
	CaseTimeout   time.Duration `yaml:"case_timeout"`
	Debug         bool          `yaml:"debug"`
	ListingSource string        `yaml:"listing_source"`

	// WorkerExecutable runs `worker` for process isolation; empty means
	// the running binary.
	WorkerExecutable string `yaml:"worker_executable"`

	// Directories to ignore when crawling suites
	PathsToIgnore []string `yaml:"ignore"`

	Database Database `yaml:"database"`

	// Command flags
	Flags Flags `yaml:"-"`
}

// Database configures the optional MySQL results store
type Database struct {
	Enabled  bool   `yaml:"enabled"`
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// Flags holds command-line flags
type Flags struct {
	ProjectPath    string
	Workers        int
	Isolation      string
	CaseTimeout    time.Duration
	CaseTimeoutSet bool // CaseTimeout was given explicitly, zero included
	Debug          bool
	ListingSource  string
	Filter         string
	FailFast       bool
	ShardIndex     int
	ShardCount     int
	OnlyFailed     bool
	OpenFailures   bool
	SaveDB         bool
}

// New creates a new Config with defaults
func New() *Config {
	cfg := &Config{
		ProjectPath:    DefaultProjectPath,
		RootMarker:     DefaultRootMarker,
		OutDir:         DefaultOutDir,
		OutputJSONFile: DefaultOutputJSONFile,
		OutputJSONDir:  DefaultOutputJSONDir,
		Workers:        DefaultWorkers,
		Isolation:      DefaultIsolation,
		CaseTimeout:    DefaultCaseTimeout,
		ListingSource:  DefaultListingSource,
		Database: Database{
			Host: DefaultDBHost,
			Port: DefaultDBPort,
			User: DefaultDBUser,
			Name: DefaultDBName,
		},
	}
	// Copy default paths to ignore
	cfg.PathsToIgnore = make([]string, len(DefaultPathsToIgnore))
	copy(cfg.PathsToIgnore, DefaultPathsToIgnore)
	return cfg
}

// Load builds the effective config: defaults, then the project's
// .cts.yaml, then .env and the environment, then flags.
func Load(flags Flags) (*Config, error) {
	cfg := New()
	if flags.ProjectPath != "" {
		cfg.ProjectPath = flags.ProjectPath
	}

	if err := cfg.LoadFile(filepath.Join(cfg.ProjectPath, ConfigFileName)); err != nil {
		return nil, err
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	cfg.ApplyFlags(flags)
	return cfg, nil
}

// LoadFile applies a YAML config file. A missing file is not an error;
// unknown keys are.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

// LoadEnv loads the project's .env file, without overriding variables
// already set, then applies CTS_* and DB_* variables.
func (c *Config) LoadEnv() error {
	envFile := filepath.Join(c.ProjectPath, ".env")
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	setString(&c.OutDir, "CTS_OUT_DIR")
	setString(&c.Isolation, "CTS_ISOLATION")
	setString(&c.ListingSource, "CTS_LISTING_SOURCE")
	setString(&c.WorkerExecutable, "CTS_WORKER_EXECUTABLE")
	if err := setInt(&c.Workers, "CTS_WORKERS"); err != nil {
		return err
	}
	if err := setBool(&c.Debug, "CTS_DEBUG"); err != nil {
		return err
	}
	if err := setBool(&c.Database.Enabled, "CTS_RESULTS_DB"); err != nil {
		return err
	}
	if v := os.Getenv("CTS_CASE_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("CTS_CASE_TIMEOUT: %w", err)
		}
		c.CaseTimeout = d
	}

	setString(&c.Database.Host, "DB_HOST")
	setString(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USERNAME")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.Name, "DB_DATABASE")
	return nil
}

// ApplyFlags overrides settings with explicitly given flags
func (c *Config) ApplyFlags(flags Flags) {
	c.Flags = flags
	if flags.ProjectPath != "" {
		c.ProjectPath = flags.ProjectPath
	}
	if flags.Workers > 0 {
		c.Workers = flags.Workers
	}
	if flags.Isolation != "" {
		c.Isolation = flags.Isolation
	}
	if flags.CaseTimeoutSet || flags.CaseTimeout > 0 {
		c.CaseTimeout = flags.CaseTimeout
	}
	if flags.Debug {
		c.Debug = true
	}
	if flags.ListingSource != "" {
		c.ListingSource = flags.ListingSource
	}
	if flags.SaveDB {
		c.Database.Enabled = true
	}
}

// GetOutputPath returns the absolute path of the results JSON file, so
// run and failures use the same file regardless of cwd.
func (c *Config) GetOutputPath() string {
	p := filepath.Join(c.ProjectPath, c.OutputJSONDir, c.OutputJSONFile)
	if abs, err := filepath.Abs(p); err == nil {
		return abs
	}
	return p
}

// GetOutDir returns the directory generated listings are written to
func (c *Config) GetOutDir() string {
	if filepath.IsAbs(c.OutDir) {
		return c.OutDir
	}
	return filepath.Join(c.ProjectPath, c.OutDir)
}

// GetRootMarkerPath returns the file whose presence identifies the project root
func (c *Config) GetRootMarkerPath() string {
	return filepath.Join(c.ProjectPath, c.RootMarker)
}

// GetWorkerExecutable returns the binary started for process workers
func (c *Config) GetWorkerExecutable() (string, error) {
	if c.WorkerExecutable != "" {
		return c.WorkerExecutable, nil
	}
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("locate cts executable: %w", err)
	}
	return exe, nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func setBool(dst *bool, key string) error {
	v := os.Getenv(key)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}
