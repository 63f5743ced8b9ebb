package config

import "time"

const (
	// DefaultProjectPath is the default project path
	DefaultProjectPath = "."
	// ConfigFileName is the optional YAML config file in the project root
	ConfigFileName = ".cts.yaml"
	// DefaultOutDir is where generated listings are written
	DefaultOutDir = "out"
	// DefaultOutputJSONFile is the default results file name
	DefaultOutputJSONFile = "test-results.json"
	// DefaultOutputJSONDir is the default results directory
	DefaultOutputJSONDir = "storage"
	// DefaultWorkers is the default number of workers
	DefaultWorkers = 4
	// DefaultIsolation runs each worker on its own goroutine
	DefaultIsolation = "goroutine"
	// DefaultListingSource picks manifest, crawl or module table automatically
	DefaultListingSource = "auto"
	// DefaultRootMarker must exist below the project root for `cts gen`
	DefaultRootMarker = "suites/suites.go"
	// DefaultCaseTimeout bounds a single case; zero disables it
	DefaultCaseTimeout = time.Minute
)

// Results database defaults, overridden by DB_* variables
const (
	DefaultDBHost = "127.0.0.1"
	DefaultDBPort = "3306"
	DefaultDBUser = "root"
	DefaultDBName = "cts_results"
)

// DefaultPathsToIgnore are the directories skipped when crawling suites
var DefaultPathsToIgnore = []string{
	"testdata",
	"vendor",
	"node_modules",
	"out",
}
