package migration

// Migration is one versioned change of the results schema
type Migration struct {
	Version int
	Name    string
	Up      string
}

// Migrations is the results schema history, applied in order
var Migrations = []Migration{
	{
		Version: 1,
		Name:    "create_runs",
		Up: `CREATE TABLE IF NOT EXISTS runs (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	started_at DATETIME NOT NULL,
	duration_seconds DOUBLE NOT NULL,
	workers INT NOT NULL,
	isolation VARCHAR(32) NOT NULL,
	total_cases INT NOT NULL,
	queries TEXT NOT NULL
)`,
	},
	{
		Version: 2,
		Name:    "create_case_results",
		Up: `CREATE TABLE IF NOT EXISTS case_results (
	id BIGINT UNSIGNED NOT NULL AUTO_INCREMENT PRIMARY KEY,
	run_id BIGINT UNSIGNED NOT NULL,
	query VARCHAR(1024) NOT NULL,
	status VARCHAR(16) NOT NULL,
	time_ms DOUBLE NOT NULL,
	worker_id INT NOT NULL,
	error TEXT NULL,
	logs JSON NULL,
	CONSTRAINT fk_case_results_run FOREIGN KEY (run_id) REFERENCES runs(id) ON DELETE CASCADE
)`,
	},
	{
		Version: 3,
		Name:    "index_case_results_status",
		Up:      `CREATE INDEX idx_case_results_run_status ON case_results (run_id, status)`,
	},
	{
		Version: 4,
		Name:    "add_case_results_resolved",
		Up:      `ALTER TABLE case_results ADD COLUMN resolved BOOLEAN NOT NULL DEFAULT FALSE`,
	},
}

const createMigrationsTable = `CREATE TABLE IF NOT EXISTS schema_migrations (
	version INT NOT NULL PRIMARY KEY,
	name VARCHAR(255) NOT NULL,
	applied_at DATETIME NOT NULL
)`
