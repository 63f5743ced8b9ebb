package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"cts/internal/domain"
	"cts/internal/logging"
)

// MySQLStorage records runs in the results database created by `cts migrate`.
type MySQLStorage struct {
	db *sql.DB
}

// NewMySQLStorage returns a Storage backed by db
func NewMySQLStorage(db *sql.DB) *MySQLStorage {
	return &MySQLStorage{db: db}
}

// Save inserts the run and every case result in one transaction.
func (s *MySQLStorage) Save(output *domain.RunOutput, results []domain.CaseResult) error {
	ctx := context.Background()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	started, err := time.Parse(time.RFC3339, output.Meta.Timestamp)
	if err != nil {
		started = time.Now()
	}
	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, duration_seconds, workers, isolation, total_cases, queries)
		VALUES (?, ?, ?, ?, ?, ?)`,
		started.UTC(), output.Meta.DurationSeconds, output.Meta.Workers, output.Meta.Isolation,
		output.Meta.TotalCases, strings.Join(output.Meta.Query, " "))
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("run id: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO case_results (run_id, query, status, time_ms, worker_id, error, logs)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare case insert: %w", err)
	}
	defer stmt.Close()

	for _, r := range results {
		var timeMS float64
		var logs []byte
		if r.Result != nil {
			timeMS = r.Result.TimeMS
			if logs, err = json.Marshal(r.Result.Logs); err != nil {
				return fmt.Errorf("marshal logs of %s: %w", r.Query, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, runID, r.Query, string(r.Status()), timeMS,
			r.WorkerID, nullString(r.Error), nullBytes(logs)); err != nil {
			return fmt.Errorf("insert result %s: %w", r.Query, err)
		}
	}
	return tx.Commit()
}

// Load rebuilds the record of the latest run.
func (s *MySQLStorage) Load() (*domain.RunOutput, error) {
	ctx := context.Background()

	var (
		runID   int64
		started time.Time
		output  domain.RunOutput
		queries string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, started_at, duration_seconds, workers, isolation, total_cases, queries
		FROM runs ORDER BY id DESC LIMIT 1`).
		Scan(&runID, &started, &output.Meta.DurationSeconds, &output.Meta.Workers,
			&output.Meta.Isolation, &output.Meta.TotalCases, &queries)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no runs recorded")
	}
	if err != nil {
		return nil, fmt.Errorf("read latest run: %w", err)
	}
	output.Meta.Timestamp = started.Format(time.RFC3339)
	output.Meta.Duration = time.Duration(output.Meta.DurationSeconds * float64(time.Second)).String()
	output.Meta.Query = strings.Fields(queries)

	rows, err := s.db.QueryContext(ctx,
		`SELECT query, status, time_ms, worker_id, error, logs, resolved
		FROM case_results WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("read case results: %w", err)
	}
	defer rows.Close()

	var results []domain.CaseResult
	resolved := make(map[string]bool)
	for rows.Next() {
		var (
			r       domain.CaseResult
			res     logging.Result
			errText sql.NullString
			logs    []byte
			done    bool
		)
		if err := rows.Scan(&r.Query, &res.Status, &res.TimeMS, &r.WorkerID, &errText, &logs, &done); err != nil {
			return nil, err
		}
		if len(logs) > 0 {
			if err := json.Unmarshal(logs, &res.Logs); err != nil {
				return nil, fmt.Errorf("decode logs of %s: %w", r.Query, err)
			}
		}
		r.Error = errText.String
		r.Result = &res
		resolved[r.Query] = done
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	output.Meta.Counts = domain.Summarize(results)
	output.Details = domain.FailuresOf(results)
	for i := range output.Details {
		output.Details[i].Resolved = resolved[output.Details[i].Query]
	}
	return &output, nil
}

// SaveOutput stores the resolved flags of the latest run's failures.
func (s *MySQLStorage) SaveOutput(output *domain.RunOutput) error {
	ctx := context.Background()
	for _, f := range output.Details {
		if _, err := s.db.ExecContext(ctx,
			`UPDATE case_results SET resolved = ?
			WHERE query = ? AND run_id = (SELECT id FROM (SELECT MAX(id) AS id FROM runs) AS latest)`,
			f.Resolved, f.Query); err != nil {
			return fmt.Errorf("update %s: %w", f.Query, err)
		}
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullBytes(b []byte) any {
	if len(b) == 0 || string(b) == "null" {
		return nil
	}
	return string(b)
}
