package migration

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"time"

	"cts/internal/domain"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
)

// Migrator runs database migrations
type Migrator interface {
	Run(ctx context.Context) ([]domain.MigrationResult, error)
}

// SchemaMigrator applies Migrations to the results database
type SchemaMigrator struct {
	databaseManager *DatabaseManager
	migrations      []Migration
}

// NewSchemaMigrator creates a new SchemaMigrator
func NewSchemaMigrator(dbManager *DatabaseManager) *SchemaMigrator {
	return &SchemaMigrator{
		databaseManager: dbManager,
		migrations:      Migrations,
	}
}

// Run applies every pending migration in version order
func (sm *SchemaMigrator) Run(ctx context.Context) ([]domain.MigrationResult, error) {
	color.Cyan("\n╔════════════════════════════════════════════════════════════╗")
	color.Cyan("║               Running Database Migrations                  ║")
	color.Cyan("╚════════════════════════════════════════════════════════════╝\n")

	db, err := sm.databaseManager.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	results, err := sm.Apply(ctx, db)
	if err != nil {
		color.Red("✗ %v\n", err)
		return results, err
	}

	applied := 0
	for _, r := range results {
		if r.Applied {
			applied++
		}
	}
	fmt.Print("\n")
	if applied == 0 {
		color.Green("✓ Schema is up to date (%d migrations)\n", len(results))
	} else {
		color.Green("✓ Applied %d of %d migrations\n", applied, len(results))
	}
	return results, nil
}

// Apply runs the pending migrations on db, each in its own transaction,
// showing progress on stderr.
func (sm *SchemaMigrator) Apply(ctx context.Context, db *sql.DB) ([]domain.MigrationResult, error) {
	bar := progressbar.NewOptions(len(sm.migrations),
		progressbar.OptionSetDescription(
			color.CyanString("Migrating: ")+
				color.GreenString("[completed: 0/%d]", len(sm.migrations)),
		),
		progressbar.OptionSetWidth(50),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        color.CyanString("█"),
			SaucerHead:    color.CyanString("█"),
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
	defer bar.Finish()

	return sm.migrate(ctx, db, func(done int) {
		bar.Set(done)
		bar.Describe(color.CyanString("Migrating: ") +
			color.GreenString("[completed: %d/%d]", done, len(sm.migrations)))
	})
}

// Ensure applies pending migrations without output. Runs recorded with
// --save-db call it so a fresh database needs no separate `cts migrate`.
func (sm *SchemaMigrator) Ensure(ctx context.Context, db *sql.DB) error {
	_, err := sm.migrate(ctx, db, func(int) {})
	return err
}

func (sm *SchemaMigrator) migrate(ctx context.Context, db *sql.DB, step func(done int)) ([]domain.MigrationResult, error) {
	if _, err := db.ExecContext(ctx, createMigrationsTable); err != nil {
		return nil, fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	applied, err := sm.appliedVersions(ctx, db)
	if err != nil {
		return nil, err
	}

	results := make([]domain.MigrationResult, 0, len(sm.migrations))
	for i, m := range sm.migrations {
		result := domain.MigrationResult{Version: m.Version, Name: m.Name}
		if !applied[m.Version] {
			if err := sm.applyOne(ctx, db, m); err != nil {
				result.Error = err
				results = append(results, result)
				return results, fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Name, err)
			}
			result.Applied = true
		}
		results = append(results, result)
		step(i + 1)
	}
	return results, nil
}

func (sm *SchemaMigrator) appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func (sm *SchemaMigrator) applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, m.Up); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name, applied_at) VALUES (?, ?, ?)",
		m.Version, m.Name, time.Now().UTC()); err != nil {
		return err
	}
	return tx.Commit()
}
