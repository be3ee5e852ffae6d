package migration

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"
)

// Migration is a schema change applied exactly once, identified by a
// sortable version string.
type Migration struct {
	Version     string
	Description string
	SQL         string
}

// Runner applies pending migrations in version order, tracking applied
// versions in a schema_migrations table.
type Runner struct {
	db         *sql.DB
	migrations []Migration
}

// NewRunner constructs a runner over the provided migration set.
func NewRunner(db *sql.DB, migrations []Migration) *Runner {
	sorted := make([]Migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})
	return &Runner{db: db, migrations: sorted}
}

// Run applies every migration that has not been recorded yet. Each
// migration executes inside its own transaction together with its
// version record, so a failed migration leaves no partial state.
func (r *Runner) Run(ctx context.Context) error {
	if err := r.initVersionTable(ctx); err != nil {
		return err
	}

	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, m := range r.migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := r.apply(ctx, m); err != nil {
			return fmt.Errorf("migration %s (%s) failed: %w", m.Version, m.Description, err)
		}
	}

	return nil
}

// AppliedVersions returns the sorted list of applied migration versions.
func (r *Runner) AppliedVersions(ctx context.Context) ([]string, error) {
	if err := r.initVersionTable(ctx); err != nil {
		return nil, err
	}
	applied, err := r.appliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]string, 0, len(applied))
	for v := range applied {
		versions = append(versions, v)
	}
	sort.Strings(versions)
	return versions, nil
}

func (r *Runner) initVersionTable(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to initialize schema_migrations: %w", err)
	}
	return nil
}

func (r *Runner) appliedVersions(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT version FROM schema_migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[string]struct{})
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		applied[version] = struct{}{}
	}
	return applied, rows.Err()
}

func (r *Runner) apply(ctx context.Context, m Migration) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
		_ = tx.Rollback()
		return err
	}

	_, err = tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)",
		m.Version, m.Description, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		_ = tx.Rollback()
		return err
	}

	return tx.Commit()
}
