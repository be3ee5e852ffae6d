// Package migration provides a versioned migration runner for SQLite
// databases.
//
// Migrations are declared in code as SQL strings with sortable version
// identifiers. The runner applies pending migrations sequentially, each
// inside its own transaction, and records applied versions in a
// schema_migrations table to prevent duplicate execution.
//
// Example usage:
//
//	runner := migration.NewRunner(db, migrations)
//	if err := runner.Run(ctx); err != nil {
//		log.Fatalf("migration failed: %v", err)
//	}
package migration
