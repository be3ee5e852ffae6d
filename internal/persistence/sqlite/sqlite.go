package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence/sqlite/migration"
	"github.com/example/therapist-scheduler/internal/timezone"
)

// Store bundles the repositories backed by a single SQLite database.
type Store struct {
	pool *ConnectionPool

	Therapists   *TherapistRepository
	Rules        *RuleRepository
	Occurrences  *OccurrenceRepository
	Appointments *AppointmentRepository
}

// Open connects to the database at dsn and wires up the repositories.
func Open(dsn string) (*Store, error) {
	pool, err := NewConnectionPool(dsn)
	if err != nil {
		return nil, err
	}

	return &Store{
		pool:         pool,
		Therapists:   NewTherapistRepository(pool),
		Rules:        NewRuleRepository(pool),
		Occurrences:  NewOccurrenceRepository(pool),
		Appointments: NewAppointmentRepository(pool),
	}, nil
}

// Migrate applies any pending schema migrations.
func (s *Store) Migrate(ctx context.Context) error {
	runner := migration.NewRunner(s.pool.DB(), Migrations())
	return runner.Run(ctx)
}

// Pool exposes the underlying connection pool.
func (s *Store) Pool() *ConnectionPool {
	return s.pool
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.pool.Close()
}

// --- Column codec helpers ---
//
// Instants are stored as RFC3339 UTC strings, calendar dates as
// YYYY-MM-DD, and wall-clock times as HH:MM. All three forms sort
// lexicographically, so range predicates compare directly in SQL.

func formatTime(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

func parseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("sqlite: invalid timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}

func formatDate(d timezone.Date) string {
	return d.String()
}

func parseDate(value string) (timezone.Date, error) {
	return timezone.ParseDate(value)
}

func formatTimeOfDay(t timezone.TimeOfDay) string {
	return t.String()
}

func parseTimeOfDay(value string) (timezone.TimeOfDay, error) {
	return timezone.ParseTimeOfDay(value)
}

func nullString(value *string) sql.NullString {
	if value == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *value, Valid: true}
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
