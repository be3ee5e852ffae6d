package testfixtures

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/persistence/sqlite"
)

// SQLiteHarness provides repository access backed by a temporary SQLite
// database for integration-style persistence tests.
type SQLiteHarness struct {
	Therapists   persistence.TherapistRepository
	Rules        persistence.RuleRepository
	Occurrences  persistence.OccurrenceRepository
	Appointments persistence.AppointmentRepository

	cleanup func()
}

// Close releases resources associated with the harness.
func (h *SQLiteHarness) Close() {
	if h != nil && h.cleanup != nil {
		h.cleanup()
		h.cleanup = nil
	}
}

// NewSQLiteHarness constructs a SQLiteHarness over a temporary database file
// that is migrated automatically. Callers may optionally invoke Close, but
// the helper also registers a cleanup callback with the provided testing.TB.
func NewSQLiteHarness(tb testing.TB) *SQLiteHarness {
	tb.Helper()

	dsn := "file:" + filepath.Join(tb.TempDir(), "scheduler.db")

	store, err := sqlite.Open(dsn)
	if err != nil {
		tb.Fatalf("failed to open store: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		_ = store.Close()
		tb.Fatalf("failed to migrate store: %v", err)
	}

	harness := &SQLiteHarness{
		Therapists:   store.Therapists,
		Rules:        store.Rules,
		Occurrences:  store.Occurrences,
		Appointments: store.Appointments,
		cleanup: func() {
			_ = store.Close()
		},
	}

	tb.Cleanup(harness.Close)
	return harness
}
