package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/timezone"
)

func generated(id, ruleID string, startsAt time.Time, requireFreeDay bool) persistence.GeneratedOccurrence {
	dayStart := startsAt.Truncate(24 * time.Hour)
	return persistence.GeneratedOccurrence{
		Occurrence: persistence.Occurrence{
			ID:          id,
			TherapistID: "th-1",
			RuleID:      &ruleID,
			Kind:        persistence.KindTimeOff,
			StartsAt:    startsAt,
			EndsAt:      startsAt.Add(time.Hour),
			IsGenerated: true,
			CreatedAt:   testBase,
			UpdatedAt:   testBase,
		},
		DayStartUTC:    dayStart,
		DayEndUTC:      dayStart.Add(24 * time.Hour),
		RequireFreeDay: requireFreeDay,
	}
}

func setupOccurrenceTest(t *testing.T) *Store {
	t.Helper()
	store := setupStore(t)
	seedTherapist(t, store, "th-1")
	seedRule(t, store, persistence.Rule{
		ID: "rule-1", TherapistID: "th-1",
		Kind: persistence.KindTimeOff, Cadence: persistence.CadenceDaily,
		RepeatInterval: 1, StartDate: testDate(2024, 3, 1),
		StartTime: timezone.TimeOfDay{Hour: 9}, EndTime: timezone.TimeOfDay{Hour: 10},
		IsActive: true,
	})
	return store
}

func TestOccurrenceRepository_CreateGeneratedOccurrences(t *testing.T) {
	t.Run("inserts a fresh batch", func(t *testing.T) {
		store := setupOccurrenceTest(t)
		ctx := context.Background()

		batch := []persistence.GeneratedOccurrence{
			generated("occ-1", "rule-1", testBase.Add(9*time.Hour), false),
			generated("occ-2", "rule-1", testBase.Add(33*time.Hour), false),
		}
		inserted, err := store.Occurrences.CreateGeneratedOccurrences(ctx, batch)
		if err != nil {
			t.Fatalf("CreateGeneratedOccurrences failed: %v", err)
		}
		if inserted != 2 {
			t.Fatalf("expected 2 inserted, got %d", inserted)
		}
	})

	t.Run("replays are no-ops", func(t *testing.T) {
		store := setupOccurrenceTest(t)
		ctx := context.Background()

		batch := []persistence.GeneratedOccurrence{
			generated("occ-1", "rule-1", testBase.Add(9*time.Hour), false),
		}
		if _, err := store.Occurrences.CreateGeneratedOccurrences(ctx, batch); err != nil {
			t.Fatalf("first run failed: %v", err)
		}

		// Same slot, new candidate row id: the unique index must swallow it.
		replay := []persistence.GeneratedOccurrence{
			generated("occ-1b", "rule-1", testBase.Add(9*time.Hour), false),
		}
		inserted, err := store.Occurrences.CreateGeneratedOccurrences(ctx, replay)
		if err != nil {
			t.Fatalf("replay failed: %v", err)
		}
		if inserted != 0 {
			t.Fatalf("expected 0 inserted on replay, got %d", inserted)
		}

		count, err := store.Occurrences.CountOccurrencesForRule(ctx, "rule-1")
		if err != nil {
			t.Fatalf("CountOccurrencesForRule failed: %v", err)
		}
		if count != 1 {
			t.Fatalf("expected 1 row, got %d", count)
		}
	})

	t.Run("skipped rows keep their slot taken", func(t *testing.T) {
		store := setupOccurrenceTest(t)
		ctx := context.Background()

		batch := []persistence.GeneratedOccurrence{
			generated("occ-1", "rule-1", testBase.Add(9*time.Hour), false),
		}
		if _, err := store.Occurrences.CreateGeneratedOccurrences(ctx, batch); err != nil {
			t.Fatalf("insert failed: %v", err)
		}
		if err := store.Occurrences.SkipOccurrence(ctx, "occ-1", testBase.Add(time.Hour)); err != nil {
			t.Fatalf("SkipOccurrence failed: %v", err)
		}

		replay := []persistence.GeneratedOccurrence{
			generated("occ-1b", "rule-1", testBase.Add(9*time.Hour), false),
		}
		inserted, err := store.Occurrences.CreateGeneratedOccurrences(ctx, replay)
		if err != nil {
			t.Fatalf("replay failed: %v", err)
		}
		if inserted != 0 {
			t.Fatalf("expected skipped slot to stay taken, inserted %d", inserted)
		}
	})

	t.Run("require free day respects moved occurrences", func(t *testing.T) {
		store := setupOccurrenceTest(t)
		ctx := context.Background()

		// A manually moved row occupies the local day at a different time.
		ruleID := "rule-1"
		moved := persistence.Occurrence{
			ID: "occ-moved", TherapistID: "th-1", RuleID: &ruleID,
			Kind:     persistence.KindTimeOff,
			StartsAt: testBase.Add(14 * time.Hour), EndsAt: testBase.Add(15 * time.Hour),
			IsGenerated: true, CreatedAt: testBase, UpdatedAt: testBase,
		}
		if err := store.Occurrences.CreateOccurrence(ctx, moved); err != nil {
			t.Fatalf("CreateOccurrence failed: %v", err)
		}

		candidate := generated("occ-cand", "rule-1", testBase.Add(9*time.Hour), true)
		inserted, err := store.Occurrences.CreateGeneratedOccurrences(ctx, []persistence.GeneratedOccurrence{candidate})
		if err != nil {
			t.Fatalf("CreateGeneratedOccurrences failed: %v", err)
		}
		if inserted != 0 {
			t.Fatalf("expected occupied day to block insert, inserted %d", inserted)
		}

		// The next day is free, so the same rule materializes there.
		nextDay := generated("occ-next", "rule-1", testBase.Add(33*time.Hour), true)
		inserted, err = store.Occurrences.CreateGeneratedOccurrences(ctx, []persistence.GeneratedOccurrence{nextDay})
		if err != nil {
			t.Fatalf("CreateGeneratedOccurrences failed: %v", err)
		}
		if inserted != 1 {
			t.Fatalf("expected free day to accept insert, inserted %d", inserted)
		}
	})

	t.Run("rejects candidates without a rule", func(t *testing.T) {
		store := setupOccurrenceTest(t)
		ctx := context.Background()

		candidate := generated("occ-1", "rule-1", testBase.Add(9*time.Hour), false)
		candidate.Occurrence.RuleID = nil
		_, err := store.Occurrences.CreateGeneratedOccurrences(ctx, []persistence.GeneratedOccurrence{candidate})
		if !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})
}

func TestOccurrenceRepository_CreateOccurrence(t *testing.T) {
	store := setupOccurrenceTest(t)
	ctx := context.Background()

	t.Run("duplicate rule slot maps to ErrDuplicate", func(t *testing.T) {
		ruleID := "rule-1"
		occ := persistence.Occurrence{
			ID: "occ-1", TherapistID: "th-1", RuleID: &ruleID,
			Kind:     persistence.KindTimeOff,
			StartsAt: testBase.Add(9 * time.Hour), EndsAt: testBase.Add(10 * time.Hour),
			CreatedAt: testBase, UpdatedAt: testBase,
		}
		if err := store.Occurrences.CreateOccurrence(ctx, occ); err != nil {
			t.Fatalf("CreateOccurrence failed: %v", err)
		}

		occ.ID = "occ-2"
		if err := store.Occurrences.CreateOccurrence(ctx, occ); !errors.Is(err, persistence.ErrDuplicate) {
			t.Fatalf("expected ErrDuplicate, got %v", err)
		}
	})

	t.Run("standalone rows are exempt from the dedup index", func(t *testing.T) {
		for _, id := range []string{"solo-1", "solo-2"} {
			occ := persistence.Occurrence{
				ID: id, TherapistID: "th-1",
				Kind:     persistence.KindTimeOff,
				StartsAt: testBase.Add(20 * time.Hour), EndsAt: testBase.Add(21 * time.Hour),
				CreatedAt: testBase, UpdatedAt: testBase,
			}
			if err := store.Occurrences.CreateOccurrence(ctx, occ); err != nil {
				t.Fatalf("CreateOccurrence %s failed: %v", id, err)
			}
		}
	})

	t.Run("inverted interval maps to ErrConstraintViolation", func(t *testing.T) {
		occ := persistence.Occurrence{
			ID: "occ-bad", TherapistID: "th-1",
			Kind:     persistence.KindTimeOff,
			StartsAt: testBase.Add(10 * time.Hour), EndsAt: testBase.Add(9 * time.Hour),
			CreatedAt: testBase, UpdatedAt: testBase,
		}
		if err := store.Occurrences.CreateOccurrence(ctx, occ); !errors.Is(err, persistence.ErrConstraintViolation) {
			t.Fatalf("expected ErrConstraintViolation, got %v", err)
		}
	})
}

func TestOccurrenceRepository_ListOccurrences(t *testing.T) {
	store := setupOccurrenceTest(t)
	ctx := context.Background()

	rows := []persistence.Occurrence{
		{ID: "a", Kind: persistence.KindTimeOff, StartsAt: testBase.Add(9 * time.Hour), EndsAt: testBase.Add(10 * time.Hour)},
		{ID: "b", Kind: persistence.KindTimeOff, StartsAt: testBase.Add(12 * time.Hour), EndsAt: testBase.Add(13 * time.Hour), IsSkipped: true},
		{ID: "c", Kind: persistence.KindWorkingHours, StartsAt: testBase.Add(9 * time.Hour), EndsAt: testBase.Add(17 * time.Hour)},
		{ID: "d", Kind: persistence.KindTimeOff, StartsAt: testBase.Add(72 * time.Hour), EndsAt: testBase.Add(73 * time.Hour)},
	}
	for _, occ := range rows {
		occ.TherapistID = "th-1"
		occ.CreatedAt = testBase
		occ.UpdatedAt = testBase
		if err := store.Occurrences.CreateOccurrence(ctx, occ); err != nil {
			t.Fatalf("CreateOccurrence %s failed: %v", occ.ID, err)
		}
	}

	t.Run("filters by kind, window, and skip state", func(t *testing.T) {
		got, err := store.Occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
			TherapistID:  "th-1",
			Kind:         persistence.KindTimeOff,
			StartsBefore: testBase.Add(24 * time.Hour),
			EndsAfter:    testBase,
		})
		if err != nil {
			t.Fatalf("ListOccurrences failed: %v", err)
		}
		if len(got) != 1 || got[0].ID != "a" {
			t.Fatalf("expected only row a, got %+v", got)
		}
	})

	t.Run("can include skipped rows", func(t *testing.T) {
		got, err := store.Occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
			TherapistID:    "th-1",
			Kind:           persistence.KindTimeOff,
			IncludeSkipped: true,
		})
		if err != nil {
			t.Fatalf("ListOccurrences failed: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 rows, got %d", len(got))
		}
	})

	t.Run("orders by start", func(t *testing.T) {
		got, err := store.Occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
			TherapistID: "th-1",
		})
		if err != nil {
			t.Fatalf("ListOccurrences failed: %v", err)
		}
		for i := 1; i < len(got); i++ {
			if got[i].StartsAt.Before(got[i-1].StartsAt) {
				t.Fatalf("rows out of order: %s before %s", got[i].ID, got[i-1].ID)
			}
		}
	})
}

func TestOccurrenceRepository_DeleteOccurrencesForRule(t *testing.T) {
	store := setupOccurrenceTest(t)
	ctx := context.Background()

	batch := []persistence.GeneratedOccurrence{
		generated("occ-1", "rule-1", testBase.Add(9*time.Hour), false),
		generated("occ-2", "rule-1", testBase.Add(33*time.Hour), false),
	}
	if _, err := store.Occurrences.CreateGeneratedOccurrences(ctx, batch); err != nil {
		t.Fatalf("insert failed: %v", err)
	}

	if err := store.Occurrences.DeleteOccurrencesForRule(ctx, "rule-1"); err != nil {
		t.Fatalf("DeleteOccurrencesForRule failed: %v", err)
	}

	count, err := store.Occurrences.CountOccurrencesForRule(ctx, "rule-1")
	if err != nil {
		t.Fatalf("CountOccurrencesForRule failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 rows after cascade, got %d", count)
	}
}

func TestOccurrenceRepository_UpdateOccurrence(t *testing.T) {
	store := setupOccurrenceTest(t)
	ctx := context.Background()

	occ := persistence.Occurrence{
		ID: "occ-1", TherapistID: "th-1",
		Kind:     persistence.KindTimeOff,
		StartsAt: testBase.Add(9 * time.Hour), EndsAt: testBase.Add(10 * time.Hour),
		CreatedAt: testBase, UpdatedAt: testBase,
	}
	if err := store.Occurrences.CreateOccurrence(ctx, occ); err != nil {
		t.Fatalf("CreateOccurrence failed: %v", err)
	}

	occ.StartsAt = testBase.Add(11 * time.Hour)
	occ.EndsAt = testBase.Add(12 * time.Hour)
	occ.Note = "moved"
	occ.UpdatedAt = testBase.Add(time.Hour)
	if err := store.Occurrences.UpdateOccurrence(ctx, occ); err != nil {
		t.Fatalf("UpdateOccurrence failed: %v", err)
	}

	fetched, err := store.Occurrences.GetOccurrence(ctx, "occ-1")
	if err != nil {
		t.Fatalf("GetOccurrence failed: %v", err)
	}
	if !fetched.StartsAt.Equal(testBase.Add(11*time.Hour)) || fetched.Note != "moved" {
		t.Fatalf("update did not round trip: %+v", fetched)
	}

	if err := store.Occurrences.UpdateOccurrence(ctx, persistence.Occurrence{ID: "ghost", StartsAt: testBase, EndsAt: testBase.Add(time.Hour)}); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
