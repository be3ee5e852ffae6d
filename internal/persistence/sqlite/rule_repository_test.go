package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/timezone"
)

func seedRule(t *testing.T, store *Store, rule persistence.Rule) persistence.Rule {
	t.Helper()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = testBase
		rule.UpdatedAt = testBase
	}
	if err := store.Rules.CreateRule(context.Background(), rule); err != nil {
		t.Fatalf("failed to seed rule %s: %v", rule.ID, err)
	}
	return rule
}

func TestRuleRepository_CreateAndGet(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedTherapist(t, store, "th-1")

	weekday := 1
	until := testDate(2024, 6, 30)
	created := seedRule(t, store, persistence.Rule{
		ID:             "rule-1",
		TherapistID:    "th-1",
		Kind:           persistence.KindWorkingHours,
		Cadence:        persistence.CadenceWeekly,
		Weekday:        &weekday,
		RepeatInterval: 2,
		StartDate:      testDate(2024, 3, 5),
		StartTime:      timezone.TimeOfDay{Hour: 9},
		EndTime:        timezone.TimeOfDay{Hour: 17},
		RepeatUntil:    &until,
		Note:           "clinic hours",
		IsActive:       true,
	})

	fetched, err := store.Rules.GetRule(ctx, created.ID)
	if err != nil {
		t.Fatalf("GetRule failed: %v", err)
	}
	if fetched.Kind != persistence.KindWorkingHours || fetched.Cadence != persistence.CadenceWeekly {
		t.Errorf("kind/cadence did not round trip: %+v", fetched)
	}
	if fetched.Weekday == nil || *fetched.Weekday != 1 {
		t.Errorf("weekday did not round trip: %v", fetched.Weekday)
	}
	if fetched.RepeatInterval != 2 {
		t.Errorf("expected interval 2, got %d", fetched.RepeatInterval)
	}
	if fetched.StartDate.String() != "2024-03-05" {
		t.Errorf("start date did not round trip: %s", fetched.StartDate)
	}
	if fetched.StartTime.String() != "09:00" || fetched.EndTime.String() != "17:00" {
		t.Errorf("times did not round trip: %s..%s", fetched.StartTime, fetched.EndTime)
	}
	if fetched.RepeatUntil == nil || fetched.RepeatUntil.String() != "2024-06-30" {
		t.Errorf("repeat until did not round trip: %v", fetched.RepeatUntil)
	}
	if !fetched.IsActive {
		t.Error("expected rule to be active")
	}
}

func TestRuleRepository_ListActiveRules(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedTherapist(t, store, "th-1")

	until := testDate(2024, 2, 15)
	seedRule(t, store, persistence.Rule{
		ID: "rule-in-range", TherapistID: "th-1",
		Kind: persistence.KindTimeOff, Cadence: persistence.CadenceDaily,
		RepeatInterval: 1, StartDate: testDate(2024, 3, 1),
		StartTime: timezone.TimeOfDay{Hour: 9}, EndTime: timezone.TimeOfDay{Hour: 10},
		IsActive: true,
	})
	seedRule(t, store, persistence.Rule{
		ID: "rule-expired", TherapistID: "th-1",
		Kind: persistence.KindTimeOff, Cadence: persistence.CadenceDaily,
		RepeatInterval: 1, StartDate: testDate(2024, 1, 1), RepeatUntil: &until,
		StartTime: timezone.TimeOfDay{Hour: 9}, EndTime: timezone.TimeOfDay{Hour: 10},
		IsActive: true,
	})
	seedRule(t, store, persistence.Rule{
		ID: "rule-future", TherapistID: "th-1",
		Kind: persistence.KindTimeOff, Cadence: persistence.CadenceDaily,
		RepeatInterval: 1, StartDate: testDate(2024, 7, 1),
		StartTime: timezone.TimeOfDay{Hour: 9}, EndTime: timezone.TimeOfDay{Hour: 10},
		IsActive: true,
	})
	seedRule(t, store, persistence.Rule{
		ID: "rule-inactive", TherapistID: "th-1",
		Kind: persistence.KindTimeOff, Cadence: persistence.CadenceDaily,
		RepeatInterval: 1, StartDate: testDate(2024, 3, 1),
		StartTime: timezone.TimeOfDay{Hour: 9}, EndTime: timezone.TimeOfDay{Hour: 10},
		IsActive: false,
	})
	seedRule(t, store, persistence.Rule{
		ID: "rule-other-kind", TherapistID: "th-1",
		Kind: persistence.KindWorkingHours, Cadence: persistence.CadenceWeekly,
		RepeatInterval: 1, StartDate: testDate(2024, 3, 4),
		StartTime: timezone.TimeOfDay{Hour: 9}, EndTime: timezone.TimeOfDay{Hour: 17},
		IsActive: true,
	})

	rules, err := store.Rules.ListActiveRules(ctx, "th-1", persistence.KindTimeOff,
		testDate(2024, 3, 1), testDate(2024, 3, 31))
	if err != nil {
		t.Fatalf("ListActiveRules failed: %v", err)
	}
	if len(rules) != 1 || rules[0].ID != "rule-in-range" {
		t.Fatalf("expected only rule-in-range, got %+v", rules)
	}
}

func TestRuleRepository_DeactivateRule(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()
	seedTherapist(t, store, "th-1")
	seedRule(t, store, persistence.Rule{
		ID: "rule-1", TherapistID: "th-1",
		Kind: persistence.KindTimeOff, Cadence: persistence.CadenceDaily,
		RepeatInterval: 1, StartDate: testDate(2024, 3, 1),
		StartTime: timezone.TimeOfDay{Hour: 9}, EndTime: timezone.TimeOfDay{Hour: 10},
		IsActive: true,
	})

	if err := store.Rules.DeactivateRule(ctx, "rule-1", testBase.Add(time.Hour)); err != nil {
		t.Fatalf("DeactivateRule failed: %v", err)
	}

	fetched, err := store.Rules.GetRule(ctx, "rule-1")
	if err != nil {
		t.Fatalf("GetRule failed: %v", err)
	}
	if fetched.IsActive {
		t.Error("expected rule to be inactive")
	}

	if err := store.Rules.DeactivateRule(ctx, "ghost", testBase); !errors.Is(err, persistence.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
