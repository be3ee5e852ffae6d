package application

import (
	"context"
	"errors"
	"testing"
)

func newTestTherapists(store *memStore) *TherapistService {
	return NewTherapistService(store, "Asia/Taipei", sequentialIDs("th"), testClock(), testLogger())
}

func TestTherapistService_CreateTherapist(t *testing.T) {
	t.Run("creates a therapist", func(t *testing.T) {
		store := newMemStore()
		svc := newTestTherapists(store)

		view, err := svc.CreateTherapist(context.Background(), TherapistInput{
			Name:     "  Dr. Lin  ",
			Timezone: "America/New_York",
		})
		if err != nil {
			t.Fatalf("CreateTherapist: %v", err)
		}
		if view.Name != "Dr. Lin" {
			t.Fatalf("expected trimmed name, got %q", view.Name)
		}
		if view.Timezone != "America/New_York" {
			t.Fatalf("expected timezone kept, got %q", view.Timezone)
		}
		if view.ID == "" {
			t.Fatal("expected generated id")
		}
	})

	t.Run("defaults the timezone", func(t *testing.T) {
		store := newMemStore()
		svc := newTestTherapists(store)

		view, err := svc.CreateTherapist(context.Background(), TherapistInput{Name: "Dr. Lin"})
		if err != nil {
			t.Fatalf("CreateTherapist: %v", err)
		}
		if view.Timezone != "Asia/Taipei" {
			t.Fatalf("expected default timezone, got %q", view.Timezone)
		}
	})

	t.Run("rejects unknown timezones", func(t *testing.T) {
		store := newMemStore()
		svc := newTestTherapists(store)

		_, err := svc.CreateTherapist(context.Background(), TherapistInput{
			Name:     "Dr. Lin",
			Timezone: "Mars/Olympus_Mons",
		})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["timezone"]; !ok {
			t.Fatalf("expected timezone error, got %v", vErr.FieldErrors)
		}
	})

	t.Run("requires a name", func(t *testing.T) {
		store := newMemStore()
		svc := newTestTherapists(store)

		_, err := svc.CreateTherapist(context.Background(), TherapistInput{Name: "   "})
		var vErr *ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if _, ok := vErr.FieldErrors["name"]; !ok {
			t.Fatalf("expected name error, got %v", vErr.FieldErrors)
		}
	})
}

func TestTherapistService_UpdateTherapist(t *testing.T) {
	t.Run("rewrites name and timezone", func(t *testing.T) {
		store := newMemStore()
		svc := newTestTherapists(store)

		created, err := svc.CreateTherapist(context.Background(), TherapistInput{Name: "Dr. Lin"})
		if err != nil {
			t.Fatalf("CreateTherapist: %v", err)
		}

		updated, err := svc.UpdateTherapist(context.Background(), created.ID, TherapistInput{
			Name:     "Dr. Lin-Chen",
			Timezone: "Europe/Berlin",
		})
		if err != nil {
			t.Fatalf("UpdateTherapist: %v", err)
		}
		if updated.Name != "Dr. Lin-Chen" || updated.Timezone != "Europe/Berlin" {
			t.Fatalf("unexpected view %+v", updated)
		}
	})

	t.Run("unknown therapist", func(t *testing.T) {
		store := newMemStore()
		svc := newTestTherapists(store)

		_, err := svc.UpdateTherapist(context.Background(), "ghost", TherapistInput{Name: "Dr. Lin"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestTherapistService_ListTherapists(t *testing.T) {
	store := newMemStore()
	svc := newTestTherapists(store)

	for _, name := range []string{"Dr. A", "Dr. B"} {
		if _, err := svc.CreateTherapist(context.Background(), TherapistInput{Name: name}); err != nil {
			t.Fatalf("CreateTherapist: %v", err)
		}
	}

	views, err := svc.ListTherapists(context.Background())
	if err != nil {
		t.Fatalf("ListTherapists: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected 2 therapists, got %d", len(views))
	}
}
