package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/example/therapist-scheduler/internal/config"
	"github.com/example/therapist-scheduler/internal/persistence/sqlite"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	store, err := sqlite.Open("file:" + filepath.Join(t.TempDir(), "scheduler.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate store: %v", err)
	}

	cfg := config.Config{
		DefaultTimezone: "Asia/Taipei",
		MaxRangeDays:    31,
		HorizonDays:     90,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return buildHandler(cfg, store, logger)
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestServerEndToEnd(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodPost, "/therapists", map[string]string{"name": "Dr. Lin"})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating therapist, got %d: %s", rec.Code, rec.Body.String())
	}
	var therapist struct {
		ID       string `json:"id"`
		Timezone string `json:"timezone"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &therapist); err != nil {
		t.Fatalf("failed to decode therapist: %v", err)
	}
	if therapist.ID == "" {
		t.Fatal("expected generated therapist ID")
	}
	if therapist.Timezone != "Asia/Taipei" {
		t.Fatalf("expected default timezone, got %q", therapist.Timezone)
	}

	// 2024-03-01 is a Friday, Monday-based weekday 4.
	rec = doJSON(t, handler, http.MethodPost, "/therapists/"+therapist.ID+"/working-hours", map[string]any{
		"weekday":   4,
		"starts_at": "2024-03-01T09:00",
		"ends_at":   "2024-03-01T17:00",
		"repeat": map[string]any{
			"cadence":  "weekly",
			"interval": 1,
			"until":    "2024-03-15",
		},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating working hours, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/therapists/"+therapist.ID+"/time-off", map[string]any{
		"starts_at": "2024-03-01T12:00",
		"ends_at":   "2024-03-01T13:00",
		"note":      "lunch",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201 creating time off, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet,
		"/therapists/"+therapist.ID+"/availability?start=2024-03-01T00:00&end=2024-03-09T00:00", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 from availability, got %d: %s", rec.Code, rec.Body.String())
	}

	var availability struct {
		TherapistID string `json:"therapist_id"`
		Available   []struct {
			StartsAt string `json:"starts_at"`
			EndsAt   string `json:"ends_at"`
		} `json:"available"`
		Blocked []struct {
			StartsAt string `json:"starts_at"`
			EndsAt   string `json:"ends_at"`
		} `json:"blocked"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &availability); err != nil {
		t.Fatalf("failed to decode availability: %v", err)
	}
	if availability.TherapistID != therapist.ID {
		t.Fatalf("unexpected therapist in availability: %q", availability.TherapistID)
	}
	// Two weekly working-hours occurrences fall inside the range.
	if len(availability.Available) != 2 {
		t.Fatalf("expected 2 available windows, got %d: %+v", len(availability.Available), availability.Available)
	}
	if availability.Available[0].StartsAt != "2024-03-01T09:00:00+08:00" {
		t.Fatalf("unexpected first available window: %+v", availability.Available[0])
	}
	if len(availability.Blocked) != 1 {
		t.Fatalf("expected 1 blocked window, got %d: %+v", len(availability.Blocked), availability.Blocked)
	}
	if availability.Blocked[0].StartsAt != "2024-03-01T12:00:00+08:00" {
		t.Fatalf("unexpected blocked window: %+v", availability.Blocked[0])
	}

	rec = doJSON(t, handler, http.MethodGet, "/therapists/"+therapist.ID+"/availability?start=2024-03-01T00:00", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing range end, got %d", rec.Code)
	}
}
