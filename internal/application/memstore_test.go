package application

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/timezone"
)

// memStore is an in-memory stand-in for the SQLite repositories. It
// mirrors their contracts closely enough for service tests: duplicate
// generated slots are silently skipped, RequireFreeDay candidates yield
// to live occurrences in the same local day, and listings come back
// ordered by start time.
type memStore struct {
	mu           sync.Mutex
	therapists   map[string]persistence.Therapist
	rules        map[string]persistence.Rule
	occurrences  map[string]persistence.Occurrence
	appointments map[string]persistence.Appointment
}

func newMemStore() *memStore {
	return &memStore{
		therapists:   make(map[string]persistence.Therapist),
		rules:        make(map[string]persistence.Rule),
		occurrences:  make(map[string]persistence.Occurrence),
		appointments: make(map[string]persistence.Appointment),
	}
}

func (m *memStore) CreateTherapist(ctx context.Context, therapist persistence.Therapist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.therapists[therapist.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.therapists[therapist.ID] = therapist
	return nil
}

func (m *memStore) UpdateTherapist(ctx context.Context, therapist persistence.Therapist) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.therapists[therapist.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.therapists[therapist.ID] = therapist
	return nil
}

func (m *memStore) GetTherapist(ctx context.Context, id string) (persistence.Therapist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	therapist, ok := m.therapists[id]
	if !ok {
		return persistence.Therapist{}, persistence.ErrNotFound
	}
	return therapist, nil
}

func (m *memStore) ListTherapists(ctx context.Context) ([]persistence.Therapist, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]persistence.Therapist, 0, len(m.therapists))
	for _, therapist := range m.therapists {
		out = append(out, therapist)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) CreateRule(ctx context.Context, rule persistence.Rule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.rules[rule.ID] = rule
	return nil
}

func (m *memStore) GetRule(ctx context.Context, id string) (persistence.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return persistence.Rule{}, persistence.ErrNotFound
	}
	return rule, nil
}

func (m *memStore) ListActiveRules(ctx context.Context, therapistID string, kind persistence.RuleKind, rangeStart, rangeEnd timezone.Date) ([]persistence.Rule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]persistence.Rule, 0)
	for _, rule := range m.rules {
		if rule.TherapistID != therapistID || rule.Kind != kind || !rule.IsActive {
			continue
		}
		if rule.StartDate.After(rangeEnd) {
			continue
		}
		if rule.RepeatUntil != nil && rule.RepeatUntil.Before(rangeStart) {
			continue
		}
		out = append(out, rule)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) DeactivateRule(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rule, ok := m.rules[id]
	if !ok {
		return persistence.ErrNotFound
	}
	rule.IsActive = false
	rule.UpdatedAt = at
	m.rules[id] = rule
	return nil
}

func (m *memStore) CreateOccurrence(ctx context.Context, occ persistence.Occurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.occurrences[occ.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.occurrences[occ.ID] = occ
	return nil
}

func (m *memStore) CreateRuleWithOccurrence(ctx context.Context, rule persistence.Rule, occ persistence.Occurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rules[rule.ID]; ok {
		return persistence.ErrDuplicate
	}
	if _, ok := m.occurrences[occ.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.rules[rule.ID] = rule
	m.occurrences[occ.ID] = occ
	return nil
}

func (m *memStore) CreateGeneratedOccurrences(ctx context.Context, batch []persistence.GeneratedOccurrence) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inserted := 0
	for _, candidate := range batch {
		occ := candidate.Occurrence
		if occ.RuleID == nil {
			return inserted, persistence.ErrConstraintViolation
		}
		if candidate.RequireFreeDay && m.dayOccupiedLocked(*occ.RuleID, candidate.DayStartUTC, candidate.DayEndUTC) {
			continue
		}
		if m.slotExistsLocked(*occ.RuleID, occ.StartsAt) {
			continue
		}
		m.occurrences[occ.ID] = occ
		inserted++
	}
	return inserted, nil
}

func (m *memStore) dayOccupiedLocked(ruleID string, dayStart, dayEnd time.Time) bool {
	for _, occ := range m.occurrences {
		if occ.RuleID == nil || *occ.RuleID != ruleID || occ.IsSkipped {
			continue
		}
		if !occ.StartsAt.Before(dayStart) && occ.StartsAt.Before(dayEnd) {
			return true
		}
	}
	return false
}

func (m *memStore) slotExistsLocked(ruleID string, startsAt time.Time) bool {
	for _, occ := range m.occurrences {
		if occ.RuleID != nil && *occ.RuleID == ruleID && occ.StartsAt.Equal(startsAt) {
			return true
		}
	}
	return false
}

func (m *memStore) GetOccurrence(ctx context.Context, id string) (persistence.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	occ, ok := m.occurrences[id]
	if !ok {
		return persistence.Occurrence{}, persistence.ErrNotFound
	}
	return occ, nil
}

func (m *memStore) ListOccurrences(ctx context.Context, filter persistence.OccurrenceFilter) ([]persistence.Occurrence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]persistence.Occurrence, 0)
	for _, occ := range m.occurrences {
		if occ.TherapistID != filter.TherapistID {
			continue
		}
		if filter.Kind != "" && occ.Kind != filter.Kind {
			continue
		}
		if !filter.IncludeSkipped && occ.IsSkipped {
			continue
		}
		if !filter.StartsBefore.IsZero() && !occ.StartsAt.Before(filter.StartsBefore) {
			continue
		}
		if !filter.EndsAfter.IsZero() && !occ.EndsAt.After(filter.EndsAfter) {
			continue
		}
		out = append(out, occ)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartsAt.Equal(out[j].StartsAt) {
			return out[i].StartsAt.Before(out[j].StartsAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *memStore) UpdateOccurrence(ctx context.Context, occ persistence.Occurrence) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.occurrences[occ.ID]; !ok {
		return persistence.ErrNotFound
	}
	m.occurrences[occ.ID] = occ
	return nil
}

func (m *memStore) SkipOccurrence(ctx context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	occ, ok := m.occurrences[id]
	if !ok {
		return persistence.ErrNotFound
	}
	occ.IsSkipped = true
	occ.UpdatedAt = at
	m.occurrences[id] = occ
	return nil
}

func (m *memStore) DeleteOccurrence(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.occurrences[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(m.occurrences, id)
	return nil
}

func (m *memStore) DeleteOccurrencesForRule(ctx context.Context, ruleID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, occ := range m.occurrences {
		if occ.RuleID != nil && *occ.RuleID == ruleID {
			delete(m.occurrences, id)
		}
	}
	return nil
}

func (m *memStore) CountOccurrencesForRule(ctx context.Context, ruleID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	count := 0
	for _, occ := range m.occurrences {
		if occ.RuleID != nil && *occ.RuleID == ruleID {
			count++
		}
	}
	return count, nil
}

func (m *memStore) CreateAppointment(ctx context.Context, appt persistence.Appointment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.appointments[appt.ID]; ok {
		return persistence.ErrDuplicate
	}
	m.appointments[appt.ID] = appt
	return nil
}

func (m *memStore) ListActiveAppointments(ctx context.Context, therapistID string, startsBefore, endsAfter time.Time) ([]persistence.Appointment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]persistence.Appointment, 0)
	for _, appt := range m.appointments {
		if appt.TherapistID != therapistID || appt.IsCancelled {
			continue
		}
		if !startsBefore.IsZero() && !appt.StartsAt.Before(startsBefore) {
			continue
		}
		if !endsAfter.IsZero() && !appt.EndsAt.After(endsAfter) {
			continue
		}
		out = append(out, appt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartsAt.Before(out[j].StartsAt) })
	return out, nil
}

// testReferenceTime is a Friday morning UTC, 17:00 the same day in Taipei.
var testReferenceTime = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConverter() *timezone.Converter {
	return timezone.NewConverter(timezone.DefaultName, testLogger())
}

func testClock() func() time.Time {
	return func() time.Time { return testReferenceTime }
}

func sequentialIDs(prefix string) func() string {
	next := 0
	return func() string {
		next++
		return prefix + "-" + strconv.Itoa(next)
	}
}

func seedTestTherapist(m *memStore, id, tzName string) {
	m.therapists[id] = persistence.Therapist{
		ID:        id,
		Name:      "Dr. Example",
		Timezone:  tzName,
		CreatedAt: testReferenceTime,
		UpdatedAt: testReferenceTime,
	}
}
