package persistence

import (
	"context"
	"time"

	"github.com/example/therapist-scheduler/internal/timezone"
)

// TherapistRepository exposes CRUD operations for therapists.
type TherapistRepository interface {
	CreateTherapist(ctx context.Context, therapist Therapist) error
	UpdateTherapist(ctx context.Context, therapist Therapist) error
	GetTherapist(ctx context.Context, id string) (Therapist, error)
	ListTherapists(ctx context.Context) ([]Therapist, error)
}

// RuleRepository stores recurring series definitions.
type RuleRepository interface {
	CreateRule(ctx context.Context, rule Rule) error
	GetRule(ctx context.Context, id string) (Rule, error)
	// ListActiveRules returns active rules of the given kind whose series
	// could fire inside the date range: start_date on or before rangeEnd
	// and repeat_until absent or on or after rangeStart.
	ListActiveRules(ctx context.Context, therapistID string, kind RuleKind, rangeStart, rangeEnd timezone.Date) ([]Rule, error)
	DeactivateRule(ctx context.Context, id string, at time.Time) error
}

// OccurrenceFilter narrows occurrence queries to a therapist, kind, and
// overlap window. Zero time bounds are ignored.
type OccurrenceFilter struct {
	TherapistID    string
	Kind           RuleKind
	StartsBefore   time.Time
	EndsAfter      time.Time
	IncludeSkipped bool
}

// OccurrenceRepository stores concrete calendar blocks.
type OccurrenceRepository interface {
	CreateOccurrence(ctx context.Context, occ Occurrence) error
	// CreateRuleWithOccurrence persists a new rule and its first occurrence
	// in a single transaction.
	CreateRuleWithOccurrence(ctx context.Context, rule Rule, occ Occurrence) error
	// CreateGeneratedOccurrences inserts a materialization batch in one
	// transaction. Rows whose (rule_id, starts_at) already exist are
	// silently skipped, as are RequireFreeDay rows whose local day is
	// already occupied. Returns the number of rows actually inserted.
	CreateGeneratedOccurrences(ctx context.Context, batch []GeneratedOccurrence) (int, error)
	GetOccurrence(ctx context.Context, id string) (Occurrence, error)
	ListOccurrences(ctx context.Context, filter OccurrenceFilter) ([]Occurrence, error)
	UpdateOccurrence(ctx context.Context, occ Occurrence) error
	// SkipOccurrence soft-deletes a generated occurrence so the
	// materializer will not recreate it.
	SkipOccurrence(ctx context.Context, id string, at time.Time) error
	DeleteOccurrence(ctx context.Context, id string) error
	DeleteOccurrencesForRule(ctx context.Context, ruleID string) error
	CountOccurrencesForRule(ctx context.Context, ruleID string) (int, error)
}

// AppointmentRepository stores booked client sessions.
type AppointmentRepository interface {
	CreateAppointment(ctx context.Context, appt Appointment) error
	// ListActiveAppointments returns non-cancelled appointments overlapping
	// [endsAfter, startsBefore). Zero bounds leave that side open.
	ListActiveAppointments(ctx context.Context, therapistID string, startsBefore, endsAfter time.Time) ([]Appointment, error)
}
