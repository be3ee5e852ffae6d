// Package testfixtures provides deterministic fixtures, clocks, and storage
// harnesses shared by persistence and application tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/timezone"
)

var (
	therapistCounter   uint64
	ruleCounter        uint64
	occurrenceCounter  uint64
	appointmentCounter uint64
)

// referenceTime is 17:00 in Asia/Taipei, the default therapist timezone.
var referenceTime = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// --------------------------- Therapist fixtures ---------------------------

// TherapistFixture represents a deterministic therapist record.
type TherapistFixture struct {
	ID        string
	Name      string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TherapistOption configures the generated therapist fixture.
type TherapistOption func(*TherapistFixture)

// NewTherapistFixture returns a deterministic therapist fixture with optional
// overrides.
func NewTherapistFixture(opts ...TherapistOption) TherapistFixture {
	idx := atomic.AddUint64(&therapistCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := TherapistFixture{
		ID:        fmt.Sprintf("therapist-%03d", idx),
		Name:      fmt.Sprintf("Therapist %03d", idx),
		Timezone:  timezone.DefaultName,
		CreatedAt: created,
		UpdatedAt: created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithTherapistID overrides the generated therapist ID.
func WithTherapistID(id string) TherapistOption {
	return func(f *TherapistFixture) {
		f.ID = id
	}
}

// WithTherapistName overrides the generated display name.
func WithTherapistName(name string) TherapistOption {
	return func(f *TherapistFixture) {
		f.Name = name
	}
}

// WithTherapistTimezone overrides the IANA timezone name.
func WithTherapistTimezone(tz string) TherapistOption {
	return func(f *TherapistFixture) {
		f.Timezone = tz
	}
}

// WithTherapistTimestamps overrides the created and updated timestamps.
func WithTherapistTimestamps(createdAt, updatedAt time.Time) TherapistOption {
	return func(f *TherapistFixture) {
		f.CreatedAt = createdAt
		f.UpdatedAt = updatedAt
	}
}

// Persistence converts the fixture into its persistence representation.
func (f TherapistFixture) Persistence() persistence.Therapist {
	return persistence.Therapist{
		ID:        f.ID,
		Name:      f.Name,
		Timezone:  f.Timezone,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

// ----------------------------- Rule fixtures ------------------------------

// RuleFixture represents a deterministic recurring series definition.
type RuleFixture struct {
	ID             string
	TherapistID    string
	Kind           persistence.RuleKind
	Cadence        persistence.Cadence
	Weekday        *int
	RepeatInterval int
	StartDate      timezone.Date
	StartTime      timezone.TimeOfDay
	EndTime        timezone.TimeOfDay
	RepeatUntil    *timezone.Date
	Note           string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RuleOption configures the generated rule fixture.
type RuleOption func(*RuleFixture)

// NewRuleFixture returns a deterministic daily time-off rule anchored on the
// reference date, with optional overrides.
func NewRuleFixture(opts ...RuleOption) RuleFixture {
	idx := atomic.AddUint64(&ruleCounter, 1)
	created := referenceTime.Add(time.Duration(idx) * time.Minute)
	fixture := RuleFixture{
		ID:             fmt.Sprintf("rule-%03d", idx),
		TherapistID:    "therapist-001",
		Kind:           persistence.KindTimeOff,
		Cadence:        persistence.CadenceDaily,
		RepeatInterval: 1,
		StartDate:      timezone.Date{Year: 2024, Month: time.March, Day: 1},
		StartTime:      timezone.TimeOfDay{Hour: 9},
		EndTime:        timezone.TimeOfDay{Hour: 12},
		IsActive:       true,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithRuleID overrides the generated rule ID.
func WithRuleID(id string) RuleOption {
	return func(f *RuleFixture) {
		f.ID = id
	}
}

// WithRuleTherapist overrides the owning therapist.
func WithRuleTherapist(therapistID string) RuleOption {
	return func(f *RuleFixture) {
		f.TherapistID = therapistID
	}
}

// WithRuleKind overrides the rule kind.
func WithRuleKind(kind persistence.RuleKind) RuleOption {
	return func(f *RuleFixture) {
		f.Kind = kind
	}
}

// WithRuleCadence overrides the cadence and interval.
func WithRuleCadence(cadence persistence.Cadence, interval int) RuleOption {
	return func(f *RuleFixture) {
		f.Cadence = cadence
		f.RepeatInterval = interval
	}
}

// WithRuleWeekday pins the rule to a Monday-based weekday.
func WithRuleWeekday(weekday int) RuleOption {
	return func(f *RuleFixture) {
		f.Weekday = &weekday
	}
}

// WithRuleWindow overrides the anchor date and local time-of-day window.
func WithRuleWindow(startDate timezone.Date, startTime, endTime timezone.TimeOfDay) RuleOption {
	return func(f *RuleFixture) {
		f.StartDate = startDate
		f.StartTime = startTime
		f.EndTime = endTime
	}
}

// WithRuleRepeatUntil bounds the series at an inclusive end date.
func WithRuleRepeatUntil(until timezone.Date) RuleOption {
	return func(f *RuleFixture) {
		f.RepeatUntil = &until
	}
}

// WithRuleActive overrides the active flag.
func WithRuleActive(active bool) RuleOption {
	return func(f *RuleFixture) {
		f.IsActive = active
	}
}

// WithRuleNote overrides the free-form note.
func WithRuleNote(note string) RuleOption {
	return func(f *RuleFixture) {
		f.Note = note
	}
}

// Persistence converts the fixture into its persistence representation.
func (f RuleFixture) Persistence() persistence.Rule {
	return persistence.Rule{
		ID:             f.ID,
		TherapistID:    f.TherapistID,
		Kind:           f.Kind,
		Cadence:        f.Cadence,
		Weekday:        f.Weekday,
		RepeatInterval: f.RepeatInterval,
		StartDate:      f.StartDate,
		StartTime:      f.StartTime,
		EndTime:        f.EndTime,
		RepeatUntil:    f.RepeatUntil,
		Note:           f.Note,
		IsActive:       f.IsActive,
		CreatedAt:      f.CreatedAt,
		UpdatedAt:      f.UpdatedAt,
	}
}

// -------------------------- Occurrence fixtures ---------------------------

// OccurrenceFixture represents a deterministic calendar block.
type OccurrenceFixture struct {
	ID          string
	TherapistID string
	RuleID      *string
	Kind        persistence.RuleKind
	StartsAt    time.Time
	EndsAt      time.Time
	Note        string
	IsSkipped   bool
	IsGenerated bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OccurrenceOption configures the generated occurrence fixture.
type OccurrenceOption func(*OccurrenceFixture)

// NewOccurrenceFixture returns a deterministic standalone time-off block one
// hour long, with optional overrides. Successive fixtures land on successive
// days so they never collide on a local day.
func NewOccurrenceFixture(opts ...OccurrenceOption) OccurrenceFixture {
	idx := atomic.AddUint64(&occurrenceCounter, 1)
	startsAt := referenceTime.Add(time.Duration(idx) * 24 * time.Hour)
	fixture := OccurrenceFixture{
		ID:          fmt.Sprintf("occurrence-%03d", idx),
		TherapistID: "therapist-001",
		Kind:        persistence.KindTimeOff,
		StartsAt:    startsAt,
		EndsAt:      startsAt.Add(time.Hour),
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithOccurrenceID overrides the generated occurrence ID.
func WithOccurrenceID(id string) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.ID = id
	}
}

// WithOccurrenceTherapist overrides the owning therapist.
func WithOccurrenceTherapist(therapistID string) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.TherapistID = therapistID
	}
}

// WithOccurrenceRule links the occurrence to a rule and marks it generated.
func WithOccurrenceRule(ruleID string) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.RuleID = &ruleID
		f.IsGenerated = true
	}
}

// WithOccurrenceKind overrides the occurrence kind.
func WithOccurrenceKind(kind persistence.RuleKind) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.Kind = kind
	}
}

// WithOccurrenceWindow overrides the UTC interval.
func WithOccurrenceWindow(startsAt, endsAt time.Time) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.StartsAt = startsAt
		f.EndsAt = endsAt
	}
}

// WithOccurrenceSkipped overrides the skipped flag.
func WithOccurrenceSkipped(skipped bool) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.IsSkipped = skipped
	}
}

// WithOccurrenceNote overrides the free-form note.
func WithOccurrenceNote(note string) OccurrenceOption {
	return func(f *OccurrenceFixture) {
		f.Note = note
	}
}

// Persistence converts the fixture into its persistence representation.
func (f OccurrenceFixture) Persistence() persistence.Occurrence {
	return persistence.Occurrence{
		ID:          f.ID,
		TherapistID: f.TherapistID,
		RuleID:      f.RuleID,
		Kind:        f.Kind,
		StartsAt:    f.StartsAt,
		EndsAt:      f.EndsAt,
		Note:        f.Note,
		IsSkipped:   f.IsSkipped,
		IsGenerated: f.IsGenerated,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// -------------------------- Appointment fixtures --------------------------

// AppointmentFixture represents a deterministic booked session.
type AppointmentFixture struct {
	ID          string
	TherapistID string
	StartsAt    time.Time
	EndsAt      time.Time
	IsCancelled bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AppointmentOption configures the generated appointment fixture.
type AppointmentOption func(*AppointmentFixture)

// NewAppointmentFixture returns a deterministic one-hour appointment with
// optional overrides.
func NewAppointmentFixture(opts ...AppointmentOption) AppointmentFixture {
	idx := atomic.AddUint64(&appointmentCounter, 1)
	startsAt := referenceTime.Add(time.Duration(idx) * 2 * time.Hour)
	fixture := AppointmentFixture{
		ID:          fmt.Sprintf("appointment-%03d", idx),
		TherapistID: "therapist-001",
		StartsAt:    startsAt,
		EndsAt:      startsAt.Add(time.Hour),
		CreatedAt:   referenceTime,
		UpdatedAt:   referenceTime,
	}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture
}

// WithAppointmentID overrides the generated appointment ID.
func WithAppointmentID(id string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.ID = id
	}
}

// WithAppointmentTherapist overrides the owning therapist.
func WithAppointmentTherapist(therapistID string) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.TherapistID = therapistID
	}
}

// WithAppointmentWindow overrides the UTC interval.
func WithAppointmentWindow(startsAt, endsAt time.Time) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.StartsAt = startsAt
		f.EndsAt = endsAt
	}
}

// WithAppointmentCancelled overrides the cancellation flag.
func WithAppointmentCancelled(cancelled bool) AppointmentOption {
	return func(f *AppointmentFixture) {
		f.IsCancelled = cancelled
	}
}

// Persistence converts the fixture into its persistence representation.
func (f AppointmentFixture) Persistence() persistence.Appointment {
	return persistence.Appointment{
		ID:          f.ID,
		TherapistID: f.TherapistID,
		StartsAt:    f.StartsAt,
		EndsAt:      f.EndsAt,
		IsCancelled: f.IsCancelled,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}
