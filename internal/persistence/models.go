package persistence

import (
	"time"

	"github.com/example/therapist-scheduler/internal/timezone"
)

// RuleKind distinguishes the two families of recurring therapist time.
type RuleKind string

const (
	// KindTimeOff marks blocked time.
	KindTimeOff RuleKind = "time_off"
	// KindWorkingHours marks bookable time.
	KindWorkingHours RuleKind = "working_hours"
)

// Cadence mirrors the recurrence cadence stored on a rule.
type Cadence string

const (
	// CadenceDaily repeats every RepeatInterval days.
	CadenceDaily Cadence = "daily"
	// CadenceWeekly repeats every RepeatInterval weeks.
	CadenceWeekly Cadence = "weekly"
)

// Therapist represents a practitioner whose calendar is managed here.
type Therapist struct {
	ID        string
	Name      string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Rule represents a recurring series of time-off or working-hours blocks.
// StartDate anchors the series; weekly rules fire on its weekday. Weekday
// is stored Monday-based for working-hours rules and nil otherwise.
type Rule struct {
	ID             string
	TherapistID    string
	Kind           RuleKind
	Cadence        Cadence
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

// Occurrence is a concrete UTC-stamped block on a therapist's calendar.
// RuleID is nil for standalone entries. Generated occurrences keep
// IsGenerated so manual edits can be told apart from expansion output.
type Occurrence struct {
	ID          string
	TherapistID string
	RuleID      *string
	Kind        RuleKind
	StartsAt    time.Time
	EndsAt      time.Time
	Note        string
	IsSkipped   bool
	IsGenerated bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Appointment is a booked client session blocking therapist availability.
type Appointment struct {
	ID          string
	TherapistID string
	StartsAt    time.Time
	EndsAt      time.Time
	IsCancelled bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// GeneratedOccurrence is a materialization candidate. RequireFreeDay asks
// the store to insert only when the rule has no other live occurrence
// inside [DayStartUTC, DayEndUTC), which protects manually edited
// working-hours rows from regeneration.
type GeneratedOccurrence struct {
	Occurrence     Occurrence
	DayStartUTC    time.Time
	DayEndUTC      time.Time
	RequireFreeDay bool
}
