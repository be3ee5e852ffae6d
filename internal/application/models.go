package application

import (
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/scheduler"
	"github.com/example/therapist-scheduler/internal/timezone"
)

// DeleteScope selects how much of a series a delete touches.
type DeleteScope string

const (
	// ScopeSingle removes one occurrence.
	ScopeSingle DeleteScope = "single"
	// ScopeSeries deactivates the rule and removes all of its occurrences.
	ScopeSeries DeleteScope = "series"
)

// RepeatSpec describes the recurrence requested at creation time.
// Until is an inclusive local calendar date.
type RepeatSpec struct {
	Cadence  persistence.Cadence
	Interval int
	Until    *timezone.Date
}

// TherapistInput carries the fields needed to register a therapist.
type TherapistInput struct {
	Name     string
	Timezone string
}

// TimeOffInput creates a blocked interval, optionally recurring. StartsAt
// and EndsAt are therapist-local wall-clock times.
type TimeOffInput struct {
	StartsAt time.Time
	EndsAt   time.Time
	Note     string
	Repeat   *RepeatSpec
}

// WorkingHoursInput creates a bookable block. StartsAt and EndsAt are
// therapist-local wall-clock times of the first block; recurring entries
// repeat weekly from there. Weekday (Monday is 0) is required with a
// repeat spec and optional otherwise; when set it must match the local
// calendar day of StartsAt.
type WorkingHoursInput struct {
	Weekday  *int
	StartsAt time.Time
	EndsAt   time.Time
	Repeat   *RepeatSpec
}

// OccurrenceUpdateInput rewrites the times or note of a single occurrence.
type OccurrenceUpdateInput struct {
	StartsAt time.Time
	EndsAt   time.Time
	Note     string
}

// ListRange bounds a listing query in therapist-local time. Zero values
// leave the corresponding side unbounded.
type ListRange struct {
	Start time.Time
	End   time.Time
}

// OccurrenceView is the service-level projection of a calendar block,
// paired with the therapist timezone so transports can render local times.
type OccurrenceView struct {
	ID          string
	TherapistID string
	Kind        persistence.RuleKind
	RuleID      *string
	StartsAt    time.Time
	EndsAt      time.Time
	Note        string
	IsSkipped   bool
	IsGenerated bool
	IsRecurring bool
	Timezone    string
}

// Availability is the clipped view of a therapist's calendar over a
// requested local range. Available windows come from working hours;
// blocked windows combine time off and booked appointments, sorted by
// start but never merged.
type Availability struct {
	TherapistID string
	Timezone    string
	RangeStart  time.Time
	RangeEnd    time.Time
	Available   []scheduler.Window
	Blocked     []scheduler.Window
}

// TherapistView is the service-level projection of a therapist.
type TherapistView struct {
	ID        string
	Name      string
	Timezone  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppointmentInput books a client session in therapist-local time.
type AppointmentInput struct {
	StartsAt time.Time
	EndsAt   time.Time
}

// AppointmentView is the service-level projection of a booked session.
type AppointmentView struct {
	ID          string
	TherapistID string
	StartsAt    time.Time
	EndsAt      time.Time
	IsCancelled bool
	Timezone    string
}

func newOccurrenceView(occ persistence.Occurrence, tzName string) OccurrenceView {
	return OccurrenceView{
		ID:          occ.ID,
		TherapistID: occ.TherapistID,
		Kind:        occ.Kind,
		RuleID:      occ.RuleID,
		StartsAt:    occ.StartsAt,
		EndsAt:      occ.EndsAt,
		Note:        occ.Note,
		IsSkipped:   occ.IsSkipped,
		IsGenerated: occ.IsGenerated,
		IsRecurring: occ.RuleID != nil,
		Timezone:    tzName,
	}
}

func newAppointmentView(appt persistence.Appointment, tzName string) AppointmentView {
	return AppointmentView{
		ID:          appt.ID,
		TherapistID: appt.TherapistID,
		StartsAt:    appt.StartsAt,
		EndsAt:      appt.EndsAt,
		IsCancelled: appt.IsCancelled,
		Timezone:    tzName,
	}
}

func newTherapistView(therapist persistence.Therapist) TherapistView {
	return TherapistView{
		ID:        therapist.ID,
		Name:      therapist.Name,
		Timezone:  therapist.Timezone,
		CreatedAt: therapist.CreatedAt,
		UpdatedAt: therapist.UpdatedAt,
	}
}
