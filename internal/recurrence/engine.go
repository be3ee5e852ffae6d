package recurrence

import (
	"errors"
	"time"

	"github.com/example/therapist-scheduler/internal/timezone"
)

// Cadence identifies how a rule repeats.
type Cadence string

const (
	// CadenceDaily repeats every Interval days.
	CadenceDaily Cadence = "daily"
	// CadenceWeekly repeats every Interval weeks on the start date's weekday.
	CadenceWeekly Cadence = "weekly"
)

// ErrInvalidCadence indicates the recurrence cadence is not supported.
var ErrInvalidCadence = errors.New("recurrence: invalid cadence")

// ErrInvalidTimeRange indicates the rule's end time does not follow its start time.
var ErrInvalidTimeRange = errors.New("recurrence: end time must be after start time")

// Rule describes a recurring block of therapist time. StartDate anchors the
// series: weekly rules repeat on its weekday, so the weekday is never
// re-derived from other fields.
type Rule struct {
	ID          string
	Cadence     Cadence
	Interval    int
	StartDate   timezone.Date
	RepeatUntil *timezone.Date
	StartTime   timezone.TimeOfDay
	EndTime     timezone.TimeOfDay
}

// Occurrence is one expanded instance of a rule, stamped in UTC.
type Occurrence struct {
	RuleID   string
	Date     timezone.Date
	StartsAt time.Time
	EndsAt   time.Time
}

// Engine expands recurrence rules into UTC occurrences using a therapist's
// timezone.
type Engine struct {
	tz *timezone.Converter
}

// NewEngine constructs an engine backed by the given converter.
func NewEngine(tz *timezone.Converter) *Engine {
	return &Engine{tz: tz}
}

// Dates enumerates the local calendar dates a rule fires on within the
// inclusive range [from, to]. The range is clipped by the rule's start date
// and inclusive RepeatUntil bound.
func (e *Engine) Dates(rule Rule, from, to timezone.Date) ([]timezone.Date, error) {
	step, err := stepDays(rule)
	if err != nil {
		return nil, err
	}

	upper := to
	if rule.RepeatUntil != nil && rule.RepeatUntil.Before(upper) {
		upper = *rule.RepeatUntil
	}
	if rule.StartDate.After(upper) {
		return nil, nil
	}

	current := firstOnOrAfter(rule.StartDate, from, step)
	dates := make([]timezone.Date, 0)
	for !current.After(upper) {
		dates = append(dates, current)
		current = current.AddDays(step)
	}
	return dates, nil
}

// Expand produces UTC occurrences for every date the rule fires on within
// [from, to], interpreting the rule's wall-clock times in tzName. Dates
// whose local times collapse across a DST gap are skipped.
func (e *Engine) Expand(rule Rule, from, to timezone.Date, tzName string) ([]Occurrence, error) {
	if rule.EndTime.Minutes() <= rule.StartTime.Minutes() {
		return nil, ErrInvalidTimeRange
	}

	dates, err := e.Dates(rule, from, to)
	if err != nil {
		return nil, err
	}

	occurrences := make([]Occurrence, 0, len(dates))
	for _, date := range dates {
		startsAt := e.tz.Combine(date, rule.StartTime, tzName)
		endsAt := e.tz.Combine(date, rule.EndTime, tzName)
		if !endsAt.After(startsAt) {
			continue
		}
		occurrences = append(occurrences, Occurrence{
			RuleID:   rule.ID,
			Date:     date,
			StartsAt: startsAt,
			EndsAt:   endsAt,
		})
	}
	return occurrences, nil
}

// firstOnOrAfter fast-forwards the series anchor to the first date on or
// after target without iterating day by day.
func firstOnOrAfter(anchor, target timezone.Date, step int) timezone.Date {
	if !anchor.Before(target) {
		return anchor
	}
	diff := anchor.DaysUntil(target)
	current := anchor.AddDays((diff / step) * step)
	if current.Before(target) {
		current = current.AddDays(step)
	}
	return current
}

func stepDays(rule Rule) (int, error) {
	interval := rule.Interval
	if interval < 1 {
		interval = 1
	}
	switch rule.Cadence {
	case CadenceDaily:
		return interval, nil
	case CadenceWeekly:
		return 7 * interval, nil
	default:
		return 0, ErrInvalidCadence
	}
}
