package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/timezone"
)

// RuleStore exposes the rule mutations the calendar services need.
type RuleStore interface {
	DeactivateRule(ctx context.Context, id string, at time.Time) error
}

// OccurrenceStore exposes the occurrence mutations the calendar services need.
type OccurrenceStore interface {
	CreateOccurrence(ctx context.Context, occ persistence.Occurrence) error
	CreateRuleWithOccurrence(ctx context.Context, rule persistence.Rule, occ persistence.Occurrence) error
	GetOccurrence(ctx context.Context, id string) (persistence.Occurrence, error)
	ListOccurrences(ctx context.Context, filter persistence.OccurrenceFilter) ([]persistence.Occurrence, error)
	UpdateOccurrence(ctx context.Context, occ persistence.Occurrence) error
	SkipOccurrence(ctx context.Context, id string, at time.Time) error
	DeleteOccurrence(ctx context.Context, id string) error
	DeleteOccurrencesForRule(ctx context.Context, ruleID string) error
}

// TimeOffService manages blocked intervals on a therapist's calendar.
type TimeOffService struct {
	therapists   TherapistDirectory
	rules        RuleStore
	occurrences  OccurrenceStore
	materializer Materializer
	tz           *timezone.Converter
	locks        *keyedMutex
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewTimeOffService constructs a time-off service.
func NewTimeOffService(
	therapists TherapistDirectory,
	rules RuleStore,
	occurrences OccurrenceStore,
	materializer Materializer,
	tz *timezone.Converter,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *TimeOffService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &TimeOffService{
		therapists:   therapists,
		rules:        rules,
		occurrences:  occurrences,
		materializer: materializer,
		tz:           tz,
		locks:        newKeyedMutex(),
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *TimeOffService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TimeOffService", operation, attrs...)
}

// CreateTimeOff records a blocked interval. With a RepeatSpec the entry
// becomes a recurring series: the rule and its first occurrence are
// persisted atomically and later instances are materialized on demand.
func (s *TimeOffService) CreateTimeOff(ctx context.Context, therapistID string, input TimeOffInput) (view OccurrenceView, err error) {
	logger := s.loggerWith(ctx, "CreateTimeOff", "therapist_id", therapistID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create time off", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("occurrence_id", view.ID, "recurring", view.IsRecurring).InfoContext(ctx, "time off created")
	}()

	vErr := &ValidationError{}
	interval := validateCalendarInput(vErr, input.StartsAt, input.EndsAt, input.Repeat)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var therapist persistence.Therapist
	therapist, err = s.therapists.GetTherapist(ctx, therapistID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	tzName := therapist.Timezone

	startsUTC := s.tz.ToUTC(input.StartsAt, tzName)
	endsUTC := s.tz.ToUTC(input.EndsAt, tzName)
	if !endsUTC.After(startsUTC) {
		vErr.add("ends_at", "ends_at must be after starts_at")
		err = vErr
		return
	}

	createdAt := s.now().UTC()
	occ := persistence.Occurrence{
		ID:          s.idGenerator(),
		TherapistID: therapistID,
		Kind:        persistence.KindTimeOff,
		StartsAt:    startsUTC,
		EndsAt:      endsUTC,
		Note:        input.Note,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	if input.Repeat == nil {
		if err = s.occurrences.CreateOccurrence(ctx, occ); err != nil {
			err = mapRepoError(err)
			return
		}
		view = newOccurrenceView(occ, tzName)
		return
	}

	rule := persistence.Rule{
		ID:             s.idGenerator(),
		TherapistID:    therapistID,
		Kind:           persistence.KindTimeOff,
		Cadence:        input.Repeat.Cadence,
		RepeatInterval: interval,
		StartDate:      timezone.DateOf(input.StartsAt),
		StartTime:      timezone.TimeOfDayFrom(input.StartsAt),
		EndTime:        timezone.TimeOfDayFrom(input.EndsAt),
		RepeatUntil:    input.Repeat.Until,
		Note:           input.Note,
		IsActive:       true,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}
	ruleID := rule.ID
	occ.RuleID = &ruleID
	occ.IsGenerated = true

	if err = s.occurrences.CreateRuleWithOccurrence(ctx, rule, occ); err != nil {
		err = mapRepoError(err)
		return
	}
	view = newOccurrenceView(occ, tzName)
	return
}

// ListTimeOff materializes the requested range and returns the stored
// time-off entries overlapping it. Zero range bounds leave that side open
// and materialization falls back to its default horizon.
func (s *TimeOffService) ListTimeOff(ctx context.Context, therapistID string, rng ListRange) (views []OccurrenceView, err error) {
	logger := s.loggerWith(ctx, "ListTimeOff", "therapist_id", therapistID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list time off", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", len(views)).DebugContext(ctx, "time off listed")
	}()

	var therapist persistence.Therapist
	therapist, err = s.therapists.GetTherapist(ctx, therapistID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	tzName := therapist.Timezone

	var lo, hi time.Time
	if !rng.Start.IsZero() {
		lo = s.tz.ToUTC(rng.Start, tzName)
	}
	if !rng.End.IsZero() {
		hi = s.tz.ToUTC(rng.End, tzName)
	}

	if _, err = s.materializer.EnsureOccurrences(ctx, therapistID, persistence.KindTimeOff, lo, hi); err != nil {
		return
	}

	occurrences, err := s.occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
		TherapistID:  therapistID,
		Kind:         persistence.KindTimeOff,
		StartsBefore: hi,
		EndsAfter:    lo,
	})
	if err != nil {
		err = mapRepoError(err)
		return
	}

	views = make([]OccurrenceView, 0, len(occurrences))
	for _, occ := range occurrences {
		views = append(views, newOccurrenceView(occ, tzName))
	}
	return
}

// UpdateTimeOff rewrites the times or note of a standalone entry.
// Series-linked entries are rejected with ErrSeriesLocked: moving one
// would leave its original slot free for the materializer to fill again.
func (s *TimeOffService) UpdateTimeOff(ctx context.Context, therapistID, occurrenceID string, input OccurrenceUpdateInput) (view OccurrenceView, err error) {
	logger := s.loggerWith(ctx, "UpdateTimeOff", "therapist_id", therapistID, "occurrence_id", occurrenceID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update time off", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "time off updated")
	}()

	unlock := s.locks.lock(occurrenceID)
	defer unlock()

	vErr := &ValidationError{}
	validateCalendarInput(vErr, input.StartsAt, input.EndsAt, nil)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	var therapist persistence.Therapist
	therapist, err = s.therapists.GetTherapist(ctx, therapistID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	tzName := therapist.Timezone

	occ, err := s.occurrences.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if occ.TherapistID != therapistID || occ.Kind != persistence.KindTimeOff {
		err = ErrNotFound
		return
	}
	if occ.RuleID != nil {
		err = ErrSeriesLocked
		return
	}

	occ.StartsAt = s.tz.ToUTC(input.StartsAt, tzName)
	occ.EndsAt = s.tz.ToUTC(input.EndsAt, tzName)
	if !occ.EndsAt.After(occ.StartsAt) {
		vErr.add("ends_at", "ends_at must be after starts_at")
		err = vErr
		return
	}
	occ.Note = input.Note
	occ.UpdatedAt = s.now().UTC()

	if err = s.occurrences.UpdateOccurrence(ctx, occ); err != nil {
		err = mapRepoError(err)
		return
	}
	view = newOccurrenceView(occ, tzName)
	return
}

// DeleteTimeOff removes an entry. ScopeSingle skips a series-linked
// occurrence so the slot stays consumed, and hard-deletes a standalone
// one. ScopeSeries deactivates the rule and removes every occurrence it
// generated.
func (s *TimeOffService) DeleteTimeOff(ctx context.Context, therapistID, occurrenceID string, scope DeleteScope) (err error) {
	logger := s.loggerWith(ctx, "DeleteTimeOff",
		"therapist_id", therapistID,
		"occurrence_id", occurrenceID,
		"scope", string(scope),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete time off", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "time off deleted")
	}()

	unlock := s.locks.lock(occurrenceID)
	defer unlock()

	occ, scopeErr := resolveScopedOccurrence(ctx, s.occurrences, therapistID, occurrenceID, persistence.KindTimeOff, &scope)
	if scopeErr != nil {
		err = scopeErr
		return
	}

	if scope == ScopeSeries {
		at := s.now().UTC()
		if err = s.rules.DeactivateRule(ctx, *occ.RuleID, at); err != nil {
			err = mapRepoError(err)
			return
		}
		if err = s.occurrences.DeleteOccurrencesForRule(ctx, *occ.RuleID); err != nil {
			err = mapRepoError(err)
			return
		}
		return
	}

	if occ.RuleID != nil {
		if err = s.occurrences.SkipOccurrence(ctx, occurrenceID, s.now().UTC()); err != nil {
			err = mapRepoError(err)
		}
		return
	}
	if err = s.occurrences.DeleteOccurrence(ctx, occurrenceID); err != nil {
		err = mapRepoError(err)
	}
	return
}

// validateCalendarInput checks the shared time and repeat fields of the
// calendar inputs and returns the effective repeat interval.
func validateCalendarInput(vErr *ValidationError, startsAt, endsAt time.Time, repeat *RepeatSpec) int {
	if startsAt.IsZero() {
		vErr.add("starts_at", "starts_at is required")
	}
	if endsAt.IsZero() {
		vErr.add("ends_at", "ends_at is required")
	}
	if !startsAt.IsZero() && !endsAt.IsZero() && !endsAt.After(startsAt) {
		vErr.add("ends_at", "ends_at must be after starts_at")
	}

	interval := 1
	if repeat == nil {
		return interval
	}

	switch repeat.Cadence {
	case persistence.CadenceDaily, persistence.CadenceWeekly:
	default:
		vErr.add("repeat.cadence", "cadence must be daily or weekly")
	}
	if repeat.Interval > 0 {
		interval = repeat.Interval
	}
	if !startsAt.IsZero() && !endsAt.IsZero() {
		if timezone.DateOf(endsAt) != timezone.DateOf(startsAt) {
			vErr.add("ends_at", "recurring entries must start and end on the same day")
		}
		if repeat.Until != nil && repeat.Until.Before(timezone.DateOf(startsAt)) {
			vErr.add("repeat.until", "until must be on or after the start date")
		}
	}
	return interval
}

// resolveScopedOccurrence loads an occurrence for a delete, checks that
// it belongs to the therapist and kind, normalizes the scope, and
// verifies that a series delete targets a series-linked occurrence.
func resolveScopedOccurrence(ctx context.Context, store OccurrenceStore, therapistID, occurrenceID string, kind persistence.RuleKind, scope *DeleteScope) (persistence.Occurrence, error) {
	if *scope == "" {
		*scope = ScopeSingle
	}
	if *scope != ScopeSingle && *scope != ScopeSeries {
		vErr := &ValidationError{}
		vErr.add("scope", "scope must be single or series")
		return persistence.Occurrence{}, vErr
	}

	occ, err := store.GetOccurrence(ctx, occurrenceID)
	if err != nil {
		return persistence.Occurrence{}, mapRepoError(err)
	}
	if occ.TherapistID != therapistID || occ.Kind != kind {
		return persistence.Occurrence{}, ErrNotFound
	}
	if *scope == ScopeSeries && occ.RuleID == nil {
		vErr := &ValidationError{}
		vErr.add("scope", "occurrence is not part of a recurring series")
		return persistence.Occurrence{}, vErr
	}
	return occ, nil
}
