package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/timezone"
)

// WorkingHoursService manages the bookable blocks on a therapist's calendar.
type WorkingHoursService struct {
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

// NewWorkingHoursService constructs a working-hours service.
func NewWorkingHoursService(
	therapists TherapistDirectory,
	rules RuleStore,
	occurrences OccurrenceStore,
	materializer Materializer,
	tz *timezone.Converter,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *WorkingHoursService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &WorkingHoursService{
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

func (s *WorkingHoursService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "WorkingHoursService", operation, attrs...)
}

// CreateWorkingHours records a bookable block. With a RepeatSpec the
// block becomes a weekly series anchored on the submitted weekday
// (Monday is 0), which must match the local calendar day of StartsAt.
// Standalone blocks may omit the weekday.
func (s *WorkingHoursService) CreateWorkingHours(ctx context.Context, therapistID string, input WorkingHoursInput) (view OccurrenceView, err error) {
	logger := s.loggerWith(ctx, "CreateWorkingHours", "therapist_id", therapistID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create working hours", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("occurrence_id", view.ID, "recurring", view.IsRecurring).InfoContext(ctx, "working hours created")
	}()

	vErr := &ValidationError{}
	interval := validateCalendarInput(vErr, input.StartsAt, input.EndsAt, input.Repeat)
	if input.Repeat != nil {
		if input.Repeat.Cadence != persistence.CadenceWeekly {
			vErr.add("repeat.cadence", "working hours repeat weekly")
		}
		if input.Weekday == nil {
			vErr.add("weekday", "weekday is required for recurring working hours")
		}
	}
	if input.Weekday != nil {
		if *input.Weekday < 0 || *input.Weekday > 6 {
			vErr.add("weekday", "weekday must be between 0 (Monday) and 6 (Sunday)")
		} else if !input.StartsAt.IsZero() && timezone.DateOf(input.StartsAt).Weekday() != *input.Weekday {
			vErr.add("weekday", "weekday must match the day of starts_at")
		}
	}
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
		Kind:        persistence.KindWorkingHours,
		StartsAt:    startsUTC,
		EndsAt:      endsUTC,
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

	weekday := *input.Weekday
	rule := persistence.Rule{
		ID:             s.idGenerator(),
		TherapistID:    therapistID,
		Kind:           persistence.KindWorkingHours,
		Cadence:        input.Repeat.Cadence,
		Weekday:        &weekday,
		RepeatInterval: interval,
		StartDate:      timezone.DateOf(input.StartsAt),
		StartTime:      timezone.TimeOfDayFrom(input.StartsAt),
		EndTime:        timezone.TimeOfDayFrom(input.EndsAt),
		RepeatUntil:    input.Repeat.Until,
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

// ListWorkingHours materializes the requested range and returns the
// stored working-hours blocks overlapping it.
func (s *WorkingHoursService) ListWorkingHours(ctx context.Context, therapistID string, rng ListRange) (views []OccurrenceView, err error) {
	logger := s.loggerWith(ctx, "ListWorkingHours", "therapist_id", therapistID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list working hours", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", len(views)).DebugContext(ctx, "working hours listed")
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

	if _, err = s.materializer.EnsureOccurrences(ctx, therapistID, persistence.KindWorkingHours, lo, hi); err != nil {
		return
	}

	occurrences, err := s.occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
		TherapistID:  therapistID,
		Kind:         persistence.KindWorkingHours,
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

// UpdateWorkingHours rewrites the times or note of a standalone block.
// Series-linked blocks are rejected with ErrSeriesLocked; the series
// definition, not the generated row, is the source of truth for them.
func (s *WorkingHoursService) UpdateWorkingHours(ctx context.Context, therapistID, occurrenceID string, input OccurrenceUpdateInput) (view OccurrenceView, err error) {
	logger := s.loggerWith(ctx, "UpdateWorkingHours", "therapist_id", therapistID, "occurrence_id", occurrenceID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update working hours", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "working hours updated")
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
	if occ.TherapistID != therapistID || occ.Kind != persistence.KindWorkingHours {
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

// DeleteWorkingHours removes a block. Single deletes of series-linked
// blocks are rejected with ErrSeriesLocked; carving one day out of a
// schedule is a time-off entry, not a hole in the series. ScopeSeries
// deactivates the rule and removes every occurrence it generated.
func (s *WorkingHoursService) DeleteWorkingHours(ctx context.Context, therapistID, occurrenceID string, scope DeleteScope) (err error) {
	logger := s.loggerWith(ctx, "DeleteWorkingHours",
		"therapist_id", therapistID,
		"occurrence_id", occurrenceID,
		"scope", string(scope),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete working hours", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "working hours deleted")
	}()

	unlock := s.locks.lock(occurrenceID)
	defer unlock()

	occ, scopeErr := resolveScopedOccurrence(ctx, s.occurrences, therapistID, occurrenceID, persistence.KindWorkingHours, &scope)
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
		err = ErrSeriesLocked
		return
	}
	if err = s.occurrences.DeleteOccurrence(ctx, occurrenceID); err != nil {
		err = mapRepoError(err)
	}
	return
}
