package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/recurrence"
	"github.com/example/therapist-scheduler/internal/timezone"
)

// DefaultHorizonDays bounds materialization when no explicit range is given.
const DefaultHorizonDays = 90

// TherapistDirectory resolves therapists for the services in this package.
type TherapistDirectory interface {
	GetTherapist(ctx context.Context, id string) (persistence.Therapist, error)
}

// RuleSource lists the active rules feeding expansion.
type RuleSource interface {
	ListActiveRules(ctx context.Context, therapistID string, kind persistence.RuleKind, rangeStart, rangeEnd timezone.Date) ([]persistence.Rule, error)
}

// OccurrenceWriter persists materialization batches atomically.
type OccurrenceWriter interface {
	CreateGeneratedOccurrences(ctx context.Context, batch []persistence.GeneratedOccurrence) (int, error)
}

// MaterializerService expands recurrence rules into stored occurrences.
// Runs are idempotent: the storage layer swallows duplicate slots, so
// replays and concurrent runs converge on the same rows.
type MaterializerService struct {
	therapists  TherapistDirectory
	rules       RuleSource
	occurrences OccurrenceWriter
	tz          *timezone.Converter
	engine      *recurrence.Engine
	horizonDays int
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewMaterializerService constructs a materializer with the provided dependencies.
func NewMaterializerService(
	therapists TherapistDirectory,
	rules RuleSource,
	occurrences OccurrenceWriter,
	tz *timezone.Converter,
	idGenerator func() string,
	now func() time.Time,
	horizonDays int,
	logger *slog.Logger,
) *MaterializerService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	if horizonDays <= 0 {
		horizonDays = DefaultHorizonDays
	}
	return &MaterializerService{
		therapists:  therapists,
		rules:       rules,
		occurrences: occurrences,
		tz:          tz,
		engine:      recurrence.NewEngine(tz),
		horizonDays: horizonDays,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *MaterializerService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "MaterializerService", operation, attrs...)
}

// EnsureOccurrences expands every active rule of the given kind into
// concrete occurrences over [rangeStart, rangeEnd). Zero bounds default
// to now and now plus the configured horizon. Returns the number of rows
// newly inserted; existing rows are left untouched.
//
// Rules that fail to expand are logged and skipped so one bad rule never
// blocks the rest of the calendar.
func (s *MaterializerService) EnsureOccurrences(ctx context.Context, therapistID string, kind persistence.RuleKind, rangeStart, rangeEnd time.Time) (inserted int, err error) {
	logger := s.loggerWith(ctx, "EnsureOccurrences",
		"therapist_id", therapistID,
		"kind", string(kind),
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to materialize occurrences", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("inserted", inserted).DebugContext(ctx, "occurrences materialized")
	}()

	therapist, err := s.therapists.GetTherapist(ctx, therapistID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	tzName := therapist.Timezone

	if rangeStart.IsZero() {
		rangeStart = s.now().UTC()
	}
	if rangeEnd.IsZero() {
		rangeEnd = rangeStart.Add(time.Duration(s.horizonDays) * 24 * time.Hour)
	}

	dayStart := timezone.DateOf(s.tz.FromUTC(rangeStart, tzName))
	dayEnd := timezone.DateOf(s.tz.FromUTC(rangeEnd, tzName))
	if dayEnd.Before(dayStart) {
		dayEnd = dayStart
	}

	rules, err := s.rules.ListActiveRules(ctx, therapistID, kind, dayStart, dayEnd)
	if err != nil {
		err = mapRepoError(err)
		return
	}

	batch := make([]persistence.GeneratedOccurrence, 0)
	for _, rule := range rules {
		expanded, expandErr := s.engine.Expand(recurrenceRule(rule), dayStart, dayEnd, tzName)
		if expandErr != nil {
			logger.WarnContext(ctx, "skipping unexpandable rule", "rule_id", rule.ID, "error", expandErr)
			continue
		}

		for _, occ := range expanded {
			ruleID := rule.ID
			createdAt := s.now().UTC()
			candidate := persistence.GeneratedOccurrence{
				Occurrence: persistence.Occurrence{
					ID:          s.idGenerator(),
					TherapistID: therapistID,
					RuleID:      &ruleID,
					Kind:        kind,
					StartsAt:    occ.StartsAt,
					EndsAt:      occ.EndsAt,
					Note:        rule.Note,
					IsGenerated: true,
					CreatedAt:   createdAt,
					UpdatedAt:   createdAt,
				},
				RequireFreeDay: kind == persistence.KindWorkingHours,
			}
			if candidate.RequireFreeDay {
				candidate.DayStartUTC, candidate.DayEndUTC = s.tz.DayBounds(occ.Date, tzName)
			}
			batch = append(batch, candidate)
		}
	}

	inserted, err = s.occurrences.CreateGeneratedOccurrences(ctx, batch)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	return
}

func recurrenceRule(rule persistence.Rule) recurrence.Rule {
	return recurrence.Rule{
		ID:          rule.ID,
		Cadence:     recurrence.Cadence(rule.Cadence),
		Interval:    rule.RepeatInterval,
		StartDate:   rule.StartDate,
		RepeatUntil: rule.RepeatUntil,
		StartTime:   rule.StartTime,
		EndTime:     rule.EndTime,
	}
}
