package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/scheduler"
	"github.com/example/therapist-scheduler/internal/timezone"
)

// DefaultMaxRangeDays caps the availability query span.
const DefaultMaxRangeDays = 31

// OccurrenceReader lists stored occurrences for read paths.
type OccurrenceReader interface {
	ListOccurrences(ctx context.Context, filter persistence.OccurrenceFilter) ([]persistence.Occurrence, error)
}

// AppointmentSource lists booked sessions overlapping a window.
type AppointmentSource interface {
	ListActiveAppointments(ctx context.Context, therapistID string, startsBefore, endsAfter time.Time) ([]persistence.Appointment, error)
}

// Materializer triggers on-demand occurrence expansion.
type Materializer interface {
	EnsureOccurrences(ctx context.Context, therapistID string, kind persistence.RuleKind, rangeStart, rangeEnd time.Time) (int, error)
}

// AvailabilityService answers "when is this therapist bookable" queries.
type AvailabilityService struct {
	therapists   TherapistDirectory
	occurrences  OccurrenceReader
	appointments AppointmentSource
	materializer Materializer
	tz           *timezone.Converter
	maxRangeDays int
	logger       *slog.Logger
}

// NewAvailabilityService constructs an availability service.
func NewAvailabilityService(
	therapists TherapistDirectory,
	occurrences OccurrenceReader,
	appointments AppointmentSource,
	materializer Materializer,
	tz *timezone.Converter,
	maxRangeDays int,
	logger *slog.Logger,
) *AvailabilityService {
	if maxRangeDays <= 0 {
		maxRangeDays = DefaultMaxRangeDays
	}
	return &AvailabilityService{
		therapists:   therapists,
		occurrences:  occurrences,
		appointments: appointments,
		materializer: materializer,
		tz:           tz,
		maxRangeDays: maxRangeDays,
		logger:       defaultLogger(logger),
	}
}

func (s *AvailabilityService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AvailabilityService", operation, attrs...)
}

// GetAvailability materializes both calendars over the requested local
// range, then returns working-hours windows clipped to the range along
// with blocking windows from time off and booked appointments. Blocked
// windows are sorted by start but deliberately left unmerged so callers
// can attribute each one.
//
// start and end are therapist-local wall-clock times. The range must be
// positive and span at most the configured maximum.
func (s *AvailabilityService) GetAvailability(ctx context.Context, therapistID string, start, end time.Time) (result Availability, err error) {
	logger := s.loggerWith(ctx, "GetAvailability", "therapist_id", therapistID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute availability", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With(
			"available_count", len(result.Available),
			"blocked_count", len(result.Blocked),
		).InfoContext(ctx, "availability computed")
	}()

	vErr := &ValidationError{}
	if start.IsZero() {
		vErr.add("start", "start is required")
	}
	if end.IsZero() {
		vErr.add("end", "end is required")
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

	if !end.After(start) {
		vErr.add("end", "end must be after start")
		err = vErr
		return
	}
	// The cap counts local calendar days, so a range crossing a
	// fall-back DST transition is not charged for the extra UTC hour.
	if end.After(start.AddDate(0, 0, s.maxRangeDays)) {
		vErr.add("end", fmt.Sprintf("range must not exceed %d days", s.maxRangeDays))
		err = vErr
		return
	}

	lo := s.tz.ToUTC(start, tzName)
	hi := s.tz.ToUTC(end, tzName)

	for _, kind := range []persistence.RuleKind{persistence.KindWorkingHours, persistence.KindTimeOff} {
		if _, err = s.materializer.EnsureOccurrences(ctx, therapistID, kind, lo, hi); err != nil {
			return
		}
	}

	available, err := s.collectWindows(ctx, therapistID, persistence.KindWorkingHours, lo, hi)
	if err != nil {
		return
	}

	blocked, err := s.collectWindows(ctx, therapistID, persistence.KindTimeOff, lo, hi)
	if err != nil {
		return
	}
	appointments, err := s.appointments.ListActiveAppointments(ctx, therapistID, hi, lo)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	for _, appt := range appointments {
		if w, ok := scheduler.Clip(scheduler.Window{Start: appt.StartsAt, End: appt.EndsAt}, lo, hi); ok {
			blocked = append(blocked, w)
		}
	}

	scheduler.SortWindows(available)
	scheduler.SortWindows(blocked)

	result = Availability{
		TherapistID: therapistID,
		Timezone:    tzName,
		RangeStart:  s.tz.FromUTC(lo, tzName),
		RangeEnd:    s.tz.FromUTC(hi, tzName),
		Available:   available,
		Blocked:     blocked,
	}
	return
}

func (s *AvailabilityService) collectWindows(ctx context.Context, therapistID string, kind persistence.RuleKind, lo, hi time.Time) ([]scheduler.Window, error) {
	occurrences, err := s.occurrences.ListOccurrences(ctx, persistence.OccurrenceFilter{
		TherapistID:  therapistID,
		Kind:         kind,
		StartsBefore: hi,
		EndsAfter:    lo,
	})
	if err != nil {
		return nil, mapRepoError(err)
	}

	windows := make([]scheduler.Window, 0, len(occurrences))
	for _, occ := range occurrences {
		if w, ok := scheduler.Clip(scheduler.Window{Start: occ.StartsAt, End: occ.EndsAt}, lo, hi); ok {
			windows = append(windows, w)
		}
	}
	return windows, nil
}
