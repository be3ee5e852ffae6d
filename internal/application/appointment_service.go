package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/timezone"
)

// AppointmentStore exposes the appointment persistence operations.
type AppointmentStore interface {
	CreateAppointment(ctx context.Context, appt persistence.Appointment) error
	ListActiveAppointments(ctx context.Context, therapistID string, startsBefore, endsAfter time.Time) ([]persistence.Appointment, error)
}

// AppointmentService books client sessions against a therapist's calendar.
// Bookings are recorded as-is; whether a slot is actually free is the
// availability query's concern.
type AppointmentService struct {
	therapists   TherapistDirectory
	appointments AppointmentStore
	tz           *timezone.Converter
	idGenerator  func() string
	now          func() time.Time
	logger       *slog.Logger
}

// NewAppointmentService constructs an appointment service.
func NewAppointmentService(
	therapists TherapistDirectory,
	appointments AppointmentStore,
	tz *timezone.Converter,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
) *AppointmentService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &AppointmentService{
		therapists:   therapists,
		appointments: appointments,
		tz:           tz,
		idGenerator:  idGenerator,
		now:          now,
		logger:       defaultLogger(logger),
	}
}

func (s *AppointmentService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "AppointmentService", operation, attrs...)
}

// CreateAppointment books a session in therapist-local time.
func (s *AppointmentService) CreateAppointment(ctx context.Context, therapistID string, input AppointmentInput) (view AppointmentView, err error) {
	logger := s.loggerWith(ctx, "CreateAppointment", "therapist_id", therapistID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create appointment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("appointment_id", view.ID).InfoContext(ctx, "appointment created")
	}()

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

	startsUTC := s.tz.ToUTC(input.StartsAt, tzName)
	endsUTC := s.tz.ToUTC(input.EndsAt, tzName)
	if !endsUTC.After(startsUTC) {
		vErr.add("ends_at", "ends_at must be after starts_at")
		err = vErr
		return
	}

	createdAt := s.now().UTC()
	appt := persistence.Appointment{
		ID:          s.idGenerator(),
		TherapistID: therapistID,
		StartsAt:    startsUTC,
		EndsAt:      endsUTC,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}

	if err = s.appointments.CreateAppointment(ctx, appt); err != nil {
		err = mapRepoError(err)
		return
	}
	view = newAppointmentView(appt, tzName)
	return
}

// ListAppointments returns non-cancelled appointments overlapping the
// given local range. Zero bounds leave that side open.
func (s *AppointmentService) ListAppointments(ctx context.Context, therapistID string, rng ListRange) (views []AppointmentView, err error) {
	logger := s.loggerWith(ctx, "ListAppointments", "therapist_id", therapistID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to list appointments", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("count", len(views)).DebugContext(ctx, "appointments listed")
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

	appointments, err := s.appointments.ListActiveAppointments(ctx, therapistID, hi, lo)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	views = make([]AppointmentView, 0, len(appointments))
	for _, appt := range appointments {
		views = append(views, newAppointmentView(appt, tzName))
	}
	return
}
