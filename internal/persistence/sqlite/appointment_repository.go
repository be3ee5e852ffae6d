package sqlite

import (
	"context"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
)

// AppointmentRepository implements persistence.AppointmentRepository using SQLite.
type AppointmentRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewAppointmentRepository creates a new SQLite appointment repository.
func NewAppointmentRepository(pool *ConnectionPool) *AppointmentRepository {
	return &AppointmentRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateAppointment inserts a booked session.
func (r *AppointmentRepository) CreateAppointment(ctx context.Context, appt persistence.Appointment) error {
	query := `
		INSERT INTO appointments (id, therapist_id, starts_at, ends_at, is_cancelled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		appt.ID,
		appt.TherapistID,
		formatTime(appt.StartsAt),
		formatTime(appt.EndsAt),
		boolToInt(appt.IsCancelled),
		formatTime(appt.CreatedAt),
		formatTime(appt.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// ListActiveAppointments returns non-cancelled appointments overlapping
// the window, ordered by start. Zero bounds leave that side open.
func (r *AppointmentRepository) ListActiveAppointments(ctx context.Context, therapistID string, startsBefore, endsAfter time.Time) ([]persistence.Appointment, error) {
	query := `
		SELECT id, therapist_id, starts_at, ends_at, is_cancelled, created_at, updated_at
		FROM appointments
		WHERE therapist_id = ? AND is_cancelled = 0
	`
	args := []any{therapistID}
	if !startsBefore.IsZero() {
		query += " AND starts_at < ?"
		args = append(args, formatTime(startsBefore))
	}
	if !endsAfter.IsZero() {
		query += " AND ends_at > ?"
		args = append(args, formatTime(endsAfter))
	}
	query += " ORDER BY starts_at, id"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	appointments := make([]persistence.Appointment, 0)
	for rows.Next() {
		var appt persistence.Appointment
		var startsAt, endsAt, createdAt, updatedAt string
		var isCancelled int

		if err := rows.Scan(&appt.ID, &appt.TherapistID, &startsAt, &endsAt, &isCancelled, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		appt.IsCancelled = isCancelled != 0
		if appt.StartsAt, err = parseTime(startsAt); err != nil {
			return nil, err
		}
		if appt.EndsAt, err = parseTime(endsAt); err != nil {
			return nil, err
		}
		if appt.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		if appt.UpdatedAt, err = parseTime(updatedAt); err != nil {
			return nil, err
		}
		appointments = append(appointments, appt)
	}
	return appointments, rows.Err()
}
