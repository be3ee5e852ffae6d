package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/example/therapist-scheduler/internal/persistence"
)

// TherapistRepository implements persistence.TherapistRepository using SQLite.
type TherapistRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewTherapistRepository creates a new SQLite therapist repository.
func NewTherapistRepository(pool *ConnectionPool) *TherapistRepository {
	return &TherapistRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

// CreateTherapist inserts a new therapist.
func (r *TherapistRepository) CreateTherapist(ctx context.Context, therapist persistence.Therapist) error {
	query := `
		INSERT INTO therapists (id, name, timezone, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`
	_, err := r.helper.Exec(ctx, query,
		therapist.ID,
		therapist.Name,
		therapist.Timezone,
		formatTime(therapist.CreatedAt),
		formatTime(therapist.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

// UpdateTherapist updates an existing therapist.
func (r *TherapistRepository) UpdateTherapist(ctx context.Context, therapist persistence.Therapist) error {
	query := `
		UPDATE therapists SET name = ?, timezone = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		therapist.Name,
		therapist.Timezone,
		formatTime(therapist.UpdatedAt),
		therapist.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

// GetTherapist retrieves a therapist by ID.
func (r *TherapistRepository) GetTherapist(ctx context.Context, id string) (persistence.Therapist, error) {
	query := `
		SELECT id, name, timezone, created_at, updated_at
		FROM therapists WHERE id = ?
	`
	row := r.helper.QueryRow(ctx, query, id)
	therapist, err := scanTherapist(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Therapist{}, persistence.ErrNotFound
		}
		return persistence.Therapist{}, r.mapper.MapError(err)
	}
	return therapist, nil
}

// ListTherapists returns all therapists ordered by name, then ID.
func (r *TherapistRepository) ListTherapists(ctx context.Context) ([]persistence.Therapist, error) {
	query := `
		SELECT id, name, timezone, created_at, updated_at
		FROM therapists ORDER BY name, id
	`
	rows, err := r.helper.Query(ctx, query)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	therapists := make([]persistence.Therapist, 0)
	for rows.Next() {
		therapist, err := scanTherapist(rows)
		if err != nil {
			return nil, err
		}
		therapists = append(therapists, therapist)
	}
	return therapists, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTherapist(row rowScanner) (persistence.Therapist, error) {
	var therapist persistence.Therapist
	var createdAt, updatedAt string

	if err := row.Scan(&therapist.ID, &therapist.Name, &therapist.Timezone, &createdAt, &updatedAt); err != nil {
		return persistence.Therapist{}, err
	}

	var err error
	if therapist.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Therapist{}, err
	}
	if therapist.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Therapist{}, err
	}
	return therapist, nil
}
