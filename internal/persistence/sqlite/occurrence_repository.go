package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
)

// OccurrenceRepository implements persistence.OccurrenceRepository using SQLite.
type OccurrenceRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewOccurrenceRepository creates a new SQLite occurrence repository.
func NewOccurrenceRepository(pool *ConnectionPool) *OccurrenceRepository {
	return &OccurrenceRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const occurrenceColumns = `id, therapist_id, rule_id, kind, starts_at, ends_at,
	note, is_skipped, is_generated, created_at, updated_at`

// CreateOccurrence inserts a single occurrence.
func (r *OccurrenceRepository) CreateOccurrence(ctx context.Context, occ persistence.Occurrence) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return r.insertTx(tx, occ)
	})
}

// CreateRuleWithOccurrence persists a rule and its first occurrence in one
// transaction, so a failed occurrence insert never leaves an orphan rule.
func (r *OccurrenceRepository) CreateRuleWithOccurrence(ctx context.Context, rule persistence.Rule, occ persistence.Occurrence) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		if err := insertRuleTx(r.helper, r.mapper, tx, rule); err != nil {
			return err
		}
		return r.insertTx(tx, occ)
	})
}

// CreateGeneratedOccurrences inserts a materialization batch in a single
// transaction. Duplicate (rule_id, starts_at) pairs are ignored by the
// partial unique index, and RequireFreeDay rows are skipped when the rule
// already has a live occurrence in the same local day. Returns the number
// of rows inserted.
func (r *OccurrenceRepository) CreateGeneratedOccurrences(ctx context.Context, batch []persistence.GeneratedOccurrence) (int, error) {
	if len(batch) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		for _, candidate := range batch {
			occ := candidate.Occurrence
			if occ.RuleID == nil {
				return persistence.ErrConstraintViolation
			}

			if candidate.RequireFreeDay {
				occupied, err := r.dayOccupiedTx(tx, *occ.RuleID, candidate.DayStartUTC, candidate.DayEndUTC)
				if err != nil {
					return err
				}
				if occupied {
					continue
				}
			}

			ok, err := r.insertIgnoreTx(tx, occ)
			if err != nil {
				return err
			}
			if ok {
				inserted++
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

// GetOccurrence retrieves an occurrence by ID.
func (r *OccurrenceRepository) GetOccurrence(ctx context.Context, id string) (persistence.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM occurrences WHERE id = ?`
	row := r.helper.QueryRow(ctx, query, id)
	occ, err := scanOccurrence(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Occurrence{}, persistence.ErrNotFound
		}
		return persistence.Occurrence{}, r.mapper.MapError(err)
	}
	return occ, nil
}

// ListOccurrences returns occurrences matching the filter ordered by start.
func (r *OccurrenceRepository) ListOccurrences(ctx context.Context, filter persistence.OccurrenceFilter) ([]persistence.Occurrence, error) {
	query := `SELECT ` + occurrenceColumns + ` FROM occurrences WHERE therapist_id = ?`
	args := []any{filter.TherapistID}

	if filter.Kind != "" {
		query += " AND kind = ?"
		args = append(args, string(filter.Kind))
	}
	if !filter.IncludeSkipped {
		query += " AND is_skipped = 0"
	}
	if !filter.StartsBefore.IsZero() {
		query += " AND starts_at < ?"
		args = append(args, formatTime(filter.StartsBefore))
	}
	if !filter.EndsAfter.IsZero() {
		query += " AND ends_at > ?"
		args = append(args, formatTime(filter.EndsAfter))
	}
	query += " ORDER BY starts_at, id"

	rows, err := r.helper.Query(ctx, query, args...)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	occurrences := make([]persistence.Occurrence, 0)
	for rows.Next() {
		occ, err := scanOccurrence(rows)
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, occ)
	}
	return occurrences, rows.Err()
}

// UpdateOccurrence rewrites the mutable fields of an occurrence.
func (r *OccurrenceRepository) UpdateOccurrence(ctx context.Context, occ persistence.Occurrence) error {
	query := `
		UPDATE occurrences
		SET starts_at = ?, ends_at = ?, note = ?, is_skipped = ?, is_generated = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.helper.Exec(ctx, query,
		formatTime(occ.StartsAt),
		formatTime(occ.EndsAt),
		occ.Note,
		boolToInt(occ.IsSkipped),
		boolToInt(occ.IsGenerated),
		formatTime(occ.UpdatedAt),
		occ.ID,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// SkipOccurrence soft-deletes an occurrence. The row stays behind so the
// materializer's dedup keeps treating the slot as taken.
func (r *OccurrenceRepository) SkipOccurrence(ctx context.Context, id string, at time.Time) error {
	result, err := r.helper.Exec(ctx,
		"UPDATE occurrences SET is_skipped = 1, updated_at = ? WHERE id = ?",
		formatTime(at), id,
	)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// DeleteOccurrence removes an occurrence row entirely.
func (r *OccurrenceRepository) DeleteOccurrence(ctx context.Context, id string) error {
	result, err := r.helper.Exec(ctx, "DELETE FROM occurrences WHERE id = ?", id)
	if err != nil {
		return r.mapper.MapError(err)
	}
	return requireAffected(result)
}

// DeleteOccurrencesForRule removes every occurrence belonging to a rule.
func (r *OccurrenceRepository) DeleteOccurrencesForRule(ctx context.Context, ruleID string) error {
	_, err := r.helper.Exec(ctx, "DELETE FROM occurrences WHERE rule_id = ?", ruleID)
	return r.mapper.MapError(err)
}

// CountOccurrencesForRule counts the rows attached to a rule, skipped
// ones included.
func (r *OccurrenceRepository) CountOccurrencesForRule(ctx context.Context, ruleID string) (int, error) {
	var count int
	err := r.helper.QueryRow(ctx,
		"SELECT COUNT(1) FROM occurrences WHERE rule_id = ?", ruleID,
	).Scan(&count)
	if err != nil {
		return 0, r.mapper.MapError(err)
	}
	return count, nil
}

func (r *OccurrenceRepository) insertTx(tx *sql.Tx, occ persistence.Occurrence) error {
	query := `INSERT INTO occurrences (` + occurrenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := r.helper.ExecTx(tx, query,
		occ.ID,
		occ.TherapistID,
		nullString(occ.RuleID),
		string(occ.Kind),
		formatTime(occ.StartsAt),
		formatTime(occ.EndsAt),
		occ.Note,
		boolToInt(occ.IsSkipped),
		boolToInt(occ.IsGenerated),
		formatTime(occ.CreatedAt),
		formatTime(occ.UpdatedAt),
	)
	return r.mapper.MapError(err)
}

func (r *OccurrenceRepository) insertIgnoreTx(tx *sql.Tx, occ persistence.Occurrence) (bool, error) {
	query := `INSERT OR IGNORE INTO occurrences (` + occurrenceColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	result, err := r.helper.ExecTx(tx, query,
		occ.ID,
		occ.TherapistID,
		nullString(occ.RuleID),
		string(occ.Kind),
		formatTime(occ.StartsAt),
		formatTime(occ.EndsAt),
		occ.Note,
		boolToInt(occ.IsSkipped),
		boolToInt(occ.IsGenerated),
		formatTime(occ.CreatedAt),
		formatTime(occ.UpdatedAt),
	)
	if err != nil {
		return false, r.mapper.MapError(err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

func (r *OccurrenceRepository) dayOccupiedTx(tx *sql.Tx, ruleID string, dayStart, dayEnd time.Time) (bool, error) {
	var count int
	err := r.helper.QueryRowTx(tx, `
		SELECT COUNT(1) FROM occurrences
		WHERE rule_id = ? AND is_skipped = 0 AND starts_at >= ? AND starts_at < ?
	`, ruleID, formatTime(dayStart), formatTime(dayEnd)).Scan(&count)
	if err != nil {
		return false, r.mapper.MapError(err)
	}
	return count > 0, nil
}

func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return persistence.ErrNotFound
	}
	return nil
}

func scanOccurrence(row rowScanner) (persistence.Occurrence, error) {
	var occ persistence.Occurrence
	var ruleID sql.NullString
	var kind, startsAt, endsAt, createdAt, updatedAt string
	var isSkipped, isGenerated int

	err := row.Scan(
		&occ.ID,
		&occ.TherapistID,
		&ruleID,
		&kind,
		&startsAt,
		&endsAt,
		&occ.Note,
		&isSkipped,
		&isGenerated,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Occurrence{}, err
	}

	occ.Kind = persistence.RuleKind(kind)
	occ.IsSkipped = isSkipped != 0
	occ.IsGenerated = isGenerated != 0
	if ruleID.Valid {
		value := ruleID.String
		occ.RuleID = &value
	}

	if occ.StartsAt, err = parseTime(startsAt); err != nil {
		return persistence.Occurrence{}, err
	}
	if occ.EndsAt, err = parseTime(endsAt); err != nil {
		return persistence.Occurrence{}, err
	}
	if occ.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Occurrence{}, err
	}
	if occ.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Occurrence{}, err
	}
	return occ, nil
}
