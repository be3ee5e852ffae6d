package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/example/therapist-scheduler/internal/persistence"
	"github.com/example/therapist-scheduler/internal/timezone"
)

// RuleRepository implements persistence.RuleRepository using SQLite.
type RuleRepository struct {
	pool   *ConnectionPool
	helper *QueryHelper
	mapper *ErrorMapper
}

// NewRuleRepository creates a new SQLite rule repository.
func NewRuleRepository(pool *ConnectionPool) *RuleRepository {
	return &RuleRepository{
		pool:   pool,
		helper: NewQueryHelper(pool),
		mapper: NewErrorMapper(),
	}
}

const ruleColumns = `id, therapist_id, kind, cadence, weekday, repeat_interval,
	start_date, start_time, end_time, repeat_until, note, is_active, created_at, updated_at`

// CreateRule inserts a new recurrence rule.
func (r *RuleRepository) CreateRule(ctx context.Context, rule persistence.Rule) error {
	return r.pool.WithTransaction(ctx, func(tx *sql.Tx) error {
		return insertRuleTx(r.helper, r.mapper, tx, rule)
	})
}

func insertRuleTx(helper *QueryHelper, mapper *ErrorMapper, tx *sql.Tx, rule persistence.Rule) error {
	query := `
		INSERT INTO rules (` + ruleColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var weekday sql.NullInt64
	if rule.Weekday != nil {
		weekday = sql.NullInt64{Int64: int64(*rule.Weekday), Valid: true}
	}
	var repeatUntil sql.NullString
	if rule.RepeatUntil != nil {
		repeatUntil = sql.NullString{String: formatDate(*rule.RepeatUntil), Valid: true}
	}

	_, err := helper.ExecTx(tx, query,
		rule.ID,
		rule.TherapistID,
		string(rule.Kind),
		string(rule.Cadence),
		weekday,
		rule.RepeatInterval,
		formatDate(rule.StartDate),
		formatTimeOfDay(rule.StartTime),
		formatTimeOfDay(rule.EndTime),
		repeatUntil,
		rule.Note,
		boolToInt(rule.IsActive),
		formatTime(rule.CreatedAt),
		formatTime(rule.UpdatedAt),
	)
	return mapper.MapError(err)
}

// GetRule retrieves a rule by ID.
func (r *RuleRepository) GetRule(ctx context.Context, id string) (persistence.Rule, error) {
	query := `SELECT ` + ruleColumns + ` FROM rules WHERE id = ?`
	row := r.helper.QueryRow(ctx, query, id)
	rule, err := scanRule(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return persistence.Rule{}, persistence.ErrNotFound
		}
		return persistence.Rule{}, r.mapper.MapError(err)
	}
	return rule, nil
}

// ListActiveRules returns active rules of a kind that could fire within
// the inclusive local date range.
func (r *RuleRepository) ListActiveRules(ctx context.Context, therapistID string, kind persistence.RuleKind, rangeStart, rangeEnd timezone.Date) ([]persistence.Rule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM rules
		WHERE therapist_id = ?
		  AND kind = ?
		  AND is_active = 1
		  AND start_date <= ?
		  AND (repeat_until IS NULL OR repeat_until >= ?)
		ORDER BY start_date, id
	`
	rows, err := r.helper.Query(ctx, query,
		therapistID,
		string(kind),
		formatDate(rangeEnd),
		formatDate(rangeStart),
	)
	if err != nil {
		return nil, r.mapper.MapError(err)
	}
	defer rows.Close()

	rules := make([]persistence.Rule, 0)
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// DeactivateRule marks a rule inactive so the materializer ignores it.
func (r *RuleRepository) DeactivateRule(ctx context.Context, id string, at time.Time) error {
	result, err := r.helper.Exec(ctx,
		"UPDATE rules SET is_active = 0, updated_at = ? WHERE id = ?",
		formatTime(at), id,
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

func scanRule(row rowScanner) (persistence.Rule, error) {
	var rule persistence.Rule
	var kind, cadence string
	var weekday sql.NullInt64
	var startDate, startTime, endTime, createdAt, updatedAt string
	var repeatUntil sql.NullString
	var isActive int

	err := row.Scan(
		&rule.ID,
		&rule.TherapistID,
		&kind,
		&cadence,
		&weekday,
		&rule.RepeatInterval,
		&startDate,
		&startTime,
		&endTime,
		&repeatUntil,
		&rule.Note,
		&isActive,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return persistence.Rule{}, err
	}

	rule.Kind = persistence.RuleKind(kind)
	rule.Cadence = persistence.Cadence(cadence)
	rule.IsActive = isActive != 0
	if weekday.Valid {
		value := int(weekday.Int64)
		rule.Weekday = &value
	}

	if rule.StartDate, err = parseDate(startDate); err != nil {
		return persistence.Rule{}, err
	}
	if rule.StartTime, err = parseTimeOfDay(startTime); err != nil {
		return persistence.Rule{}, err
	}
	if rule.EndTime, err = parseTimeOfDay(endTime); err != nil {
		return persistence.Rule{}, err
	}
	if repeatUntil.Valid {
		until, err := parseDate(repeatUntil.String)
		if err != nil {
			return persistence.Rule{}, err
		}
		rule.RepeatUntil = &until
	}
	if rule.CreatedAt, err = parseTime(createdAt); err != nil {
		return persistence.Rule{}, err
	}
	if rule.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return persistence.Rule{}, err
	}
	return rule, nil
}
