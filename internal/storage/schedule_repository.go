package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/karimbh/advisorly/internal/availability"
	"github.com/karimbh/advisorly/libs/db"
)

// ScheduleRepository stores the recurring weekly working-hours rules per
// advisor. It implements availability.Calendar.
type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

// Rules returns every working-hours rule for the advisor, all weekdays.
// An advisor with no rows at all is unknown; an advisor whose rows simply
// skip a weekday is closed that day.
func (r *ScheduleRepository) Rules(ctx context.Context, advisorID string) ([]availability.Rule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT weekday, start_minute, end_minute, comment
		FROM advisor_working_hours
		WHERE advisor_id = $1
		ORDER BY weekday ASC, start_minute ASC
	`, advisorID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []availability.Rule
	for rows.Next() {
		var weekday int
		var rule availability.Rule
		if err := rows.Scan(&weekday, &rule.StartMinute, &rule.EndMinute, &rule.Comment); err != nil {
			return nil, err
		}
		rule.Weekday = time.Weekday(weekday)
		out = append(out, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: advisor %s", availability.ErrUnknownResource, advisorID)
	}
	return out, nil
}

// ReplaceRules swaps an advisor's whole weekly schedule in one transaction.
// Rules are validated before any row is touched.
func (r *ScheduleRepository) ReplaceRules(ctx context.Context, advisorID string, rules []availability.Rule) error {
	for _, rule := range rules {
		if err := rule.Validate(); err != nil {
			return err
		}
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		DELETE FROM advisor_working_hours WHERE advisor_id = $1
	`, advisorID); err != nil {
		return err
	}

	for _, rule := range rules {
		if _, err := tx.Exec(ctx, `
			INSERT INTO advisor_working_hours (advisor_id, weekday, start_minute, end_minute, comment)
			VALUES ($1, $2, $3, $4, $5)
		`, advisorID, int(rule.Weekday), rule.StartMinute, rule.EndMinute, rule.Comment); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
