package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nibsworks/tms-scheduler/internal/model"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
)

func (r *holidayRepository) Create(ctx context.Context, holiday *model.Holiday) error {
	query := `
		INSERT INTO holidays (
			id, holiday_date, holiday_name, skip_enabled, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`
	holiday.ID = uuid.New()
	holiday.CreatedAt = time.Now()
	holiday.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		holiday.ID,
		holiday.HolidayDate,
		holiday.HolidayName,
		holiday.SkipEnabled,
		holiday.CreatedAt,
		holiday.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("holiday for this date already exists", err)
		}
		return apperrors.Storage(fmt.Errorf("failed to create holiday: %w", err))
	}
	return nil
}

func (r *holidayRepository) List(ctx context.Context) ([]*model.Holiday, error) {
	query := `
		SELECT id, holiday_date, holiday_name, skip_enabled, created_at, updated_at
		FROM holidays
		ORDER BY holiday_date ASC
	`
	var holidays []*model.Holiday
	err := r.db.SelectContext(ctx, &holidays, query)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to list holidays: %w", err))
	}
	return holidays, nil
}

func (r *holidayRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM holidays WHERE id = $1`, id)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to delete holiday: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return apperrors.NotFound("holiday", nil)
	}
	return nil
}

func (r *holidayRepository) ExistsEnabled(ctx context.Context, date time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM holidays
			WHERE holiday_date = $1 AND skip_enabled = TRUE
		)
	`
	var exists bool
	err := r.db.GetContext(ctx, &exists, query, date)
	if err != nil {
		return false, apperrors.Storage(fmt.Errorf("failed to check holiday: %w", err))
	}
	return exists, nil
}
