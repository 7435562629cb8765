package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/nibsworks/tms-scheduler/internal/model"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
)

func (r *slotRepository) ListByDate(ctx context.Context, date time.Time) ([]*model.Slot, error) {
	query := `
		SELECT id, slot_date, session_id, scheduled_time, slot_duration,
			   status, sr_name, jr1_name, jr2_name, created_at, updated_at
		FROM daily_slots
		WHERE slot_date = $1
		ORDER BY scheduled_time ASC
	`
	var slots []*model.Slot
	err := r.db.SelectContext(ctx, &slots, query, date)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to list slots: %w", err))
	}
	return slots, nil
}

func (r *slotRepository) CountByDate(ctx context.Context, date time.Time) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM daily_slots WHERE slot_date = $1`, date)
	if err != nil {
		return 0, apperrors.Storage(fmt.Errorf("failed to count slots: %w", err))
	}
	return count, nil
}

func (r *slotRepository) StatusCountsByDate(ctx context.Context, date time.Time) (map[string]int, error) {
	query := `
		SELECT status, COUNT(*) AS count
		FROM daily_slots
		WHERE slot_date = $1
		GROUP BY status
	`
	rows, err := r.db.QueryxContext(ctx, query, date)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to count slot statuses: %w", err))
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, apperrors.Storage(fmt.Errorf("failed to scan status count: %w", err))
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to iterate status counts: %w", err))
	}
	return counts, nil
}

func (r *slotRepository) DailySchedule(ctx context.Context, date time.Time) ([]*model.DailyScheduleEntry, error) {
	query := `
		SELECT p.name AS patient_name,
			   ts.session_number,
			   pl.protocol_name,
			   CASE WHEN ts.target_laterality IS NULL AND ts.target_region IS NULL THEN NULL
					ELSE TRIM(COALESCE(ts.target_laterality, '') || ' ' || COALESCE(ts.target_region, ''))
			   END AS target,
			   ds.scheduled_time,
			   ds.status,
			   ds.slot_duration
		FROM daily_slots ds
		JOIN tms_sessions ts ON ds.session_id = ts.id
		JOIN patients p ON ts.patient_id = p.id
		LEFT JOIN protocol_library pl ON ts.protocol_id = pl.id
		WHERE ds.slot_date = $1
		ORDER BY ds.scheduled_time ASC
	`
	var entries []*model.DailyScheduleEntry
	err := r.db.SelectContext(ctx, &entries, query, date)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to load daily schedule: %w", err))
	}
	return entries, nil
}

func (r *slotRepository) AssignStaff(ctx context.Context, date time.Time, sr, jr1, jr2 string) error {
	query := `
		UPDATE daily_slots
		SET sr_name = $1, jr1_name = $2, jr2_name = $3, updated_at = $4
		WHERE slot_date = $5
	`
	_, err := r.db.ExecContext(ctx, query, sr, jr1, jr2, time.Now(), date)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to assign staff: %w", err))
	}
	return nil
}
