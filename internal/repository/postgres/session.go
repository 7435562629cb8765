package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/nibsworks/tms-scheduler/internal/model"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
)

const sessionColumns = `
	id, patient_id, session_number, session_date, protocol_id,
	target_laterality, target_region,
	coord_left_x, coord_left_y, coord_right_x, coord_right_y,
	rmt_left, rmt_right,
	intensity_percent_left, intensity_percent_right,
	intensity_output_left, intensity_output_right,
	coil_type, side_effects, remarks, status,
	created_at, updated_at
`

func (r *sessionRepository) MaxSessionNumber(ctx context.Context, patientID uuid.UUID) (int, error) {
	query := `
		SELECT COALESCE(MAX(session_number), 0)
		FROM tms_sessions
		WHERE patient_id = $1
	`
	var max int
	err := r.db.GetContext(ctx, &max, query, patientID)
	if err != nil {
		return 0, apperrors.Storage(fmt.Errorf("failed to get max session number: %w", err))
	}
	return max, nil
}

func (r *sessionRepository) CreateWithSlot(ctx context.Context, session *model.Session, slot *model.Slot) error {
	now := time.Now()
	session.ID = uuid.New()
	session.CreatedAt = now
	session.UpdatedAt = now
	slot.ID = uuid.New()
	slot.SessionID = session.ID
	slot.CreatedAt = now
	slot.UpdatedAt = now

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		sessionQuery := `
			INSERT INTO tms_sessions (
				id, patient_id, session_number, session_date, protocol_id,
				status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err := tx.ExecContext(ctx, sessionQuery,
			session.ID,
			session.PatientID,
			session.SessionNumber,
			session.SessionDate,
			session.ProtocolID,
			session.Status,
			session.CreatedAt,
			session.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.Conflict("session number already taken for patient", err)
			}
			return apperrors.Storage(fmt.Errorf("failed to create session: %w", err))
		}

		slotQuery := `
			INSERT INTO daily_slots (
				id, slot_date, session_id, scheduled_time, slot_duration,
				status, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		`
		_, err = tx.ExecContext(ctx, slotQuery,
			slot.ID,
			slot.SlotDate,
			slot.SessionID,
			slot.ScheduledTime,
			slot.SlotDuration,
			slot.Status,
			slot.CreatedAt,
			slot.UpdatedAt,
		)
		if err != nil {
			return apperrors.Storage(fmt.Errorf("failed to create slot: %w", err))
		}
		return nil
	})
}

func (r *sessionRepository) Get(ctx context.Context, id uuid.UUID) (*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM tms_sessions WHERE id = $1`

	var session model.Session
	err := r.db.GetContext(ctx, &session, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("session", err)
		}
		return nil, apperrors.Storage(fmt.Errorf("failed to get session: %w", err))
	}
	return &session, nil
}

func (r *sessionRepository) List(ctx context.Context, filters *model.SessionFilters) ([]*model.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM tms_sessions WHERE 1=1`
	args := []interface{}{}
	argCount := 1

	if filters.PatientID != uuid.Nil {
		query += fmt.Sprintf(" AND patient_id = $%d", argCount)
		args = append(args, filters.PatientID)
		argCount++
	}
	if filters.Date != nil {
		query += fmt.Sprintf(" AND session_date = $%d", argCount)
		args = append(args, *filters.Date)
		argCount++
	}
	if filters.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argCount)
		args = append(args, filters.Status)
		argCount++
	}

	query += " ORDER BY session_number ASC"

	var sessions []*model.Session
	err := r.db.SelectContext(ctx, &sessions, query, args...)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to list sessions: %w", err))
	}
	return sessions, nil
}

func (r *sessionRepository) Complete(ctx context.Context, session *model.Session, snapshot *model.ParameterSnapshot, evt *model.OutboxEvent) error {
	session.UpdatedAt = time.Now()

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		sessionQuery := `
			UPDATE tms_sessions
			SET protocol_id = $1, target_laterality = $2, target_region = $3,
				coord_left_x = $4, coord_left_y = $5, coord_right_x = $6, coord_right_y = $7,
				rmt_left = $8, rmt_right = $9,
				intensity_percent_left = $10, intensity_percent_right = $11,
				intensity_output_left = $12, intensity_output_right = $13,
				coil_type = $14, side_effects = $15, remarks = $16,
				status = $17, updated_at = $18
			WHERE id = $19
		`
		result, err := tx.ExecContext(ctx, sessionQuery,
			session.ProtocolID,
			session.TargetLaterality,
			session.TargetRegion,
			session.CoordLeftX,
			session.CoordLeftY,
			session.CoordRightX,
			session.CoordRightY,
			session.RMTLeft,
			session.RMTRight,
			session.IntensityPercentLeft,
			session.IntensityPercentRight,
			session.IntensityOutputLeft,
			session.IntensityOutputRight,
			session.CoilType,
			session.SideEffects,
			session.Remarks,
			session.Status,
			session.UpdatedAt,
			session.ID,
		)
		if err != nil {
			return apperrors.Storage(fmt.Errorf("failed to update session: %w", err))
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return apperrors.Storage(fmt.Errorf("failed to get rows affected: %w", err))
		}
		if rows == 0 {
			return apperrors.NotFound("session", nil)
		}

		slotQuery := `
			UPDATE daily_slots
			SET status = $1, updated_at = $2
			WHERE session_id = $3
		`
		if _, err := tx.ExecContext(ctx, slotQuery, model.SlotStatusCompleted, session.UpdatedAt, session.ID); err != nil {
			return apperrors.Storage(fmt.Errorf("failed to update slot status: %w", err))
		}

		if err := insertSnapshotTx(ctx, tx, snapshot); err != nil {
			return err
		}
		return insertOutboxTx(ctx, tx, evt)
	})
}

func (r *sessionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// The slot goes with the session to keep the 1:1 pairing intact.
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM daily_slots WHERE session_id = $1`, id); err != nil {
			return apperrors.Storage(fmt.Errorf("failed to delete slot: %w", err))
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM tms_sessions WHERE id = $1`, id)
		if err != nil {
			return apperrors.Storage(fmt.Errorf("failed to delete session: %w", err))
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return apperrors.Storage(fmt.Errorf("failed to get rows affected: %w", err))
		}
		if rows == 0 {
			return apperrors.NotFound("session", nil)
		}
		return nil
	})
}
