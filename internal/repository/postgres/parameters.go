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

const snapshotColumns = `
	id, patient_id, session_id, target_laterality, target_region,
	coord_left_x, coord_left_y, coord_right_x, coord_right_y,
	rmt_left, rmt_right,
	intensity_percent_left, intensity_percent_right,
	intensity_output_left, intensity_output_right,
	coil_type, protocol_id, created_at
`

func (r *parameterRepository) Latest(ctx context.Context, patientID uuid.UUID) (*model.ParameterSnapshot, error) {
	query := `
		SELECT ` + snapshotColumns + `
		FROM session_parameters
		WHERE patient_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`
	var snapshot model.ParameterSnapshot
	err := r.db.GetContext(ctx, &snapshot, query, patientID)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("parameter snapshot", err)
		}
		return nil, apperrors.Storage(fmt.Errorf("failed to get latest snapshot: %w", err))
	}
	return &snapshot, nil
}

func (r *parameterRepository) Create(ctx context.Context, snapshot *model.ParameterSnapshot) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return insertSnapshotTx(ctx, tx, snapshot)
	})
}

// insertSnapshotTx appends a snapshot row; snapshots are immutable so there
// is no corresponding update.
func insertSnapshotTx(ctx context.Context, tx *sqlx.Tx, snapshot *model.ParameterSnapshot) error {
	if snapshot == nil {
		return nil
	}
	if snapshot.ID == uuid.Nil {
		snapshot.ID = uuid.New()
	}
	if snapshot.CreatedAt.IsZero() {
		snapshot.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO session_parameters (` + snapshotColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := tx.ExecContext(ctx, query,
		snapshot.ID,
		snapshot.PatientID,
		snapshot.SessionID,
		snapshot.TargetLaterality,
		snapshot.TargetRegion,
		snapshot.CoordLeftX,
		snapshot.CoordLeftY,
		snapshot.CoordRightX,
		snapshot.CoordRightY,
		snapshot.RMTLeft,
		snapshot.RMTRight,
		snapshot.IntensityPercentLeft,
		snapshot.IntensityPercentRight,
		snapshot.IntensityOutputLeft,
		snapshot.IntensityOutputRight,
		snapshot.CoilType,
		snapshot.ProtocolID,
		snapshot.CreatedAt,
	)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to insert parameter snapshot: %w", err))
	}
	return nil
}
