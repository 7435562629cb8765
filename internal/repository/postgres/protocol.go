package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/nibsworks/tms-scheduler/internal/model"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
)

func (r *protocolRepository) Create(ctx context.Context, protocol *model.Protocol) error {
	query := `
		INSERT INTO protocol_library (
			id, protocol_name, waveform_type, burst_pulses, inter_pulse_interval,
			pulse_rate, pulses_per_train, num_trains, inter_train_interval,
			session_duration, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	protocol.ID = uuid.New()
	protocol.CreatedAt = time.Now()
	protocol.UpdatedAt = time.Now()

	_, err := r.db.ExecContext(ctx, query,
		protocol.ID,
		protocol.ProtocolName,
		protocol.WaveformType,
		protocol.BurstPulses,
		protocol.InterPulseInterval,
		protocol.PulseRate,
		protocol.PulsesPerTrain,
		protocol.NumTrains,
		protocol.InterTrainInterval,
		protocol.SessionDuration,
		protocol.CreatedAt,
		protocol.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("protocol with this name already exists", err)
		}
		return apperrors.Storage(fmt.Errorf("failed to create protocol: %w", err))
	}
	return nil
}

func (r *protocolRepository) Get(ctx context.Context, id uuid.UUID) (*model.Protocol, error) {
	query := `
		SELECT id, protocol_name, waveform_type, burst_pulses, inter_pulse_interval,
			   pulse_rate, pulses_per_train, num_trains, inter_train_interval,
			   session_duration, created_at, updated_at
		FROM protocol_library
		WHERE id = $1
	`
	var protocol model.Protocol
	err := r.db.GetContext(ctx, &protocol, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("protocol", err)
		}
		return nil, apperrors.Storage(fmt.Errorf("failed to get protocol: %w", err))
	}
	return &protocol, nil
}

func (r *protocolRepository) List(ctx context.Context) ([]*model.Protocol, error) {
	query := `
		SELECT id, protocol_name, waveform_type, burst_pulses, inter_pulse_interval,
			   pulse_rate, pulses_per_train, num_trains, inter_train_interval,
			   session_duration, created_at, updated_at
		FROM protocol_library
		ORDER BY protocol_name ASC
	`
	var protocols []*model.Protocol
	err := r.db.SelectContext(ctx, &protocols, query)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to list protocols: %w", err))
	}
	return protocols, nil
}

func (r *protocolRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Sessions referencing the protocol keep an orphaned protocol_id
	// (FK is ON DELETE SET NULL); that is tolerated.
	result, err := r.db.ExecContext(ctx, `DELETE FROM protocol_library WHERE id = $1`, id)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to delete protocol: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return apperrors.NotFound("protocol", nil)
	}
	return nil
}
