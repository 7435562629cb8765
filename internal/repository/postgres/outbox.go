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

func (r *outboxRepository) Create(ctx context.Context, event *model.OutboxEvent) error {
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		return insertOutboxTx(ctx, tx, event)
	})
}

func (r *outboxRepository) GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error) {
	query := `
		SELECT id, event_type, payload, status, error_message, retry_count,
			   created_at, processed_at, updated_at
		FROM outbox_events
		WHERE status = $1
		ORDER BY created_at ASC
		LIMIT $2
	`
	var events []*model.OutboxEvent
	err := r.db.SelectContext(ctx, &events, query, model.OutboxStatusPending, limit)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to get pending events: %w", err))
	}
	return events, nil
}

func (r *outboxRepository) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	now := time.Now()
	query := `
		UPDATE outbox_events
		SET status = $1, processed_at = $2, updated_at = $2
		WHERE id = $3
	`
	_, err := r.db.ExecContext(ctx, query, model.OutboxStatusProcessed, now, id)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to mark event processed: %w", err))
	}
	return nil
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error {
	query := `
		UPDATE outbox_events
		SET status = $1, error_message = $2, updated_at = $3
		WHERE id = $4
	`
	_, err := r.db.ExecContext(ctx, query, model.OutboxStatusFailed, errorMessage, time.Now(), id)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to mark event failed: %w", err))
	}
	return nil
}

func (r *outboxRepository) IncrementRetry(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE outbox_events
		SET retry_count = retry_count + 1, updated_at = $1
		WHERE id = $2
	`
	_, err := r.db.ExecContext(ctx, query, time.Now(), id)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to increment retry count: %w", err))
	}
	return nil
}
