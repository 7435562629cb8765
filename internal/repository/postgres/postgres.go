package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nibsworks/tms-scheduler/internal/model"
	"github.com/nibsworks/tms-scheduler/internal/repository"
	apperrors "github.com/nibsworks/tms-scheduler/pkg/errors"
)

type patientRepository struct {
	db *sqlx.DB
}

type protocolRepository struct {
	db *sqlx.DB
}

type holidayRepository struct {
	db *sqlx.DB
}

type sessionRepository struct {
	db *sqlx.DB
}

type slotRepository struct {
	db *sqlx.DB
}

type parameterRepository struct {
	db *sqlx.DB
}

type outboxRepository struct {
	db *sqlx.DB
}

func NewPatientRepository(db *sqlx.DB) repository.PatientRepository {
	return &patientRepository{db: db}
}

func NewProtocolRepository(db *sqlx.DB) repository.ProtocolRepository {
	return &protocolRepository{db: db}
}

func NewHolidayRepository(db *sqlx.DB) repository.HolidayRepository {
	return &holidayRepository{db: db}
}

func NewSessionRepository(db *sqlx.DB) repository.SessionRepository {
	return &sessionRepository{db: db}
}

func NewSlotRepository(db *sqlx.DB) repository.SlotRepository {
	return &slotRepository{db: db}
}

func NewParameterRepository(db *sqlx.DB) repository.ParameterRepository {
	return &parameterRepository{db: db}
}

func NewOutboxRepository(db *sqlx.DB) repository.OutboxRepository {
	return &outboxRepository{db: db}
}

// withTx runs fn inside a transaction, committing on success and rolling
// back on any failure.
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to begin transaction: %w", err))
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return apperrors.Storage(fmt.Errorf("rollback failed: %v (original: %w)", rbErr, err))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperrors.Storage(fmt.Errorf("failed to commit transaction: %w", err))
	}
	return nil
}

// isUniqueViolation reports whether err is a postgres unique constraint
// violation (duplicate MRN, protocol name or holiday date).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// insertOutboxTx appends an outbox event inside the caller's transaction so
// the event commits or rolls back with the domain change it describes.
func insertOutboxTx(ctx context.Context, tx *sqlx.Tx, evt *model.OutboxEvent) error {
	if evt == nil {
		return nil
	}
	query := `
		INSERT INTO outbox_events (
			id, event_type, payload, status, retry_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := tx.ExecContext(ctx, query,
		evt.ID,
		evt.EventType,
		evt.Payload,
		evt.Status,
		evt.RetryCount,
		evt.CreatedAt,
		evt.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert outbox event: %w", err)
	}
	return nil
}
