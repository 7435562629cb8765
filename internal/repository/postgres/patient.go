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

func (r *patientRepository) Create(ctx context.Context, patient *model.Patient, evt *model.OutboxEvent) error {
	query := `
		INSERT INTO patients (
			id, name, mrn, age, gender, primary_diagnosis,
			tass_completed, consent_obtained, referred_date, status,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	patient.ID = uuid.New()
	patient.CreatedAt = time.Now()
	patient.UpdatedAt = time.Now()

	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			patient.ID,
			patient.Name,
			patient.MRN,
			patient.Age,
			patient.Gender,
			patient.PrimaryDiagnosis,
			patient.TASSCompleted,
			patient.ConsentObtained,
			patient.ReferredDate,
			patient.Status,
			patient.CreatedAt,
			patient.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return apperrors.Conflict("patient with this MRN already exists", err)
			}
			return apperrors.Storage(fmt.Errorf("failed to create patient: %w", err))
		}
		return insertOutboxTx(ctx, tx, evt)
	})
}

func (r *patientRepository) Get(ctx context.Context, id uuid.UUID) (*model.Patient, error) {
	query := `
		SELECT id, name, mrn, age, gender, primary_diagnosis,
			   tass_completed, consent_obtained, referred_date, status,
			   created_at, updated_at
		FROM patients
		WHERE id = $1
	`
	var patient model.Patient
	err := r.db.GetContext(ctx, &patient, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("patient", err)
		}
		return nil, apperrors.Storage(fmt.Errorf("failed to get patient: %w", err))
	}
	return &patient, nil
}

func (r *patientRepository) List(ctx context.Context, status model.PatientStatus) ([]*model.Patient, error) {
	query := `
		SELECT id, name, mrn, age, gender, primary_diagnosis,
			   tass_completed, consent_obtained, referred_date, status,
			   created_at, updated_at
		FROM patients
	`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += " ORDER BY referred_date DESC"

	var patients []*model.Patient
	err := r.db.SelectContext(ctx, &patients, query, args...)
	if err != nil {
		return nil, apperrors.Storage(fmt.Errorf("failed to list patients: %w", err))
	}
	return patients, nil
}

func (r *patientRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.PatientStatus) error {
	query := `
		UPDATE patients
		SET status = $1, updated_at = $2
		WHERE id = $3
	`
	result, err := r.db.ExecContext(ctx, query, status, time.Now(), id)
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to update patient status: %w", err))
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return apperrors.Storage(fmt.Errorf("failed to get rows affected: %w", err))
	}
	if rows == 0 {
		return apperrors.NotFound("patient", nil)
	}
	return nil
}

func (r *patientRepository) DeleteCascade(ctx context.Context, id uuid.UUID, evt *model.OutboxEvent) error {
	// Ordered deletes rather than relying on FK cascades alone, so the
	// operation stays correct against schemas migrated from the sqlite
	// deployment where the cascade rules were absent.
	return withTx(ctx, r.db, func(tx *sqlx.Tx) error {
		queries := []string{
			`DELETE FROM session_parameters WHERE patient_id = $1`,
			`DELETE FROM daily_slots WHERE session_id IN (SELECT id FROM tms_sessions WHERE patient_id = $1)`,
			`DELETE FROM tms_sessions WHERE patient_id = $1`,
		}
		for _, q := range queries {
			if _, err := tx.ExecContext(ctx, q, id); err != nil {
				return apperrors.Storage(fmt.Errorf("failed to delete patient dependents: %w", err))
			}
		}

		result, err := tx.ExecContext(ctx, `DELETE FROM patients WHERE id = $1`, id)
		if err != nil {
			return apperrors.Storage(fmt.Errorf("failed to delete patient: %w", err))
		}
		rows, err := result.RowsAffected()
		if err != nil {
			return apperrors.Storage(fmt.Errorf("failed to get rows affected: %w", err))
		}
		if rows == 0 {
			return apperrors.NotFound("patient", nil)
		}
		return insertOutboxTx(ctx, tx, evt)
	})
}
