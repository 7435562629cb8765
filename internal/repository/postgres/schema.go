package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Column names and defaults match the data the original clinic deployment
// already holds; only the id/timestamp columns follow the uuid convention.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS patients (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		mrn TEXT UNIQUE NOT NULL,
		age INTEGER,
		gender TEXT,
		primary_diagnosis TEXT,
		tass_completed BOOLEAN NOT NULL DEFAULT FALSE,
		consent_obtained BOOLEAN NOT NULL DEFAULT FALSE,
		referred_date DATE,
		status TEXT NOT NULL DEFAULT 'Pending Review',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS protocol_library (
		id UUID PRIMARY KEY,
		protocol_name TEXT UNIQUE NOT NULL,
		waveform_type TEXT,
		burst_pulses INTEGER,
		inter_pulse_interval DOUBLE PRECISION,
		pulse_rate DOUBLE PRECISION,
		pulses_per_train INTEGER,
		num_trains INTEGER,
		inter_train_interval DOUBLE PRECISION,
		session_duration INTEGER NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS tms_sessions (
		id UUID PRIMARY KEY,
		patient_id UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		session_number INTEGER NOT NULL,
		session_date DATE NOT NULL,
		protocol_id UUID REFERENCES protocol_library(id) ON DELETE SET NULL,
		target_laterality TEXT,
		target_region TEXT,
		coord_left_x DOUBLE PRECISION,
		coord_left_y DOUBLE PRECISION,
		coord_right_x DOUBLE PRECISION,
		coord_right_y DOUBLE PRECISION,
		rmt_left DOUBLE PRECISION,
		rmt_right DOUBLE PRECISION,
		intensity_percent_left DOUBLE PRECISION,
		intensity_percent_right DOUBLE PRECISION,
		intensity_output_left INTEGER,
		intensity_output_right INTEGER,
		coil_type TEXT,
		side_effects TEXT,
		remarks TEXT,
		status TEXT NOT NULL DEFAULT 'Pending',
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL,
		UNIQUE (patient_id, session_number)
	)`,
	`CREATE TABLE IF NOT EXISTS daily_slots (
		id UUID PRIMARY KEY,
		slot_date DATE NOT NULL,
		session_id UUID NOT NULL UNIQUE REFERENCES tms_sessions(id) ON DELETE CASCADE,
		scheduled_time TEXT NOT NULL,
		slot_duration INTEGER NOT NULL,
		status TEXT NOT NULL DEFAULT 'Scheduled',
		sr_name TEXT,
		jr1_name TEXT,
		jr2_name TEXT,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS holidays (
		id UUID PRIMARY KEY,
		holiday_date DATE UNIQUE NOT NULL,
		holiday_name TEXT,
		skip_enabled BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS session_parameters (
		id UUID PRIMARY KEY,
		patient_id UUID NOT NULL REFERENCES patients(id) ON DELETE CASCADE,
		session_id UUID REFERENCES tms_sessions(id) ON DELETE SET NULL,
		target_laterality TEXT,
		target_region TEXT,
		coord_left_x DOUBLE PRECISION,
		coord_left_y DOUBLE PRECISION,
		coord_right_x DOUBLE PRECISION,
		coord_right_y DOUBLE PRECISION,
		rmt_left DOUBLE PRECISION,
		rmt_right DOUBLE PRECISION,
		intensity_percent_left DOUBLE PRECISION,
		intensity_percent_right DOUBLE PRECISION,
		intensity_output_left INTEGER,
		intensity_output_right INTEGER,
		coil_type TEXT,
		protocol_id UUID REFERENCES protocol_library(id) ON DELETE SET NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS outbox_events (
		id UUID PRIMARY KEY,
		event_type TEXT NOT NULL,
		payload JSONB NOT NULL,
		status TEXT NOT NULL DEFAULT 'PENDING',
		error_message TEXT,
		retry_count INTEGER NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL,
		processed_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_daily_slots_date ON daily_slots (slot_date)`,
	`CREATE INDEX IF NOT EXISTS idx_tms_sessions_patient ON tms_sessions (patient_id)`,
	`CREATE INDEX IF NOT EXISTS idx_session_parameters_patient ON session_parameters (patient_id, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_outbox_events_pending ON outbox_events (status, created_at)`,
}

// EnsureSchema creates any missing tables and indexes.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	for _, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}
	}
	return nil
}
