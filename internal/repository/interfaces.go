package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/nibsworks/tms-scheduler/internal/model"
)

type PatientRepository interface {
	// Create inserts the patient and, when evt is non-nil, the outbox event
	// in the same transaction.
	Create(ctx context.Context, patient *model.Patient, evt *model.OutboxEvent) error
	Get(ctx context.Context, id uuid.UUID) (*model.Patient, error)
	List(ctx context.Context, status model.PatientStatus) ([]*model.Patient, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status model.PatientStatus) error
	// DeleteCascade removes the patient with its sessions, slots and
	// parameter snapshots in one transaction.
	DeleteCascade(ctx context.Context, id uuid.UUID, evt *model.OutboxEvent) error
}

type ProtocolRepository interface {
	Create(ctx context.Context, protocol *model.Protocol) error
	Get(ctx context.Context, id uuid.UUID) (*model.Protocol, error)
	List(ctx context.Context) ([]*model.Protocol, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type HolidayRepository interface {
	Create(ctx context.Context, holiday *model.Holiday) error
	List(ctx context.Context) ([]*model.Holiday, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// ExistsEnabled reports whether an enabled holiday row exists for date.
	ExistsEnabled(ctx context.Context, date time.Time) (bool, error)
}

type SessionRepository interface {
	// MaxSessionNumber returns the highest session_number for the patient,
	// or 0 when the patient has no sessions.
	MaxSessionNumber(ctx context.Context, patientID uuid.UUID) (int, error)
	// CreateWithSlot writes one session+slot pair as a unit.
	CreateWithSlot(ctx context.Context, session *model.Session, slot *model.Slot) error
	Get(ctx context.Context, id uuid.UUID) (*model.Session, error)
	List(ctx context.Context, filters *model.SessionFilters) ([]*model.Session, error)
	// Complete updates the session row, mirrors the slot status and appends
	// the parameter snapshot in one transaction.
	Complete(ctx context.Context, session *model.Session, snapshot *model.ParameterSnapshot, evt *model.OutboxEvent) error
	// Delete removes the session and its slot.
	Delete(ctx context.Context, id uuid.UUID) error
}

type SlotRepository interface {
	ListByDate(ctx context.Context, date time.Time) ([]*model.Slot, error)
	CountByDate(ctx context.Context, date time.Time) (int, error)
	StatusCountsByDate(ctx context.Context, date time.Time) (map[string]int, error)
	DailySchedule(ctx context.Context, date time.Time) ([]*model.DailyScheduleEntry, error)
	AssignStaff(ctx context.Context, date time.Time, sr, jr1, jr2 string) error
}

type ParameterRepository interface {
	// Latest returns the most recent snapshot by created_at, or a NotFound
	// error when the patient has no history.
	Latest(ctx context.Context, patientID uuid.UUID) (*model.ParameterSnapshot, error)
	Create(ctx context.Context, snapshot *model.ParameterSnapshot) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *model.OutboxEvent) error
	GetPendingEvents(ctx context.Context, limit int) ([]*model.OutboxEvent, error)
	MarkProcessed(ctx context.Context, id uuid.UUID) error
	MarkFailed(ctx context.Context, id uuid.UUID, errorMessage *string) error
	IncrementRetry(ctx context.Context, id uuid.UUID) error
}
