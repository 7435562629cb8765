package model

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "PENDING"
	OutboxStatusProcessed OutboxStatus = "PROCESSED"
	OutboxStatusFailed    OutboxStatus = "FAILED"
)

// Event types published on the scheduling channel.
const (
	EventPatientReferred  = "patient.referred"
	EventPatientDeleted   = "patient.deleted"
	EventSlotsAllocated   = "slots.allocated"
	EventSessionCompleted = "session.completed"
)

// OutboxEvent is written in the same transaction as the domain change it
// describes and relayed to the broker by the outbox processor.
type OutboxEvent struct {
	ID           uuid.UUID       `db:"id" json:"id"`
	EventType    string          `db:"event_type" json:"event_type"`
	Payload      json.RawMessage `db:"payload" json:"payload"`
	Status       OutboxStatus    `db:"status" json:"status"`
	ErrorMessage *string         `db:"error_message" json:"error_message,omitempty"`
	RetryCount   int             `db:"retry_count" json:"retry_count"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
	ProcessedAt  *time.Time      `db:"processed_at" json:"processed_at,omitempty"`
	UpdatedAt    time.Time       `db:"updated_at" json:"updated_at"`
}

// NewOutboxEvent marshals payload and stamps the event pending.
func NewOutboxEvent(eventType string, payload interface{}) (*OutboxEvent, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	return &OutboxEvent{
		ID:        uuid.New(),
		EventType: eventType,
		Payload:   raw,
		Status:    OutboxStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
