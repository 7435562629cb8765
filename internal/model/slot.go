package model

import (
	"time"

	"github.com/google/uuid"
)

type SlotStatus string

const (
	SlotStatusScheduled SlotStatus = "Scheduled"
	SlotStatusCompleted SlotStatus = "Completed"
)

// Slot is a calendar appointment paired 1:1 with a session. ScheduledTime is
// stored as "HH:MM" for compatibility with existing data.
type Slot struct {
	Base
	SlotDate      time.Time  `db:"slot_date" json:"slot_date"`
	SessionID     uuid.UUID  `db:"session_id" json:"session_id"`
	ScheduledTime string     `db:"scheduled_time" json:"scheduled_time"`
	SlotDuration  int        `db:"slot_duration" json:"slot_duration"`
	Status        SlotStatus `db:"status" json:"status"`
	SRName        *string    `db:"sr_name" json:"sr_name,omitempty"`
	JR1Name       *string    `db:"jr1_name" json:"jr1_name,omitempty"`
	JR2Name       *string    `db:"jr2_name" json:"jr2_name,omitempty"`
}

// AllocateRequest asks the scheduler for a batch of session slots.
type AllocateRequest struct {
	PatientID  uuid.UUID `json:"patient_id" validate:"required"`
	ProtocolID uuid.UUID `json:"protocol_id" validate:"required"`
	StartDate  string    `json:"start_date" validate:"required,datetime=2006-01-02"`
	Count      int       `json:"count" validate:"required,gte=1,lte=50"`
}

// AllocatedSlot describes one created session+slot pair.
type AllocatedSlot struct {
	SessionID     uuid.UUID `json:"session_id"`
	SessionNumber int       `json:"session_number"`
	SlotDate      string    `json:"slot_date"`
	ScheduledTime string    `json:"scheduled_time"`
	SlotDuration  int       `json:"slot_duration"`
}

// AssignStaffRequest sets the staff names on every slot of a date.
type AssignStaffRequest struct {
	Date    string `json:"date" validate:"required,datetime=2006-01-02"`
	SRName  string `json:"sr_name"`
	JR1Name string `json:"jr1_name"`
	JR2Name string `json:"jr2_name"`
}

// DailyScheduleEntry is one row of the daily dashboard listing.
type DailyScheduleEntry struct {
	PatientName   string     `db:"patient_name" json:"patient_name"`
	SessionNumber int        `db:"session_number" json:"session_number"`
	ProtocolName  *string    `db:"protocol_name" json:"protocol_name,omitempty"`
	Target        *string    `db:"target" json:"target,omitempty"`
	ScheduledTime string     `db:"scheduled_time" json:"scheduled_time"`
	Status        SlotStatus `db:"status" json:"status"`
	SlotDuration  int        `db:"slot_duration" json:"slot_duration"`
}

// DailySummary is the dashboard capacity and status breakdown for a date.
type DailySummary struct {
	Date          string         `json:"date"`
	MaxDailySlots int            `json:"max_daily_slots"`
	Scheduled     int            `json:"slots_scheduled"`
	StatusCounts  map[string]int `json:"status_counts"`
}
