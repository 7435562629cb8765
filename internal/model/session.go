package model

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionStatusPending   SessionStatus = "Pending"
	SessionStatusScheduled SessionStatus = "Scheduled"
	SessionStatusCompleted SessionStatus = "Completed"
)

// Session is one treatment visit. Clinical fields stay null until the
// session is completed; SessionNumber is 1-based and unique per patient.
type Session struct {
	Base
	PatientID     uuid.UUID     `db:"patient_id" json:"patient_id"`
	SessionNumber int           `db:"session_number" json:"session_number"`
	SessionDate   time.Time     `db:"session_date" json:"session_date"`
	ProtocolID    *uuid.UUID    `db:"protocol_id" json:"protocol_id,omitempty"`
	Status        SessionStatus `db:"status" json:"status"`
	ClinicalParameters
}

// ClinicalParameters is the per-session parameter set captured at
// completion and carried forward into the next session's form.
type ClinicalParameters struct {
	TargetLaterality      *string  `db:"target_laterality" json:"target_laterality,omitempty"`
	TargetRegion          *string  `db:"target_region" json:"target_region,omitempty"`
	CoordLeftX            *float64 `db:"coord_left_x" json:"coord_left_x,omitempty"`
	CoordLeftY            *float64 `db:"coord_left_y" json:"coord_left_y,omitempty"`
	CoordRightX           *float64 `db:"coord_right_x" json:"coord_right_x,omitempty"`
	CoordRightY           *float64 `db:"coord_right_y" json:"coord_right_y,omitempty"`
	RMTLeft               *float64 `db:"rmt_left" json:"rmt_left,omitempty"`
	RMTRight              *float64 `db:"rmt_right" json:"rmt_right,omitempty"`
	IntensityPercentLeft  *float64 `db:"intensity_percent_left" json:"intensity_percent_left,omitempty"`
	IntensityPercentRight *float64 `db:"intensity_percent_right" json:"intensity_percent_right,omitempty"`
	IntensityOutputLeft   *int     `db:"intensity_output_left" json:"intensity_output_left,omitempty"`
	IntensityOutputRight  *int     `db:"intensity_output_right" json:"intensity_output_right,omitempty"`
	CoilType              *string  `db:"coil_type" json:"coil_type,omitempty"`
	SideEffects           *string  `db:"side_effects" json:"side_effects,omitempty"`
	Remarks               *string  `db:"remarks" json:"remarks,omitempty"`
}

// CompleteSessionRequest carries the clinical parameter set recorded when an
// operator finishes a session. Intensity outputs are derived server-side.
type CompleteSessionRequest struct {
	ProtocolID            *uuid.UUID `json:"protocol_id" validate:"omitempty"`
	TargetLaterality      *string    `json:"target_laterality" validate:"omitempty,oneof=Left Right Bilateral"`
	TargetRegion          *string    `json:"target_region"`
	CoordLeftX            *float64   `json:"coord_left_x"`
	CoordLeftY            *float64   `json:"coord_left_y"`
	CoordRightX           *float64   `json:"coord_right_x"`
	CoordRightY           *float64   `json:"coord_right_y"`
	RMTLeft               *float64   `json:"rmt_left" validate:"omitempty,gte=0,lte=100"`
	RMTRight              *float64   `json:"rmt_right" validate:"omitempty,gte=0,lte=100"`
	IntensityPercentLeft  *float64   `json:"intensity_percent_left" validate:"omitempty,gte=0"`
	IntensityPercentRight *float64   `json:"intensity_percent_right" validate:"omitempty,gte=0"`
	CoilType              *string    `json:"coil_type"`
	SideEffects           *string    `json:"side_effects"`
	Remarks               *string    `json:"remarks"`
}

type SessionFilters struct {
	PatientID uuid.UUID
	Date      *time.Time
	Status    SessionStatus
}
