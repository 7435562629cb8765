package model

import (
	"time"

	"github.com/google/uuid"
)

// ParameterSnapshot is one append-only record of a patient's clinical
// parameters. The most recent snapshot by CreatedAt seeds the next session's
// form, independent of session completion order.
type ParameterSnapshot struct {
	ID                    uuid.UUID  `db:"id" json:"id"`
	PatientID             uuid.UUID  `db:"patient_id" json:"patient_id"`
	SessionID             *uuid.UUID `db:"session_id" json:"session_id,omitempty"`
	TargetLaterality      *string    `db:"target_laterality" json:"target_laterality,omitempty"`
	TargetRegion          *string    `db:"target_region" json:"target_region,omitempty"`
	CoordLeftX            *float64   `db:"coord_left_x" json:"coord_left_x,omitempty"`
	CoordLeftY            *float64   `db:"coord_left_y" json:"coord_left_y,omitempty"`
	CoordRightX           *float64   `db:"coord_right_x" json:"coord_right_x,omitempty"`
	CoordRightY           *float64   `db:"coord_right_y" json:"coord_right_y,omitempty"`
	RMTLeft               *float64   `db:"rmt_left" json:"rmt_left,omitempty"`
	RMTRight              *float64   `db:"rmt_right" json:"rmt_right,omitempty"`
	IntensityPercentLeft  *float64   `db:"intensity_percent_left" json:"intensity_percent_left,omitempty"`
	IntensityPercentRight *float64   `db:"intensity_percent_right" json:"intensity_percent_right,omitempty"`
	IntensityOutputLeft   *int       `db:"intensity_output_left" json:"intensity_output_left,omitempty"`
	IntensityOutputRight  *int       `db:"intensity_output_right" json:"intensity_output_right,omitempty"`
	CoilType              *string    `db:"coil_type" json:"coil_type,omitempty"`
	ProtocolID            *uuid.UUID `db:"protocol_id" json:"protocol_id,omitempty"`
	CreatedAt             time.Time  `db:"created_at" json:"created_at"`
}

// FormDefaults pre-fills the session-parameters form from the latest
// snapshot. Zero value means an empty form (new patient).
type FormDefaults struct {
	ProtocolID            *uuid.UUID `json:"protocol_id,omitempty"`
	TargetLaterality      string     `json:"target_laterality"`
	TargetRegion          string     `json:"target_region"`
	CoordLeftX            float64    `json:"coord_left_x"`
	CoordLeftY            float64    `json:"coord_left_y"`
	CoordRightX           float64    `json:"coord_right_x"`
	CoordRightY           float64    `json:"coord_right_y"`
	RMTLeft               float64    `json:"rmt_left"`
	RMTRight              float64    `json:"rmt_right"`
	IntensityPercentLeft  float64    `json:"intensity_percent_left"`
	IntensityPercentRight float64    `json:"intensity_percent_right"`
	CoilType              string     `json:"coil_type"`
}
