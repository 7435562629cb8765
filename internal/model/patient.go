package model

import (
	"time"
)

type PatientStatus string

const (
	PatientStatusPendingReview PatientStatus = "Pending Review"
	PatientStatusReviewDone    PatientStatus = "Review Done"
	PatientStatusStarted       PatientStatus = "Started"
	PatientStatusPaused        PatientStatus = "Paused"
)

// ValidPatientStatuses lists the manual operator transitions in order.
var ValidPatientStatuses = []PatientStatus{
	PatientStatusPendingReview,
	PatientStatusReviewDone,
	PatientStatusStarted,
	PatientStatusPaused,
}

type Patient struct {
	Base
	Name             string        `db:"name" json:"name"`
	MRN              string        `db:"mrn" json:"mrn"`
	Age              int           `db:"age" json:"age"`
	Gender           string        `db:"gender" json:"gender"`
	PrimaryDiagnosis string        `db:"primary_diagnosis" json:"primary_diagnosis"`
	TASSCompleted    bool          `db:"tass_completed" json:"tass_completed"`
	ConsentObtained  bool          `db:"consent_obtained" json:"consent_obtained"`
	ReferredDate     time.Time     `db:"referred_date" json:"referred_date"`
	Status           PatientStatus `db:"status" json:"status"`
}

type CreatePatientRequest struct {
	Name             string `json:"name" validate:"required"`
	MRN              string `json:"mrn" validate:"required"`
	Age              int    `json:"age" validate:"omitempty,gte=18,lte=100"`
	Gender           string `json:"gender" validate:"omitempty,oneof=Male Female Other"`
	PrimaryDiagnosis string `json:"primary_diagnosis" validate:"required"`
	TASSCompleted    bool   `json:"tass_completed"`
	ConsentObtained  bool   `json:"consent_obtained"`
}

type UpdatePatientStatusRequest struct {
	Status PatientStatus `json:"status" validate:"required"`
}

// DeletePatientRequest confirms a destructive cascading removal.
type DeletePatientRequest struct {
	AdminPassword string `json:"admin_password" validate:"required"`
}
