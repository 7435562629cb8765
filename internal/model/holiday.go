package model

import (
	"time"
)

// Holiday excludes a calendar date from slot allocation when SkipEnabled is
// true. Dates are unique.
type Holiday struct {
	Base
	HolidayDate time.Time `db:"holiday_date" json:"holiday_date"`
	HolidayName string    `db:"holiday_name" json:"holiday_name"`
	SkipEnabled bool      `db:"skip_enabled" json:"skip_enabled"`
}

type CreateHolidayRequest struct {
	HolidayDate string `json:"holiday_date" validate:"required,datetime=2006-01-02"`
	HolidayName string `json:"holiday_name" validate:"required"`
	SkipEnabled *bool  `json:"skip_enabled"`
}
