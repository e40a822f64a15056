package entity

import (
	"time"

	"meetsync-api/core/errors"

	"github.com/google/uuid"
)

// EventConstraints are the scheduling bounds for one event: an overall UTC
// date range, a daily time-of-day window taken from the boundary timestamps,
// and the meeting length.
type EventConstraints struct {
	EventID          uuid.UUID
	EarliestDatetime time.Time
	LatestDatetime   time.Time
	DurationMinutes  int
	Timezone         string
}

func (c EventConstraints) Validate() *errors.AppError {
	if !c.EarliestDatetime.Before(c.LatestDatetime) {
		return errors.NewAppError(errors.ErrInvalidInput, "earliest datetime must be before latest datetime", nil)
	}
	if c.DurationMinutes <= 0 || c.DurationMinutes > 1440 {
		return errors.NewAppError(errors.ErrInvalidInput, "duration must be between 1 and 1440 minutes", nil)
	}
	return nil
}

func (c EventConstraints) Duration() time.Duration {
	return time.Duration(c.DurationMinutes) * time.Minute
}
