package entity

import (
	"time"

	"meetsync-api/core/errors"

	"github.com/google/uuid"
)

// BusySlot is one opaque occupied interval for one participant. Rows are
// owned by calendar sync and replaced wholesale on every resync.
type BusySlot struct {
	ID       uuid.UUID `db:"id" json:"id"`
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	StartUTC time.Time `db:"start_utc" json:"start_utc"`
	EndUTC   time.Time `db:"end_utc" json:"end_utc"`
}

func NewBusySlot(userID uuid.UUID, start, end time.Time) (*BusySlot, *errors.AppError) {
	if !start.Before(end) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "busy slot start must be before end", nil)
	}
	return &BusySlot{
		UserID:   userID,
		StartUTC: start.UTC(),
		EndUTC:   end.UTC(),
	}, nil
}

// PreferredSlot is a participant-declared preference interval for one event.
// It contributes a preference signal but never gates free/busy classification.
type PreferredSlot struct {
	ID       uuid.UUID `db:"id" json:"id"`
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	EventID  uuid.UUID `db:"event_id" json:"event_id"`
	StartUTC time.Time `db:"start_utc" json:"start_utc"`
	EndUTC   time.Time `db:"end_utc" json:"end_utc"`
}

func NewPreferredSlot(userID, eventID uuid.UUID, start, end time.Time) (*PreferredSlot, *errors.AppError) {
	if !start.Before(end) {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "preferred slot start must be before end", nil)
	}
	return &PreferredSlot{
		UserID:   userID,
		EventID:  eventID,
		StartUTC: start.UTC(),
		EndUTC:   end.UTC(),
	}, nil
}
