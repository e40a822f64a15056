package entity

import (
	"time"

	"meetsync-api/core/errors"
	availEntity "meetsync-api/modules/availability/entity"

	"github.com/google/uuid"
)

// EventStatus represents the status of an event
type EventStatus string

const (
	EventStatusPending   EventStatus = "pending"
	EventStatusScheduled EventStatus = "scheduled"
	EventStatusCancelled EventStatus = "cancelled"
)

// Terminal reports whether the event is excluded from proposal regeneration.
func (s EventStatus) Terminal() bool {
	return s == EventStatusScheduled || s == EventStatusCancelled
}

// Event is a meeting to be scheduled. The earliest/latest pair bounds the
// search range and carries the daily time-of-day window in its clock parts.
type Event struct {
	ID                   uuid.UUID   `db:"id" json:"id"`
	HostID               *uuid.UUID  `db:"host_id" json:"host_id,omitempty"`
	Title                string      `db:"title" json:"title"`
	Description          *string     `db:"description" json:"description,omitempty"`
	DurationMinutes      int         `db:"duration_minutes" json:"duration_minutes"`
	Status               EventStatus `db:"status" json:"status"`
	Timezone             string      `db:"timezone" json:"timezone"`
	EarliestDatetime     time.Time   `db:"earliest_datetime" json:"earliest_datetime"`
	LatestDatetime       time.Time   `db:"latest_datetime" json:"latest_datetime"`
	ShareSlug            string      `db:"share_slug" json:"share_slug"`
	ProposalsStale       bool        `db:"proposals_stale" json:"-"`
	ProposalsGeneratedAt *time.Time  `db:"proposals_generated_at" json:"-"`
	CreatedAt            time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time   `db:"updated_at" json:"updated_at"`
}

// Validate enforces the constraint invariants at construction time.
func (e *Event) Validate() *errors.AppError {
	if e.Title == "" {
		return errors.NewAppError(errors.ErrInvalidInput, "title is required", nil)
	}
	if !e.EarliestDatetime.Before(e.LatestDatetime) {
		return errors.NewAppError(errors.ErrInvalidInput, "earliest datetime must be before latest datetime", nil)
	}
	if e.DurationMinutes <= 0 || e.DurationMinutes > 1440 {
		return errors.NewAppError(errors.ErrInvalidInput, "duration must be between 1 and 1440 minutes", nil)
	}
	return nil
}

// Constraints projects the scheduling bounds for the window search.
func (e *Event) Constraints() availEntity.EventConstraints {
	return availEntity.EventConstraints{
		EventID:          e.ID,
		EarliestDatetime: e.EarliestDatetime,
		LatestDatetime:   e.LatestDatetime,
		DurationMinutes:  e.DurationMinutes,
		Timezone:         e.Timezone,
	}
}
