package entity

import (
	"time"

	"meetsync-api/core/entity"

	"github.com/google/uuid"
)

// CalendarConnection stores a user's calendar provider credentials.
type CalendarConnection struct {
	entity.BaseEntity
	UserID         uuid.UUID `db:"user_id" json:"user_id"`
	Provider       string    `db:"provider" json:"provider"` // "google"
	AccessToken    string    `db:"access_token" json:"-"`
	RefreshToken   string    `db:"refresh_token" json:"-"`
	TokenExpiresAt time.Time `db:"token_expires_at" json:"token_expires_at"`
	CalendarEmail  string    `db:"calendar_email" json:"calendar_email"`
	IsActive       bool      `db:"is_active" json:"is_active"`
}

// SyncDetail reports one provider's part of a sync run.
type SyncDetail struct {
	Provider  string `json:"provider"`
	SlotCount int    `json:"slot_count"`
	Error     string `json:"error,omitempty"`
}

// SyncResult is the outcome of a busy-data sync across all of a user's
// connected providers. OK is false only when every source failed.
type SyncResult struct {
	OK      bool         `json:"ok"`
	Sources []SyncDetail `json:"sources"`
}
