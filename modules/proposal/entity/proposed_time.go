package entity

import (
	"time"

	"github.com/google/uuid"
)

// ProposedTime is one ranked meeting-time suggestion. Rows are exclusively
// owned by the engine and replaced wholesale on every regeneration so ranks
// stay a dense 0-based permutation per event.
type ProposedTime struct {
	ID        uuid.UUID `db:"id" json:"id"`
	EventID   uuid.UUID `db:"event_id" json:"event_id"`
	StartUTC  time.Time `db:"start_utc" json:"start_utc"`
	EndUTC    time.Time `db:"end_utc" json:"end_utc"`
	Conflicts int       `db:"conflicts" json:"conflicts"`
	Reasoning string    `db:"reasoning" json:"reasoning"`
	Rank      int       `db:"rank" json:"rank"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	// preference signal used for ordering, never persisted
	PreferredCount int `db:"-" json:"-"`
}

// CacheState is the per-request freshness snapshot computed from stored
// proposal rows plus the event-level stale flag.
type CacheState struct {
	HasProposals      bool       `json:"has_proposals"`
	NeedsRegeneration bool       `json:"needs_regeneration"`
	AllExpired        bool       `json:"all_expired"`
	LastGeneratedAt   *time.Time `json:"last_generated_at,omitempty"`
}

// RawProposal is the wire shape the AI ranker must return, one element of a
// JSON array. Pointer fields distinguish missing from zero.
type RawProposal struct {
	StartTimeUTC *string `json:"start_time_utc"`
	EndTimeUTC   *string `json:"end_time_utc"`
	Conflicts    *int    `json:"conflicts"`
	Reasoning    *string `json:"reasoning"`
}
