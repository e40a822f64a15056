package entity

import (
	"time"

	"github.com/google/uuid"
)

// BusySegment is a merged, non-overlapping interval annotated with the set of
// participants busy during it. Derived, never persisted.
type BusySegment struct {
	Start       time.Time           `json:"start"`
	End         time.Time           `json:"end"`
	BusyUserIDs map[uuid.UUID]bool  `json:"-"`
	BusyCount   int                 `json:"busy_count"`
}

// Users returns the busy participant ids (unordered).
func (s BusySegment) Users() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(s.BusyUserIDs))
	for id := range s.BusyUserIDs {
		ids = append(ids, id)
	}
	return ids
}

// Overlaps reports whether [start,end) intersects the segment.
func (s BusySegment) Overlaps(start, end time.Time) bool {
	return start.Before(s.End) && end.After(s.Start)
}

// Window is a candidate meeting-length interval with zero busy participants.
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}
