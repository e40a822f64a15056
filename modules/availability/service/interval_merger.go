package service

import (
	"sort"
	"time"

	"meetsync-api/modules/availability/entity"

	"github.com/google/uuid"
)

// IntervalMerger folds per-user busy intervals into contiguous busy segments,
// each tagged with the set of distinct busy participants.
type IntervalMerger struct{}

func NewIntervalMerger() *IntervalMerger {
	return &IntervalMerger{}
}

type boundary struct {
	at     time.Time
	delta  int // +1 interval opens, -1 interval closes
	userID uuid.UUID
}

// Merge runs a sweep line over the slot boundaries. At a shared instant all
// closes apply before any open, so an interval ending exactly when another
// starts never counts as overlapping. Zero-duration inputs are dropped.
// Output segments are sorted, non-overlapping and never empty.
func (m *IntervalMerger) Merge(slots []entity.BusySlot) []entity.BusySegment {
	boundaries := make([]boundary, 0, len(slots)*2)
	for _, s := range slots {
		if !s.StartUTC.Before(s.EndUTC) {
			continue
		}
		boundaries = append(boundaries, boundary{at: s.StartUTC, delta: +1, userID: s.UserID})
		boundaries = append(boundaries, boundary{at: s.EndUTC, delta: -1, userID: s.UserID})
	}
	if len(boundaries) == 0 {
		return nil
	}

	sort.SliceStable(boundaries, func(i, j int) bool {
		if !boundaries[i].at.Equal(boundaries[j].at) {
			return boundaries[i].at.Before(boundaries[j].at)
		}
		return boundaries[i].delta < boundaries[j].delta
	})

	var segments []entity.BusySegment
	counts := make(map[uuid.UUID]int)
	var cursor time.Time
	active := map[uuid.UUID]bool{}

	i := 0
	for i < len(boundaries) {
		t := boundaries[i].at

		// Apply every boundary at this instant before comparing compositions,
		// so a user whose interval ends and restarts at t stays continuous.
		for i < len(boundaries) && boundaries[i].at.Equal(t) {
			b := boundaries[i]
			counts[b.userID] += b.delta
			if counts[b.userID] <= 0 {
				delete(counts, b.userID)
			}
			i++
		}

		after := snapshot(counts)
		if !sameSet(active, after) {
			if len(active) > 0 && cursor.Before(t) {
				segments = append(segments, entity.BusySegment{
					Start:       cursor,
					End:         t,
					BusyUserIDs: active,
					BusyCount:   len(active),
				})
			}
			cursor = t
			active = after
		}
	}

	return segments
}

func snapshot(counts map[uuid.UUID]int) map[uuid.UUID]bool {
	set := make(map[uuid.UUID]bool, len(counts))
	for id := range counts {
		set[id] = true
	}
	return set
}

func sameSet(a, b map[uuid.UUID]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

// UniqueBusyUsers counts distinct users whose slot overlaps [start,end).
func UniqueBusyUsers(slots []entity.BusySlot, start, end time.Time) int {
	seen := map[uuid.UUID]bool{}
	for _, s := range slots {
		if s.StartUTC.Before(end) && s.EndUTC.After(start) {
			seen[s.UserID] = true
		}
	}
	return len(seen)
}
