package service

import (
	"time"

	"meetsync-api/core/constants"
	"meetsync-api/modules/availability/entity"
)

// WindowSearch enumerates candidate meeting windows that are fully free of
// any busy participant within the event constraints. The result is advisory
// ground truth for the AI ranking step; final conflict counts are always
// recomputed independently.
type WindowSearch struct {
	StrideMinutes int
}

func NewWindowSearch() *WindowSearch {
	return &WindowSearch{StrideMinutes: constants.DefaultStrideMinutes}
}

// Search walks each UTC day intersecting the constraint range, clips the day
// to the time-of-day window taken from the boundary timestamps, and steps
// candidate starts by the stride. Days whose clipped window collapses are
// skipped. With zero busy segments every candidate in range is free.
func (w *WindowSearch) Search(c entity.EventConstraints, segments []entity.BusySegment) []entity.Window {
	stride := time.Duration(w.StrideMinutes) * time.Minute
	if stride <= 0 {
		stride = constants.DefaultStrideMinutes * time.Minute
	}
	duration := c.Duration()

	earliest := c.EarliestDatetime.UTC()
	latest := c.LatestDatetime.UTC()

	dayStartClock := clockOf(earliest)
	dayEndClock := clockOf(latest)

	var windows []entity.Window
	for day := truncateToDay(earliest); !day.After(truncateToDay(latest)); day = day.AddDate(0, 0, 1) {
		windowStart := day.Add(dayStartClock)
		windowEnd := day.Add(dayEndClock)

		if !windowStart.Before(windowEnd) {
			continue
		}

		for start := windowStart; !start.Add(duration).After(windowEnd); start = start.Add(stride) {
			end := start.Add(duration)
			if isFree(start, end, segments) {
				windows = append(windows, entity.Window{Start: start, End: end})
			}
		}
	}

	return windows
}

func isFree(start, end time.Time, segments []entity.BusySegment) bool {
	for _, seg := range segments {
		if seg.Overlaps(start, end) {
			return false
		}
	}
	return true
}

func clockOf(t time.Time) time.Duration {
	return time.Duration(t.Hour())*time.Hour +
		time.Duration(t.Minute())*time.Minute +
		time.Duration(t.Second())*time.Second
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
