package service

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"meetsync-api/core/constants"
	availEntity "meetsync-api/modules/availability/entity"
	meetingEntity "meetsync-api/modules/meeting/entity"
)

// AggregatedData is everything the ranker needs about one event, collected
// by the proposal service before a generation run.
type AggregatedData struct {
	Event        *meetingEntity.Event
	Participants []meetingEntity.UserEvent
	BusySegments []availEntity.BusySegment
	Preferred    []availEntity.PreferredSlot
	FreeWindows  []availEntity.Window
}

// preferredBucket is a distinct preferred interval with its vote count.
type preferredBucket struct {
	Start time.Time
	End   time.Time
	Count int
}

// PromptBuilder serializes aggregated availability data into a bounded
// text block for the ranking provider. Pure formatting, deterministic for
// identical input.
type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

func (b *PromptBuilder) Build(data AggregatedData, numSuggestions int) string {
	var sb strings.Builder

	event := data.Event
	sb.WriteString("You are a meeting scheduling assistant. Suggest the best meeting times for the event below.\n\n")

	sb.WriteString("Event:\n")
	sb.WriteString(fmt.Sprintf("- Title: %s\n", event.Title))
	sb.WriteString(fmt.Sprintf("- Duration: %d minutes\n", event.DurationMinutes))
	sb.WriteString(fmt.Sprintf("- Scheduling range: %s to %s (UTC)\n",
		event.EarliestDatetime.UTC().Format(time.RFC3339),
		event.LatestDatetime.UTC().Format(time.RFC3339)))
	sb.WriteString(fmt.Sprintf("- Participants: %d\n", len(data.Participants)))

	b.writeTimezones(&sb, data.Participants)
	b.writeBusySegments(&sb, data.BusySegments)
	b.writePreferred(&sb, data.Preferred)

	sb.WriteString(fmt.Sprintf("\nReturn exactly %d suggestions.\n", numSuggestions))
	sb.WriteString("Rules:\n")
	sb.WriteString("- Prioritize times where no participant is busy. Only fall back to conflicting times when no conflict-free option exists.\n")
	sb.WriteString("- The conflicts field must count UNIQUE participants busy during the suggested time, not overlapping intervals.\n")
	sb.WriteString("- All timestamps must be ISO-8601 in UTC.\n")
	sb.WriteString("- Respond with ONLY a JSON array, no prose, in this exact shape:\n")
	sb.WriteString(`[{"start_time_utc": "2025-01-01T10:00:00+00:00", "end_time_utc": "2025-01-01T11:00:00+00:00", "conflicts": 0, "reasoning": "why this time works"}]`)
	sb.WriteString("\n")

	return sb.String()
}

// writeTimezones emits a histogram, most common timezone first, ties broken
// alphabetically so the block is stable.
func (b *PromptBuilder) writeTimezones(sb *strings.Builder, participants []meetingEntity.UserEvent) {
	if len(participants) == 0 {
		return
	}

	counts := make(map[string]int)
	for _, p := range participants {
		tz := p.Timezone
		if tz == "" {
			tz = "UTC"
		}
		counts[tz]++
	}

	type tzCount struct {
		tz    string
		count int
	}
	ordered := make([]tzCount, 0, len(counts))
	for tz, c := range counts {
		ordered = append(ordered, tzCount{tz, c})
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].count != ordered[j].count {
			return ordered[i].count > ordered[j].count
		}
		return ordered[i].tz < ordered[j].tz
	})

	sb.WriteString("- Timezones: ")
	parts := make([]string, 0, len(ordered))
	for _, tc := range ordered {
		parts = append(parts, fmt.Sprintf("%s (%d)", tc.tz, tc.count))
	}
	sb.WriteString(strings.Join(parts, ", "))
	sb.WriteString("\n")
}

func (b *PromptBuilder) writeBusySegments(sb *strings.Builder, segments []availEntity.BusySegment) {
	sb.WriteString("\nBusy times (merged, UTC):\n")
	if len(segments) == 0 {
		sb.WriteString("- none\n")
		return
	}

	shown := segments
	truncated := 0
	if len(shown) > constants.MaxPromptBusySegments {
		truncated = len(shown) - constants.MaxPromptBusySegments
		shown = shown[:constants.MaxPromptBusySegments]
	}

	for _, seg := range shown {
		sb.WriteString(fmt.Sprintf("- %s to %s, %d participants busy\n",
			seg.Start.UTC().Format(time.RFC3339),
			seg.End.UTC().Format(time.RFC3339),
			seg.BusyCount))
	}
	if truncated > 0 {
		sb.WriteString(fmt.Sprintf("- +%d more busy segments omitted\n", truncated))
	}
}

// writePreferred groups identical intervals into buckets and emits the top
// buckets by vote count.
func (b *PromptBuilder) writePreferred(sb *strings.Builder, preferred []availEntity.PreferredSlot) {
	if len(preferred) == 0 {
		return
	}

	byInterval := make(map[string]*preferredBucket)
	for _, p := range preferred {
		key := p.StartUTC.UTC().Format(time.RFC3339) + "|" + p.EndUTC.UTC().Format(time.RFC3339)
		if bucket, ok := byInterval[key]; ok {
			bucket.Count++
		} else {
			byInterval[key] = &preferredBucket{Start: p.StartUTC.UTC(), End: p.EndUTC.UTC(), Count: 1}
		}
	}

	buckets := make([]*preferredBucket, 0, len(byInterval))
	for _, bucket := range byInterval {
		buckets = append(buckets, bucket)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Start.Before(buckets[j].Start)
	})
	if len(buckets) > constants.MaxPromptPreferredBuckets {
		buckets = buckets[:constants.MaxPromptPreferredBuckets]
	}

	sb.WriteString("\nPreferred times (votes, UTC):\n")
	for _, bucket := range buckets {
		sb.WriteString(fmt.Sprintf("- %s to %s, %d votes\n",
			bucket.Start.Format(time.RFC3339),
			bucket.End.Format(time.RFC3339),
			bucket.Count))
	}
}
