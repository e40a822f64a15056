package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	availEntity "meetsync-api/modules/availability/entity"
	meetingEntity "meetsync-api/modules/meeting/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func promptFixture() AggregatedData {
	earliest := time.Date(2025, 6, 10, 9, 0, 0, 0, time.UTC)
	return AggregatedData{
		Event: &meetingEntity.Event{
			ID:               uuid.New(),
			Title:            "Sprint Planning",
			DurationMinutes:  60,
			EarliestDatetime: earliest,
			LatestDatetime:   earliest.AddDate(0, 0, 5),
		},
		Participants: []meetingEntity.UserEvent{
			{UserID: uuid.New(), Timezone: "America/New_York"},
			{UserID: uuid.New(), Timezone: "Asia/Tokyo"},
			{UserID: uuid.New(), Timezone: "America/New_York"},
		},
	}
}

func TestPromptBuildDeterministic(t *testing.T) {
	data := promptFixture()
	start := time.Date(2025, 6, 11, 10, 0, 0, 0, time.UTC)
	data.BusySegments = []availEntity.BusySegment{
		{Start: start, End: start.Add(time.Hour), BusyCount: 2},
	}
	data.Preferred = []availEntity.PreferredSlot{
		{UserID: uuid.New(), StartUTC: start.Add(3 * time.Hour), EndUTC: start.Add(4 * time.Hour)},
		{UserID: uuid.New(), StartUTC: start.Add(3 * time.Hour), EndUTC: start.Add(4 * time.Hour)},
	}

	builder := NewPromptBuilder()
	assert.Equal(t, builder.Build(data, 5), builder.Build(data, 5))
}

func TestPromptTimezoneHistogram(t *testing.T) {
	prompt := NewPromptBuilder().Build(promptFixture(), 5)

	assert.Contains(t, prompt, "- Timezones: America/New_York (2), Asia/Tokyo (1)\n")
	assert.Contains(t, prompt, "- Participants: 3\n")
	assert.Contains(t, prompt, "- Duration: 60 minutes\n")
}

func TestPromptTruncatesBusySegments(t *testing.T) {
	data := promptFixture()
	start := time.Date(2025, 6, 11, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 35; i++ {
		segStart := start.Add(time.Duration(i) * time.Hour)
		data.BusySegments = append(data.BusySegments, availEntity.BusySegment{
			Start:     segStart,
			End:       segStart.Add(30 * time.Minute),
			BusyCount: 1,
		})
	}

	prompt := NewPromptBuilder().Build(data, 5)

	assert.Contains(t, prompt, "- +5 more busy segments omitted\n")
	// the 31st segment starts at hour 30 and must not appear
	assert.NotContains(t, prompt, start.Add(30*time.Hour).Format(time.RFC3339))
}

func TestPromptNoBusyTimes(t *testing.T) {
	prompt := NewPromptBuilder().Build(promptFixture(), 5)

	assert.Contains(t, prompt, "Busy times (merged, UTC):\n- none\n")
	assert.NotContains(t, prompt, "Preferred times")
}

func TestPromptPreferredBucketsOrderedByVotes(t *testing.T) {
	data := promptFixture()
	popular := time.Date(2025, 6, 12, 14, 0, 0, 0, time.UTC)
	lonely := time.Date(2025, 6, 12, 9, 0, 0, 0, time.UTC)

	data.Preferred = []availEntity.PreferredSlot{
		{UserID: uuid.New(), StartUTC: lonely, EndUTC: lonely.Add(time.Hour)},
		{UserID: uuid.New(), StartUTC: popular, EndUTC: popular.Add(time.Hour)},
		{UserID: uuid.New(), StartUTC: popular, EndUTC: popular.Add(time.Hour)},
	}

	prompt := NewPromptBuilder().Build(data, 5)

	popularLine := fmt.Sprintf("- %s to %s, 2 votes",
		popular.Format(time.RFC3339), popular.Add(time.Hour).Format(time.RFC3339))
	lonelyLine := fmt.Sprintf("- %s to %s, 1 votes",
		lonely.Format(time.RFC3339), lonely.Add(time.Hour).Format(time.RFC3339))

	assert.Contains(t, prompt, popularLine)
	assert.Contains(t, prompt, lonelyLine)
	assert.Less(t, strings.Index(prompt, popularLine), strings.Index(prompt, lonelyLine))
}

func TestPromptRequestsExactCountAndShape(t *testing.T) {
	prompt := NewPromptBuilder().Build(promptFixture(), 3)

	assert.Contains(t, prompt, "Return exactly 3 suggestions.\n")
	assert.Contains(t, prompt, `"start_time_utc"`)
	assert.Contains(t, prompt, "ONLY a JSON array")
}
