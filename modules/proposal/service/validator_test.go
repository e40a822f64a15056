package service

import (
	"testing"
	"time"

	availEntity "meetsync-api/modules/availability/entity"
	"meetsync-api/modules/proposal/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func rawProposal(start, end time.Time, conflicts int, reasoning string) entity.RawProposal {
	return entity.RawProposal{
		StartTimeUTC: strPtr(start.Format(time.RFC3339)),
		EndTimeUTC:   strPtr(end.Format(time.RFC3339)),
		Conflicts:    intPtr(conflicts),
		Reasoning:    strPtr(reasoning),
	}
}

func baseContext(now time.Time) ValidationContext {
	return ValidationContext{
		EventID:          uuid.New(),
		Now:              now,
		DurationMinutes:  60,
		ParticipantCount: 3,
	}
}

func TestValidateProposalsDropsInvalid(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	vc := baseContext(now)
	good := now.Add(4 * time.Hour)

	tests := []struct {
		name string
		raw  entity.RawProposal
	}{
		{
			name: "missing start",
			raw: entity.RawProposal{
				EndTimeUTC: strPtr(good.Add(time.Hour).Format(time.RFC3339)),
				Conflicts:  intPtr(0),
				Reasoning:  strPtr("x"),
			},
		},
		{
			name: "missing conflicts",
			raw: entity.RawProposal{
				StartTimeUTC: strPtr(good.Format(time.RFC3339)),
				EndTimeUTC:   strPtr(good.Add(time.Hour).Format(time.RFC3339)),
				Reasoning:    strPtr("x"),
			},
		},
		{
			name: "unparseable timestamp",
			raw: entity.RawProposal{
				StartTimeUTC: strPtr("tomorrow at noon"),
				EndTimeUTC:   strPtr(good.Add(time.Hour).Format(time.RFC3339)),
				Conflicts:    intPtr(0),
				Reasoning:    strPtr("x"),
			},
		},
		{
			name: "inverted interval",
			raw:  rawProposal(good.Add(time.Hour), good, 0, "x"),
		},
		{
			name: "starts inside buffer",
			raw:  rawProposal(now.Add(30*time.Minute), now.Add(90*time.Minute), 0, "x"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValidateProposals([]entity.RawProposal{tt.raw}, vc)
			assert.Empty(t, got)
		})
	}
}

func TestValidateProposalsCorrectsDurationDrift(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	vc := baseContext(now)
	start := now.Add(4 * time.Hour)

	// 90 minutes instead of 60 is beyond tolerance, end gets snapped
	got := ValidateProposals([]entity.RawProposal{
		rawProposal(start, start.Add(90*time.Minute), 0, "too long"),
	}, vc)

	require.Len(t, got, 1)
	assert.Equal(t, start, got[0].StartUTC)
	assert.Equal(t, start.Add(60*time.Minute), got[0].EndUTC)
}

func TestValidateProposalsKeepsSmallDrift(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	vc := baseContext(now)
	start := now.Add(4 * time.Hour)
	end := start.Add(63 * time.Minute)

	got := ValidateProposals([]entity.RawProposal{
		rawProposal(start, end, 0, "close enough"),
	}, vc)

	require.Len(t, got, 1)
	assert.Equal(t, end, got[0].EndUTC)
}

func TestValidateProposalsRecomputesConflicts(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	busyUser := uuid.New()
	start := now.Add(4 * time.Hour)

	vc := baseContext(now)
	vc.BusySlots = []availEntity.BusySlot{
		{UserID: busyUser, StartUTC: start.Add(30 * time.Minute), EndUTC: start.Add(2 * time.Hour)},
	}

	// ranker claims zero conflicts, our busy data says one
	got := ValidateProposals([]entity.RawProposal{
		rawProposal(start, start.Add(time.Hour), 0, "claimed free"),
	}, vc)

	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].Conflicts)
}

func TestValidateProposalsCapsConflictsAtParticipants(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	start := now.Add(4 * time.Hour)

	vc := baseContext(now)
	vc.ParticipantCount = 2
	for i := 0; i < 4; i++ {
		vc.BusySlots = append(vc.BusySlots, availEntity.BusySlot{
			UserID:   uuid.New(),
			StartUTC: start,
			EndUTC:   start.Add(time.Hour),
		})
	}

	got := ValidateProposals([]entity.RawProposal{
		rawProposal(start, start.Add(time.Hour), 4, "crowded"),
	}, vc)

	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Conflicts)
}

func TestValidateProposalsSortAndRank(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	busyUser := uuid.New()
	prefUser := uuid.New()

	slotA := now.Add(4 * time.Hour)  // conflict-free, no preference
	slotB := now.Add(6 * time.Hour)  // one conflict
	slotC := now.Add(26 * time.Hour) // conflict-free, one preference vote

	vc := baseContext(now)
	vc.BusySlots = []availEntity.BusySlot{
		{UserID: busyUser, StartUTC: slotB, EndUTC: slotB.Add(time.Hour)},
	}
	vc.Preferred = []availEntity.PreferredSlot{
		{UserID: prefUser, StartUTC: slotC, EndUTC: slotC.Add(time.Hour)},
	}

	got := ValidateProposals([]entity.RawProposal{
		rawProposal(slotB, slotB.Add(time.Hour), 1, "busy"),
		rawProposal(slotA, slotA.Add(time.Hour), 0, "free"),
		rawProposal(slotC, slotC.Add(time.Hour), 0, "preferred"),
	}, vc)

	require.Len(t, got, 3)

	// conflicts ascending, then preference votes descending
	assert.Equal(t, slotC, got[0].StartUTC)
	assert.Equal(t, slotA, got[1].StartUTC)
	assert.Equal(t, slotB, got[2].StartUTC)

	for i, p := range got {
		assert.Equal(t, i, p.Rank)
	}
}

func TestValidateProposalsStableOrderOnTies(t *testing.T) {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	vc := baseContext(now)

	first := now.Add(4 * time.Hour)
	second := now.Add(6 * time.Hour)

	got := ValidateProposals([]entity.RawProposal{
		rawProposal(first, first.Add(time.Hour), 0, "first"),
		rawProposal(second, second.Add(time.Hour), 0, "second"),
	}, vc)

	require.Len(t, got, 2)
	assert.Equal(t, "first", got[0].Reasoning)
	assert.Equal(t, "second", got[1].Reasoning)
}
