package service

import (
	"sort"
	"time"

	"meetsync-api/core/constants"
	"meetsync-api/core/logger"
	availEntity "meetsync-api/modules/availability/entity"
	availService "meetsync-api/modules/availability/service"
	"meetsync-api/modules/proposal/entity"

	"github.com/google/uuid"
)

// ValidationContext carries the event-time facts a ranker reply is checked
// against.
type ValidationContext struct {
	EventID          uuid.UUID
	Now              time.Time
	DurationMinutes  int
	ParticipantCount int
	BusySlots        []availEntity.BusySlot
	Preferred        []availEntity.PreferredSlot
}

// ValidateProposals filters and normalizes raw ranker output into ranked
// proposals. Invalid candidates are dropped, never fail the whole batch.
// Conflict counts come from our own busy data, the ranker's number is only
// logged when it disagrees.
func ValidateProposals(raw []entity.RawProposal, vc ValidationContext) []entity.ProposedTime {
	buffer := vc.Now.Add(constants.MinBufferMinutes * time.Minute)
	wantDuration := time.Duration(vc.DurationMinutes) * time.Minute
	tolerance := constants.DurationToleranceMinutes * time.Minute

	valid := make([]entity.ProposedTime, 0, len(raw))
	for i, r := range raw {
		if r.StartTimeUTC == nil || r.EndTimeUTC == nil || r.Conflicts == nil || r.Reasoning == nil {
			logger.Warn("ValidateProposals:MissingField", "event_id", vc.EventID, "index", i)
			continue
		}

		start, err := parseUTCTimestamp(*r.StartTimeUTC)
		if err != nil {
			logger.Warn("ValidateProposals:BadStart", "event_id", vc.EventID, "index", i, "value", *r.StartTimeUTC)
			continue
		}
		end, err := parseUTCTimestamp(*r.EndTimeUTC)
		if err != nil {
			logger.Warn("ValidateProposals:BadEnd", "event_id", vc.EventID, "index", i, "value", *r.EndTimeUTC)
			continue
		}

		if !start.Before(end) {
			logger.Warn("ValidateProposals:Inverted", "event_id", vc.EventID, "index", i)
			continue
		}
		if start.Before(buffer) {
			logger.Warn("ValidateProposals:TooSoon", "event_id", vc.EventID, "index", i, "start", start)
			continue
		}

		// small drift is tolerated, anything beyond gets the end snapped
		// to the event duration instead of rejecting the candidate
		duration := end.Sub(start)
		diff := duration - wantDuration
		if diff < 0 {
			diff = -diff
		}
		if diff > tolerance {
			logger.Warn("ValidateProposals:DurationCorrected",
				"event_id", vc.EventID, "index", i, "duration", duration.String())
			end = start.Add(wantDuration)
		}

		conflicts := availService.UniqueBusyUsers(vc.BusySlots, start, end)
		if conflicts > vc.ParticipantCount {
			conflicts = vc.ParticipantCount
		}
		if conflicts != *r.Conflicts {
			logger.Warn("ValidateProposals:ConflictMismatch",
				"event_id", vc.EventID, "index", i, "reported", *r.Conflicts, "computed", conflicts)
		}

		valid = append(valid, entity.ProposedTime{
			EventID:        vc.EventID,
			StartUTC:       start,
			EndUTC:         end,
			Conflicts:      conflicts,
			Reasoning:      *r.Reasoning,
			PreferredCount: preferredVotes(vc.Preferred, start, end),
		})
	}

	sort.SliceStable(valid, func(i, j int) bool {
		if valid[i].Conflicts != valid[j].Conflicts {
			return valid[i].Conflicts < valid[j].Conflicts
		}
		return valid[i].PreferredCount > valid[j].PreferredCount
	})
	for i := range valid {
		valid[i].Rank = i
	}

	return valid
}

// parseUTCTimestamp accepts RFC 3339 with either a Z suffix or a numeric
// offset and normalizes to UTC.
func parseUTCTimestamp(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// preferredVotes counts unique participants whose declared preference
// overlaps the proposal.
func preferredVotes(preferred []availEntity.PreferredSlot, start, end time.Time) int {
	seen := map[uuid.UUID]bool{}
	for _, p := range preferred {
		if p.StartUTC.Before(end) && p.EndUTC.After(start) {
			seen[p.UserID] = true
		}
	}
	return len(seen)
}
