package dto

import (
	"time"

	"meetsync-api/modules/availability/entity"
)

// ===================== Request DTOs =====================

// DeclarePreferredSlotRequest adds or updates a preference interval.
type DeclarePreferredSlotRequest struct {
	StartUTC string `json:"start_utc" validate:"required"` // RFC3339
	EndUTC   string `json:"end_utc" validate:"required"`   // RFC3339
}

// ===================== Response DTOs =====================

// BusySegmentDTO is one merged busy interval with its participant count.
type BusySegmentDTO struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	BusyCount int       `json:"busy_count"`
}

// AvailabilityResponse is the merged busy view for an event.
type AvailabilityResponse struct {
	EventID          string           `json:"event_id"`
	ParticipantCount int              `json:"participant_count"`
	Segments         []BusySegmentDTO `json:"segments"`
	FreeWindows      []entity.Window  `json:"free_windows"`
}

// PreferredSlotResponse mirrors one preference row.
type PreferredSlotResponse struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	EventID  string    `json:"event_id"`
	StartUTC time.Time `json:"start_utc"`
	EndUTC   time.Time `json:"end_utc"`
}

// ===================== Mapper Functions =====================

func ToBusySegmentDTOs(segments []entity.BusySegment) []BusySegmentDTO {
	result := make([]BusySegmentDTO, 0, len(segments))
	for _, s := range segments {
		result = append(result, BusySegmentDTO{
			Start:     s.Start,
			End:       s.End,
			BusyCount: s.BusyCount,
		})
	}
	return result
}

func ToPreferredSlotResponse(s *entity.PreferredSlot) *PreferredSlotResponse {
	return &PreferredSlotResponse{
		ID:       s.ID.String(),
		UserID:   s.UserID.String(),
		EventID:  s.EventID.String(),
		StartUTC: s.StartUTC,
		EndUTC:   s.EndUTC,
	}
}
