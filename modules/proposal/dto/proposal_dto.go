package dto

import (
	"time"

	"meetsync-api/modules/proposal/entity"

	"github.com/google/uuid"
)

type ProposedTimeResponse struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	StartUTC  time.Time `json:"start_utc"`
	EndUTC    time.Time `json:"end_utc"`
	Conflicts int       `json:"conflicts"`
	Reasoning string    `json:"reasoning"`
	Rank      int       `json:"rank"`
	CreatedAt time.Time `json:"created_at"`
}

// ProposalsResponse is the read-path envelope. Cached reflects whether the
// list was served from storage; the freshness flags let callers distinguish
// the no-proposals / stale / all-expired states.
type ProposalsResponse struct {
	EventID     uuid.UUID              `json:"event_id"`
	Proposals   []ProposedTimeResponse `json:"proposals"`
	Cached      bool                   `json:"cached"`
	GeneratedAt *time.Time             `json:"generated_at,omitempty"`
	NeedsUpdate bool                   `json:"needs_update"`
	AllExpired  bool                   `json:"all_expired"`
}

type CacheStateResponse struct {
	HasProposals      bool       `json:"has_proposals"`
	NeedsRegeneration bool       `json:"needs_regeneration"`
	AllExpired        bool       `json:"all_expired"`
	LastGeneratedAt   *time.Time `json:"last_generated_at,omitempty"`
}

type BatchResultResponse struct {
	Selected  int `json:"selected"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

func ToProposedTimeResponse(p *entity.ProposedTime) *ProposedTimeResponse {
	return &ProposedTimeResponse{
		ID:        p.ID,
		EventID:   p.EventID,
		StartUTC:  p.StartUTC,
		EndUTC:    p.EndUTC,
		Conflicts: p.Conflicts,
		Reasoning: p.Reasoning,
		Rank:      p.Rank,
		CreatedAt: p.CreatedAt,
	}
}

func ToProposedTimeResponses(proposals []entity.ProposedTime) []ProposedTimeResponse {
	out := make([]ProposedTimeResponse, 0, len(proposals))
	for i := range proposals {
		out = append(out, *ToProposedTimeResponse(&proposals[i]))
	}
	return out
}

func ToCacheStateResponse(s entity.CacheState) *CacheStateResponse {
	return &CacheStateResponse{
		HasProposals:      s.HasProposals,
		NeedsRegeneration: s.NeedsRegeneration,
		AllExpired:        s.AllExpired,
		LastGeneratedAt:   s.LastGeneratedAt,
	}
}
