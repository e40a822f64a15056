package dto

import (
	"time"

	"meetsync-api/modules/meeting/entity"
)

// ===================== Request DTOs =====================

// CreateEventRequest for creating a new event
type CreateEventRequest struct {
	Title            string   `json:"title" validate:"required"`
	Description      string   `json:"description"`
	DurationMinutes  int      `json:"duration_minutes" validate:"required,min=15,max=1440"`
	Timezone         string   `json:"timezone"`
	EarliestDatetime string   `json:"earliest_datetime" validate:"required"` // RFC3339 UTC
	LatestDatetime   string   `json:"latest_datetime" validate:"required"`   // RFC3339 UTC
	Participants     []string `json:"participants"`                          // user_ids
}

// UpdateEventRequest for updating event details
type UpdateEventRequest struct {
	Title            string `json:"title"`
	Description      string `json:"description"`
	DurationMinutes  int    `json:"duration_minutes" validate:"min=15,max=1440"`
	EarliestDatetime string `json:"earliest_datetime"`
	LatestDatetime   string `json:"latest_datetime"`
}

// AddParticipantRequest for adding a participant to an event
type AddParticipantRequest struct {
	UserID string `json:"user_id" validate:"required"`
	// Timezone of the participant, IANA name, defaults to UTC.
	Timezone string `json:"timezone"`
	// RegenerateNow requests an immediate proposal refresh after adding.
	RegenerateNow bool `json:"regenerate_now"`
}

// ===================== Response DTOs =====================

// EventResponse for event details
type EventResponse struct {
	ID                   string                `json:"id"`
	HostID               string                `json:"host_id,omitempty"`
	Title                string                `json:"title"`
	Description          string                `json:"description,omitempty"`
	DurationMinutes      int                   `json:"duration_minutes"`
	Status               string                `json:"status"`
	Timezone             string                `json:"timezone"`
	EarliestDatetime     time.Time             `json:"earliest_datetime"`
	LatestDatetime       time.Time             `json:"latest_datetime"`
	ShareSlug            string                `json:"share_slug,omitempty"`
	ProposalsGeneratedAt *time.Time            `json:"proposals_generated_at,omitempty"`
	Participants         []ParticipantResponse `json:"participants,omitempty"`
	CreatedAt            time.Time             `json:"created_at"`
}

// ParticipantResponse for participant status
type ParticipantResponse struct {
	UserID               string `json:"user_id"`
	EventID              string `json:"event_id"`
	Status               string `json:"status"`
	Timezone             string `json:"timezone"`
	HasCalendarConnected bool   `json:"has_calendar_connected"`
}

// ===================== Mapper Functions =====================

// ToEventResponse maps entity to DTO
func ToEventResponse(e *entity.Event, participants []entity.UserEvent) *EventResponse {
	resp := &EventResponse{
		ID:                   e.ID.String(),
		Title:                e.Title,
		DurationMinutes:      e.DurationMinutes,
		Status:               string(e.Status),
		Timezone:             e.Timezone,
		EarliestDatetime:     e.EarliestDatetime,
		LatestDatetime:       e.LatestDatetime,
		ShareSlug:            e.ShareSlug,
		ProposalsGeneratedAt: e.ProposalsGeneratedAt,
		CreatedAt:            e.CreatedAt,
	}

	if e.HostID != nil {
		resp.HostID = e.HostID.String()
	}
	if e.Description != nil {
		resp.Description = *e.Description
	}

	for _, p := range participants {
		resp.Participants = append(resp.Participants, ToParticipantResponse(&p))
	}

	return resp
}

func ToParticipantResponse(p *entity.UserEvent) ParticipantResponse {
	return ParticipantResponse{
		UserID:               p.UserID.String(),
		EventID:              p.EventID.String(),
		Status:               string(p.Status),
		Timezone:             p.Timezone,
		HasCalendarConnected: p.HasCalendarConnected,
	}
}
