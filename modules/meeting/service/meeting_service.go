package service

import (
	"context"
	"time"

	"meetsync-api/core/errors"
	"meetsync-api/core/logger"
	"meetsync-api/core/utils"
	"meetsync-api/modules/meeting/dto"
	"meetsync-api/modules/meeting/entity"
	"meetsync-api/modules/meeting/repository"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
)

// ProposalStaleness is how participant mutations invalidate cached proposals.
// Implemented by the proposal module.
type ProposalStaleness interface {
	MarkStale(ctx context.Context, eventID uuid.UUID) *errors.AppError
	RequestRegeneration(ctx context.Context, eventID uuid.UUID) *errors.AppError
}

// MeetingService handles event business logic
type MeetingService struct {
	repo      repository.MeetingRepositoryInterface
	staleness ProposalStaleness
}

// MeetingServiceInterface defines the service contract
type MeetingServiceInterface interface {
	CreateEvent(ctx context.Context, hostID uuid.UUID, req *dto.CreateEventRequest) (*dto.EventResponse, *errors.AppError)
	GetEventByID(ctx context.Context, id uuid.UUID) (*dto.EventResponse, *errors.AppError)
	GetMyEvents(ctx context.Context, hostID uuid.UUID) ([]dto.EventResponse, *errors.AppError)
	UpdateEvent(ctx context.Context, eventID uuid.UUID, hostID uuid.UUID, req *dto.UpdateEventRequest) (*dto.EventResponse, *errors.AppError)
	CancelEvent(ctx context.Context, eventID uuid.UUID, hostID uuid.UUID) *errors.AppError
	AddParticipant(ctx context.Context, eventID uuid.UUID, hostID uuid.UUID, req *dto.AddParticipantRequest) (*dto.ParticipantResponse, *errors.AppError)
	RemoveParticipant(ctx context.Context, eventID uuid.UUID, hostID uuid.UUID, userID uuid.UUID) *errors.AppError
}

func NewMeetingService(repo repository.MeetingRepositoryInterface, staleness ProposalStaleness) MeetingServiceInterface {
	return &MeetingService{
		repo:      repo,
		staleness: staleness,
	}
}

// CreateEvent creates a new event with participants
func (s *MeetingService) CreateEvent(ctx context.Context, hostID uuid.UUID, req *dto.CreateEventRequest) (*dto.EventResponse, *errors.AppError) {
	earliest, err := time.Parse(time.RFC3339, req.EarliestDatetime)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid earliest_datetime format", err)
	}
	latest, err := time.Parse(time.RFC3339, req.LatestDatetime)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid latest_datetime format", err)
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	event := &entity.Event{
		HostID:           &hostID,
		Title:            req.Title,
		DurationMinutes:  req.DurationMinutes,
		Status:           entity.EventStatusPending,
		Timezone:         timezone,
		EarliestDatetime: earliest.UTC(),
		LatestDatetime:   latest.UTC(),
		ShareSlug:        slug.Make(req.Title) + "-" + utils.GenerateID(),
	}
	if req.Description != "" {
		event.Description = &req.Description
	}

	if appErr := event.Validate(); appErr != nil {
		return nil, appErr
	}

	created, err := s.repo.CreateEvent(ctx, event)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to create event", err)
	}

	// The host is always a participant.
	hostParticipant := &entity.UserEvent{
		UserID:   hostID,
		EventID:  created.ID,
		Status:   entity.ParticipantStatusAccepted,
		Timezone: timezone,
	}
	if err := s.repo.AddParticipant(ctx, hostParticipant); err != nil {
		logger.Error("MeetingService:CreateEvent:AddHost", err)
	}

	participants := []entity.UserEvent{*hostParticipant}
	for _, userIDStr := range req.Participants {
		userID, parseErr := uuid.Parse(userIDStr)
		if parseErr != nil || userID == hostID {
			continue
		}

		participant := &entity.UserEvent{
			UserID:   userID,
			EventID:  created.ID,
			Status:   entity.ParticipantStatusPending,
			Timezone: "UTC",
		}
		if err := s.repo.AddParticipant(ctx, participant); err != nil {
			continue
		}
		participants = append(participants, *participant)
	}

	return dto.ToEventResponse(created, participants), nil
}

// GetEventByID retrieves an event by ID
func (s *MeetingService) GetEventByID(ctx context.Context, id uuid.UUID) (*dto.EventResponse, *errors.AppError) {
	event, err := s.repo.GetEventByID(ctx, id)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get event", err)
	}
	if event == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Event not found", nil)
	}

	participants, _ := s.repo.GetParticipantsByEventID(ctx, id)
	return dto.ToEventResponse(event, participants), nil
}

// GetMyEvents retrieves all events for a host
func (s *MeetingService) GetMyEvents(ctx context.Context, hostID uuid.UUID) ([]dto.EventResponse, *errors.AppError) {
	events, err := s.repo.GetEventsByHostID(ctx, hostID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get events", err)
	}

	result := make([]dto.EventResponse, 0, len(events))
	for _, e := range events {
		participants, _ := s.repo.GetParticipantsByEventID(ctx, e.ID)
		result = append(result, *dto.ToEventResponse(&e, participants))
	}

	return result, nil
}

// UpdateEvent updates event details; constraint changes invalidate proposals.
func (s *MeetingService) UpdateEvent(ctx context.Context, eventID uuid.UUID, hostID uuid.UUID, req *dto.UpdateEventRequest) (*dto.EventResponse, *errors.AppError) {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil || event == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Event not found", err)
	}

	if event.HostID == nil || *event.HostID != hostID {
		return nil, errors.NewAppError(errors.ErrForbidden, "Not authorized", nil)
	}

	constraintsChanged := false

	if req.Title != "" {
		event.Title = req.Title
	}
	if req.Description != "" {
		event.Description = &req.Description
	}
	if req.DurationMinutes > 0 && req.DurationMinutes != event.DurationMinutes {
		event.DurationMinutes = req.DurationMinutes
		constraintsChanged = true
	}
	if req.EarliestDatetime != "" {
		earliest, parseErr := time.Parse(time.RFC3339, req.EarliestDatetime)
		if parseErr != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid earliest_datetime format", parseErr)
		}
		event.EarliestDatetime = earliest.UTC()
		constraintsChanged = true
	}
	if req.LatestDatetime != "" {
		latest, parseErr := time.Parse(time.RFC3339, req.LatestDatetime)
		if parseErr != nil {
			return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid latest_datetime format", parseErr)
		}
		event.LatestDatetime = latest.UTC()
		constraintsChanged = true
	}

	if appErr := event.Validate(); appErr != nil {
		return nil, appErr
	}

	if err := s.repo.UpdateEvent(ctx, event); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to update event", err)
	}

	if constraintsChanged {
		if appErr := s.staleness.MarkStale(ctx, eventID); appErr != nil {
			logger.Warn("MeetingService:UpdateEvent:MarkStale", "event_id", eventID, "error", appErr)
		}
	}

	return s.GetEventByID(ctx, eventID)
}

// CancelEvent moves an event to cancelled status.
func (s *MeetingService) CancelEvent(ctx context.Context, eventID uuid.UUID, hostID uuid.UUID) *errors.AppError {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil || event == nil {
		return errors.NewAppError(errors.ErrNotFound, "Event not found", err)
	}

	if event.HostID == nil || *event.HostID != hostID {
		return errors.NewAppError(errors.ErrForbidden, "Not authorized", nil)
	}

	event.Status = entity.EventStatusCancelled
	if err := s.repo.UpdateEvent(ctx, event); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to cancel event", err)
	}

	return nil
}

// AddParticipant adds a participant and invalidates cached proposals.
func (s *MeetingService) AddParticipant(ctx context.Context, eventID uuid.UUID, hostID uuid.UUID, req *dto.AddParticipantRequest) (*dto.ParticipantResponse, *errors.AppError) {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil || event == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Event not found", err)
	}

	if event.HostID == nil || *event.HostID != hostID {
		return nil, errors.NewAppError(errors.ErrForbidden, "Not authorized", nil)
	}

	userID, parseErr := uuid.Parse(req.UserID)
	if parseErr != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid user ID", parseErr)
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	participant := &entity.UserEvent{
		UserID:   userID,
		EventID:  eventID,
		Status:   entity.ParticipantStatusPending,
		Timezone: timezone,
	}

	if err := s.repo.AddParticipant(ctx, participant); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to add participant", err)
	}

	if appErr := s.staleness.MarkStale(ctx, eventID); appErr != nil {
		logger.Warn("MeetingService:AddParticipant:MarkStale", "event_id", eventID, "error", appErr)
	}

	if req.RegenerateNow {
		if appErr := s.staleness.RequestRegeneration(ctx, eventID); appErr != nil {
			logger.Warn("MeetingService:AddParticipant:RequestRegeneration", "event_id", eventID, "error", appErr)
		}
	}

	resp := dto.ToParticipantResponse(participant)
	return &resp, nil
}

// RemoveParticipant removes a participant and invalidates cached proposals.
func (s *MeetingService) RemoveParticipant(ctx context.Context, eventID uuid.UUID, hostID uuid.UUID, userID uuid.UUID) *errors.AppError {
	event, err := s.repo.GetEventByID(ctx, eventID)
	if err != nil || event == nil {
		return errors.NewAppError(errors.ErrNotFound, "Event not found", err)
	}

	if event.HostID == nil || *event.HostID != hostID {
		return errors.NewAppError(errors.ErrForbidden, "Not authorized", nil)
	}

	if err := s.repo.RemoveParticipant(ctx, userID, eventID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to remove participant", err)
	}

	if appErr := s.staleness.MarkStale(ctx, eventID); appErr != nil {
		logger.Warn("MeetingService:RemoveParticipant:MarkStale", "event_id", eventID, "error", appErr)
	}

	return nil
}
