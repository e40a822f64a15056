package service

import (
	"context"
	"time"

	"meetsync-api/core/errors"
	"meetsync-api/core/logger"
	"meetsync-api/modules/availability/dto"
	"meetsync-api/modules/availability/entity"
	"meetsync-api/modules/availability/repository"
	meetingRepo "meetsync-api/modules/meeting/repository"

	"github.com/google/uuid"
)

// ProposalInvalidator is how slot mutations flag cached proposals for
// regeneration. Implemented by the proposal module.
type ProposalInvalidator interface {
	MarkStale(ctx context.Context, eventID uuid.UUID) *errors.AppError
}

// AvailabilityService exposes the merged busy view and preference mutations.
type AvailabilityService struct {
	repo        repository.AvailabilityRepositoryInterface
	meetings    meetingRepo.MeetingRepositoryInterface
	invalidator ProposalInvalidator
	merger      *IntervalMerger
	search      *WindowSearch
}

type AvailabilityServiceInterface interface {
	GetEventAvailability(ctx context.Context, eventID uuid.UUID) (*dto.AvailabilityResponse, *errors.AppError)
	DeclarePreferredSlot(ctx context.Context, userID, eventID uuid.UUID, req *dto.DeclarePreferredSlotRequest) (*dto.PreferredSlotResponse, *errors.AppError)
	RemovePreferredSlot(ctx context.Context, userID, eventID, slotID uuid.UUID) *errors.AppError
}

func NewAvailabilityService(
	repo repository.AvailabilityRepositoryInterface,
	meetings meetingRepo.MeetingRepositoryInterface,
	invalidator ProposalInvalidator,
) AvailabilityServiceInterface {
	return &AvailabilityService{
		repo:        repo,
		meetings:    meetings,
		invalidator: invalidator,
		merger:      NewIntervalMerger(),
		search:      NewWindowSearch(),
	}
}

// GetEventAvailability merges current busy data for every participant and
// reports the free windows inside the event constraints.
func (s *AvailabilityService) GetEventAvailability(ctx context.Context, eventID uuid.UUID) (*dto.AvailabilityResponse, *errors.AppError) {
	event, err := s.meetings.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get event", err)
	}
	if event == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "Event not found", nil)
	}

	participants, err := s.meetings.GetParticipantsByEventID(ctx, eventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get participants", err)
	}

	userIDs := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		userIDs = append(userIDs, p.UserID)
	}

	busy, err := s.repo.ListBusySlots(ctx, userIDs)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to list busy slots", err)
	}

	segments := s.merger.Merge(busy)
	windows := s.search.Search(event.Constraints(), segments)

	return &dto.AvailabilityResponse{
		EventID:          eventID.String(),
		ParticipantCount: len(participants),
		Segments:         dto.ToBusySegmentDTOs(segments),
		FreeWindows:      windows,
	}, nil
}

// DeclarePreferredSlot records a preference interval and flags the event's
// cached proposals as stale.
func (s *AvailabilityService) DeclarePreferredSlot(ctx context.Context, userID, eventID uuid.UUID, req *dto.DeclarePreferredSlotRequest) (*dto.PreferredSlotResponse, *errors.AppError) {
	start, parseErr := time.Parse(time.RFC3339, req.StartUTC)
	if parseErr != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid start_utc format", parseErr)
	}
	end, parseErr := time.Parse(time.RFC3339, req.EndUTC)
	if parseErr != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "Invalid end_utc format", parseErr)
	}

	slot, appErr := entity.NewPreferredSlot(userID, eventID, start, end)
	if appErr != nil {
		return nil, appErr
	}

	if err := s.repo.UpsertPreferredSlot(ctx, slot); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to save preferred slot", err)
	}

	if appErr := s.invalidator.MarkStale(ctx, eventID); appErr != nil {
		logger.Warn("AvailabilityService:DeclarePreferredSlot:MarkStale", "event_id", eventID, "error", appErr)
	}

	return dto.ToPreferredSlotResponse(slot), nil
}

func (s *AvailabilityService) RemovePreferredSlot(ctx context.Context, userID, eventID, slotID uuid.UUID) *errors.AppError {
	if err := s.repo.DeletePreferredSlot(ctx, userID, eventID, slotID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to delete preferred slot", err)
	}

	if appErr := s.invalidator.MarkStale(ctx, eventID); appErr != nil {
		logger.Warn("AvailabilityService:RemovePreferredSlot:MarkStale", "event_id", eventID, "error", appErr)
	}

	return nil
}
