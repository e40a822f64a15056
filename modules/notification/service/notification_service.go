package service

import (
	"context"
	"time"

	coreEntity "meetsync-api/core/entity"
	"meetsync-api/core/logger"
	"meetsync-api/core/params"
	meetingRepo "meetsync-api/modules/meeting/repository"
	"meetsync-api/modules/notification/dto"
	"meetsync-api/modules/notification/entity"
	"meetsync-api/modules/notification/repository"

	"github.com/google/uuid"
)

type NotificationService struct {
	repo        *repository.NotificationRepository
	meetingRepo meetingRepo.MeetingRepositoryInterface
}

func NewNotificationService(repo *repository.NotificationRepository, meetingRepository meetingRepo.MeetingRepositoryInterface) *NotificationService {
	return &NotificationService{repo: repo, meetingRepo: meetingRepository}
}

func (s *NotificationService) Create(ctx context.Context, req *dto.CreateNotificationRequest) error {
	notif := &entity.Notification{
		UserID:  req.UserID,
		Title:   req.Title,
		Message: req.Message,
		Type:    req.Type,
		Data:    entity.JSONB(req.Data),
		IsRead:  false,
		BaseEntity: coreEntity.BaseEntity{
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		},
	}
	return s.repo.Create(ctx, notif)
}

// RecordEventNotification fans one engine outcome out to every participant
// of the event. Failures only warn, engine flows never block on rows here.
func (s *NotificationService) RecordEventNotification(ctx context.Context, eventID uuid.UUID, kind string, message string) {
	participants, err := s.meetingRepo.GetParticipantsByEventID(ctx, eventID)
	if err != nil {
		logger.Warn("NotificationService:RecordEventNotification:Participants", "event_id", eventID, "error", err)
		return
	}

	title := titleFor(kind)
	for _, p := range participants {
		err := s.Create(ctx, &dto.CreateNotificationRequest{
			UserID:  p.UserID,
			Title:   title,
			Message: message,
			Type:    kind,
			Data:    map[string]any{"event_id": eventID.String()},
		})
		if err != nil {
			logger.Warn("NotificationService:RecordEventNotification:Create",
				"event_id", eventID, "user_id", p.UserID, "error", err)
		}
	}
}

func titleFor(kind string) string {
	switch kind {
	case entity.KindProposalsReady:
		return "New meeting times proposed"
	case entity.KindProposalsExpired:
		return "Proposed meeting times have passed"
	case entity.KindGenerationFailed:
		return "Could not generate meeting times"
	default:
		return "Notification"
	}
}

func (s *NotificationService) GetMyNotifications(ctx context.Context, userID uuid.UUID, queryParams params.QueryParams) (*entity.PaginatedNotificationEntity, error) {
	return s.repo.GetByUserID(ctx, userID, queryParams)
}

func (s *NotificationService) MarkAsRead(ctx context.Context, userID uuid.UUID, ids []string) error {
	return s.repo.MarkAsRead(ctx, userID, ids)
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uuid.UUID) error {
	return s.repo.MarkAllAsRead(ctx, userID)
}

func (s *NotificationService) CountUnread(ctx context.Context, userID uuid.UUID) (int, error) {
	return s.repo.CountUnread(ctx, userID)
}
