package repository

import (
	"context"
	"database/sql"

	"meetsync-api/core/database"
	"meetsync-api/core/logger"
	"meetsync-api/modules/meeting/entity"

	"github.com/google/uuid"
)

// MeetingRepository handles event database operations (using events table)
type MeetingRepository struct {
	DB database.Database
}

func NewMeetingRepository(db database.Database) *MeetingRepository {
	return &MeetingRepository{DB: db}
}

// MeetingRepositoryInterface defines the repository contract
type MeetingRepositoryInterface interface {
	// Event CRUD (using events table)
	CreateEvent(ctx context.Context, event *entity.Event) (*entity.Event, error)
	GetEventByID(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	GetEventsByHostID(ctx context.Context, hostID uuid.UUID) ([]entity.Event, error)
	UpdateEvent(ctx context.Context, event *entity.Event) error
	DeleteEvent(ctx context.Context, id uuid.UUID) error

	// Participants (using user_events table)
	AddParticipant(ctx context.Context, userEvent *entity.UserEvent) error
	GetParticipantsByEventID(ctx context.Context, eventID uuid.UUID) ([]entity.UserEvent, error)
	RemoveParticipant(ctx context.Context, userID uuid.UUID, eventID uuid.UUID) error
	GetActiveEventIDsByParticipant(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	UpdateParticipantCalendarStatus(ctx context.Context, userID uuid.UUID, eventID uuid.UUID, hasCalendar bool) error
}

// ===================== Event CRUD =====================

func (r *MeetingRepository) CreateEvent(ctx context.Context, event *entity.Event) (*entity.Event, error) {
	query := `
		INSERT INTO events (host_id, title, description, duration_minutes, status, timezone,
		                    earliest_datetime, latest_datetime, share_slug, proposals_stale)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, false)
		RETURNING id, host_id, title, description, duration_minutes, status, timezone,
		          earliest_datetime, latest_datetime, share_slug, proposals_stale,
		          proposals_generated_at, created_at, updated_at
	`

	var created entity.Event
	err := r.DB.GetContext(ctx, &created, query,
		event.HostID, event.Title, event.Description, event.DurationMinutes,
		event.Status, event.Timezone, event.EarliestDatetime, event.LatestDatetime, event.ShareSlug)

	if err != nil {
		logger.Error("MeetingRepository:CreateEvent", err)
		return nil, err
	}

	return &created, nil
}

func (r *MeetingRepository) GetEventByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	query := `
		SELECT id, host_id, title, description, duration_minutes, status, timezone,
		       earliest_datetime, latest_datetime, share_slug, proposals_stale,
		       proposals_generated_at, created_at, updated_at
		FROM events WHERE id = $1
	`

	var event entity.Event
	err := r.DB.GetContext(ctx, &event, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		logger.Error("MeetingRepository:GetEventByID", err)
		return nil, err
	}

	return &event, nil
}

func (r *MeetingRepository) GetEventsByHostID(ctx context.Context, hostID uuid.UUID) ([]entity.Event, error) {
	query := `
		SELECT id, host_id, title, description, duration_minutes, status, timezone,
		       earliest_datetime, latest_datetime, share_slug, proposals_stale,
		       proposals_generated_at, created_at, updated_at
		FROM events
		WHERE host_id = $1
		ORDER BY created_at DESC
	`

	var events []entity.Event
	err := r.DB.SelectContext(ctx, &events, query, hostID)
	if err != nil {
		logger.Error("MeetingRepository:GetEventsByHostID", err)
		return nil, err
	}

	return events, nil
}

func (r *MeetingRepository) UpdateEvent(ctx context.Context, event *entity.Event) error {
	query := `
		UPDATE events
		SET title = $2, description = $3, duration_minutes = $4, status = $5,
		    earliest_datetime = $6, latest_datetime = $7, updated_at = NOW()
		WHERE id = $1
	`

	err := r.DB.ExecContext(ctx, query,
		event.ID, event.Title, event.Description, event.DurationMinutes,
		event.Status, event.EarliestDatetime, event.LatestDatetime)

	if err != nil {
		logger.Error("MeetingRepository:UpdateEvent", err)
		return err
	}

	return nil
}

func (r *MeetingRepository) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM events WHERE id = $1`
	err := r.DB.ExecContext(ctx, query, id)
	if err != nil {
		logger.Error("MeetingRepository:DeleteEvent", err)
		return err
	}
	return nil
}

// ===================== Participants (user_events) =====================

func (r *MeetingRepository) AddParticipant(ctx context.Context, userEvent *entity.UserEvent) error {
	query := `
		INSERT INTO user_events (user_id, event_id, status, timezone, has_calendar_connected)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, event_id) DO UPDATE SET status = $3, timezone = $4, has_calendar_connected = $5
	`

	err := r.DB.ExecContext(ctx, query,
		userEvent.UserID, userEvent.EventID, userEvent.Status, userEvent.Timezone, userEvent.HasCalendarConnected)
	if err != nil {
		logger.Error("MeetingRepository:AddParticipant", err)
		return err
	}

	return nil
}

func (r *MeetingRepository) GetParticipantsByEventID(ctx context.Context, eventID uuid.UUID) ([]entity.UserEvent, error) {
	query := `
		SELECT user_id, event_id, COALESCE(status, 'pending') as status,
		       COALESCE(timezone, 'UTC') as timezone,
		       COALESCE(has_calendar_connected, false) as has_calendar_connected, created_at
		FROM user_events
		WHERE event_id = $1
		ORDER BY created_at
	`

	var participants []entity.UserEvent
	err := r.DB.SelectContext(ctx, &participants, query, eventID)
	if err != nil {
		logger.Error("MeetingRepository:GetParticipantsByEventID", err)
		return nil, err
	}

	return participants, nil
}

func (r *MeetingRepository) RemoveParticipant(ctx context.Context, userID uuid.UUID, eventID uuid.UUID) error {
	query := `DELETE FROM user_events WHERE user_id = $1 AND event_id = $2`
	err := r.DB.ExecContext(ctx, query, userID, eventID)
	if err != nil {
		logger.Error("MeetingRepository:RemoveParticipant", err)
		return err
	}
	return nil
}

// GetActiveEventIDsByParticipant returns events in non-terminal status that
// the user participates in. Calendar sync uses it to flag stale proposals.
func (r *MeetingRepository) GetActiveEventIDsByParticipant(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT e.id
		FROM events e
		JOIN user_events ue ON ue.event_id = e.id
		WHERE ue.user_id = $1 AND e.status = 'pending'
	`

	var ids []uuid.UUID
	err := r.DB.SelectContext(ctx, &ids, query, userID)
	if err != nil {
		logger.Error("MeetingRepository:GetActiveEventIDsByParticipant", err)
		return nil, err
	}

	return ids, nil
}

func (r *MeetingRepository) UpdateParticipantCalendarStatus(ctx context.Context, userID uuid.UUID, eventID uuid.UUID, hasCalendar bool) error {
	query := `UPDATE user_events SET has_calendar_connected = $3 WHERE user_id = $1 AND event_id = $2`
	err := r.DB.ExecContext(ctx, query, userID, eventID, hasCalendar)
	if err != nil {
		logger.Error("MeetingRepository:UpdateParticipantCalendarStatus", err)
		return err
	}
	return nil
}
