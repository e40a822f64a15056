package service

import (
	"context"
	"testing"
	"time"

	"meetsync-api/core/errors"
	"meetsync-api/modules/meeting/dto"
	"meetsync-api/modules/meeting/entity"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryMeetingRepo is an in-memory stand-in for the postgres repository.
type memoryMeetingRepo struct {
	events       map[uuid.UUID]*entity.Event
	participants map[uuid.UUID][]entity.UserEvent
}

func newMemoryMeetingRepo() *memoryMeetingRepo {
	return &memoryMeetingRepo{
		events:       map[uuid.UUID]*entity.Event{},
		participants: map[uuid.UUID][]entity.UserEvent{},
	}
}

func (r *memoryMeetingRepo) CreateEvent(ctx context.Context, event *entity.Event) (*entity.Event, error) {
	created := *event
	created.ID = uuid.New()
	created.CreatedAt = time.Now().UTC()
	r.events[created.ID] = &created
	return &created, nil
}

func (r *memoryMeetingRepo) GetEventByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	return r.events[id], nil
}

func (r *memoryMeetingRepo) GetEventsByHostID(ctx context.Context, hostID uuid.UUID) ([]entity.Event, error) {
	var out []entity.Event
	for _, e := range r.events {
		if e.HostID != nil && *e.HostID == hostID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (r *memoryMeetingRepo) UpdateEvent(ctx context.Context, event *entity.Event) error {
	r.events[event.ID] = event
	return nil
}

func (r *memoryMeetingRepo) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	delete(r.events, id)
	return nil
}

func (r *memoryMeetingRepo) AddParticipant(ctx context.Context, userEvent *entity.UserEvent) error {
	r.participants[userEvent.EventID] = append(r.participants[userEvent.EventID], *userEvent)
	return nil
}

func (r *memoryMeetingRepo) GetParticipantsByEventID(ctx context.Context, eventID uuid.UUID) ([]entity.UserEvent, error) {
	return r.participants[eventID], nil
}

func (r *memoryMeetingRepo) RemoveParticipant(ctx context.Context, userID uuid.UUID, eventID uuid.UUID) error {
	kept := r.participants[eventID][:0]
	for _, p := range r.participants[eventID] {
		if p.UserID != userID {
			kept = append(kept, p)
		}
	}
	r.participants[eventID] = kept
	return nil
}

func (r *memoryMeetingRepo) GetActiveEventIDsByParticipant(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	var out []uuid.UUID
	for eventID, parts := range r.participants {
		event := r.events[eventID]
		if event == nil || event.Status.Terminal() {
			continue
		}
		for _, p := range parts {
			if p.UserID == userID {
				out = append(out, eventID)
				break
			}
		}
	}
	return out, nil
}

func (r *memoryMeetingRepo) UpdateParticipantCalendarStatus(ctx context.Context, userID uuid.UUID, eventID uuid.UUID, hasCalendar bool) error {
	for i, p := range r.participants[eventID] {
		if p.UserID == userID {
			r.participants[eventID][i].HasCalendarConnected = hasCalendar
		}
	}
	return nil
}

// stalenessSpy records invalidation calls.
type stalenessSpy struct {
	staleCalls []uuid.UUID
	regenCalls []uuid.UUID
}

func (s *stalenessSpy) MarkStale(ctx context.Context, eventID uuid.UUID) *errors.AppError {
	s.staleCalls = append(s.staleCalls, eventID)
	return nil
}

func (s *stalenessSpy) RequestRegeneration(ctx context.Context, eventID uuid.UUID) *errors.AppError {
	s.regenCalls = append(s.regenCalls, eventID)
	return nil
}

func createTestEvent(t *testing.T, svc MeetingServiceInterface, hostID uuid.UUID) *dto.EventResponse {
	t.Helper()
	earliest := time.Now().UTC().AddDate(0, 0, 1).Truncate(time.Hour)
	resp, appErr := svc.CreateEvent(context.Background(), hostID, &dto.CreateEventRequest{
		Title:            "Quarterly Review",
		DurationMinutes:  60,
		EarliestDatetime: earliest.Format(time.RFC3339),
		LatestDatetime:   earliest.AddDate(0, 0, 5).Format(time.RFC3339),
	})
	require.Nil(t, appErr)
	return resp
}

func TestCreateEventHostBecomesParticipant(t *testing.T) {
	repo := newMemoryMeetingRepo()
	spy := &stalenessSpy{}
	svc := NewMeetingService(repo, spy)
	hostID := uuid.New()

	resp := createTestEvent(t, svc, hostID)

	require.Len(t, resp.Participants, 1)
	assert.Equal(t, hostID.String(), resp.Participants[0].UserID)
	assert.Equal(t, string(entity.ParticipantStatusAccepted), resp.Participants[0].Status)
	assert.Equal(t, string(entity.EventStatusPending), resp.Status)
	assert.NotEmpty(t, resp.ShareSlug)
	// a brand new event has nothing cached to invalidate
	assert.Empty(t, spy.staleCalls)
}

func TestCreateEventRejectsInvertedRange(t *testing.T) {
	svc := NewMeetingService(newMemoryMeetingRepo(), &stalenessSpy{})
	earliest := time.Now().UTC().AddDate(0, 0, 5)

	_, appErr := svc.CreateEvent(context.Background(), uuid.New(), &dto.CreateEventRequest{
		Title:            "Backwards",
		DurationMinutes:  60,
		EarliestDatetime: earliest.Format(time.RFC3339),
		LatestDatetime:   earliest.AddDate(0, 0, -2).Format(time.RFC3339),
	})

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
}

func TestUpdateEventConstraintChangeMarksStale(t *testing.T) {
	repo := newMemoryMeetingRepo()
	spy := &stalenessSpy{}
	svc := NewMeetingService(repo, spy)
	hostID := uuid.New()
	created := createTestEvent(t, svc, hostID)
	eventID := uuid.MustParse(created.ID)

	_, appErr := svc.UpdateEvent(context.Background(), eventID, hostID, &dto.UpdateEventRequest{
		DurationMinutes: 90,
	})

	require.Nil(t, appErr)
	assert.Equal(t, []uuid.UUID{eventID}, spy.staleCalls)
}

func TestUpdateEventTitleOnlyKeepsProposalsFresh(t *testing.T) {
	repo := newMemoryMeetingRepo()
	spy := &stalenessSpy{}
	svc := NewMeetingService(repo, spy)
	hostID := uuid.New()
	created := createTestEvent(t, svc, hostID)

	resp, appErr := svc.UpdateEvent(context.Background(), uuid.MustParse(created.ID), hostID, &dto.UpdateEventRequest{
		Title: "Renamed Review",
	})

	require.Nil(t, appErr)
	assert.Equal(t, "Renamed Review", resp.Title)
	assert.Empty(t, spy.staleCalls)
}

func TestUpdateEventRequiresHost(t *testing.T) {
	repo := newMemoryMeetingRepo()
	svc := NewMeetingService(repo, &stalenessSpy{})
	created := createTestEvent(t, svc, uuid.New())

	_, appErr := svc.UpdateEvent(context.Background(), uuid.MustParse(created.ID), uuid.New(), &dto.UpdateEventRequest{
		Title: "Hijacked",
	})

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrForbidden, appErr.Code)
}

func TestAddParticipantMarksStale(t *testing.T) {
	repo := newMemoryMeetingRepo()
	spy := &stalenessSpy{}
	svc := NewMeetingService(repo, spy)
	hostID := uuid.New()
	created := createTestEvent(t, svc, hostID)
	eventID := uuid.MustParse(created.ID)

	_, appErr := svc.AddParticipant(context.Background(), eventID, hostID, &dto.AddParticipantRequest{
		UserID:   uuid.New().String(),
		Timezone: "Europe/Berlin",
	})

	require.Nil(t, appErr)
	assert.Equal(t, []uuid.UUID{eventID}, spy.staleCalls)
	assert.Empty(t, spy.regenCalls)
}

func TestAddParticipantWithImmediateRegeneration(t *testing.T) {
	repo := newMemoryMeetingRepo()
	spy := &stalenessSpy{}
	svc := NewMeetingService(repo, spy)
	hostID := uuid.New()
	created := createTestEvent(t, svc, hostID)
	eventID := uuid.MustParse(created.ID)

	_, appErr := svc.AddParticipant(context.Background(), eventID, hostID, &dto.AddParticipantRequest{
		UserID:        uuid.New().String(),
		RegenerateNow: true,
	})

	require.Nil(t, appErr)
	assert.Equal(t, []uuid.UUID{eventID}, spy.regenCalls)
}

func TestRemoveParticipantMarksStale(t *testing.T) {
	repo := newMemoryMeetingRepo()
	spy := &stalenessSpy{}
	svc := NewMeetingService(repo, spy)
	hostID := uuid.New()
	created := createTestEvent(t, svc, hostID)
	eventID := uuid.MustParse(created.ID)

	other := uuid.New()
	_, appErr := svc.AddParticipant(context.Background(), eventID, hostID, &dto.AddParticipantRequest{
		UserID: other.String(),
	})
	require.Nil(t, appErr)

	appErr = svc.RemoveParticipant(context.Background(), eventID, hostID, other)
	require.Nil(t, appErr)

	parts, _ := repo.GetParticipantsByEventID(context.Background(), eventID)
	require.Len(t, parts, 1)
	assert.Equal(t, hostID, parts[0].UserID)
	assert.Len(t, spy.staleCalls, 2)
}

func TestCancelEventExcludesFromRegeneration(t *testing.T) {
	repo := newMemoryMeetingRepo()
	spy := &stalenessSpy{}
	svc := NewMeetingService(repo, spy)
	hostID := uuid.New()
	created := createTestEvent(t, svc, hostID)
	eventID := uuid.MustParse(created.ID)

	appErr := svc.CancelEvent(context.Background(), eventID, hostID)
	require.Nil(t, appErr)

	event, _ := repo.GetEventByID(context.Background(), eventID)
	assert.Equal(t, entity.EventStatusCancelled, event.Status)
	assert.True(t, event.Status.Terminal())

	ids, _ := repo.GetActiveEventIDsByParticipant(context.Background(), hostID)
	assert.Empty(t, ids)
}
