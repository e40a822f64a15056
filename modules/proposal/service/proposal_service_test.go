package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"meetsync-api/core/constants"
	"meetsync-api/core/errors"
	availEntity "meetsync-api/modules/availability/entity"
	meetingEntity "meetsync-api/modules/meeting/entity"
	"meetsync-api/modules/proposal/entity"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ---- fakes ----

type fakeProposalRepo struct {
	exists      bool
	stale       bool
	generatedAt *time.Time
	proposals   []entity.ProposedTime
	staleEvents []uuid.UUID

	replaceCalls int
	listErr      error
}

func (f *fakeProposalRepo) GetProposalsByEventID(ctx context.Context, eventID uuid.UUID) ([]entity.ProposedTime, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.proposals, nil
}

func (f *fakeProposalRepo) ReplaceProposals(ctx context.Context, eventID uuid.UUID, proposals []entity.ProposedTime, generatedAt time.Time) error {
	f.replaceCalls++
	f.proposals = proposals
	f.stale = false
	f.generatedAt = &generatedAt
	return nil
}

func (f *fakeProposalRepo) MarkStale(ctx context.Context, eventID uuid.UUID) error {
	f.stale = true
	return nil
}

func (f *fakeProposalRepo) GetCacheMeta(ctx context.Context, eventID uuid.UUID) (bool, *time.Time, error) {
	if !f.exists {
		return false, nil, sql.ErrNoRows
	}
	return f.stale, f.generatedAt, nil
}

func (f *fakeProposalRepo) ListStaleEventIDs(ctx context.Context, max int) ([]uuid.UUID, error) {
	if max < len(f.staleEvents) {
		return f.staleEvents[:max], nil
	}
	return f.staleEvents, nil
}

type fakeMeetingRepo struct {
	event        *meetingEntity.Event
	participants []meetingEntity.UserEvent
}

func (f *fakeMeetingRepo) CreateEvent(ctx context.Context, event *meetingEntity.Event) (*meetingEntity.Event, error) {
	return event, nil
}

func (f *fakeMeetingRepo) GetEventByID(ctx context.Context, id uuid.UUID) (*meetingEntity.Event, error) {
	return f.event, nil
}

func (f *fakeMeetingRepo) GetEventsByHostID(ctx context.Context, hostID uuid.UUID) ([]meetingEntity.Event, error) {
	return nil, nil
}

func (f *fakeMeetingRepo) UpdateEvent(ctx context.Context, event *meetingEntity.Event) error {
	return nil
}

func (f *fakeMeetingRepo) DeleteEvent(ctx context.Context, id uuid.UUID) error { return nil }

func (f *fakeMeetingRepo) AddParticipant(ctx context.Context, userEvent *meetingEntity.UserEvent) error {
	return nil
}

func (f *fakeMeetingRepo) GetParticipantsByEventID(ctx context.Context, eventID uuid.UUID) ([]meetingEntity.UserEvent, error) {
	return f.participants, nil
}

func (f *fakeMeetingRepo) RemoveParticipant(ctx context.Context, userID uuid.UUID, eventID uuid.UUID) error {
	return nil
}

func (f *fakeMeetingRepo) GetActiveEventIDsByParticipant(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return nil, nil
}

func (f *fakeMeetingRepo) UpdateParticipantCalendarStatus(ctx context.Context, userID uuid.UUID, eventID uuid.UUID, hasCalendar bool) error {
	return nil
}

type fakeAvailRepo struct {
	busy      []availEntity.BusySlot
	preferred []availEntity.PreferredSlot
}

func (f *fakeAvailRepo) ListBusySlots(ctx context.Context, userIDs []uuid.UUID) ([]availEntity.BusySlot, error) {
	return f.busy, nil
}

func (f *fakeAvailRepo) ReplaceBusySlotsForUser(ctx context.Context, userID uuid.UUID, slots []availEntity.BusySlot) error {
	return nil
}

func (f *fakeAvailRepo) ListPreferredSlots(ctx context.Context, eventID uuid.UUID) ([]availEntity.PreferredSlot, error) {
	return f.preferred, nil
}

func (f *fakeAvailRepo) UpsertPreferredSlot(ctx context.Context, slot *availEntity.PreferredSlot) error {
	return nil
}

func (f *fakeAvailRepo) DeletePreferredSlot(ctx context.Context, userID, eventID uuid.UUID, slotID uuid.UUID) error {
	return nil
}

type fakeAI struct {
	raw   []entity.RawProposal
	err   *errors.AppError
	calls int
}

func (f *fakeAI) Propose(ctx context.Context, eventID uuid.UUID, prompt string) ([]entity.RawProposal, *errors.AppError) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.raw, nil
}

type fakeCache struct {
	lockHeld bool
	acquires int
	releases int
	kv       map[string]string
}

func (f *fakeCache) AcquireRegenerateLock(ctx context.Context, eventID string) (bool, error) {
	f.acquires++
	return !f.lockHeld, nil
}

func (f *fakeCache) ReleaseRegenerateLock(ctx context.Context, eventID string) error {
	f.releases++
	return nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if f.kv == nil {
		f.kv = map[string]string{}
	}
	f.kv[key] = value
	return nil
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) { return f.kv[key], nil }

func (f *fakeCache) Del(ctx context.Context, key string) error {
	delete(f.kv, key)
	return nil
}

func (f *fakeCache) Expire(ctx context.Context, key string, ttl time.Duration) error { return nil }

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

type fakeNotifier struct {
	kinds []string
}

func (f *fakeNotifier) RecordEventNotification(ctx context.Context, eventID uuid.UUID, kind string, message string) {
	f.kinds = append(f.kinds, kind)
}

// ---- fixture ----

type serviceFixture struct {
	svc      *ProposalService
	repo     *fakeProposalRepo
	meeting  *fakeMeetingRepo
	avail    *fakeAvailRepo
	ai       *fakeAI
	cache    *fakeCache
	tasks    *fakeEnqueuer
	notifier *fakeNotifier
	now      time.Time
	eventID  uuid.UUID
}

func newServiceFixture() *serviceFixture {
	now := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	eventID := uuid.New()
	earliest := now.AddDate(0, 0, 1)

	f := &serviceFixture{
		repo: &fakeProposalRepo{exists: true},
		meeting: &fakeMeetingRepo{
			event: &meetingEntity.Event{
				ID:               eventID,
				Title:            "Team Sync",
				DurationMinutes:  60,
				Status:           meetingEntity.EventStatusPending,
				Timezone:         "UTC",
				EarliestDatetime: earliest.Add(9 * time.Hour),
				LatestDatetime:   earliest.AddDate(0, 0, 3).Add(17 * time.Hour),
			},
			participants: []meetingEntity.UserEvent{
				{UserID: uuid.New(), EventID: eventID, Timezone: "UTC"},
				{UserID: uuid.New(), EventID: eventID, Timezone: "UTC"},
			},
		},
		avail:    &fakeAvailRepo{},
		ai:       &fakeAI{},
		cache:    &fakeCache{},
		tasks:    &fakeEnqueuer{},
		notifier: &fakeNotifier{},
		now:      now,
		eventID:  eventID,
	}

	f.svc = NewProposalService(f.repo, f.meeting, f.avail, f.ai, f.cache, f.tasks, f.notifier)
	f.svc.Now = func() time.Time { return now }
	return f
}

func (f *serviceFixture) aiReturns(starts ...time.Time) {
	f.ai.raw = nil
	for _, start := range starts {
		f.ai.raw = append(f.ai.raw, rawProposal(start, start.Add(time.Hour), 0, "works for everyone"))
	}
}

func (f *serviceFixture) storedProposal(start time.Time, rank int) entity.ProposedTime {
	return entity.ProposedTime{
		ID:       uuid.New(),
		EventID:  f.eventID,
		StartUTC: start,
		EndUTC:   start.Add(time.Hour),
		Rank:     rank,
	}
}

// ---- cache state ----

func TestShouldRegenerateUnknownEvent(t *testing.T) {
	f := newServiceFixture()
	f.repo.exists = false

	_, appErr := f.svc.ShouldRegenerate(context.Background(), f.eventID)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNotFound, appErr.Code)
}

func TestShouldRegenerateStates(t *testing.T) {
	future := time.Date(2025, 6, 12, 10, 0, 0, 0, time.UTC)
	past := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		stale      bool
		starts     []time.Time
		wantNeeds  bool
		wantExpire bool
		wantHas    bool
	}{
		{"fresh", false, []time.Time{future}, false, false, true},
		{"stale flag set", true, []time.Time{future}, true, false, true},
		{"no proposals", false, nil, true, false, false},
		{"all expired", false, []time.Time{past}, true, true, true},
		{"partially expired", false, []time.Time{past, future}, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newServiceFixture()
			f.repo.stale = tt.stale
			for i, start := range tt.starts {
				f.repo.proposals = append(f.repo.proposals, f.storedProposal(start, i))
			}

			state, appErr := f.svc.ShouldRegenerate(context.Background(), f.eventID)

			require.Nil(t, appErr)
			assert.Equal(t, tt.wantHas, state.HasProposals)
			assert.Equal(t, tt.wantNeeds, state.NeedsRegeneration)
			assert.Equal(t, tt.wantExpire, state.AllExpired)
		})
	}
}

// ---- reads ----

func TestGetProposalsFreshServesCache(t *testing.T) {
	f := newServiceFixture()
	future := f.now.AddDate(0, 0, 2)
	f.repo.proposals = []entity.ProposedTime{f.storedProposal(future, 0)}

	resp, appErr := f.svc.GetProposals(context.Background(), f.eventID, 5, false)

	require.Nil(t, appErr)
	assert.True(t, resp.Cached)
	assert.False(t, resp.NeedsUpdate)
	assert.Len(t, resp.Proposals, 1)
	assert.Equal(t, 0, f.ai.calls)
}

func TestGetProposalsFiltersPastFromView(t *testing.T) {
	f := newServiceFixture()
	past := f.now.AddDate(0, 0, -1)
	future := f.now.AddDate(0, 0, 2)
	f.repo.proposals = []entity.ProposedTime{
		f.storedProposal(past, 0),
		f.storedProposal(future, 1),
	}

	resp, appErr := f.svc.GetProposals(context.Background(), f.eventID, 5, false)

	require.Nil(t, appErr)
	assert.True(t, resp.Cached)
	require.Len(t, resp.Proposals, 1)
	assert.Equal(t, future, resp.Proposals[0].StartUTC)
	// the past row stays stored until the next regeneration
	assert.Len(t, f.repo.proposals, 2)
}

func TestGetProposalsAllExpiredReportedNotRegenerated(t *testing.T) {
	f := newServiceFixture()
	past := f.now.AddDate(0, 0, -1)
	f.repo.proposals = []entity.ProposedTime{f.storedProposal(past, 0)}

	resp, appErr := f.svc.GetProposals(context.Background(), f.eventID, 5, false)

	require.Nil(t, appErr)
	assert.True(t, resp.Cached)
	assert.True(t, resp.AllExpired)
	assert.True(t, resp.NeedsUpdate)
	assert.Empty(t, resp.Proposals)
	assert.Equal(t, 0, f.ai.calls)

	// the expired notification is recorded once, repeated polls dedupe
	_, appErr = f.svc.GetProposals(context.Background(), f.eventID, 5, false)
	require.Nil(t, appErr)
	assert.Equal(t, []string{"proposals_expired"}, f.notifier.kinds)
}

func TestGetProposalsStaleRegenerates(t *testing.T) {
	f := newServiceFixture()
	f.repo.stale = true
	f.repo.proposals = []entity.ProposedTime{f.storedProposal(f.now.AddDate(0, 0, 2), 0)}
	f.aiReturns(f.now.AddDate(0, 0, 2).Add(time.Hour), f.now.AddDate(0, 0, 3))

	resp, appErr := f.svc.GetProposals(context.Background(), f.eventID, 5, false)

	require.Nil(t, appErr)
	assert.False(t, resp.Cached)
	assert.Equal(t, 1, f.ai.calls)
	assert.Equal(t, 1, f.repo.replaceCalls)
	assert.False(t, f.repo.stale)
	assert.Len(t, f.repo.proposals, 2)
}

func TestGetProposalsForceRefreshBypassesFreshCache(t *testing.T) {
	f := newServiceFixture()
	f.repo.proposals = []entity.ProposedTime{f.storedProposal(f.now.AddDate(0, 0, 2), 0)}
	f.aiReturns(f.now.AddDate(0, 0, 2))

	resp, appErr := f.svc.GetProposals(context.Background(), f.eventID, 5, true)

	require.Nil(t, appErr)
	assert.False(t, resp.Cached)
	assert.Equal(t, 1, f.ai.calls)
}

// ---- regeneration ----

func TestRegenerateNowReplacesWholeSet(t *testing.T) {
	f := newServiceFixture()
	f.repo.proposals = []entity.ProposedTime{f.storedProposal(f.now.AddDate(0, 0, -5), 0)}
	first := f.now.AddDate(0, 0, 2)
	f.aiReturns(first, first.Add(2*time.Hour), first.Add(4*time.Hour))

	resp, appErr := f.svc.RegenerateNow(context.Background(), f.eventID, 5)

	require.Nil(t, appErr)
	assert.False(t, resp.Cached)
	require.Len(t, f.repo.proposals, 3)
	for i, p := range f.repo.proposals {
		assert.Equal(t, i, p.Rank)
	}
	assert.Equal(t, []string{"proposals_ready"}, f.notifier.kinds)
	assert.Equal(t, 1, f.cache.releases)
}

func TestRegenerateNowTruncatesToRequestedCount(t *testing.T) {
	f := newServiceFixture()
	first := f.now.AddDate(0, 0, 2)
	f.aiReturns(first, first.Add(2*time.Hour), first.Add(4*time.Hour))

	_, appErr := f.svc.RegenerateNow(context.Background(), f.eventID, 2)

	require.Nil(t, appErr)
	assert.Len(t, f.repo.proposals, 2)
}

func TestRegenerateNowLockHeldServesCache(t *testing.T) {
	f := newServiceFixture()
	f.cache.lockHeld = true
	f.repo.proposals = []entity.ProposedTime{f.storedProposal(f.now.AddDate(0, 0, 2), 0)}

	resp, appErr := f.svc.RegenerateNow(context.Background(), f.eventID, 5)

	require.Nil(t, appErr)
	assert.True(t, resp.Cached)
	assert.Equal(t, 0, f.ai.calls)
	assert.Equal(t, 0, f.repo.replaceCalls)
	assert.Equal(t, 0, f.cache.releases)
}

func TestRegenerateNowNoParticipants(t *testing.T) {
	f := newServiceFixture()
	f.meeting.participants = nil

	_, appErr := f.svc.RegenerateNow(context.Background(), f.eventID, 5)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNoParticipants, appErr.Code)
	assert.Equal(t, []string{"generation_failed"}, f.notifier.kinds)
	assert.Equal(t, 1, f.cache.releases)
}

func TestRegenerateNowTerminalEvent(t *testing.T) {
	f := newServiceFixture()
	f.meeting.event.Status = meetingEntity.EventStatusCancelled

	_, appErr := f.svc.RegenerateNow(context.Background(), f.eventID, 5)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrInvalidInput, appErr.Code)
	assert.Equal(t, 0, f.ai.calls)
}

func TestRegenerateNowProviderFailureNotifies(t *testing.T) {
	f := newServiceFixture()
	f.ai.err = errors.NewAppError(errors.ErrAIRateLimited, "rate limited", nil)

	_, appErr := f.svc.RegenerateNow(context.Background(), f.eventID, 5)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrAIRateLimited, appErr.Code)
	assert.Equal(t, []string{"generation_failed"}, f.notifier.kinds)
	assert.Equal(t, 0, f.repo.replaceCalls)
}

func TestRegenerateNowEmptyReplyWithFreeWindows(t *testing.T) {
	f := newServiceFixture()
	f.ai.raw = nil

	_, appErr := f.svc.RegenerateNow(context.Background(), f.eventID, 5)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrAIInvalidResponse, appErr.Code)
}

func TestRegenerateNowNoFreeWindows(t *testing.T) {
	f := newServiceFixture()
	// earliest clock after latest clock collapses every daily window
	f.meeting.event.EarliestDatetime = f.now.AddDate(0, 0, 1).Add(17 * time.Hour)
	f.meeting.event.LatestDatetime = f.now.AddDate(0, 0, 2).Add(9 * time.Hour)
	f.ai.raw = nil

	_, appErr := f.svc.RegenerateNow(context.Background(), f.eventID, 5)

	require.NotNil(t, appErr)
	assert.Equal(t, errors.ErrNoAvailability, appErr.Code)
}

// ---- stale flag and async path ----

func TestMarkStaleFlipsFlagOnly(t *testing.T) {
	f := newServiceFixture()
	f.repo.proposals = []entity.ProposedTime{f.storedProposal(f.now.AddDate(0, 0, 2), 0)}

	appErr := f.svc.MarkStale(context.Background(), f.eventID)

	require.Nil(t, appErr)
	assert.True(t, f.repo.stale)
	assert.Len(t, f.repo.proposals, 1)
	assert.Equal(t, 0, f.ai.calls)
}

func TestRequestRegenerationEnqueuesTask(t *testing.T) {
	f := newServiceFixture()

	appErr := f.svc.RequestRegeneration(context.Background(), f.eventID)

	require.Nil(t, appErr)
	require.Len(t, f.tasks.tasks, 1)
	assert.Equal(t, constants.TaskRegenerateEvent, f.tasks.tasks[0].Type())
	assert.Contains(t, string(f.tasks.tasks[0].Payload()), f.eventID.String())
}
