package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"meetsync-api/core/errors"
	"meetsync-api/modules/proposal/dto"
	"meetsync-api/modules/proposal/entity"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProposals scripts RegenerateNow outcomes per event id.
type fakeProposals struct {
	failing map[uuid.UUID]*errors.AppError
	calls   []uuid.UUID
}

func (f *fakeProposals) ShouldRegenerate(ctx context.Context, eventID uuid.UUID) (entity.CacheState, *errors.AppError) {
	return entity.CacheState{}, nil
}

func (f *fakeProposals) GetProposals(ctx context.Context, eventID uuid.UUID, numSuggestions int, forceRefresh bool) (*dto.ProposalsResponse, *errors.AppError) {
	return &dto.ProposalsResponse{EventID: eventID}, nil
}

func (f *fakeProposals) RegenerateNow(ctx context.Context, eventID uuid.UUID, numSuggestions int) (*dto.ProposalsResponse, *errors.AppError) {
	f.calls = append(f.calls, eventID)
	if appErr, ok := f.failing[eventID]; ok {
		return nil, appErr
	}
	return &dto.ProposalsResponse{EventID: eventID}, nil
}

func (f *fakeProposals) MarkStale(ctx context.Context, eventID uuid.UUID) *errors.AppError {
	return nil
}

func (f *fakeProposals) RequestRegeneration(ctx context.Context, eventID uuid.UUID) *errors.AppError {
	return nil
}

var _ ProposalServiceInterface = (*fakeProposals)(nil)

func newSchedulerFixture(staleEvents []uuid.UUID) (*RegenerationScheduler, *fakeProposals, *fakeProposalRepo) {
	proposals := &fakeProposals{failing: map[uuid.UUID]*errors.AppError{}}
	repo := &fakeProposalRepo{exists: true, staleEvents: staleEvents}
	return NewRegenerationScheduler(proposals, repo), proposals, repo
}

func TestRunBatchTalliesFailuresWithoutAborting(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	scheduler, proposals, _ := newSchedulerFixture(ids)
	proposals.failing[ids[1]] = errors.NewAppError(errors.ErrAIProvider, "provider down", nil)
	scheduler.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	result := scheduler.RunBatch(context.Background(), 10, time.Second)

	assert.Equal(t, BatchResult{Selected: 3, Succeeded: 2, Failed: 1}, result)
	assert.Equal(t, ids, proposals.calls)
}

func TestRunBatchSleepsBetweenEvents(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	scheduler, _, _ := newSchedulerFixture(ids)

	var sleeps []time.Duration
	scheduler.Sleep = func(ctx context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}

	scheduler.RunBatch(context.Background(), 10, 2*time.Second)

	// delay before every event except the first
	require.Len(t, sleeps, 2)
	for _, d := range sleeps {
		assert.Equal(t, 2*time.Second, d)
	}
}

func TestRunBatchNoDelaySkipsSleep(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New()}
	scheduler, proposals, _ := newSchedulerFixture(ids)

	slept := 0
	scheduler.Sleep = func(ctx context.Context, d time.Duration) error {
		slept++
		return nil
	}

	scheduler.RunBatch(context.Background(), 10, 0)

	assert.Equal(t, 0, slept)
	assert.Len(t, proposals.calls, 2)
}

func TestRunBatchHonorsMaxEvents(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	scheduler, proposals, _ := newSchedulerFixture(ids)
	scheduler.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	result := scheduler.RunBatch(context.Background(), 2, time.Second)

	assert.Equal(t, 2, result.Selected)
	assert.Len(t, proposals.calls, 2)
}

func TestRunBatchCancelledSleepReturnsPartialResult(t *testing.T) {
	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New()}
	scheduler, proposals, _ := newSchedulerFixture(ids)
	scheduler.Sleep = func(ctx context.Context, d time.Duration) error {
		return context.Canceled
	}

	result := scheduler.RunBatch(context.Background(), 10, time.Second)

	assert.Equal(t, BatchResult{Selected: 3, Succeeded: 1, Failed: 0}, result)
	assert.Len(t, proposals.calls, 1)
}

func TestHandleBatchTaskDecodesLimits(t *testing.T) {
	ids := []uuid.UUID{uuid.New()}
	scheduler, proposals, _ := newSchedulerFixture(ids)
	scheduler.Sleep = func(ctx context.Context, d time.Duration) error { return nil }

	task, err := NewBatchTask(5, time.Second)
	require.NoError(t, err)

	require.NoError(t, scheduler.HandleBatchTask(context.Background(), task))
	assert.Equal(t, ids, proposals.calls)
}

func TestHandleRegenerateEventTaskRetriesOnlyRateLimits(t *testing.T) {
	eventID := uuid.New()
	payload, err := json.Marshal(map[string]string{"event_id": eventID.String()})
	require.NoError(t, err)
	task := asynq.NewTask("proposal:regenerate_event", payload)

	t.Run("rate limited returns error for asynq retry", func(t *testing.T) {
		scheduler, proposals, _ := newSchedulerFixture(nil)
		proposals.failing[eventID] = errors.NewAppError(errors.ErrAIRateLimited, "slow down", nil)

		assert.Error(t, scheduler.HandleRegenerateEventTask(context.Background(), task))
	})

	t.Run("other failures are final", func(t *testing.T) {
		scheduler, proposals, _ := newSchedulerFixture(nil)
		proposals.failing[eventID] = errors.NewAppError(errors.ErrAIInvalidResponse, "garbage reply", nil)

		assert.NoError(t, scheduler.HandleRegenerateEventTask(context.Background(), task))
	})

	t.Run("success", func(t *testing.T) {
		scheduler, proposals, _ := newSchedulerFixture(nil)

		assert.NoError(t, scheduler.HandleRegenerateEventTask(context.Background(), task))
		assert.Equal(t, []uuid.UUID{eventID}, proposals.calls)
	})
}
