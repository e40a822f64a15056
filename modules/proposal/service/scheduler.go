package service

import (
	"context"
	"encoding/json"
	"time"

	"meetsync-api/core/constants"
	"meetsync-api/core/errors"
	"meetsync-api/core/logger"
	"meetsync-api/modules/proposal/repository"

	"github.com/hibiken/asynq"
)

// BatchResult tallies one regeneration batch run.
type BatchResult struct {
	Selected  int `json:"selected"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RegenerationScheduler drives the periodic batch that refreshes stale
// events. Strictly sequential with a fixed delay between events so the
// external ranker's rate limit applies to the whole process, not per
// worker.
type RegenerationScheduler struct {
	Proposals ProposalServiceInterface
	Repo      repository.ProposalRepositoryInterface

	// injectable sleep for tests
	Sleep func(ctx context.Context, d time.Duration) error
}

func NewRegenerationScheduler(proposals ProposalServiceInterface, repo repository.ProposalRepositoryInterface) *RegenerationScheduler {
	return &RegenerationScheduler{
		Proposals: proposals,
		Repo:      repo,
		Sleep:     sleepContext,
	}
}

// RunBatch regenerates up to maxEvents stale events. One event's failure
// is logged and tallied, never aborts the batch.
func (s *RegenerationScheduler) RunBatch(ctx context.Context, maxEvents int, interCallDelay time.Duration) BatchResult {
	if maxEvents <= 0 {
		maxEvents = constants.BatchMaxEvents
	}

	ids, err := s.Repo.ListStaleEventIDs(ctx, maxEvents)
	if err != nil {
		logger.Error("RegenerationScheduler:RunBatch:List", err)
		return BatchResult{}
	}

	result := BatchResult{Selected: len(ids)}
	logger.Info("RegenerationScheduler:RunBatch:Start", "selected", len(ids))

	for i, eventID := range ids {
		if i > 0 && interCallDelay > 0 {
			if err := s.Sleep(ctx, interCallDelay); err != nil {
				logger.Warn("RegenerationScheduler:RunBatch:Cancelled", "processed", i)
				return result
			}
		}

		if _, appErr := s.Proposals.RegenerateNow(ctx, eventID, constants.DefaultNumSuggestions); appErr != nil {
			logger.Error("RegenerationScheduler:RunBatch:EventFailed",
				"event_id", eventID, "code", string(appErr.Code), "error", appErr.Message)
			result.Failed++
			continue
		}
		result.Succeeded++
	}

	logger.Info("RegenerationScheduler:RunBatch:Done",
		"selected", result.Selected, "succeeded", result.Succeeded, "failed", result.Failed)
	return result
}

type batchPayload struct {
	MaxEvents      int           `json:"max_events"`
	InterCallDelay time.Duration `json:"inter_call_delay"`
}

// NewBatchTask builds the periodic asynq task carrying batch limits.
func NewBatchTask(maxEvents int, interCallDelay time.Duration) (*asynq.Task, error) {
	payload, err := json.Marshal(batchPayload{MaxEvents: maxEvents, InterCallDelay: interCallDelay})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(constants.TaskRegenerateBatch, payload), nil
}

// HandleBatchTask is the asynq handler for the periodic batch.
func (s *RegenerationScheduler) HandleBatchTask(ctx context.Context, task *asynq.Task) error {
	var p batchPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		logger.Error("RegenerationScheduler:HandleBatchTask:Decode", err)
		return err
	}
	s.RunBatch(ctx, p.MaxEvents, p.InterCallDelay)
	return nil
}

// HandleRegenerateEventTask handles a single-event async regeneration
// requested by a participant mutation.
func (s *RegenerationScheduler) HandleRegenerateEventTask(ctx context.Context, task *asynq.Task) error {
	var p regenerateEventPayload
	if err := json.Unmarshal(task.Payload(), &p); err != nil {
		logger.Error("RegenerationScheduler:HandleRegenerateEventTask:Decode", err)
		return err
	}

	if _, appErr := s.Proposals.RegenerateNow(ctx, p.EventID, constants.DefaultNumSuggestions); appErr != nil {
		logger.Error("RegenerationScheduler:HandleRegenerateEventTask:Failed",
			"event_id", p.EventID, "code", string(appErr.Code), "error", appErr.Message)
		// rate limits retry through asynq; everything else is final
		if appErr.Code == errors.ErrAIRateLimited {
			return appErr
		}
	}
	return nil
}
