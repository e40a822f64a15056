package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"meetsync-api/core/cache"
	"meetsync-api/core/constants"
	"meetsync-api/core/errors"
	"meetsync-api/core/logger"
	availRepo "meetsync-api/modules/availability/repository"
	availService "meetsync-api/modules/availability/service"
	meetingRepo "meetsync-api/modules/meeting/repository"
	"meetsync-api/modules/proposal/dto"
	"meetsync-api/modules/proposal/entity"
	"meetsync-api/modules/proposal/repository"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
)

// NotificationRecorder persists engine outcome notifications. Implemented
// by the notification module; delivery is out of scope here.
type NotificationRecorder interface {
	RecordEventNotification(ctx context.Context, eventID uuid.UUID, kind string, message string)
}

// TaskEnqueuer hides the asynq client so tests can capture enqueued tasks.
type TaskEnqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ProposalService owns the proposal cache lifecycle: freshness checks,
// reads with past-time filtering, the full regeneration pipeline, and the
// stale flag every mutation path pokes.
type ProposalService struct {
	Repo        repository.ProposalRepositoryInterface
	MeetingRepo meetingRepo.MeetingRepositoryInterface
	AvailRepo   availRepo.AvailabilityRepositoryInterface
	Merger      *availService.IntervalMerger
	Search      *availService.WindowSearch
	Prompts     *PromptBuilder
	AI          AIClientInterface
	Cache       cache.Cache
	Tasks       TaskEnqueuer
	Notifier    NotificationRecorder

	// injectable clock for freshness tests
	Now func() time.Time
}

func NewProposalService(
	repo repository.ProposalRepositoryInterface,
	meetingRepository meetingRepo.MeetingRepositoryInterface,
	availRepository availRepo.AvailabilityRepositoryInterface,
	ai AIClientInterface,
	redisCache cache.Cache,
	tasks TaskEnqueuer,
	notifier NotificationRecorder,
) *ProposalService {
	return &ProposalService{
		Repo:        repo,
		MeetingRepo: meetingRepository,
		AvailRepo:   availRepository,
		Merger:      availService.NewIntervalMerger(),
		Search:      availService.NewWindowSearch(),
		Prompts:     NewPromptBuilder(),
		AI:          ai,
		Cache:       redisCache,
		Tasks:       tasks,
		Notifier:    notifier,
		Now:         time.Now,
	}
}

type ProposalServiceInterface interface {
	ShouldRegenerate(ctx context.Context, eventID uuid.UUID) (entity.CacheState, *errors.AppError)
	GetProposals(ctx context.Context, eventID uuid.UUID, numSuggestions int, forceRefresh bool) (*dto.ProposalsResponse, *errors.AppError)
	RegenerateNow(ctx context.Context, eventID uuid.UUID, numSuggestions int) (*dto.ProposalsResponse, *errors.AppError)
	MarkStale(ctx context.Context, eventID uuid.UUID) *errors.AppError
	RequestRegeneration(ctx context.Context, eventID uuid.UUID) *errors.AppError
}

// ShouldRegenerate computes the cache state without side effects.
// needsRegeneration = stale flag OR no stored proposals OR all of them in
// the past.
func (s *ProposalService) ShouldRegenerate(ctx context.Context, eventID uuid.UUID) (entity.CacheState, *errors.AppError) {
	stale, generatedAt, err := s.Repo.GetCacheMeta(ctx, eventID)
	if err != nil {
		if err == sql.ErrNoRows {
			return entity.CacheState{}, errors.NewAppError(errors.ErrNotFound, "event not found", nil)
		}
		return entity.CacheState{}, errors.NewAppError(errors.ErrInternalServer, "failed to load cache state", err)
	}

	proposals, err := s.Repo.GetProposalsByEventID(ctx, eventID)
	if err != nil {
		return entity.CacheState{}, errors.NewAppError(errors.ErrInternalServer, "failed to load proposals", err)
	}

	now := s.Now().UTC()
	has := len(proposals) > 0
	allExpired := has
	for _, p := range proposals {
		if p.StartUTC.After(now) {
			allExpired = false
			break
		}
	}

	return entity.CacheState{
		HasProposals:      has,
		NeedsRegeneration: stale || !has || allExpired,
		AllExpired:        allExpired,
		LastGeneratedAt:   generatedAt,
	}, nil
}

// GetProposals serves the cached list when it is fresh, regenerates when it
// is stale or missing, and reports the all-expired state without silently
// regenerating so callers can tell the user the dates have passed.
func (s *ProposalService) GetProposals(ctx context.Context, eventID uuid.UUID, numSuggestions int, forceRefresh bool) (*dto.ProposalsResponse, *errors.AppError) {
	if numSuggestions <= 0 {
		numSuggestions = constants.DefaultNumSuggestions
	}

	state, appErr := s.ShouldRegenerate(ctx, eventID)
	if appErr != nil {
		return nil, appErr
	}

	if forceRefresh || (state.NeedsRegeneration && !state.AllExpired) {
		return s.RegenerateNow(ctx, eventID, numSuggestions)
	}

	if state.AllExpired {
		s.notifyExpiredOnce(ctx, eventID)
	}

	return s.cachedResponse(ctx, eventID, state)
}

// notifyExpiredOnce records the all-expired notification the first time a
// read observes the state, deduped through redis so repeated polls do not
// pile up rows.
func (s *ProposalService) notifyExpiredOnce(ctx context.Context, eventID uuid.UUID) {
	if s.Notifier == nil {
		return
	}

	key := constants.RedisKeyExpiredNotified + eventID.String()
	seen, err := s.Cache.Get(ctx, key)
	if err != nil {
		logger.Warn("ProposalService:notifyExpiredOnce:Get", "event_id", eventID, "error", err)
		return
	}
	if seen != "" {
		return
	}
	if err := s.Cache.Set(ctx, key, "1", constants.ExpiredNotifyTTL); err != nil {
		logger.Warn("ProposalService:notifyExpiredOnce:Set", "event_id", eventID, "error", err)
	}

	s.Notifier.RecordEventNotification(ctx, eventID, "proposals_expired", "all proposed meeting times have passed")
}

func (s *ProposalService) cachedResponse(ctx context.Context, eventID uuid.UUID, state entity.CacheState) (*dto.ProposalsResponse, *errors.AppError) {
	proposals, err := s.Repo.GetProposalsByEventID(ctx, eventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load proposals", err)
	}

	// past times drop out of the view but stay stored until the next
	// full regeneration
	now := s.Now().UTC()
	upcoming := make([]entity.ProposedTime, 0, len(proposals))
	for _, p := range proposals {
		if p.StartUTC.After(now) {
			upcoming = append(upcoming, p)
		}
	}

	return &dto.ProposalsResponse{
		EventID:     eventID,
		Proposals:   dto.ToProposedTimeResponses(upcoming),
		Cached:      true,
		GeneratedAt: state.LastGeneratedAt,
		NeedsUpdate: state.NeedsRegeneration,
		AllExpired:  state.AllExpired,
	}, nil
}

// RegenerateNow runs the full pipeline under an event-scoped redis lease.
// A second caller racing the lease gets the cached state back instead of a
// duplicate provider call.
func (s *ProposalService) RegenerateNow(ctx context.Context, eventID uuid.UUID, numSuggestions int) (*dto.ProposalsResponse, *errors.AppError) {
	if numSuggestions <= 0 {
		numSuggestions = constants.DefaultNumSuggestions
	}

	acquired, err := s.Cache.AcquireRegenerateLock(ctx, eventID.String())
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to acquire regeneration lock", err)
	}
	if !acquired {
		logger.Info("ProposalService:RegenerateNow:LockHeld", "event_id", eventID)
		state, appErr := s.ShouldRegenerate(ctx, eventID)
		if appErr != nil {
			return nil, appErr
		}
		return s.cachedResponse(ctx, eventID, state)
	}
	defer func() {
		if err := s.Cache.ReleaseRegenerateLock(ctx, eventID.String()); err != nil {
			logger.Warn("ProposalService:RegenerateNow:ReleaseLock", "event_id", eventID, "error", err)
		}
	}()

	proposals, appErr := s.generate(ctx, eventID, numSuggestions)
	if appErr != nil {
		if s.Notifier != nil {
			s.Notifier.RecordEventNotification(ctx, eventID, "generation_failed", appErr.Message)
		}
		return nil, appErr
	}

	generatedAt := s.Now().UTC()
	if err := s.Repo.ReplaceProposals(ctx, eventID, proposals, generatedAt); err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to store proposals", err)
	}

	logger.Info("ProposalService:RegenerateNow:Generated", "event_id", eventID, "count", len(proposals))
	if s.Notifier != nil {
		s.Notifier.RecordEventNotification(ctx, eventID, "proposals_ready", "new meeting time proposals are available")
	}

	stored, err := s.Repo.GetProposalsByEventID(ctx, eventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load proposals", err)
	}

	return &dto.ProposalsResponse{
		EventID:     eventID,
		Proposals:   dto.ToProposedTimeResponses(stored),
		Cached:      false,
		GeneratedAt: &generatedAt,
		NeedsUpdate: false,
		AllExpired:  false,
	}, nil
}

// generate aggregates current availability, asks the ranker, and validates
// the reply. It never writes; the caller owns persistence.
func (s *ProposalService) generate(ctx context.Context, eventID uuid.UUID, numSuggestions int) ([]entity.ProposedTime, *errors.AppError) {
	event, err := s.MeetingRepo.GetEventByID(ctx, eventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load event", err)
	}
	if event == nil {
		return nil, errors.NewAppError(errors.ErrNotFound, "event not found", nil)
	}
	if event.Status.Terminal() {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "event is no longer open for scheduling", nil)
	}

	participants, err := s.MeetingRepo.GetParticipantsByEventID(ctx, eventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load participants", err)
	}
	if len(participants) == 0 {
		return nil, errors.NewAppError(errors.ErrNoParticipants, "event has no participants", nil)
	}

	userIDs := make([]uuid.UUID, 0, len(participants))
	for _, p := range participants {
		userIDs = append(userIDs, p.UserID)
	}

	busySlots, err := s.AvailRepo.ListBusySlots(ctx, userIDs)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load busy slots", err)
	}
	preferred, err := s.AvailRepo.ListPreferredSlots(ctx, eventID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to load preferred slots", err)
	}

	segments := s.Merger.Merge(busySlots)
	windows := s.Search.Search(event.Constraints(), segments)

	prompt := s.Prompts.Build(AggregatedData{
		Event:        event,
		Participants: participants,
		BusySegments: segments,
		Preferred:    preferred,
		FreeWindows:  windows,
	}, numSuggestions)

	raw, appErr := s.AI.Propose(ctx, eventID, prompt)
	if appErr != nil {
		return nil, appErr
	}

	validated := ValidateProposals(raw, ValidationContext{
		EventID:          eventID,
		Now:              s.Now().UTC(),
		DurationMinutes:  event.DurationMinutes,
		ParticipantCount: len(participants),
		BusySlots:        busySlots,
		Preferred:        preferred,
	})
	if len(validated) == 0 {
		if len(windows) == 0 {
			return nil, errors.NewAppError(errors.ErrNoAvailability, "no free windows within the event constraints", nil)
		}
		return nil, errors.NewAppError(errors.ErrAIInvalidResponse, "AI returned no usable proposals", nil)
	}
	if len(validated) > numSuggestions {
		validated = validated[:numSuggestions]
	}

	return validated, nil
}

// MarkStale flips the flag only. Stored rows stay readable until the next
// regeneration.
func (s *ProposalService) MarkStale(ctx context.Context, eventID uuid.UUID) *errors.AppError {
	if err := s.Repo.MarkStale(ctx, eventID); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to mark proposals stale", err)
	}
	logger.Debug("ProposalService:MarkStale", "event_id", eventID)
	return nil
}

type regenerateEventPayload struct {
	EventID uuid.UUID `json:"event_id"`
}

// RequestRegeneration enqueues an async single-event regeneration.
func (s *ProposalService) RequestRegeneration(ctx context.Context, eventID uuid.UUID) *errors.AppError {
	payload, err := json.Marshal(regenerateEventPayload{EventID: eventID})
	if err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to encode regeneration task", err)
	}

	task := asynq.NewTask(constants.TaskRegenerateEvent, payload)
	if _, err := s.Tasks.EnqueueContext(ctx, task, asynq.MaxRetry(1)); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "failed to enqueue regeneration", err)
	}

	logger.Info("ProposalService:RequestRegeneration:Enqueued", "event_id", eventID)
	return nil
}

var _ ProposalServiceInterface = (*ProposalService)(nil)
