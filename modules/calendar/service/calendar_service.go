package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"meetsync-api/core/config"
	"meetsync-api/core/errors"
	"meetsync-api/core/logger"
	availEntity "meetsync-api/modules/availability/entity"
	availRepo "meetsync-api/modules/availability/repository"
	"meetsync-api/modules/calendar/dto"
	"meetsync-api/modules/calendar/entity"
	"meetsync-api/modules/calendar/repository"
	meetingRepo "meetsync-api/modules/meeting/repository"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	googleFreeBusyAPI = "https://www.googleapis.com/calendar/v3/freeBusy"

	// how far ahead busy data is pulled on each sync
	syncHorizonDays = 60
)

// ProposalInvalidator flags cached proposals after a sync changes busy
// data. Implemented by the proposal module.
type ProposalInvalidator interface {
	MarkStale(ctx context.Context, eventID uuid.UUID) *errors.AppError
}

type CalendarService interface {
	ConnectGoogle(ctx context.Context, userID uuid.UUID, req *dto.ConnectGoogleRequest) (*entity.CalendarConnection, *errors.AppError)
	GetConnections(ctx context.Context, userID uuid.UUID) ([]dto.CalendarConnectionResponse, *errors.AppError)
	DisconnectCalendar(ctx context.Context, userID uuid.UUID, provider string) *errors.AppError
	SyncUser(ctx context.Context, userID uuid.UUID) (entity.SyncResult, *errors.AppError)
}

type calendarService struct {
	repo        repository.CalendarRepository
	availRepo   availRepo.AvailabilityRepositoryInterface
	meetingRepo meetingRepo.MeetingRepositoryInterface
	invalidator ProposalInvalidator
	httpClient  *http.Client
}

func NewCalendarService(
	repo repository.CalendarRepository,
	availRepository availRepo.AvailabilityRepositoryInterface,
	meetingRepository meetingRepo.MeetingRepositoryInterface,
	invalidator ProposalInvalidator,
) CalendarService {
	return &calendarService{
		repo:        repo,
		availRepo:   availRepository,
		meetingRepo: meetingRepository,
		invalidator: invalidator,
		httpClient:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ConnectGoogle saves or refreshes a Google Calendar connection.
func (s *calendarService) ConnectGoogle(ctx context.Context, userID uuid.UUID, req *dto.ConnectGoogleRequest) (*entity.CalendarConnection, *errors.AppError) {
	expiresAt, err := time.Parse(time.RFC3339, req.ExpiresAt)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInvalidInput, "expires_at must be RFC3339", err)
	}

	existing, err := s.repo.GetConnectionByUserAndProvider(ctx, userID, dto.ProviderGoogle)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to check existing connection", err)
	}

	if existing != nil {
		existing.AccessToken = req.AccessToken
		existing.RefreshToken = req.RefreshToken
		existing.TokenExpiresAt = expiresAt
		existing.CalendarEmail = req.CalendarEmail
		existing.IsActive = true
		if err := s.repo.UpdateConnection(ctx, existing); err != nil {
			return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to update connection", err)
		}
		return existing, nil
	}

	conn := &entity.CalendarConnection{
		UserID:         userID,
		Provider:       dto.ProviderGoogle,
		AccessToken:    req.AccessToken,
		RefreshToken:   req.RefreshToken,
		TokenExpiresAt: expiresAt,
		CalendarEmail:  req.CalendarEmail,
		IsActive:       true,
	}
	created, err := s.repo.CreateConnection(ctx, conn)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to save connection", err)
	}
	return created, nil
}

func (s *calendarService) GetConnections(ctx context.Context, userID uuid.UUID) ([]dto.CalendarConnectionResponse, *errors.AppError) {
	connections, err := s.repo.GetConnectionsByUserID(ctx, userID)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "Failed to get connections", err)
	}

	var result []dto.CalendarConnectionResponse
	for _, conn := range connections {
		result = append(result, dto.CalendarConnectionResponse{
			ID:            conn.ID.String(),
			Provider:      conn.Provider,
			CalendarEmail: conn.CalendarEmail,
			IsActive:      conn.IsActive,
			ConnectedAt:   conn.CreatedAt.Format(time.RFC3339),
		})
	}
	return result, nil
}

func (s *calendarService) DisconnectCalendar(ctx context.Context, userID uuid.UUID, provider string) *errors.AppError {
	if err := s.repo.DeleteConnection(ctx, userID, provider); err != nil {
		return errors.NewAppError(errors.ErrInternalServer, "Failed to disconnect", err)
	}
	return nil
}

// SyncUser pulls busy data from every connected provider, replaces the
// user's stored busy slots wholesale, and flags each of the user's pending
// events for proposal regeneration. One failing provider does not hide the
// slots another provider returned.
func (s *calendarService) SyncUser(ctx context.Context, userID uuid.UUID) (entity.SyncResult, *errors.AppError) {
	connections, err := s.repo.GetConnectionsByUserID(ctx, userID)
	if err != nil {
		return entity.SyncResult{}, errors.NewAppError(errors.ErrInternalServer, "Failed to load connections", err)
	}
	if len(connections) == 0 {
		return entity.SyncResult{}, errors.NewAppError(errors.ErrNotFound, "No calendar connected", nil)
	}

	start := time.Now().UTC()
	end := start.AddDate(0, 0, syncHorizonDays)

	result := entity.SyncResult{}
	var slots []availEntity.BusySlot
	for i := range connections {
		conn := &connections[i]
		detail := entity.SyncDetail{Provider: conn.Provider}

		fetched, fetchErr := s.fetchBusySlots(ctx, conn, start, end)
		if fetchErr != nil {
			logger.Error("CalendarService:SyncUser:FetchFailed",
				"user_id", userID, "provider", conn.Provider, "error", fetchErr)
			detail.Error = fetchErr.Error()
		} else {
			detail.SlotCount = len(fetched)
			slots = append(slots, fetched...)
			result.OK = true
		}
		result.Sources = append(result.Sources, detail)
	}

	if !result.OK {
		return result, errors.NewAppError(errors.ErrInternalServer, "All calendar sources failed", nil)
	}

	if err := s.availRepo.ReplaceBusySlotsForUser(ctx, userID, slots); err != nil {
		return result, errors.NewAppError(errors.ErrInternalServer, "Failed to store busy slots", err)
	}

	eventIDs, err := s.meetingRepo.GetActiveEventIDsByParticipant(ctx, userID)
	if err != nil {
		logger.Warn("CalendarService:SyncUser:ListEvents", "user_id", userID, "error", err)
		return result, nil
	}
	for _, eventID := range eventIDs {
		if appErr := s.invalidator.MarkStale(ctx, eventID); appErr != nil {
			logger.Warn("CalendarService:SyncUser:MarkStale", "event_id", eventID, "error", appErr.Message)
		}
	}

	logger.Info("CalendarService:SyncUser:Done",
		"user_id", userID, "slots", len(slots), "events_flagged", len(eventIDs))
	return result, nil
}

func (s *calendarService) fetchBusySlots(ctx context.Context, conn *entity.CalendarConnection, start, end time.Time) ([]availEntity.BusySlot, error) {
	switch conn.Provider {
	case dto.ProviderGoogle:
		return s.fetchGoogleBusySlots(ctx, conn, start, end)
	default:
		return nil, fmt.Errorf("unsupported provider %q", conn.Provider)
	}
}

// ensureValidToken refreshes the Google token when it expires within the
// next five minutes and persists the rotated credentials.
func (s *calendarService) ensureValidToken(ctx context.Context, conn *entity.CalendarConnection) (string, error) {
	if time.Now().Before(conn.TokenExpiresAt.Add(-5 * time.Minute)) {
		return conn.AccessToken, nil
	}

	logger.Info("CalendarService:ensureValidToken:Refreshing", "user_id", conn.UserID)

	cfg, _ := config.GetSafe()
	oauthCfg := oauth2.Config{
		ClientID:     cfg.GoogleAPI.ClientID,
		ClientSecret: cfg.GoogleAPI.ClientSecret,
		Endpoint:     google.Endpoint,
	}

	source := oauthCfg.TokenSource(ctx, &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		Expiry:       conn.TokenExpiresAt,
	})
	token, err := source.Token()
	if err != nil {
		logger.Error("CalendarService:ensureValidToken:Refresh", err)
		return "", err
	}

	conn.AccessToken = token.AccessToken
	if token.RefreshToken != "" {
		conn.RefreshToken = token.RefreshToken
	}
	conn.TokenExpiresAt = token.Expiry
	if err := s.repo.UpdateConnection(ctx, conn); err != nil {
		logger.Warn("CalendarService:ensureValidToken:Persist", "user_id", conn.UserID, "error", err)
	}

	return token.AccessToken, nil
}

func (s *calendarService) fetchGoogleBusySlots(ctx context.Context, conn *entity.CalendarConnection, start, end time.Time) ([]availEntity.BusySlot, error) {
	accessToken, err := s.ensureValidToken(ctx, conn)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"timeMin": start.Format(time.RFC3339),
		"timeMax": end.Format(time.RFC3339),
		"items": []map[string]string{
			{"id": conn.CalendarEmail},
		},
	}

	payloadJSON, _ := json.Marshal(payload)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, googleFreeBusyAPI, strings.NewReader(string(payloadJSON)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("Google FreeBusy API error: %s", string(body))
	}

	var result struct {
		Calendars map[string]struct {
			Busy []struct {
				Start string `json:"start"`
				End   string `json:"end"`
			} `json:"busy"`
		} `json:"calendars"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	var slots []availEntity.BusySlot
	if cal, ok := result.Calendars[conn.CalendarEmail]; ok {
		for _, busy := range cal.Busy {
			busyStart, err := time.Parse(time.RFC3339, busy.Start)
			if err != nil {
				logger.Warn("CalendarService:fetchGoogleBusySlots:BadStart", "value", busy.Start)
				continue
			}
			busyEnd, err := time.Parse(time.RFC3339, busy.End)
			if err != nil {
				logger.Warn("CalendarService:fetchGoogleBusySlots:BadEnd", "value", busy.End)
				continue
			}
			slot, appErr := availEntity.NewBusySlot(conn.UserID, busyStart, busyEnd)
			if appErr != nil {
				continue
			}
			slots = append(slots, *slot)
		}
	}

	return slots, nil
}
