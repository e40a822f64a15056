package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"

	"meetsync-api/core/constants"
	"meetsync-api/core/errors"
	"meetsync-api/core/logger"
	"meetsync-api/core/storage"
	"meetsync-api/modules/proposal/entity"

	"github.com/google/uuid"
)

// RetryPolicy controls transient-failure retries on provider calls. It is a
// plain value injected at construction so tests can shrink attempts and
// stub the sleep.
type RetryPolicy struct {
	MaxAttempts int
	Backoff     func(attempt int) time.Duration
	Sleep       func(ctx context.Context, d time.Duration) error
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: constants.AIMaxRetries,
		Backoff: func(attempt int) time.Duration {
			return time.Duration(math.Pow(2, float64(attempt))) * time.Second
		},
		Sleep: sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// AIClient talks to an OpenAI-compatible chat completions endpoint and
// turns the ranker's reply into validated proposals.
type AIClient struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Retry      RetryPolicy
	Archive    storage.ArchiveWriter
}

func NewAIClient(baseURL, apiKey, model string, retry RetryPolicy, archive storage.ArchiveWriter) *AIClient {
	if archive == nil {
		archive = storage.NopArchive{}
	}
	return &AIClient{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		APIKey:     apiKey,
		Model:      model,
		HTTPClient: &http.Client{Timeout: constants.AICallTimeout},
		Retry:      retry,
		Archive:    archive,
	}
}

type AIClientInterface interface {
	Propose(ctx context.Context, eventID uuid.UUID, prompt string) ([]entity.RawProposal, *errors.AppError)
}

type chatCompletionRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Propose sends the prompt to the ranker and decodes its JSON-array reply.
// Rate-limit and provider failures retry with backoff; a malformed body is
// a contract violation and never retried.
func (c *AIClient) Propose(ctx context.Context, eventID uuid.UUID, prompt string) ([]entity.RawProposal, *errors.AppError) {
	var lastErr *errors.AppError

	for attempt := 0; attempt < c.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			delay := c.Retry.Backoff(attempt)
			logger.Warn("AIClient:Propose:Retrying", "attempt", attempt, "delay", delay.String())
			if err := c.Retry.Sleep(ctx, delay); err != nil {
				return nil, errors.NewAppError(errors.ErrAIProvider, "AI call cancelled", err)
			}
		}

		raw, appErr, retryable := c.call(ctx, eventID, prompt, attempt)
		if appErr == nil {
			return raw, nil
		}
		lastErr = appErr
		if !retryable {
			return nil, appErr
		}
	}

	return nil, lastErr
}

func (c *AIClient) call(ctx context.Context, eventID uuid.UUID, prompt string, attempt int) ([]entity.RawProposal, *errors.AppError, bool) {
	reqBody := chatCompletionRequest{
		Model: c.Model,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to encode AI request", err), false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, errors.NewAppError(errors.ErrInternalServer, "failed to build AI request", err), false
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		logger.Error("AIClient:call:RequestFailed", "attempt", attempt, "error", err)
		return nil, errors.NewAppError(errors.ErrAIProvider, "AI provider unreachable", err), true
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NewAppError(errors.ErrAIProvider, "failed to read AI response", err), true
	}

	c.archiveExchange(ctx, eventID, attempt, payload, resp.StatusCode, body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		logger.Warn("AIClient:call:RateLimited", "attempt", attempt)
		return nil, errors.NewAppError(errors.ErrAIRateLimited, "AI provider rate limit exceeded", nil), true
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		logger.Error("AIClient:call:AuthFailed", "status", resp.StatusCode)
		return nil, errors.NewAppError(errors.ErrAIProvider, "AI provider rejected credentials", nil), true
	case resp.StatusCode >= 500:
		logger.Error("AIClient:call:ServerError", "status", resp.StatusCode)
		return nil, errors.NewAppError(errors.ErrAIProvider, fmt.Sprintf("AI provider returned status %d", resp.StatusCode), nil), true
	case resp.StatusCode != http.StatusOK:
		logger.Error("AIClient:call:UnexpectedStatus", "status", resp.StatusCode, "body", string(body))
		return nil, errors.NewAppError(errors.ErrAIProvider, fmt.Sprintf("AI provider returned status %d", resp.StatusCode), nil), true
	}

	var completion chatCompletionResponse
	if err := json.Unmarshal(body, &completion); err != nil {
		return nil, errors.NewAppError(errors.ErrAIInvalidResponse, "AI response is not valid JSON", err), false
	}
	if completion.Error != nil {
		// quota errors can arrive with a 200 envelope on some gateways
		if strings.Contains(strings.ToLower(completion.Error.Type), "rate") ||
			strings.Contains(strings.ToLower(completion.Error.Message), "quota") {
			return nil, errors.NewAppError(errors.ErrAIRateLimited, completion.Error.Message, nil), true
		}
		return nil, errors.NewAppError(errors.ErrAIProvider, completion.Error.Message, nil), true
	}
	if len(completion.Choices) == 0 {
		return nil, errors.NewAppError(errors.ErrAIInvalidResponse, "AI response has no choices", nil), false
	}

	content := cleanJSONResponse(completion.Choices[0].Message.Content)

	var proposals []entity.RawProposal
	if err := json.Unmarshal([]byte(content), &proposals); err != nil {
		logger.Error("AIClient:call:DecodeFailed", "error", err, "content", truncateForLog(content))
		return nil, errors.NewAppError(errors.ErrAIInvalidResponse, "AI response is not a JSON array of proposals", err), false
	}

	return proposals, nil, false
}

// archiveExchange stores the raw request/response pair for later audit.
// Failures only warn, the pipeline never blocks on the archive.
func (c *AIClient) archiveExchange(ctx context.Context, eventID uuid.UUID, attempt int, request []byte, status int, response []byte) {
	record := map[string]any{
		"event_id":   eventID.String(),
		"attempt":    attempt,
		"status":     status,
		"request":    json.RawMessage(request),
		"response":   string(response),
		"fetched_at": time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(record)
	if err != nil {
		return
	}

	key := fmt.Sprintf("ai-exchanges/%s/%d-%d.json", eventID, time.Now().UTC().UnixNano(), attempt)
	if err := c.Archive.Put(ctx, key, "application/json", body); err != nil {
		logger.Warn("AIClient:archiveExchange:Failed", "key", key, "error", err)
	}
}

// cleanJSONResponse strips markdown code fences some models wrap around
// JSON payloads.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```json") {
		content = strings.TrimPrefix(content, "```json")
	} else if strings.HasPrefix(content, "```") {
		content = strings.TrimPrefix(content, "```")
	}
	content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	return strings.TrimSpace(content)
}

func truncateForLog(s string) string {
	if len(s) > 300 {
		return s[:300] + "..."
	}
	return s
}
