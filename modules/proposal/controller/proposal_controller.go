package controller

import (
	"strconv"

	"meetsync-api/core/constants"
	"meetsync-api/core/controller"
	"meetsync-api/core/errors"
	"meetsync-api/core/utils"
	"meetsync-api/modules/proposal/dto"
	"meetsync-api/modules/proposal/service"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// ProposalController handles proposal HTTP requests
type ProposalController struct {
	controller.BaseController
	ProposalService service.ProposalServiceInterface
	Scheduler       *service.RegenerationScheduler
}

func NewProposalController(svc service.ProposalServiceInterface, scheduler *service.RegenerationScheduler) *ProposalController {
	return &ProposalController{
		BaseController:  controller.NewBaseController(),
		ProposalService: svc,
		Scheduler:       scheduler,
	}
}

// getUserIDFromContext extracts user ID from JWT context
func (c *ProposalController) getUserIDFromContext(ctx echo.Context) (uuid.UUID, error) {
	tokenData := ctx.Get(constants.ContextTokenData)
	if tokenData == nil {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "User not authenticated", nil)
	}

	claims, ok := tokenData.(*utils.TokenClaims)
	if !ok {
		return uuid.Nil, errors.NewAppError(errors.ErrUnauthorized, "Invalid token data", nil)
	}

	return claims.UserID, nil
}

// GetProposals handles GET /events/:id/proposals?num=&force=
// Serves the cached ranked list, regenerating first when it is stale.
func (c *ProposalController) GetProposals(ctx echo.Context) error {
	if _, err := c.getUserIDFromContext(ctx); err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	num := constants.DefaultNumSuggestions
	if raw := ctx.QueryParam("num"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.BadRequest(errors.ErrInvalidInput, "num must be a positive integer")
		}
		num = parsed
	}
	force := ctx.QueryParam("force") == "true"

	result, appErr := c.ProposalService.GetProposals(ctx.Request().Context(), eventID, num, force)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Proposals retrieved")
}

// GetCacheState handles GET /events/:id/proposals/state
func (c *ProposalController) GetCacheState(ctx echo.Context) error {
	if _, err := c.getUserIDFromContext(ctx); err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	state, appErr := c.ProposalService.ShouldRegenerate(ctx.Request().Context(), eventID)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, dto.ToCacheStateResponse(state), "Cache state retrieved")
}

// Refresh handles POST /events/:id/proposals/refresh
// Runs a synchronous regeneration regardless of the cache state.
func (c *ProposalController) Refresh(ctx echo.Context) error {
	if _, err := c.getUserIDFromContext(ctx); err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	num := constants.DefaultNumSuggestions
	if raw := ctx.QueryParam("num"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.BadRequest(errors.ErrInvalidInput, "num must be a positive integer")
		}
		num = parsed
	}

	result, appErr := c.ProposalService.RegenerateNow(ctx.Request().Context(), eventID, num)
	if appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, result, "Proposals regenerated")
}

// MarkStale handles POST /events/:id/proposals/stale
func (c *ProposalController) MarkStale(ctx echo.Context) error {
	if _, err := c.getUserIDFromContext(ctx); err != nil {
		return c.Unauthorized(errors.ErrUnauthorized, "User not authenticated")
	}

	eventID, err := uuid.Parse(ctx.Param("id"))
	if err != nil {
		return c.BadRequest(errors.ErrInvalidInput, "Invalid event id")
	}

	if appErr := c.ProposalService.MarkStale(ctx.Request().Context(), eventID); appErr != nil {
		return c.ErrorResponse(ctx, appErr)
	}

	return c.SuccessResponse(ctx, nil, "Proposals marked stale")
}

// RunBatch handles POST /internal/proposals/regenerate-batch
// Internal-key protected immediate batch run for operators.
func (c *ProposalController) RunBatch(ctx echo.Context) error {
	maxEvents := constants.BatchMaxEvents
	if raw := ctx.QueryParam("max"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			return c.BadRequest(errors.ErrInvalidInput, "max must be a positive integer")
		}
		maxEvents = parsed
	}

	result := c.Scheduler.RunBatch(ctx.Request().Context(), maxEvents, constants.BatchInterCallDelay)

	return c.SuccessResponse(ctx, dto.BatchResultResponse{
		Selected:  result.Selected,
		Succeeded: result.Succeeded,
		Failed:    result.Failed,
	}, "Batch completed")
}
