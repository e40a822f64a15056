package middleware

import (
	"strings"

	"meetsync-api/core/config"
	"meetsync-api/core/constants"
	"meetsync-api/core/controller"
	"meetsync-api/core/errors"
	"meetsync-api/core/logger"
	"meetsync-api/core/utils"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type Middleware struct{}

func NewMiddleware() *Middleware {
	return &Middleware{}
}

// AuthMiddleware validates the bearer token and stores claims in context.
func (m *Middleware) AuthMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			if header == "" {
				return controller.NewErrorResponse(401, errors.ErrMissingAuthorizationHeader, "Missing Authorization header")
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				return controller.NewErrorResponse(401, errors.ErrInvalidTokenFormat, "Expected Bearer token")
			}

			claims, err := utils.ValidateAndParseToken(token)
			if err != nil {
				logger.Warn("Middleware:Auth:InvalidToken", "error", err)
				if ae, ok := err.(*errors.AppError); ok {
					return controller.NewErrorResponse(401, ae.Code, ae.Message)
				}
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "Invalid token")
			}

			c.Set(constants.ContextTokenData, claims)
			return next(c)
		}
	}
}

// InternalKeyMiddleware guards operational endpoints (batch trigger) with a
// pre-shared API key checked against the configured bcrypt hash.
func (m *Middleware) InternalKeyMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			cfg, ok := config.GetSafe()
			if !ok || cfg.Server.InternalAPIKeyHash == "" {
				return controller.NewErrorResponse(403, errors.ErrForbidden, "Internal endpoints disabled")
			}

			key := c.Request().Header.Get("X-Internal-Key")
			if key == "" {
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "Missing internal key")
			}

			if err := bcrypt.CompareHashAndPassword([]byte(cfg.Server.InternalAPIKeyHash), []byte(key)); err != nil {
				logger.Warn("Middleware:InternalKey:Mismatch", "remote", c.RealIP())
				return controller.NewErrorResponse(401, errors.ErrUnauthorized, "Invalid internal key")
			}

			return next(c)
		}
	}
}
