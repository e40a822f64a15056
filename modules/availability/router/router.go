package router

import (
	"meetsync-api/core/middleware"
	"meetsync-api/modules/availability/controller"

	"github.com/labstack/echo/v4"
)

// AvailabilityRouter handles availability routes
type AvailabilityRouter struct {
	AvailabilityController *controller.AvailabilityController
}

func NewAvailabilityRouter(availabilityController *controller.AvailabilityController) *AvailabilityRouter {
	return &AvailabilityRouter{
		AvailabilityController: availabilityController,
	}
}

// Setup registers availability routes
func (r *AvailabilityRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	eventRoutes := privateRoutes.Group("/events/:id", mw.AuthMiddleware())
	eventRoutes.GET("/availability", r.AvailabilityController.GetAvailability)
	eventRoutes.POST("/preferred-slots", r.AvailabilityController.DeclarePreferredSlot)
	eventRoutes.DELETE("/preferred-slots/:slotId", r.AvailabilityController.RemovePreferredSlot)
}
