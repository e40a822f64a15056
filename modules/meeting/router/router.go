package router

import (
	"meetsync-api/core/middleware"
	"meetsync-api/modules/meeting/controller"

	"github.com/labstack/echo/v4"
)

// MeetingRouter handles event routes
type MeetingRouter struct {
	MeetingController *controller.MeetingController
}

func NewMeetingRouter(meetingController *controller.MeetingController) *MeetingRouter {
	return &MeetingRouter{
		MeetingController: meetingController,
	}
}

// Setup registers event routes
func (r *MeetingRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	eventRoutes := privateRoutes.Group("/events", mw.AuthMiddleware())

	// CRUD
	eventRoutes.POST("", r.MeetingController.CreateEvent)
	eventRoutes.GET("", r.MeetingController.GetMyEvents)
	eventRoutes.GET("/:id", r.MeetingController.GetEvent)
	eventRoutes.PUT("/:id", r.MeetingController.UpdateEvent)
	eventRoutes.DELETE("/:id", r.MeetingController.CancelEvent)

	// Participants
	eventRoutes.POST("/:id/participants", r.MeetingController.AddParticipant)
	eventRoutes.DELETE("/:id/participants/:userId", r.MeetingController.RemoveParticipant)
}
