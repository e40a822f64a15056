package router

import (
	"meetsync-api/core/middleware"
	"meetsync-api/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

type CalendarRouter struct {
	controller *controller.CalendarController
}

func NewCalendarRouter(controller *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{controller: controller}
}

func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	v1 := e.Group("/api/v1")
	privateRoutes := v1.Group("/private")

	calendarRoutes := privateRoutes.Group("/calendar", mw.AuthMiddleware())
	calendarRoutes.GET("/connections", r.controller.GetConnections)
	calendarRoutes.POST("/connections/google", r.controller.ConnectGoogle)
	calendarRoutes.DELETE("/connections/:provider", r.controller.DisconnectCalendar)
	calendarRoutes.POST("/sync", r.controller.SyncNow)
}
