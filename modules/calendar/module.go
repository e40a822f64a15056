package calendar

import (
	"meetsync-api/core/database"
	"meetsync-api/core/middleware"
	availRepository "meetsync-api/modules/availability/repository"
	"meetsync-api/modules/calendar/controller"
	"meetsync-api/modules/calendar/repository"
	"meetsync-api/modules/calendar/router"
	"meetsync-api/modules/calendar/service"
	meetingRepository "meetsync-api/modules/meeting/repository"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.Database, invalidator service.ProposalInvalidator, mw *middleware.Middleware) {
	repo := repository.NewCalendarRepository(db)
	availRepo := availRepository.NewAvailabilityRepository(db)
	meetingRepo := meetingRepository.NewMeetingRepository(db)
	calendarService := service.NewCalendarService(repo, availRepo, meetingRepo, invalidator)
	calendarController := controller.NewCalendarController(calendarService)

	router.NewCalendarRouter(calendarController).Setup(e, mw)
}
