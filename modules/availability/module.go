package availability

import (
	"meetsync-api/core/database"
	"meetsync-api/core/middleware"
	"meetsync-api/modules/availability/controller"
	"meetsync-api/modules/availability/repository"
	"meetsync-api/modules/availability/router"
	"meetsync-api/modules/availability/service"
	meetingRepository "meetsync-api/modules/meeting/repository"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.Database, invalidator service.ProposalInvalidator, mw *middleware.Middleware) {
	repo := repository.NewAvailabilityRepository(db)
	meetingRepo := meetingRepository.NewMeetingRepository(db)
	svc := service.NewAvailabilityService(repo, meetingRepo, invalidator)
	ctrl := controller.NewAvailabilityController(svc)

	router.NewAvailabilityRouter(ctrl).Setup(e, mw)
}
