package meeting

import (
	"meetsync-api/core/database"
	"meetsync-api/core/middleware"
	"meetsync-api/modules/meeting/controller"
	"meetsync-api/modules/meeting/repository"
	"meetsync-api/modules/meeting/router"
	"meetsync-api/modules/meeting/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Echo, db database.Database, staleness service.ProposalStaleness, mw *middleware.Middleware) {
	repo := repository.NewMeetingRepository(db)
	svc := service.NewMeetingService(repo, staleness)
	ctrl := controller.NewMeetingController(svc)

	router.NewMeetingRouter(ctrl).Setup(e, mw)
}
