package notification

import (
	"meetsync-api/core/database"
	"meetsync-api/core/middleware"
	meetingRepository "meetsync-api/modules/meeting/repository"
	"meetsync-api/modules/notification/controller"
	"meetsync-api/modules/notification/repository"
	"meetsync-api/modules/notification/router"
	"meetsync-api/modules/notification/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Group, db database.Database, mw *middleware.Middleware) *service.NotificationService {
	repo := repository.NewNotificationRepository(db)
	meetingRepo := meetingRepository.NewMeetingRepository(db)
	svc := service.NewNotificationService(repo, meetingRepo)
	ctrl := controller.NewNotificationController(svc)

	router.NewNotificationRouter(ctrl).Register(e, mw)

	return svc
}
