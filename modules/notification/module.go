package notification

import (
	"healthtrack-api/core/database"
	"healthtrack-api/core/middleware"
	"healthtrack-api/modules/notification/controller"
	"healthtrack-api/modules/notification/repository"
	"healthtrack-api/modules/notification/router"
	"healthtrack-api/modules/notification/service"

	"github.com/labstack/echo/v4"
)

func Init(e *echo.Group, db database.Database, mw *middleware.Middleware) *service.NotificationService {
	repo := repository.NewNotificationRepository(db)
	svc := service.NewNotificationService(repo)
	ctrl := controller.NewNotificationController(svc)

	router.NewNotificationRouter(ctrl).Register(e, mw)

	return svc
}
