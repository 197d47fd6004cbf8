package router

import (
	"healthtrack-api/core/middleware"
	"healthtrack-api/modules/integration/controller"

	"github.com/labstack/echo/v4"
)

type IntegrationRouter struct {
	controller *controller.IntegrationController
}

func NewIntegrationRouter(controller *controller.IntegrationController) *IntegrationRouter {
	return &IntegrationRouter{controller: controller}
}

func (r *IntegrationRouter) Register(e *echo.Group, mw *middleware.Middleware) {
	group := e.Group("/integrations", mw.AuthMiddleware())
	group.POST("/connect", r.controller.Connect)
	group.POST("/callback", r.controller.Callback)
	group.GET("", r.controller.GetIntegrations)
	group.POST("/:id/sync", r.controller.Sync)
	group.POST("/sync-all", r.controller.SyncAll)
	group.DELETE("/:id", r.controller.Disconnect)
}
