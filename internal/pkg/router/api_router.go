package router

import (
	"github.com/CroftlyHQ/Croftly/app/controllers"
	"github.com/CroftlyHQ/Croftly/internal/pkg/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type ApiRouter struct {
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group("/api", limiter.New())

	// Internal service-to-service routes (billing display layer).
	internal := api.Group("/internal", middleware.InternalAPIKeyMiddleware())
	internal.Get("/tenants/:tenantID/subscription", controllers.HandleGetTenantSubscription)
}
