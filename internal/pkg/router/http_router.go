package router

import (
	"github.com/CroftlyHQ/Croftly/app/controllers"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type HttpRouter struct {
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	app.Get("/healthz", controllers.HandleHealthz)

	// Billing provider webhooks (no CSRF, signature-verified in controller).
	// Rate limited generously; the provider retries with backoff on 429 as
	// it does on 5xx.
	app.Post("/webhooks/billing", limiter.New(limiter.Config{Max: 120}), controllers.HandleBillingWebhook)
}
