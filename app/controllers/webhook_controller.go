package controllers

import (
	"context"
	"strings"
	"time"

	"github.com/CroftlyHQ/Croftly/internal/pkg/billing"
	"github.com/CroftlyHQ/Croftly/internal/pkg/cache"
	"github.com/CroftlyHQ/Croftly/internal/pkg/database"
	"github.com/CroftlyHQ/Croftly/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2"
)

const webhookTimeout = 15 * time.Second

// HandleBillingWebhook receives payment-provider callbacks. The route is
// public; authenticity comes from the HMAC over the raw body, so the exact
// wire bytes are captured before anything decodes them.
func HandleBillingWebhook(c *fiber.Ctx) error {
	cfg, err := billing.ConfigFromEnv()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_not_configured"})
	}

	rawBody := append([]byte(nil), c.BodyRaw()...)
	signature := strings.TrimSpace(c.Get(cfg.SignatureHeader))

	svc := billing.NewServiceFromDB(database.GetDB(), cfg, entitlements.NewRedisCache(cache.GetClient()))
	ctx, cancel := context.WithTimeout(context.Background(), webhookTimeout)
	defer cancel()

	res, err := svc.ProcessWebhook(ctx, rawBody, signature)
	if err != nil {
		// Transient storage trouble: a retriable status keeps the event
		// alive on the provider side.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "webhook_processing_failed"})
	}

	switch res.Outcome {
	case billing.OutcomeRejected:
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid_signature"})
	case billing.OutcomeDuplicate:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "duplicate": true})
	case billing.OutcomeIgnored:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true, "ignored": true})
	default:
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"ok": true})
	}
}
