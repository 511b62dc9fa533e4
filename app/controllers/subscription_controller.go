package controllers

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/CroftlyHQ/Croftly/internal/pkg/billing"
	"github.com/CroftlyHQ/Croftly/internal/pkg/database"
	"github.com/CroftlyHQ/Croftly/internal/pkg/entitlements"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// HandleGetTenantSubscription serves the billing-display layer's read of a
// tenant's subscription state. The route sits behind the internal API key
// middleware; this subsystem never exposes subscription data publicly.
func HandleGetTenantSubscription(c *fiber.Ctx) error {
	tenantID := strings.TrimSpace(c.Params("tenantID"))
	if tenantID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "tenant id missing"})
	}

	repo := billing.NewSubscriptionRepository(database.GetDB())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := repo.GetByTenantID(ctx, tenantID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found"})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "subscription_lookup_failed"})
	}

	plan := entitlements.NormalizePlan(sub.PlanTier)
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"tenant_id":          sub.TenantID,
		"plan_tier":          string(plan),
		"state":              sub.State,
		"current_period_end": formatTimePtr(sub.CurrentPeriodEnd),
		"entitled":           entitlements.Entitled(sub.State, sub.CurrentPeriodEnd, time.Now()),
		"features":           entitlements.AllowedFeatures(plan),
		"updated_at":         sub.UpdatedAt.UTC().Format(time.RFC3339),
	})
}

func formatTimePtr(t *time.Time) interface{} {
	if t == nil {
		return nil
	}
	return t.UTC().Format(time.RFC3339)
}
