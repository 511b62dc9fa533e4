package controllers

import "github.com/gofiber/fiber/v2"

// HandleHealthz is the liveness probe.
func HandleHealthz(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
}
