package middleware

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupProtectedApp() *fiber.App {
	app := fiber.New()
	app.Get("/internal/ping", InternalAPIKeyMiddleware(), func(c *fiber.Ctx) error {
		return c.SendString("pong")
	})
	return app
}

func TestInternalAPIKeyMiddleware(t *testing.T) {
	t.Setenv("INTERNAL_API_KEY", "int_test-key")
	app := setupProtectedApp()

	req := httptest.NewRequest(fiber.MethodGet, "/internal/ping", nil)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/internal/ping", nil)
	req.Header.Set("X-API-Key", "wrong-key")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	req = httptest.NewRequest(fiber.MethodGet, "/internal/ping", nil)
	req.Header.Set("X-API-Key", "int_test-key")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// The key also works as a bearer token.
	req = httptest.NewRequest(fiber.MethodGet, "/internal/ping", nil)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer int_test-key")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestInternalAPIKeyMiddlewareDisabledWithoutKey(t *testing.T) {
	t.Setenv("INTERNAL_API_KEY", "")
	app := setupProtectedApp()

	req := httptest.NewRequest(fiber.MethodGet, "/internal/ping", nil)
	req.Header.Set("X-API-Key", "anything")
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}
