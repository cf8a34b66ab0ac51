package middleware_test

import (
	"net/http/httptest"
	"testing"

	"feed-processor/core/middleware/auth"
	"feed-processor/core/middleware/rayid"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupApp(apiKey string) *fiber.App {
	app := fiber.New()
	app.Use(rayid.New())
	app.Use(auth.New(auth.Config{ApiKey: apiKey, Public: []string{"/health"}}))
	app.Get("/health", func(c *fiber.Ctx) error { return c.SendString("ok") })
	app.Get("/private", func(c *fiber.Ctx) error {
		return c.SendString(c.Locals("ray_id").(string))
	})
	return app
}

func TestAuth(t *testing.T) {
	app := setupApp("secret")

	tests := []struct {
		name   string
		path   string
		key    string
		status int
	}{
		{"Public path", "/health", "", fiber.StatusOK},
		{"Missing key", "/private", "", fiber.StatusUnauthorized},
		{"Wrong key", "/private", "nope", fiber.StatusUnauthorized},
		{"Valid key", "/private", "secret", fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", tt.path, nil)
			if tt.key != "" {
				req.Header.Set(auth.Header, tt.key)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}

	t.Run("Disabled", func(t *testing.T) {
		resp, err := setupApp("").Test(httptest.NewRequest("GET", "/private", nil))
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}

func TestRayID(t *testing.T) {
	app := setupApp("")

	resp, err := app.Test(httptest.NewRequest("GET", "/private", nil))
	require.NoError(t, err)
	assert.Len(t, resp.Header.Get(rayid.Header), 36)

	req := httptest.NewRequest("GET", "/private", nil)
	req.Header.Set(rayid.Header, "upstream-id")
	resp, err = app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, "upstream-id", resp.Header.Get(rayid.Header))
}
