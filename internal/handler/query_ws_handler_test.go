package handler

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rolplay-assistant-be/internal/pkg/logger"
)

func TestServeWsRequiresUpgrade(t *testing.T) {
	app := fiber.New()
	NewQueryWSHandler(nil, "", logger.NewNopLogger()).RegisterRoutes(app)

	resp, err := app.Test(httptest.NewRequest("GET", "/ws/query", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusUpgradeRequired, resp.StatusCode)
}
