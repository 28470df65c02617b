package middleware_test

import (
	"io"
	"net/http/httptest"
	"testing"
	"vidyasetu/backend/middleware"
	"vidyasetu/backend/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsExposesRequestsAndScorerOutcomes(t *testing.T) {
	metrics := middleware.NewMetrics()
	app := fiber.New(fiber.Config{ErrorHandler: utils.ErrorHandler})
	app.Use(metrics.Middleware())
	app.Use(middleware.LoggingMiddleware(utils.NopLogger()))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })
	app.Get("/boom", func(c *fiber.Ctx) error { return fiber.NewError(fiber.StatusNotFound, "gone") })
	app.Get("/metrics", metrics.Handler())

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest("GET", "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	metrics.ScorerOutcome("ok")
	metrics.ScorerOutcome("unparseable")

	resp, err = app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	text := string(body)

	assert.Contains(t, text, `vidyasetu_http_requests_total{method="GET",route="/ping",status="200"} 1`)
	assert.Contains(t, text, `vidyasetu_http_requests_total{method="GET",route="/boom",status="404"} 1`)
	assert.Contains(t, text, `vidyasetu_saq_scorer_outcomes_total{outcome="unparseable"} 1`)
}
