package controllers_test

import (
	"fmt"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatHistoryIsPrivate(t *testing.T) {
	env := newTestEnv(t)
	asha := env.signupStudent("Asha")
	ravi := env.signupStudent("Ravi")

	status, body := env.object("POST", "/api/chat/", asha.Token, map[string]interface{}{
		"text":   "What is a prime number?",
		"sender": "user",
	})
	require.Equal(t, fiber.StatusCreated, status, body)
	assert.NotEmpty(t, body["time"])

	status, _ = env.object("POST", "/api/chat/", asha.Token, map[string]interface{}{
		"text":   "A number with exactly two divisors.",
		"sender": "bot",
	})
	require.Equal(t, fiber.StatusCreated, status)

	status, body = env.object("POST", "/api/chat/", asha.Token, map[string]interface{}{
		"text":   "hello",
		"sender": "admin",
	})
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "oneof=user bot", body["details"].(map[string]interface{})["sender"])

	status, history := env.list("GET", fmt.Sprintf("/api/chat/%d", asha.ID), asha.Token)
	require.Equal(t, fiber.StatusOK, status)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].(map[string]interface{})["sender"])
	assert.Equal(t, "bot", history[1].(map[string]interface{})["sender"])

	status, _ = env.list("GET", fmt.Sprintf("/api/chat/%d", asha.ID), ravi.Token)
	assert.Equal(t, fiber.StatusForbidden, status)

	status, history = env.list("GET", fmt.Sprintf("/api/chat/%d", ravi.ID), ravi.Token)
	require.Equal(t, fiber.StatusOK, status)
	assert.Empty(t, history)
}
