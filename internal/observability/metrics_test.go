package observability

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetricsSnapshot(t *testing.T) {
	m := NewMetrics()
	m.RecordRequest("/api/users", "GET", 200, 10*time.Millisecond)
	m.RecordRequest("/api/users", "GET", 200, 30*time.Millisecond)
	m.RecordError("/api/users", "GET", "FORBIDDEN")
	m.RecordDecision("allow", "public")
	m.RecordDecision("allow", "public")
	m.RecordDecision("redirect_login", "")

	s := m.Snapshot()
	assert.Equal(t, int64(2), s.Requests["GET /api/users 200"])
	assert.Equal(t, int64(1), s.Errors["GET /api/users FORBIDDEN"])
	assert.Equal(t, int64(2), s.Decisions["allow:public"])
	assert.Equal(t, int64(1), s.Decisions["redirect_login"])
	assert.Equal(t, "20ms", s.AverageLatency)
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordRequest("/", "GET", 200, time.Millisecond)
	m.RecordDecision("allow", "")
	assert.Empty(t, m.Snapshot().Requests)
}

func TestRequestLoggerCountsRequests(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/ping", func(c *fiber.Ctx) error { return c.SendString("pong") })

	resp, err := app.Test(httptest.NewRequest("GET", "/ping", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, int64(1), m.Snapshot().Requests["GET /ping 200"])
}

func TestRequestCountersKeyByRoutePattern(t *testing.T) {
	m := NewMetrics()
	app := fiber.New()
	app.Use(RequestLogger(zap.NewNop(), m))
	app.Get("/api/users/:id", func(c *fiber.Ctx) error { return c.SendString(c.Params("id")) })

	for _, target := range []string{"/api/users/a", "/api/users/b", "/api/users/c", "/wp-login.php", "/.env"} {
		_, err := app.Test(httptest.NewRequest("GET", target, nil))
		require.NoError(t, err)
	}

	requests := m.Snapshot().Requests
	assert.Equal(t, int64(3), requests["GET /api/users/:id 200"])
	assert.Equal(t, int64(2), requests["GET "+UnmatchedRoute+" 404"])
	assert.Len(t, requests, 2)
}
