package handlers

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/amaxoft/portal-gateway/internal/observability"
	"github.com/amaxoft/portal-gateway/internal/persistence"
)

const (
	statusNotConfigured = "not_configured"
	statusConnected     = "connected"
	statusDisconnected  = "disconnected"
)

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports service and dependency status.
type HealthHandler struct {
	serviceName string
	version     string
	env         string
	postgres    pinger
	redis       pinger
	metrics     *observability.Metrics
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version, env string, postgres, redis pinger, metrics *observability.Metrics) *HealthHandler {
	return &HealthHandler{
		serviceName: serviceName,
		version:     version,
		env:         env,
		postgres:    postgres,
		redis:       redis,
		metrics:     metrics,
	}
}

// Check handles GET /api/health. It answers 200 even when a dependency is
// down so load balancers keep routing to the gatekeeper.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	return c.JSON(fiber.Map{
		"status":      "ok",
		"service":     h.serviceName,
		"version":     h.version,
		"environment": h.env,
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"database":    probe(ctx, h.postgres),
		"redis":       probe(ctx, h.redis),
		"decisions":   h.metrics.Snapshot().Decisions,
	})
}

func probe(ctx context.Context, p pinger) string {
	if p == nil {
		return statusNotConfigured
	}
	err := p.Ping(ctx)
	switch {
	case err == nil:
		return statusConnected
	case errors.Is(err, persistence.ErrNotConfigured):
		return statusNotConfigured
	default:
		return statusDisconnected
	}
}
