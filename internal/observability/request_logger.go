package observability

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"
)

// UnmatchedRoute labels 404s in the counters.
const UnmatchedRoute = "unmatched"

// RouteLabel returns the registered route pattern that served c, such as
// /api/users/:id, so counters stay bounded however many paths arrive.
// Requests answered by middleware before routing count under its mount path.
func RouteLabel(c *fiber.Ctx, status int) string {
	if status == fiber.StatusNotFound {
		return UnmatchedRoute
	}
	return utils.CopyString(c.Route().Path)
}

// RequestLogger logs one line per request and feeds the request counters.
func RequestLogger(logger *zap.Logger, metrics *Metrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		duration := time.Since(start)

		status := c.Response().StatusCode()
		var fe *fiber.Error
		if errors.As(err, &fe) {
			status = fe.Code
		}
		path := c.Path()
		metrics.RecordRequest(RouteLabel(c, status), c.Method(), status, duration)

		fields := []zap.Field{
			zap.String("request_id", c.GetRespHeader("x-request-id")),
			zap.String("method", c.Method()),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration),
			zap.String("ip", c.IP()),
		}
		if slug := c.Get("x-tenant-slug"); slug != "" {
			fields = append(fields, zap.String("tenant", slug))
		}

		switch {
		case status >= fiber.StatusInternalServerError:
			logger.Error("request completed", fields...)
		case status >= fiber.StatusBadRequest:
			logger.Warn("request completed", fields...)
		default:
			logger.Info("request completed", fields...)
		}
		return err
	}
}
