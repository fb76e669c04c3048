package auth

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

const contextKey = "auth_context"

// Require enforces opts on the route and stores the caller for handlers.
func (a *Authenticator) Require(opts Options, logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		outcome := a.Authorize(c, opts)
		if !outcome.Success {
			if logger != nil {
				logger.Warn("authorization denied",
					zap.String("request_id", c.Get("x-request-id")),
					zap.String("path", c.Path()),
					zap.String("method", c.Method()),
					zap.String("code", outcome.Code),
					zap.String("reason", outcome.Error),
				)
			}
			return outcome.Err()
		}
		c.Locals(contextKey, outcome.Context)
		return c.Next()
	}
}

// FromContext retrieves the caller stored by Require.
func FromContext(c *fiber.Ctx) (*Context, bool) {
	val := c.Locals(contextKey)
	if val == nil {
		return nil, false
	}
	authCtx, ok := val.(*Context)
	return authCtx, ok
}
