package ratelimit

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/amaxoft/portal-gateway/pkg/util"
)

const defaultMessage = "Too many requests"

// Middleware rejects callers over profile p with 429 before the handler runs.
// Store failures are logged and the request is let through.
func Middleware(l *Limiter, p Profile, keyFn KeyFunc) fiber.Handler {
	if keyFn == nil {
		keyFn = ByClient()
	}
	return func(c *fiber.Ctx) error {
		key := keyFn(c)
		res, err := l.Check(c.UserContext(), key, p)
		if err != nil {
			l.logger.Error("rate limit store failure; allowing request",
				zap.String("key", key), zap.Error(err))
			return c.Next()
		}

		setHeaders(c, res)
		if res.Success {
			return c.Next()
		}

		msg := p.Message
		if msg == "" {
			msg = defaultMessage
		}
		retryAfter := res.RetryAfterSeconds()
		c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retryAfter))

		de := apperrors.NewTooManyRequests(msg, retryAfter).(*apperrors.DomainError)
		return c.Status(de.HTTPStatus).JSON(de.Body())
	}
}

func setHeaders(c *fiber.Ctx, res Result) {
	c.Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
	c.Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
	if !res.ResetAt.IsZero() {
		reset := res.ResetAt.Unix()
		if res.ResetAt.Nanosecond() > 0 {
			reset++
		}
		c.Set("X-RateLimit-Reset", strconv.FormatInt(reset, 10))
	}
}
