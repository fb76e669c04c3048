package ratelimit

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	keyPrefix        = "rate_limit:"
	userAgentKeyLen  = 50
	fallbackClientIP = "127.0.0.1"
)

// KeyFunc derives the limiter key for a request.
type KeyFunc func(c *fiber.Ctx) string

// ClientIP returns the first X-Forwarded-For entry, then X-Real-IP, then loopback.
func ClientIP(c *fiber.Ctx) string {
	if forwarded := c.Get(fiber.HeaderXForwardedFor); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := strings.TrimSpace(c.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return fallbackClientIP
}

// KeyFromRequest uses identifier when given, else the client IP and a
// truncated user agent.
func KeyFromRequest(c *fiber.Ctx, identifier string) string {
	if identifier != "" {
		return keyPrefix + identifier
	}
	ua := c.Get(fiber.HeaderUserAgent)
	if ua == "" {
		ua = "unknown"
	}
	if r := []rune(ua); len(r) > userAgentKeyLen {
		ua = string(r[:userAgentKeyLen])
	}
	return keyPrefix + ClientIP(c) + ":" + ua
}

// ByClient keys requests by IP and user agent.
func ByClient() KeyFunc {
	return func(c *fiber.Ctx) string { return KeyFromRequest(c, "") }
}

// ByIdentifier keys every request under the same explicit identifier.
func ByIdentifier(identifier string) KeyFunc {
	return func(c *fiber.Ctx) string { return KeyFromRequest(c, identifier) }
}

// UserKey scopes a limit to an authenticated user.
func UserKey(userID string) string {
	return "user:" + userID
}

// EndpointKey scopes a limit to an endpoint shared by all callers.
func EndpointKey(endpoint string) string {
	return "endpoint:" + endpoint
}
