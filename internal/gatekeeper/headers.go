package gatekeeper

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

const (
	HeaderRequestID       = "x-request-id"
	HeaderTenantSlug      = "x-tenant-slug"
	HeaderUserID          = "x-user-id"
	HeaderUserEmail       = "x-user-email"
	HeaderUserRole        = "x-user-role"
	HeaderUserHasPurchase = "x-user-has-purchase"
)

// forwardedHeaders are set only by the gatekeeper; inbound copies are dropped.
var forwardedHeaders = []string{
	HeaderTenantSlug,
	HeaderUserID,
	HeaderUserEmail,
	HeaderUserRole,
	HeaderUserHasPurchase,
}

var contentSecurityPolicy = strings.Join([]string{
	"default-src 'self'",
	"script-src 'self' 'unsafe-inline' 'unsafe-eval'",
	"style-src 'self' 'unsafe-inline'",
	"img-src 'self' data: https:",
	"font-src 'self' data:",
	"connect-src 'self'",
	"frame-ancestors 'none'",
}, "; ")

func applySecurityHeaders(c *fiber.Ctx, requestID string, production bool) {
	c.Set(fiber.HeaderContentSecurityPolicy, contentSecurityPolicy)
	c.Set(fiber.HeaderXFrameOptions, "DENY")
	c.Set(fiber.HeaderXContentTypeOptions, "nosniff")
	c.Set(fiber.HeaderReferrerPolicy, "strict-origin-when-cross-origin")
	c.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
	if production {
		c.Set(fiber.HeaderStrictTransportSecurity, "max-age=31536000; includeSubDomains")
	}
	c.Set(HeaderRequestID, requestID)
}

func stripForwardedHeaders(c *fiber.Ctx) {
	for _, h := range forwardedHeaders {
		c.Request().Header.Del(h)
	}
}

func forward(c *fiber.Ctx, key, value string) {
	c.Request().Header.Set(key, value)
}
