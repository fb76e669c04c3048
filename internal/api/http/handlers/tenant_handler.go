package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/amaxoft/portal-gateway/internal/gatekeeper"
)

// TenantHandler serves the tenant namespace that subdomain requests are rewritten into.
type TenantHandler struct{}

func NewTenantHandler() *TenantHandler {
	return &TenantHandler{}
}

// Show handles GET /tenant/:slug/*.
func (h *TenantHandler) Show(c *fiber.Ctx) error {
	slug := c.Params("slug")
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"tenant":   slug,
			"path":     "/" + c.Params("*"),
			"resolved": c.Get(gatekeeper.HeaderTenantSlug) == slug,
		},
	})
}
