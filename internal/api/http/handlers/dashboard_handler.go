package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/amaxoft/portal-gateway/internal/access"
	"github.com/amaxoft/portal-gateway/internal/api/dto"
	"github.com/amaxoft/portal-gateway/internal/auth"
	"github.com/amaxoft/portal-gateway/internal/domain"
	"github.com/amaxoft/portal-gateway/internal/gatekeeper"
	apperrors "github.com/amaxoft/portal-gateway/pkg/util"
)

// DashboardHandler renders the dashboard summary from gatekeeper-forwarded identity.
type DashboardHandler struct {
	policy *access.Policy
}

func NewDashboardHandler(policy *access.Policy) *DashboardHandler {
	return &DashboardHandler{policy: policy}
}

// Show handles GET /dashboard.
func (h *DashboardHandler) Show(c *fiber.Ctx) error {
	id := c.Get(gatekeeper.HeaderUserID)
	if id == "" {
		return apperrors.NewUnauthorized("not authenticated")
	}
	purchase, _ := strconv.ParseBool(c.Get(gatekeeper.HeaderUserHasPurchase))
	user := dto.DashboardUser{
		ID:                   id,
		Email:                c.Get(gatekeeper.HeaderUserEmail),
		Role:                 domain.Role(c.Get(gatekeeper.HeaderUserRole)),
		HasCompletedPurchase: purchase,
	}

	decision := h.policy.CanAccessDashboard(&auth.Claims{Role: user.Role, HasCompletedPurchase: purchase})
	return c.JSON(fiber.Map{
		"success": true,
		"data": dto.DashboardResponse{
			User:        user,
			Access:      string(decision.Reason),
			Permissions: permissionStrings(auth.PermissionsFor(user.Role)),
			Tenant:      c.Get(gatekeeper.HeaderTenantSlug),
		},
	})
}
