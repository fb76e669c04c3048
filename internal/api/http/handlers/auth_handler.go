package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"

	"github.com/amaxoft/portal-gateway/internal/api/dto"
	"github.com/amaxoft/portal-gateway/internal/auth"
	"github.com/amaxoft/portal-gateway/internal/ratelimit"
	"github.com/amaxoft/portal-gateway/internal/service"
	apperrors "github.com/amaxoft/portal-gateway/pkg/util"
)

// AuthHandler exposes session endpoints.
type AuthHandler struct {
	auth    *service.AuthService
	cookies auth.CookieWriter
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authService *service.AuthService, cookies auth.CookieWriter) *AuthHandler {
	return &AuthHandler{auth: authService, cookies: cookies}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Email = strings.TrimSpace(req.Email)
	if !strings.Contains(req.Email, "@") || req.Password == "" {
		return apperrors.NewValidationError("email and password required", nil)
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password, clientInfo(c))
	if err != nil {
		return err
	}

	expires := h.cookies.Set(c, res.Token)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    dto.LoginResponse{User: dto.NewUserResponse(res.User), Expires: expires},
	})
}

// Register handles POST /api/auth/register.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	req.Email = strings.TrimSpace(req.Email)
	if problems := req.Validate(); len(problems) > 0 {
		return apperrors.NewValidationError("invalid registration data", map[string]any{"fields": problems})
	}

	res, err := h.auth.Register(c.UserContext(), service.Registration{
		Name:              req.Name,
		Email:             req.Email,
		Phone:             req.Phone,
		Password:          req.Password,
		AcceptedMarketing: req.AcceptMarketing,
	}, clientInfo(c))
	if err != nil {
		return err
	}

	expires := h.cookies.Set(c, res.Token)
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"data":    dto.LoginResponse{User: dto.NewUserResponse(res.User), Expires: expires},
		"message": "registration completed",
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.cookies.Clear(c)
	return c.JSON(fiber.Map{"success": true, "message": "logged out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	caller, ok := auth.FromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("not authenticated")
	}
	user, err := h.auth.CurrentUser(c.UserContext(), caller.User.ID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"user":        dto.NewUserResponse(user),
			"permissions": permissionStrings(caller.Permissions),
		},
	})
}

func clientInfo(c *fiber.Ctx) service.ClientInfo {
	return service.ClientInfo{
		RequestID: utils.CopyString(c.Get("x-request-id")),
		IPAddress: utils.CopyString(ratelimit.ClientIP(c)),
		UserAgent: utils.CopyString(c.Get(fiber.HeaderUserAgent)),
	}
}

func permissionStrings(perms []auth.Permission) []string {
	out := make([]string, len(perms))
	for i, p := range perms {
		out[i] = p.String()
	}
	return out
}
