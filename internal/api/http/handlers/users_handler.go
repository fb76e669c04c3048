package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/amaxoft/portal-gateway/internal/api/dto"
	"github.com/amaxoft/portal-gateway/internal/domain"
	"github.com/amaxoft/portal-gateway/internal/repository"
	"github.com/amaxoft/portal-gateway/internal/service"
	apperrors "github.com/amaxoft/portal-gateway/pkg/util"
)

// UsersHandler exposes user lookups.
type UsersHandler struct {
	users *service.UserService
}

func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// List handles GET /api/users?role=&active=&limit=&offset=.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	filter := repository.UserFilter{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}
	if role := strings.TrimSpace(c.Query("role")); role != "" {
		r := domain.Role(strings.ToUpper(role))
		filter.Role = &r
	}
	if active := c.Query("active"); active != "" {
		v, err := strconv.ParseBool(active)
		if err != nil {
			return apperrors.NewValidationError("active must be a boolean", nil)
		}
		filter.Active = &v
	}

	page, err := h.users.List(c.UserContext(), filter)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{
		"success": true,
		"data": dto.UserListResponse{
			Users:      dto.NewUserResponses(page.Users),
			Pagination: dto.Pagination{Total: page.Total, Limit: page.Limit, Offset: page.Offset},
		},
	})
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	user, err := h.users.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"success": true, "data": dto.NewUserResponse(user)})
}
