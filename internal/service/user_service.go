package service

import (
	"context"

	"github.com/amaxoft/portal-gateway/internal/domain"
	"github.com/amaxoft/portal-gateway/internal/repository"
	apperrors "github.com/amaxoft/portal-gateway/pkg/util"
)

// UserPage is one page of a user listing.
type UserPage struct {
	Users  []domain.User
	Total  int
	Limit  int
	Offset int
}

// UserService serves user lookups for authorized callers.
type UserService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) *UserService {
	return &UserService{users: users}
}

// List returns users matching filter.
func (s *UserService) List(ctx context.Context, filter repository.UserFilter) (*UserPage, error) {
	if s.users == nil {
		return nil, apperrors.NewUnavailable("user store not configured")
	}
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, apperrors.NewValidationError("unknown role", map[string]any{"role": string(*filter.Role)})
	}
	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &UserPage{Users: users, Total: total, Limit: filter.Limit, Offset: filter.Offset}, nil
}

// Get returns a single user by id or custom id.
func (s *UserService) Get(ctx context.Context, id string) (*domain.User, error) {
	if s.users == nil {
		return nil, apperrors.NewUnavailable("user store not configured")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return user, nil
}
