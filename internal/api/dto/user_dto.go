package dto

import (
	"strings"
	"time"

	"github.com/amaxoft/portal-gateway/internal/domain"
)

// LoginRequest payload for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest payload for POST /api/auth/register.
type RegisterRequest struct {
	Name             string `json:"name"`
	Email            string `json:"email"`
	Phone            string `json:"phone"`
	Password         string `json:"password"`
	ConfirmPassword  string `json:"confirmPassword"`
	AcceptDataPolicy bool   `json:"acceptDataPolicy"`
	AcceptTerms      bool   `json:"acceptTerms"`
	AcceptMarketing  bool   `json:"acceptMarketing"`
}

// MinPasswordLength is the shortest password accepted at registration.
const MinPasswordLength = 8

// Validate returns per-field problems; an empty map means the request is usable.
func (r RegisterRequest) Validate() map[string]any {
	problems := map[string]any{}
	if strings.TrimSpace(r.Name) == "" {
		problems["name"] = "name is required"
	}
	if !strings.Contains(r.Email, "@") {
		problems["email"] = "invalid email"
	}
	if strings.TrimSpace(r.Phone) == "" {
		problems["phone"] = "phone is required"
	}
	if len(r.Password) < MinPasswordLength {
		problems["password"] = "password must be at least 8 characters"
	}
	if r.ConfirmPassword != "" && r.ConfirmPassword != r.Password {
		problems["confirmPassword"] = "passwords do not match"
	}
	if !r.AcceptDataPolicy {
		problems["acceptDataPolicy"] = "the data processing policy must be accepted"
	}
	if !r.AcceptTerms {
		problems["acceptTerms"] = "the terms and conditions must be accepted"
	}
	return problems
}

// UserResponse is the public view of a user; it never carries the password hash.
type UserResponse struct {
	ID                   string      `json:"id"`
	CustomID             string      `json:"customId,omitempty"`
	Email                string      `json:"email"`
	Name                 *string     `json:"name"`
	Role                 domain.Role `json:"role"`
	IsActive             bool        `json:"isActive"`
	HasCompletedPurchase bool        `json:"hasCompletedPurchase"`
	CurrentMembershipID  *string     `json:"currentMembershipId,omitempty"`
	CompanyName          *string     `json:"companyName,omitempty"`
	ProfilePhoto         *string     `json:"profilePhoto,omitempty"`
	CreatedAt            time.Time   `json:"createdAt"`
}

// LoginResponse is the data envelope of a successful login. The token itself
// travels only in the HttpOnly cookie.
type LoginResponse struct {
	User    UserResponse `json:"user"`
	Expires time.Time    `json:"expires"`
}

// UserListResponse is one page of users.
type UserListResponse struct {
	Users      []UserResponse `json:"users"`
	Pagination Pagination     `json:"pagination"`
}

// Pagination describes a page window.
type Pagination struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// DashboardResponse summarizes the caller for the dashboard shell.
type DashboardResponse struct {
	User        DashboardUser `json:"user"`
	Access      string        `json:"access"`
	Permissions []string      `json:"permissions"`
	Tenant      string        `json:"tenant,omitempty"`
}

// DashboardUser is the identity forwarded by the gatekeeper.
type DashboardUser struct {
	ID                   string      `json:"id"`
	Email                string      `json:"email"`
	Role                 domain.Role `json:"role"`
	HasCompletedPurchase bool        `json:"hasCompletedPurchase"`
}

// NewUserResponse converts a domain user.
func NewUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:                   u.ID,
		CustomID:             u.CustomID,
		Email:                u.Email,
		Name:                 u.Name,
		Role:                 u.Role,
		IsActive:             u.IsActive,
		HasCompletedPurchase: u.HasCompletedPurchase,
		CurrentMembershipID:  u.CurrentMembershipID,
		CompanyName:          u.CompanyName,
		ProfilePhoto:         u.ProfilePhoto,
		CreatedAt:            u.CreatedAt,
	}
}

// NewUserResponses converts a slice of domain users.
func NewUserResponses(users []domain.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, NewUserResponse(&users[i]))
	}
	return out
}
