package auth

import (
	jwt "github.com/golang-jwt/jwt/v5"

	"github.com/amaxoft/portal-gateway/internal/domain"
)

// Claims describes the access token payload.
type Claims struct {
	UserID               string      `json:"userId"`
	Email                string      `json:"email"`
	Role                 domain.Role `json:"role"`
	CustomID             string      `json:"customId,omitempty"`
	CurrentMembershipID  string      `json:"currentMembershipId,omitempty"`
	CompanyName          string      `json:"companyName,omitempty"`
	HasCompletedPurchase bool        `json:"hasCompletedPurchase,omitempty"`
	jwt.RegisteredClaims
}
