package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/amaxoft/portal-gateway/internal/domain"
	apperrors "github.com/amaxoft/portal-gateway/pkg/util"
)

// Identity is the verified caller.
type Identity struct {
	ID                   string
	Email                string
	Role                 domain.Role
	CustomID             string
	CurrentMembershipID  string
	CompanyName          string
	HasCompletedPurchase bool
}

// Context is the authenticated caller plus its resolved permissions.
type Context struct {
	User        Identity
	Permissions []Permission
}

// Can reports whether the caller may perform action on resource.
func (c *Context) Can(resource Resource, action Action) bool {
	for _, p := range c.Permissions {
		if p.Grants(resource, action) {
			return true
		}
	}
	return false
}

// Options narrows who may pass Authorize.
type Options struct {
	RequiredRoles       []domain.Role
	RequiredPermissions []Permission
	// AllowSelfAccess admits callers whose id or custom id equals the last
	// path segment, ahead of role and permission checks.
	AllowSelfAccess bool
}

// Outcome is the result of Authorize. Denials carry a reason, never a panic.
type Outcome struct {
	Success bool
	Context *Context
	Error   string
	Code    string
	Status  int
}

// Err converts a denied outcome into a DomainError.
func (o Outcome) Err() error {
	if o.Success {
		return nil
	}
	return apperrors.NewDomainError(o.Code, o.Error, o.Status, nil)
}

// Authenticator verifies credentials inside route handlers.
type Authenticator struct {
	validator  TokenValidator
	cookieName string
}

// NewAuthenticator builds an authenticator; validator must verify signatures.
func NewAuthenticator(validator *VerifyingInspector, cookieName string) *Authenticator {
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return &Authenticator{validator: validator, cookieName: cookieName}
}

// Authenticate returns the verified caller or a *TokenError.
func (a *Authenticator) Authenticate(c *fiber.Ctx) (*Context, error) {
	token := ExtractToken(c, a.cookieName)
	if token == "" {
		return nil, ErrMissing
	}
	claims, err := a.validator.Inspect(token)
	if err != nil {
		return nil, err
	}
	return &Context{
		User:        identityFromClaims(claims),
		Permissions: PermissionsFor(claims.Role),
	}, nil
}

// Authorize authenticates the caller and applies opts.
func (a *Authenticator) Authorize(c *fiber.Ctx, opts Options) Outcome {
	authCtx, err := a.Authenticate(c)
	if err != nil {
		code := apperrors.CodeUnauthorized
		if errors.Is(err, ErrExpired) || errors.Is(err, ErrTooOld) {
			code = apperrors.CodeTokenExpired
		}
		return Outcome{Error: "not authenticated", Code: code, Status: http.StatusUnauthorized}
	}

	if opts.AllowSelfAccess && isSelf(c.Path(), authCtx.User) {
		return Outcome{Success: true, Context: authCtx, Status: http.StatusOK}
	}

	if len(opts.RequiredRoles) > 0 && !roleIn(authCtx.User.Role, opts.RequiredRoles) {
		return Outcome{
			Error: fmt.Sprintf("insufficient role: current %s, allowed %s",
				authCtx.User.Role, joinRoles(opts.RequiredRoles)),
			Code:   apperrors.CodeRoleNotAllowed,
			Status: http.StatusForbidden,
		}
	}

	for _, p := range opts.RequiredPermissions {
		if !authCtx.Can(p.Resource, p.Action) {
			return Outcome{
				Error:  "insufficient permission: " + p.String(),
				Code:   apperrors.CodeInsufficientPermissions,
				Status: http.StatusForbidden,
			}
		}
	}

	return Outcome{Success: true, Context: authCtx, Status: http.StatusOK}
}

func identityFromClaims(claims *Claims) Identity {
	return Identity{
		ID:                   claims.UserID,
		Email:                claims.Email,
		Role:                 claims.Role,
		CustomID:             claims.CustomID,
		CurrentMembershipID:  claims.CurrentMembershipID,
		CompanyName:          claims.CompanyName,
		HasCompletedPurchase: claims.HasCompletedPurchase,
	}
}

func isSelf(path string, user Identity) bool {
	segment := path[strings.LastIndexByte(path, '/')+1:]
	if segment == "" {
		return false
	}
	return segment == user.ID || (user.CustomID != "" && segment == user.CustomID)
}

func roleIn(role domain.Role, roles []domain.Role) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

func joinRoles(roles []domain.Role) string {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	return strings.Join(names, ", ")
}
