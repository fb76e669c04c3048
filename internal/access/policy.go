package access

import (
	"strings"

	"github.com/amaxoft/portal-gateway/internal/auth"
	"github.com/amaxoft/portal-gateway/internal/config"
	"github.com/amaxoft/portal-gateway/internal/domain"
)

// Reason explains a dashboard entry decision.
type Reason string

const (
	ReasonAdmin             Reason = "admin"
	ReasonPurchaseCompleted Reason = "purchase_completed"
	ReasonNoPurchase        Reason = "no_purchase"
)

// Decision is the transient result of CanAccessDashboard.
type Decision struct {
	Allowed bool
	Reason  Reason
}

const (
	apiPrefix       = "/api/"
	dashboardPrefix = "/dashboard"
)

var (
	DefaultPublicPaths = []string{
		"/",
		"/login",
		"/api/auth/login",
		"/api/auth/register",
		"/api/auth/google",
		"/api/auth/google/callback",
		"/api/health",
		"/api/products",
		"/api/memberships",
		"/api/categories",
		"/api/quotations/temporary",
	}

	DefaultProtectedPaths = []string{
		"/dashboard",
		"/docs",
		"/api/quotations",
		"/api/users",
		"/api/payments",
		"/api/projects",
	}

	DefaultLoginRedirectPaths = []string{
		"/dashboard",
		"/docs",
	}
)

// Policy classifies paths and callers. It holds no mutable state.
type Policy struct {
	public        []string
	protected     []string
	loginRedirect []string
	admins        map[domain.Role]struct{}
}

// NewPolicy builds a policy, falling back to the defaults for empty lists.
func NewPolicy(cfg config.GatekeeperConfig) *Policy {
	p := &Policy{
		public:        orDefault(cfg.PublicPaths, DefaultPublicPaths),
		protected:     orDefault(cfg.ProtectedPaths, DefaultProtectedPaths),
		loginRedirect: orDefault(cfg.LoginRedirectPaths, DefaultLoginRedirectPaths),
		admins:        make(map[domain.Role]struct{}),
	}

	roles := domain.AdministrativeRoles
	if len(cfg.AdminRoles) > 0 {
		roles = make([]domain.Role, 0, len(cfg.AdminRoles))
		for _, r := range cfg.AdminRoles {
			roles = append(roles, domain.Role(strings.ToUpper(strings.TrimSpace(r))))
		}
	}
	for _, r := range roles {
		p.admins[r] = struct{}{}
	}
	return p
}

// IsPublicPath matches the allowlist exactly or as a "/"-delimited prefix.
// The root path only matches itself.
func (p *Policy) IsPublicPath(path string) bool {
	for _, public := range p.public {
		if path == public {
			return true
		}
		if public != "/" && strings.HasPrefix(path, public+"/") {
			return true
		}
	}
	return false
}

// IsProtectedPath reports whether path falls under a protected prefix.
func (p *Policy) IsProtectedPath(path string) bool {
	return hasAnyPrefix(path, p.protected)
}

// IsAdminRole reports membership in the administrative role set.
func (p *Policy) IsAdminRole(role domain.Role) bool {
	_, ok := p.admins[role]
	return ok
}

// CanAccessDashboard decides dashboard entry from decoded claims.
func (p *Policy) CanAccessDashboard(claims *auth.Claims) Decision {
	if claims == nil {
		return Decision{Reason: ReasonNoPurchase}
	}
	if p.IsAdminRole(claims.Role) {
		return Decision{Allowed: true, Reason: ReasonAdmin}
	}
	if claims.HasCompletedPurchase {
		return Decision{Allowed: true, Reason: ReasonPurchaseCompleted}
	}
	return Decision{Reason: ReasonNoPurchase}
}

// ShouldRedirectToLogin reports whether unauthenticated hits on path become
// a login redirect rather than a JSON 401.
func (p *Policy) ShouldRedirectToLogin(path string) bool {
	return hasAnyPrefix(path, p.loginRedirect)
}

// IsDashboardPath reports whether path is in the dashboard namespace.
func (p *Policy) IsDashboardPath(path string) bool {
	return path == dashboardPrefix || strings.HasPrefix(path, dashboardPrefix+"/")
}

// IsAPIRoute reports whether path targets the JSON API.
func IsAPIRoute(path string) bool {
	return strings.HasPrefix(path, apiPrefix)
}

func hasAnyPrefix(path string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

func orDefault(values, fallback []string) []string {
	if len(values) == 0 {
		return fallback
	}
	return values
}
