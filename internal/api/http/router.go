package http

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/amaxoft/portal-gateway/internal/api/http/handlers"
	"github.com/amaxoft/portal-gateway/internal/auth"
	"github.com/amaxoft/portal-gateway/internal/domain"
	"github.com/amaxoft/portal-gateway/internal/ratelimit"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health        *handlers.HealthHandler
	Auth          *handlers.AuthHandler
	Users         *handlers.UsersHandler
	Dashboard     *handlers.DashboardHandler
	Tenant        *handlers.TenantHandler
	Authenticator *auth.Authenticator
	Limiter       *ratelimit.Limiter
	Profiles      ratelimit.ProfileSet
	Logger        *zap.Logger
}

// RegisterRoutes wires HTTP routes. Each sensitive route applies its own
// rate-limit profile before authorization.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	limit := func(p ratelimit.Profile) fiber.Handler {
		return ratelimit.Middleware(cfg.Limiter, p, ratelimit.ByClient())
	}
	require := func(opts auth.Options) fiber.Handler {
		return cfg.Authenticator.Require(opts, cfg.Logger)
	}

	api := app.Group("/api")
	api.Get("/health", cfg.Health.Check)

	authGroup := api.Group("/auth")
	authGroup.Post("/login", limit(cfg.Profiles.Auth), cfg.Auth.Login)
	authGroup.Post("/register", limit(cfg.Profiles.Auth), cfg.Auth.Register)
	authGroup.Post("/logout", limit(cfg.Profiles.Auth), cfg.Auth.Logout)
	authGroup.Get("/me",
		limit(cfg.Profiles.General),
		require(auth.Options{RequiredRoles: domain.AllRoles}),
		cfg.Auth.Me,
	)

	users := api.Group("/users", limit(cfg.Profiles.Reports))
	users.Get("/",
		require(auth.Options{RequiredPermissions: []auth.Permission{auth.Perm(auth.ResourceUsers, auth.ActionRead)}}),
		cfg.Users.List,
	)
	users.Get("/:id",
		require(auth.Options{
			RequiredPermissions: []auth.Permission{auth.Perm(auth.ResourceUsers, auth.ActionRead)},
			AllowSelfAccess:     true,
		}),
		cfg.Users.Get,
	)

	app.Get("/dashboard", cfg.Dashboard.Show)
	app.Get("/tenant/:slug/*", cfg.Tenant.Show)
}
