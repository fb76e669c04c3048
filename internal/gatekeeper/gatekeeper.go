package gatekeeper

import (
	"errors"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/amaxoft/portal-gateway/internal/access"
	"github.com/amaxoft/portal-gateway/internal/auth"
	"github.com/amaxoft/portal-gateway/internal/events"
	"github.com/amaxoft/portal-gateway/internal/observability"
	"github.com/amaxoft/portal-gateway/internal/tenant"
	apperrors "github.com/amaxoft/portal-gateway/pkg/util"
)

// Outcomes recorded for every request.
const (
	OutcomeTenantRewrite = "tenant_rewrite"
	OutcomeAllow         = "allow"
	OutcomeRedirectLogin = "redirect_login"
	OutcomeUnauthorized  = "unauthorized"
	OutcomeNoPurchase    = "redirect_purchase"
)

const (
	msgAPIUnauthorized = "unauthorized"
	msgInvalidToken    = "invalid or expired token"
)

// Config wires the gatekeeper collaborators.
type Config struct {
	Tenants    *tenant.Resolver
	Policy     *access.Policy
	Validator  auth.TokenValidator
	CookieName string
	Production bool
	// DefaultAllowUnclassified lets paths that are neither public nor
	// protected through without a credential.
	DefaultAllowUnclassified bool
	Logger                   *zap.Logger
	Metrics                  *observability.Metrics
	Events                   events.Dispatcher
}

// Gatekeeper runs the per-request admission pipeline ahead of every route.
type Gatekeeper struct {
	cfg Config
	log *zap.Logger
}

// New builds a gatekeeper. Tenants, Policy and Validator are required.
func New(cfg Config) (*Gatekeeper, error) {
	if cfg.Tenants == nil || cfg.Policy == nil || cfg.Validator == nil {
		return nil, errors.New("gatekeeper: tenants, policy and validator are required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = auth.DefaultCookieName
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Gatekeeper{cfg: cfg, log: log.Named("gatekeeper")}, nil
}

// Handle is the Fiber middleware. Decisions never surface as errors; every
// branch writes its own response or hands off to the next handler.
func (g *Gatekeeper) Handle(c *fiber.Ctx) error {
	requestID := uuid.NewString()
	stripForwardedHeaders(c)
	forward(c, HeaderRequestID, requestID)
	applySecurityHeaders(c, requestID, g.cfg.Production)

	path := c.Path()
	log := g.log.With(
		zap.String("request_id", requestID),
		zap.String("path", path),
		zap.String("method", c.Method()),
	)

	if slug, ok := g.cfg.Tenants.Resolve(string(c.Request().Host())); ok {
		forward(c, HeaderTenantSlug, slug)
		c.Set(HeaderTenantSlug, slug)
		if !tenant.IsTenantPath(path) {
			rewritten := tenant.RewritePath(slug, path)
			log.Debug("tenant rewrite", zap.String("tenant", slug), zap.String("rewritten", rewritten))
			g.record(log, OutcomeTenantRewrite, slug)
			c.Path(rewritten)
			return c.Next()
		}
	}

	policy := g.cfg.Policy
	if policy.IsPublicPath(path) {
		g.record(log, OutcomeAllow, "public")
		return c.Next()
	}
	if !policy.IsProtectedPath(path) && g.cfg.DefaultAllowUnclassified {
		g.record(log, OutcomeAllow, "unclassified")
		return c.Next()
	}

	token := auth.ExtractToken(c, g.cfg.CookieName)
	if token == "" {
		return g.unauthorized(c, log, requestID, auth.ErrMissing)
	}
	claims, err := g.cfg.Validator.Inspect(token)
	if err != nil {
		return g.unauthorized(c, log, requestID, err)
	}
	log = log.With(zap.String("user_id", claims.UserID), zap.String("role", string(claims.Role)))

	if policy.IsDashboardPath(path) {
		decision := policy.CanAccessDashboard(claims)
		if !decision.Allowed {
			g.record(log, OutcomeNoPurchase, string(decision.Reason))
			g.publishDenied(c, requestID, claims, OutcomeNoPurchase, string(decision.Reason))
			target := "/?" + url.Values{
				"message": {"complete-purchase"},
				"user":    {claims.Email},
			}.Encode()
			return c.Redirect(target, fiber.StatusFound)
		}
		log = log.With(zap.String("dashboard_access", string(decision.Reason)))
	}

	forward(c, HeaderUserID, claims.UserID)
	forward(c, HeaderUserEmail, claims.Email)
	forward(c, HeaderUserRole, string(claims.Role))
	forward(c, HeaderUserHasPurchase, strconv.FormatBool(claims.HasCompletedPurchase))

	g.record(log, OutcomeAllow, "authenticated")
	return c.Next()
}

func (g *Gatekeeper) unauthorized(c *fiber.Ctx, log *zap.Logger, requestID string, cause error) error {
	path := c.Path()
	reason := tokenReason(cause)
	log = log.With(zap.Error(cause))

	g.publishDenied(c, requestID, nil, OutcomeUnauthorized, reason)

	if g.cfg.Policy.ShouldRedirectToLogin(path) {
		g.record(log, OutcomeRedirectLogin, reason)
		return c.Redirect("/login?redirect="+url.QueryEscape(path), fiber.StatusFound)
	}

	g.record(log, OutcomeUnauthorized, reason)
	msg := msgInvalidToken
	if access.IsAPIRoute(path) {
		msg = msgAPIUnauthorized
	}
	de := apperrors.NewDomainError(errorCode(cause), msg, fiber.StatusUnauthorized, nil)
	return c.Status(de.HTTPStatus).JSON(de.Body())
}

func (g *Gatekeeper) record(log *zap.Logger, outcome, reason string) {
	g.cfg.Metrics.RecordDecision(outcome, reason)
	fields := []zap.Field{zap.String("outcome", outcome), zap.String("reason", reason)}
	if outcome == OutcomeAllow || outcome == OutcomeTenantRewrite {
		log.Debug("gatekeeper decision", fields...)
		return
	}
	log.Warn("gatekeeper decision", fields...)
}

func (g *Gatekeeper) publishDenied(c *fiber.Ctx, requestID string, claims *auth.Claims, outcome, reason string) {
	if g.cfg.Events == nil {
		return
	}
	// Events outlive the request, so nothing may alias fasthttp buffers.
	actor := events.Actor{
		IPAddress: utils.CopyString(c.IP()),
		UserAgent: utils.CopyString(c.Get(fiber.HeaderUserAgent)),
	}
	if claims != nil {
		id := claims.UserID
		actor.UserID = &id
		actor.Email = claims.Email
	}
	event := events.NewEvent(events.EventAccessDenied, requestID, actor, events.AccessDeniedPayload{
		Path:    utils.CopyString(c.Path()),
		Method:  utils.CopyString(c.Method()),
		Outcome: outcome,
		Reason:  reason,
	})
	if err := g.cfg.Events.Publish(c.UserContext(), event); err != nil {
		g.log.Warn("publish access denied", zap.String("request_id", requestID), zap.Error(err))
	}
}

func tokenReason(err error) string {
	var te *auth.TokenError
	if errors.As(err, &te) {
		return string(te.Code)
	}
	return "UNKNOWN"
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, auth.ErrMissing):
		return apperrors.CodeUnauthorized
	case errors.Is(err, auth.ErrExpired), errors.Is(err, auth.ErrTooOld):
		return apperrors.CodeTokenExpired
	default:
		return apperrors.CodeTokenInvalid
	}
}
