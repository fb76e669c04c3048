package gatekeeper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amaxoft/portal-gateway/internal/access"
	"github.com/amaxoft/portal-gateway/internal/auth"
	"github.com/amaxoft/portal-gateway/internal/config"
	"github.com/amaxoft/portal-gateway/internal/events"
	"github.com/amaxoft/portal-gateway/internal/observability"
	"github.com/amaxoft/portal-gateway/internal/tenant"
)

const secret = "gatekeeper-test-secret"

type harness struct {
	app     *fiber.App
	metrics *observability.Metrics
	denied  []events.Event
}

func newHarness(t *testing.T, mutate func(*Config)) *harness {
	t.Helper()
	h := &harness{metrics: observability.NewMetrics()}

	dispatcher := events.NewInMemoryDispatcher()
	dispatcher.Subscribe(events.EventAccessDenied, func(_ context.Context, e events.Event) error {
		h.denied = append(h.denied, e)
		return nil
	})

	cfg := Config{
		Tenants: tenant.NewResolver(config.TenantConfig{
			BaseDomains:        []string{"example.com"},
			ReservedSubdomains: []string{"www", "api"},
		}),
		Policy:                   access.NewPolicy(config.GatekeeperConfig{}),
		Validator:                auth.NewVerifyingInspector(auth.NewTokenManager(secret, time.Hour), auth.NewInspector(0)),
		DefaultAllowUnclassified: true,
		Metrics:                  h.metrics,
		Events:                   dispatcher,
	}
	if mutate != nil {
		mutate(&cfg)
	}
	g, err := New(cfg)
	require.NoError(t, err)

	app := fiber.New()
	app.Use(g.Handle)
	echo := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"path":        c.Path(),
			"requestId":   c.Get(HeaderRequestID),
			"tenant":      c.Get(HeaderTenantSlug),
			"userId":      c.Get(HeaderUserID),
			"email":       c.Get(HeaderUserEmail),
			"role":        c.Get(HeaderUserRole),
			"hasPurchase": c.Get(HeaderUserHasPurchase),
		})
	}
	app.Get("/tenant/:slug/*", echo)
	app.Get("/dashboard", echo)
	app.Get("/api/users", echo)
	app.Get("/api/health", echo)
	app.Get("/about", echo)
	h.app = app
	return h
}

func token(t *testing.T, role string, purchase bool, exp time.Time) string {
	t.Helper()
	claims := jwt.MapClaims{
		"userId":               "u-1",
		"email":                "ana@example.com",
		"role":                 role,
		"hasCompletedPurchase": purchase,
		"iat":                  time.Now().Add(-time.Minute).Unix(),
		"exp":                  exp.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func (h *harness) do(t *testing.T, target, bearer string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("GET", target, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	resp, err := h.app.Test(req)
	require.NoError(t, err)

	var body map[string]any
	if resp.Header.Get("Content-Type") == fiber.MIMEApplicationJSON {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	}
	return resp, body
}

func TestDashboardWithoutTokenRedirectsToLogin(t *testing.T) {
	h := newHarness(t, nil)

	resp, _ := h.do(t, "http://localhost/dashboard", "")
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/login", loc.Path)
	assert.Equal(t, "/dashboard", loc.Query().Get("redirect"))
	assert.NotEmpty(t, resp.Header.Get(HeaderRequestID))

	require.Len(t, h.denied, 1)
	assert.Equal(t, "/dashboard", h.denied[0].Payload.(events.AccessDeniedPayload).Path)
	assert.Equal(t, int64(1), h.metrics.Snapshot().Decisions["redirect_login:MISSING"])
}

func TestExpiredTokenOnAPIReturnsJSON401(t *testing.T) {
	h := newHarness(t, nil)

	resp, body := h.do(t, "http://localhost/api/users", token(t, "PASTOR", true, time.Now().Add(-time.Hour)))
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "unauthorized", body["error"])
	assert.Equal(t, "TOKEN_EXPIRED", body["errorCode"])
}

func TestBadSignatureIsRejected(t *testing.T) {
	h := newHarness(t, nil)

	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"userId": "u-1", "email": "ana@example.com", "role": "SUPERADMIN",
	}).SignedString([]byte("other-secret"))
	require.NoError(t, err)

	resp, body := h.do(t, "http://localhost/api/users", forged)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "TOKEN_INVALID", body["errorCode"])
}

func TestDashboardWithoutPurchaseRedirectsToLanding(t *testing.T) {
	h := newHarness(t, nil)

	resp, _ := h.do(t, "http://localhost/dashboard", token(t, "DISCIPULADOR", false, time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusFound, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/", loc.Path)
	assert.Equal(t, "complete-purchase", loc.Query().Get("message"))
	assert.Equal(t, "ana@example.com", loc.Query().Get("user"))

	require.Len(t, h.denied, 1)
	assert.Equal(t, "ana@example.com", h.denied[0].Actor.Email)
}

func TestAuthenticatedRequestForwardsIdentity(t *testing.T) {
	h := newHarness(t, nil)

	resp, body := h.do(t, "http://localhost/dashboard", token(t, "DISCIPULADOR", true, time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "u-1", body["userId"])
	assert.Equal(t, "ana@example.com", body["email"])
	assert.Equal(t, "DISCIPULADOR", body["role"])
	assert.Equal(t, "true", body["hasPurchase"])
	assert.Equal(t, resp.Header.Get(HeaderRequestID), body["requestId"])

	resp, body = h.do(t, "http://localhost/dashboard", token(t, "TESORERO", false, time.Now().Add(time.Hour)))
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "false", body["hasPurchase"])
}

func TestTenantSubdomainRewritesPath(t *testing.T) {
	h := newHarness(t, nil)

	resp, body := h.do(t, "http://brasaybarril.example.com/foo", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/tenant/brasaybarril/foo", body["path"])
	assert.Equal(t, "brasaybarril", body["tenant"])
	assert.Equal(t, "brasaybarril", resp.Header.Get(HeaderTenantSlug))

	resp, body = h.do(t, "http://www.example.com/about", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/about", body["path"])
	assert.Empty(t, body["tenant"])
}

func TestSecurityHeadersOnEveryOutcome(t *testing.T) {
	h := newHarness(t, nil)
	prod := newHarness(t, func(c *Config) { c.Production = true })

	for _, target := range []string{"http://localhost/api/health", "http://localhost/dashboard", "http://localhost/api/users"} {
		resp, _ := h.do(t, target, "")
		assert.Contains(t, resp.Header.Get("Content-Security-Policy"), "frame-ancestors 'none'", target)
		assert.Equal(t, "DENY", resp.Header.Get("X-Frame-Options"), target)
		assert.Equal(t, "nosniff", resp.Header.Get("X-Content-Type-Options"), target)
		assert.Equal(t, "strict-origin-when-cross-origin", resp.Header.Get("Referrer-Policy"), target)
		assert.Equal(t, "geolocation=(), microphone=(), camera=()", resp.Header.Get("Permissions-Policy"), target)
		assert.Empty(t, resp.Header.Get("Strict-Transport-Security"), target)
		assert.NotEmpty(t, resp.Header.Get(HeaderRequestID), target)

		resp, _ = prod.do(t, target, "")
		assert.Equal(t, "max-age=31536000; includeSubDomains", resp.Header.Get("Strict-Transport-Security"), target)
	}
}

func TestUnclassifiedPaths(t *testing.T) {
	open := newHarness(t, nil)
	resp, _ := open.do(t, "http://localhost/about", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	closed := newHarness(t, func(c *Config) { c.DefaultAllowUnclassified = false })
	resp, body := closed.do(t, "http://localhost/about", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "invalid or expired token", body["error"])
	assert.Equal(t, "UNAUTHORIZED", body["errorCode"])
}

func TestSpoofedIdentityHeadersAreDropped(t *testing.T) {
	h := newHarness(t, nil)

	req := httptest.NewRequest("GET", "http://localhost/api/health", nil)
	req.Header.Set(HeaderUserID, "admin")
	req.Header.Set(HeaderUserRole, "SUPERADMIN")
	resp, err := h.app.Test(req)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Empty(t, body["userId"])
	assert.Empty(t, body["role"])
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestAccessDeniedEventSurvivesLaterRequests(t *testing.T) {
	h := newHarness(t, nil)
	h.app.Get("/api/users/:id", func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusOK) })

	send := func(target, ua string) {
		req := httptest.NewRequest("GET", target, nil)
		req.Header.Set("User-Agent", ua)
		resp, err := h.app.Test(req)
		require.NoError(t, err)
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	}

	send("http://localhost/api/users/aaaaaaaaaaaa", "first-agent-xxxxxxxx")
	for i := 0; i < 5; i++ {
		send("http://localhost/api/users/zzzzzzzzzzzz", "other-agent-yyyyyyyy")
	}

	require.Len(t, h.denied, 6)
	first := h.denied[0]
	payload, ok := first.Payload.(events.AccessDeniedPayload)
	require.True(t, ok)
	assert.Equal(t, "/api/users/aaaaaaaaaaaa", payload.Path)
	assert.Equal(t, "GET", payload.Method)
	assert.Equal(t, "first-agent-xxxxxxxx", first.Actor.UserAgent)
}
