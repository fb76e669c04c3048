package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
)

// CookieWriter sets and clears the HttpOnly auth cookie.
type CookieWriter struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

// Set stores token in the auth cookie and returns the cookie expiry.
func (w CookieWriter) Set(c *fiber.Ctx, token string) time.Time {
	expires := time.Now().Add(w.MaxAge)
	c.Cookie(&fiber.Cookie{
		Name:     w.name(),
		Value:    token,
		Path:     "/",
		MaxAge:   int(w.MaxAge / time.Second),
		Expires:  expires,
		HTTPOnly: true,
		Secure:   w.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
	return expires
}

// Clear expires the auth cookie immediately.
func (w CookieWriter) Clear(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     w.name(),
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   w.Secure,
		SameSite: fiber.CookieSameSiteStrictMode,
	})
}

func (w CookieWriter) name() string {
	if w.Name == "" {
		return DefaultCookieName
	}
	return w.Name
}
