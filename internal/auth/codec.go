package auth

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
)

// DefaultCookieName is the HttpOnly cookie carrying the access token.
const DefaultCookieName = "accessToken"

// DefaultMaxTokenAge is how long after issuance a token is still accepted.
const DefaultMaxTokenAge = 30 * 24 * time.Hour

// TokenErrorCode classifies why a credential was rejected.
type TokenErrorCode string

const (
	CodeMissing           TokenErrorCode = "MISSING"
	CodeMalformed         TokenErrorCode = "MALFORMED"
	CodeDecodeError       TokenErrorCode = "DECODE_ERROR"
	CodeIncompletePayload TokenErrorCode = "INCOMPLETE_PAYLOAD"
	CodeExpired           TokenErrorCode = "EXPIRED"
	CodeTooOld            TokenErrorCode = "TOO_OLD"
	CodeBadSignature      TokenErrorCode = "SIGNATURE_INVALID"
)

// TokenError reports a structural or cryptographic token failure.
type TokenError struct {
	Code TokenErrorCode
	Err  error
}

func (e *TokenError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token %s: %v", strings.ToLower(string(e.Code)), e.Err)
	}
	return "token " + strings.ToLower(string(e.Code))
}

func (e *TokenError) Unwrap() error { return e.Err }

// Is matches any TokenError carrying the same code.
func (e *TokenError) Is(target error) bool {
	t, ok := target.(*TokenError)
	return ok && t.Code == e.Code
}

var (
	ErrMissing           = &TokenError{Code: CodeMissing}
	ErrMalformed         = &TokenError{Code: CodeMalformed}
	ErrDecode            = &TokenError{Code: CodeDecodeError}
	ErrIncompletePayload = &TokenError{Code: CodeIncompletePayload}
	ErrExpired           = &TokenError{Code: CodeExpired}
	ErrTooOld            = &TokenError{Code: CodeTooOld}
	ErrBadSignature      = &TokenError{Code: CodeBadSignature}
)

// TokenValidator turns a raw credential into trusted claims.
type TokenValidator interface {
	Inspect(token string) (*Claims, error)
}

const bearerScheme = "Bearer"

// ExtractToken returns the Authorization header value with any Bearer prefix
// removed, or the raw value when there is no prefix. A header that is empty
// after stripping, such as a bare "Bearer", falls back to the auth cookie.
// An empty string means no credential.
func ExtractToken(c *fiber.Ctx, cookieName string) string {
	header := strings.TrimSpace(c.Get(fiber.HeaderAuthorization))
	if header == bearerScheme || strings.HasPrefix(header, bearerScheme+" ") {
		header = strings.TrimSpace(header[len(bearerScheme):])
	}
	if header != "" {
		return header
	}
	if cookieName == "" {
		cookieName = DefaultCookieName
	}
	return c.Cookies(cookieName)
}

// Inspector decodes tokens and applies structural and temporal checks
// without verifying the signature.
type Inspector struct {
	maxAge time.Duration
	now    func() time.Time
	parser *jwt.Parser
}

// NewInspector builds an inspector; a non-positive maxAge uses the default.
func NewInspector(maxAge time.Duration) *Inspector {
	if maxAge <= 0 {
		maxAge = DefaultMaxTokenAge
	}
	return &Inspector{maxAge: maxAge, now: time.Now, parser: jwt.NewParser()}
}

// WithClock overrides the wall clock, for tests.
func (i *Inspector) WithClock(now func() time.Time) *Inspector {
	i.now = now
	return i
}

// Inspect decodes the payload segment and checks it.
func (i *Inspector) Inspect(token string) (*Claims, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return nil, ErrMalformed
	}

	raw, err := i.decodeSegment(parts[1])
	if err != nil {
		return nil, &TokenError{Code: CodeDecodeError, Err: err}
	}

	var claims Claims
	if err := json.Unmarshal(raw, &claims); err != nil {
		return nil, &TokenError{Code: CodeDecodeError, Err: err}
	}

	if err := i.check(&claims); err != nil {
		return nil, err
	}
	return &claims, nil
}

// decodeSegment accepts both the JWT base64url alphabet and padded standard base64.
func (i *Inspector) decodeSegment(seg string) ([]byte, error) {
	if raw, err := i.parser.DecodeSegment(seg); err == nil {
		return raw, nil
	}
	if raw, err := base64.StdEncoding.DecodeString(seg); err == nil {
		return raw, nil
	}
	return base64.RawStdEncoding.DecodeString(seg)
}

func (i *Inspector) check(claims *Claims) error {
	if claims.UserID == "" || claims.Email == "" || claims.Role == "" {
		return ErrIncompletePayload
	}

	now := i.now().Unix()
	if claims.ExpiresAt != nil && now > claims.ExpiresAt.Unix() {
		return ErrExpired
	}
	if claims.IssuedAt != nil && now-claims.IssuedAt.Unix() > int64(i.maxAge/time.Second) {
		return ErrTooOld
	}
	return nil
}

// VerifyingInspector checks the HS256 signature before applying the
// same checks as Inspector.
type VerifyingInspector struct {
	tokens *TokenManager
	base   *Inspector
}

// NewVerifyingInspector builds a signature-checking validator.
func NewVerifyingInspector(tokens *TokenManager, base *Inspector) *VerifyingInspector {
	return &VerifyingInspector{tokens: tokens, base: base}
}

// Inspect verifies and checks the token.
func (v *VerifyingInspector) Inspect(token string) (*Claims, error) {
	if strings.Count(token, ".") != 2 {
		return nil, ErrMalformed
	}
	claims, err := v.tokens.Verify(token)
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, &TokenError{Code: CodeBadSignature, Err: err}
		default:
			return nil, &TokenError{Code: CodeDecodeError, Err: err}
		}
	}
	if err := v.base.check(claims); err != nil {
		return nil, err
	}
	return claims, nil
}
