package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/amaxoft/portal-gateway/internal/auth"
	"github.com/amaxoft/portal-gateway/internal/domain"
	"github.com/amaxoft/portal-gateway/internal/events"
	"github.com/amaxoft/portal-gateway/internal/repository"
	apperrors "github.com/amaxoft/portal-gateway/pkg/util"
)

// ErrInvalidCredentials is returned for unknown, inactive or mismatched logins.
var ErrInvalidCredentials = apperrors.NewUnauthorizedCode(apperrors.CodeInvalidCredentials, "invalid credentials")

const defaultHashCost = 12

// ClientInfo describes where a request came from, for auditing.
type ClientInfo struct {
	RequestID string
	IPAddress string
	UserAgent string
}

// LoginResult is a successful login.
type LoginResult struct {
	User      *domain.User
	Token     string
	ExpiresAt time.Time
}

// AuthService handles login and session lookups.
type AuthService struct {
	users      repository.UserRepository
	tokens     *auth.TokenManager
	dispatcher events.Dispatcher
	logger     *zap.Logger
	hashCost   int
}

// NewAuthService builds the service. users may be nil when no database is configured.
func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, dispatcher events.Dispatcher, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		tokens:     tokens,
		dispatcher: dispatcher,
		logger:     logger.Named("auth"),
		hashCost:   defaultHashCost,
	}
}

// WithHashCost sets the bcrypt cost used for new passwords.
func (s *AuthService) WithHashCost(cost int) *AuthService {
	if cost > 0 {
		s.hashCost = cost
	}
	return s
}

// Login verifies credentials and issues an access token.
func (s *AuthService) Login(ctx context.Context, email, password string, client ClientInfo) (*LoginResult, error) {
	if s.users == nil {
		return nil, apperrors.NewUnavailable("user store not configured")
	}
	email = strings.TrimSpace(email)

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.recordLogin(ctx, nil, email, client, false, "unknown_user")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !user.IsActive {
		s.recordLogin(ctx, user, email, client, false, "inactive")
		return nil, ErrInvalidCredentials
	}
	if user.PasswordHash == nil || !auth.ComparePassword(*user.PasswordHash, password) {
		s.recordLogin(ctx, user, email, client, false, "bad_password")
		return nil, ErrInvalidCredentials
	}

	token, expiresAt, err := s.tokens.Generate(ClaimsFor(user))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.recordLogin(ctx, user, email, client, true, "")
	s.logger.Info("login successful",
		zap.String("request_id", client.RequestID),
		zap.String("user_id", user.ID),
		zap.String("role", string(user.Role)),
		zap.String("ip", client.IPAddress),
	)
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

// Registration is a self-service sign-up request that already passed input validation.
type Registration struct {
	Name              string
	Email             string
	Phone             string
	Password          string
	AcceptedMarketing bool
}

// Register creates a DISCIPULADOR account and signs it in.
func (s *AuthService) Register(ctx context.Context, in Registration, client ClientInfo) (*LoginResult, error) {
	if s.users == nil {
		return nil, apperrors.NewUnavailable("user store not configured")
	}
	email := strings.TrimSpace(in.Email)

	existing, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		s.logger.Warn("registration for existing email",
			zap.String("request_id", client.RequestID),
			zap.String("user_id", existing.ID),
		)
		return nil, emailExists(existing.PasswordHash != nil)
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.hashCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user, err := s.users.Create(ctx, domain.NewUser{
		Email:              email,
		Name:               strings.TrimSpace(in.Name),
		Phone:              strings.TrimSpace(in.Phone),
		PasswordHash:       hash,
		Role:               domain.RoleDiscipulador,
		AcceptedDataPolicy: true,
		AcceptedTerms:      true,
		AcceptedMarketing:  in.AcceptedMarketing,
	})
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, emailExists(true)
		}
		return nil, err
	}

	token, expiresAt, err := s.tokens.Generate(ClaimsFor(user))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	s.publish(ctx, events.NewEvent(events.EventUserRegistered, client.RequestID,
		events.Actor{UserID: &user.ID, Email: user.Email, IPAddress: client.IPAddress, UserAgent: client.UserAgent},
		events.UserRegisteredPayload{UserID: user.ID, CustomID: user.CustomID, Role: string(user.Role)}))
	s.logger.Info("registration completed",
		zap.String("request_id", client.RequestID),
		zap.String("user_id", user.ID),
		zap.String("custom_id", user.CustomID),
		zap.String("ip", client.IPAddress),
	)
	return &LoginResult{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func emailExists(hasPassword bool) error {
	return apperrors.NewConflict(apperrors.CodeEmailExists, "email already registered", map[string]any{
		"existingUser": true,
		"hasPassword":  hasPassword,
	})
}

// CurrentUser loads the authenticated caller.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*domain.User, error) {
	if s.users == nil {
		return nil, apperrors.NewUnavailable("user store not configured")
	}
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthorized("account disabled")
	}
	return user, nil
}

// ClaimsFor builds the token payload for user.
func ClaimsFor(user *domain.User) auth.Claims {
	return auth.Claims{
		UserID:               user.ID,
		Email:                user.Email,
		Role:                 user.Role,
		CustomID:             user.CustomID,
		CurrentMembershipID:  deref(user.CurrentMembershipID),
		CompanyName:          deref(user.CompanyName),
		HasCompletedPurchase: user.HasCompletedPurchase,
	}
}

func (s *AuthService) recordLogin(ctx context.Context, user *domain.User, email string, client ClientInfo, ok bool, reason string) {
	if !ok {
		s.logger.Warn("login failed",
			zap.String("request_id", client.RequestID),
			zap.String("email", email),
			zap.String("reason", reason),
		)
	}
	if s.dispatcher == nil {
		return
	}
	actor := events.Actor{Email: email, IPAddress: client.IPAddress, UserAgent: client.UserAgent}
	if user != nil {
		id := user.ID
		actor.UserID = &id
	}
	s.publish(ctx, events.NewEvent(events.EventLoginAttempt, client.RequestID, actor,
		events.LoginAttemptPayload{Success: ok, Reason: reason}))
}

func (s *AuthService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("publish event", zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
