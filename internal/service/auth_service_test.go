package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/amaxoft/portal-gateway/internal/auth"
	"github.com/amaxoft/portal-gateway/internal/domain"
	"github.com/amaxoft/portal-gateway/internal/events"
	apperrors "github.com/amaxoft/portal-gateway/pkg/util"
)

func testUser(t *testing.T, id, email, password string, active bool) *domain.User {
	t.Helper()
	hash, err := auth.HashPassword(password, bcrypt.MinCost)
	require.NoError(t, err)
	company := "Iglesia Central"
	return &domain.User{
		ID:                   id,
		CustomID:             "USR-" + id,
		Email:                email,
		PasswordHash:         &hash,
		Role:                 domain.RoleSupervisor,
		IsActive:             active,
		HasCompletedPurchase: true,
		CompanyName:          &company,
	}
}

func newAuthService(t *testing.T, users ...*domain.User) (*AuthService, *[]events.Event) {
	t.Helper()
	published := &[]events.Event{}
	d := events.NewInMemoryDispatcher()
	d.Subscribe(events.EventLoginAttempt, func(_ context.Context, e events.Event) error {
		*published = append(*published, e)
		return nil
	})
	tokens := auth.NewTokenManager("svc-secret", time.Hour)
	return NewAuthService(newFakeUsers(users...), tokens, d, zap.NewNop()), published
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	svc, published := newAuthService(t, testUser(t, "u-1", "ana@example.com", "s3cret", true))

	res, err := svc.Login(context.Background(), " ANA@example.com ", "s3cret", ClientInfo{RequestID: "r1", IPAddress: "1.2.3.4"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", res.User.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), res.ExpiresAt, 5*time.Second)

	claims, err := auth.NewTokenManager("svc-secret", time.Hour).Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	assert.Equal(t, domain.RoleSupervisor, claims.Role)
	assert.Equal(t, "USR-u-1", claims.CustomID)
	assert.Equal(t, "Iglesia Central", claims.CompanyName)
	assert.True(t, claims.HasCompletedPurchase)

	require.Len(t, *published, 1)
	assert.True(t, (*published)[0].Payload.(events.LoginAttemptPayload).Success)
	assert.Equal(t, "r1", (*published)[0].RequestID)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	noHash := &domain.User{ID: "u-3", Email: "nohash@example.com", Role: domain.RolePastor, IsActive: true}
	svc, published := newAuthService(t,
		testUser(t, "u-1", "ana@example.com", "s3cret", true),
		testUser(t, "u-2", "off@example.com", "s3cret", false),
		noHash,
	)

	cases := map[string][2]string{
		"wrong password": {"ana@example.com", "nope"},
		"unknown user":   {"ghost@example.com", "s3cret"},
		"inactive":       {"off@example.com", "s3cret"},
		"no hash":        {"nohash@example.com", "password123"},
	}
	for name, creds := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Login(context.Background(), creds[0], creds[1], ClientInfo{})
			de := apperrors.ToDomainError(err)
			require.NotNil(t, de)
			assert.Equal(t, apperrors.CodeInvalidCredentials, de.Code)
			assert.Equal(t, 401, de.HTTPStatus)
		})
	}
	assert.Len(t, *published, len(cases))
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newAuthService(t,
		testUser(t, "u-1", "ana@example.com", "x", true),
		testUser(t, "u-2", "off@example.com", "x", false),
	)

	user, err := svc.CurrentUser(context.Background(), "u-1")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", user.Email)

	_, err = svc.CurrentUser(context.Background(), "u-2")
	assert.Equal(t, apperrors.CodeUnauthorized, apperrors.ToDomainError(err).Code)

	_, err = svc.CurrentUser(context.Background(), "missing")
	assert.Equal(t, apperrors.CodeNotFound, apperrors.ToDomainError(err).Code)
}

func TestServicesWithoutDatabase(t *testing.T) {
	svc := NewAuthService(nil, auth.NewTokenManager("x", time.Hour), nil, zap.NewNop())
	_, err := svc.Login(context.Background(), "a@b.c", "p", ClientInfo{})
	assert.Equal(t, 503, apperrors.ToDomainError(err).HTTPStatus)

	_, err = NewUserService(nil).Get(context.Background(), "u-1")
	assert.Equal(t, apperrors.CodeUnavailable, apperrors.ToDomainError(err).Code)
}

func TestRegisterCreatesDiscipuladorAndSignsIn(t *testing.T) {
	users := newFakeUsers()
	d := events.NewInMemoryDispatcher()
	var registered []events.Event
	d.Subscribe(events.EventUserRegistered, func(_ context.Context, e events.Event) error {
		registered = append(registered, e)
		return nil
	})
	tokens := auth.NewTokenManager("svc-secret", time.Hour)
	svc := NewAuthService(users, tokens, d, zap.NewNop()).WithHashCost(bcrypt.MinCost)

	res, err := svc.Register(context.Background(), Registration{
		Name:              " Luis Gómez ",
		Email:             " luis@example.com ",
		Phone:             "+57 300 123 4567",
		Password:          "longenough",
		AcceptedMarketing: true,
	}, ClientInfo{RequestID: "r-9", IPAddress: "9.9.9.9"})
	require.NoError(t, err)

	assert.Equal(t, domain.RoleDiscipulador, res.User.Role)
	assert.Equal(t, "DI-001", res.User.CustomID)
	require.Len(t, users.created, 1)
	created := users.created[0]
	assert.Equal(t, "luis@example.com", created.Email)
	assert.Equal(t, "Luis Gómez", created.Name)
	assert.True(t, created.AcceptedDataPolicy)
	assert.True(t, created.AcceptedTerms)
	assert.True(t, created.AcceptedMarketing)
	assert.True(t, auth.ComparePassword(created.PasswordHash, "longenough"))

	claims, err := tokens.Verify(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.False(t, claims.HasCompletedPurchase)

	require.Len(t, registered, 1)
	payload := registered[0].Payload.(events.UserRegisteredPayload)
	assert.Equal(t, "DI-001", payload.CustomID)
	assert.Equal(t, "r-9", registered[0].RequestID)

	// Login works with the new password.
	_, err = svc.Login(context.Background(), "luis@example.com", "longenough", ClientInfo{})
	require.NoError(t, err)
}

func TestRegisterRejectsExistingEmail(t *testing.T) {
	noHash := &domain.User{ID: "u-3", Email: "nohash@example.com", Role: domain.RolePastor, IsActive: true}
	svc, _ := newAuthService(t, testUser(t, "u-1", "ana@example.com", "s3cret", true), noHash)

	tests := []struct {
		email       string
		hasPassword bool
	}{
		{"ANA@example.com", true},
		{"nohash@example.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			_, err := svc.Register(context.Background(), Registration{Email: tt.email, Password: "longenough"}, ClientInfo{})
			de := apperrors.ToDomainError(err)
			require.NotNil(t, de)
			assert.Equal(t, apperrors.CodeEmailExists, de.Code)
			assert.Equal(t, 409, de.HTTPStatus)
			assert.Equal(t, tt.hasPassword, de.Details["hasPassword"])
		})
	}
}

func TestRegisterWithoutDatabase(t *testing.T) {
	svc := NewAuthService(nil, auth.NewTokenManager("x", time.Hour), nil, zap.NewNop())
	_, err := svc.Register(context.Background(), Registration{Email: "a@b.c", Password: "longenough"}, ClientInfo{})
	assert.Equal(t, apperrors.CodeUnavailable, apperrors.ToDomainError(err).Code)
}
